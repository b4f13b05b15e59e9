// Package memory provides an in-memory implementation of the domain
// repositories and the transactional Store. It backs the service-level tests
// and local development without a database.
//
// Transactions stage their writes and apply them atomically on commit under a
// single mutex, guarded by the same version compare-and-swap semantics as the
// SQL store: a transaction that loses the version check is rolled back in its
// entirety and reports domain.ErrVersionConflict.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"eventplatform/internal/domain"
)

type Store struct {
	mu           sync.RWMutex
	events       map[string]*domain.Event
	users        map[string]*domain.User
	usersByEmail map[string]string
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		events:       make(map[string]*domain.Event),
		users:        make(map[string]*domain.User),
		usersByEmail: make(map[string]string),
	}
}

// txOp is a staged mutation. All checks of a transaction run before any apply,
// so a failed check leaves the store untouched.
type txOp struct {
	check func(s *Store) error
	apply func(s *Store)
}

type memTx struct {
	store *Store
	ops   []txOp
}

// WithinTx implements domain.Store.
func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Store) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range tx.ops {
		if op.check != nil {
			if err := op.check(s); err != nil {
				return err
			}
		}
	}
	for _, op := range tx.ops {
		op.apply(s)
	}
	return nil
}

func (tx *memTx) LoadEventForUpdate(ctx context.Context, eventID string) (*domain.Event, error) {
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	event, ok := tx.store.events[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyEvent(event), nil
}

func (tx *memTx) InsertEvent(ctx context.Context, event *domain.Event) error {
	event.ID = uuid.NewString()
	event.Version = 1
	staged := copyEvent(event)
	tx.ops = append(tx.ops, txOp{
		apply: func(s *Store) {
			s.events[staged.ID] = staged
		},
	})
	return nil
}

func (tx *memTx) UpdateEvent(ctx context.Context, event *domain.Event, expectedVersion int64) error {
	staged := copyEvent(event)
	tx.ops = append(tx.ops, txOp{
		check: versionCheck(staged.ID, expectedVersion),
		apply: func(s *Store) {
			stored := s.events[staged.ID]
			stored.Title = staged.Title
			stored.Description = staged.Description
			stored.Date = staged.Date
			stored.Location = staged.Location
			stored.Capacity = staged.Capacity
			stored.ImageURL = staged.ImageURL
			stored.UpdatedAt = staged.UpdatedAt
			stored.Version = expectedVersion + 1
		},
	})
	return nil
}

func (tx *memTx) DeleteEvent(ctx context.Context, eventID string, expectedVersion int64) error {
	tx.ops = append(tx.ops, txOp{
		check: versionCheck(eventID, expectedVersion),
		apply: func(s *Store) {
			delete(s.events, eventID)
		},
	})
	return nil
}

func (tx *memTx) AddAttendee(ctx context.Context, eventID, userID string) error {
	tx.ops = append(tx.ops, txOp{
		apply: func(s *Store) {
			event, ok := s.events[eventID]
			if !ok || slices.Contains(event.Attendees, userID) {
				return
			}
			event.Attendees = append(event.Attendees, userID)
		},
	})
	return nil
}

func (tx *memTx) RemoveAttendee(ctx context.Context, eventID, userID string) error {
	tx.ops = append(tx.ops, txOp{
		apply: func(s *Store) {
			event, ok := s.events[eventID]
			if !ok {
				return
			}
			event.Attendees = remove(event.Attendees, userID)
		},
	})
	return nil
}

func (tx *memTx) AddJoinedEvent(ctx context.Context, userID, eventID string) error {
	tx.ops = append(tx.ops, txOp{
		check: userCheck(userID),
		apply: func(s *Store) {
			user := s.users[userID]
			if !slices.Contains(user.JoinedEvents, eventID) {
				user.JoinedEvents = append(user.JoinedEvents, eventID)
			}
		},
	})
	return nil
}

func (tx *memTx) RemoveJoinedEvent(ctx context.Context, userID, eventID string) error {
	tx.ops = append(tx.ops, txOp{
		check: userCheck(userID),
		apply: func(s *Store) {
			user := s.users[userID]
			user.JoinedEvents = remove(user.JoinedEvents, eventID)
		},
	})
	return nil
}

func (tx *memTx) AddCreatedEvent(ctx context.Context, userID, eventID string) error {
	tx.ops = append(tx.ops, txOp{
		check: userCheck(userID),
		apply: func(s *Store) {
			user := s.users[userID]
			if !slices.Contains(user.CreatedEvents, eventID) {
				user.CreatedEvents = append(user.CreatedEvents, eventID)
			}
		},
	})
	return nil
}

func (tx *memTx) RemoveCreatedEvent(ctx context.Context, userID, eventID string) error {
	tx.ops = append(tx.ops, txOp{
		check: userCheck(userID),
		apply: func(s *Store) {
			user := s.users[userID]
			user.CreatedEvents = remove(user.CreatedEvents, eventID)
		},
	})
	return nil
}

func versionCheck(eventID string, expected int64) func(s *Store) error {
	return func(s *Store) error {
		stored, ok := s.events[eventID]
		if !ok {
			return domain.ErrNotFound
		}
		if stored.Version != expected {
			return domain.ErrVersionConflict
		}
		return nil
	}
}

func userCheck(userID string) func(s *Store) error {
	return func(s *Store) error {
		if _, ok := s.users[userID]; !ok {
			return domain.ErrUserNotFound
		}
		return nil
	}
}

// EventRepository returns the read-side event view of the store.
func (s *Store) EventRepository() domain.EventRepository { return &eventRepository{s: s} }

// UserRepository returns the read-side user view of the store.
func (s *Store) UserRepository() domain.UserRepository { return &userRepository{s: s} }

type eventRepository struct{ s *Store }

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	event, ok := r.s.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyEvent(event), nil
}

func (r *eventRepository) List(ctx context.Context) ([]*domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	events := make([]*domain.Event, 0, len(r.s.events))
	for _, event := range r.s.events {
		events = append(events, copyEvent(event))
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })
	return events, nil
}

func (r *eventRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	events := make([]*domain.Event, 0, len(ids))
	for _, id := range ids {
		if event, ok := r.s.events[id]; ok {
			events = append(events, copyEvent(event))
		}
	}
	return events, nil
}

type userRepository struct{ s *Store }

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.usersByEmail[user.Email]; ok {
		return domain.ErrDuplicateEmail
	}
	user.ID = uuid.NewString()
	r.s.users[user.ID] = copyUser(user)
	r.s.usersByEmail[user.Email] = user.ID
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.usersByEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return copyUser(r.s.users[id]), nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return copyUser(user), nil
}

func copyEvent(e *domain.Event) *domain.Event {
	c := *e
	c.Attendees = slices.Clone(e.Attendees)
	if c.Attendees == nil {
		c.Attendees = []string{}
	}
	return &c
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	c.CreatedEvents = slices.Clone(u.CreatedEvents)
	c.JoinedEvents = slices.Clone(u.JoinedEvents)
	return &c
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

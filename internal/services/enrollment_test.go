package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventplatform/internal/domain"
	"eventplatform/internal/repository/memory"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const testTimeout = 5 * time.Second

func newTestStore(t *testing.T) (*memory.Store, *domain.User, *domain.Event) {
	t.Helper()
	return newTestStoreWithCapacity(t, 5)
}

func newTestStoreWithCapacity(t *testing.T, capacity int) (*memory.Store, *domain.User, *domain.Event) {
	t.Helper()
	store := memory.NewStore()
	user := createUser(t, store, "Ada", "ada@example.com")
	event := createEvent(t, store, user.ID, capacity)
	return store, user, event
}

func createUser(t *testing.T, store *memory.Store, name, email string) *domain.User {
	t.Helper()
	now := time.Now()
	user := domain.NewUser(name, email, "hash", "salt", now, now)
	require.NoError(t, store.UserRepository().Create(context.Background(), user))
	return user
}

func createEvent(t *testing.T, store *memory.Store, creatorID string, capacity int) *domain.Event {
	t.Helper()
	now := time.Now()
	event := domain.NewEvent("Go Meetup", "Monthly meetup", "Berlin", "", creatorID, now.Add(24*time.Hour), capacity, now, now)
	err := store.WithinTx(context.Background(), func(tx domain.Tx) error {
		if err := tx.InsertEvent(context.Background(), event); err != nil {
			return err
		}
		return tx.AddCreatedEvent(context.Background(), creatorID, event.ID)
	})
	require.NoError(t, err)
	return event
}

// recordingMetrics implements EnrollmentMetrics for assertions.
type recordingMetrics struct {
	mu      sync.Mutex
	joins   []string
	leaves  []string
	retries int
}

func (m *recordingMetrics) RecordJoin(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joins = append(m.joins, outcome)
}

func (m *recordingMetrics) RecordLeave(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaves = append(m.leaves, outcome)
}

func (m *recordingMetrics) RecordConflictRetry() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
}

// recordingEmailService implements domain.EmailService for assertions.
type recordingEmailService struct {
	mu            sync.Mutex
	confirmations []*domain.EnrollmentConfirmationEmailData
	cancellations []*domain.EventCancelledEmailData
}

func (e *recordingEmailService) SendWelcomeMessage(_ context.Context, _ *domain.WelcomeMessageEmailData) error {
	return nil
}

func (e *recordingEmailService) SendEnrollmentConfirmation(_ context.Context, data *domain.EnrollmentConfirmationEmailData) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.confirmations = append(e.confirmations, data)
	return nil
}

func (e *recordingEmailService) SendEventCancelled(_ context.Context, data *domain.EventCancelledEmailData) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancellations = append(e.cancellations, data)
	return nil
}

// requireConsistent asserts that the attendee list and every user's
// joined-events mirror agree with each other for the given event.
func requireConsistent(t *testing.T, store *memory.Store, eventID string, users ...*domain.User) {
	t.Helper()
	event, err := store.EventRepository().GetByID(context.Background(), eventID)
	require.NoError(t, err)
	require.LessOrEqual(t, len(event.Attendees), event.Capacity)
	for _, u := range users {
		user, err := store.UserRepository().GetByID(context.Background(), u.ID)
		require.NoError(t, err)
		if event.HasAttendee(u.ID) {
			assert.Contains(t, user.JoinedEvents, eventID, "attendee %s missing the joined-events mirror", u.ID)
		} else {
			assert.NotContains(t, user.JoinedEvents, eventID, "non-attendee %s still carries the joined-events mirror", u.ID)
		}
	}
}

func TestJoinAddsAttendeeAndMirror(t *testing.T) {
	store, creator, event := newTestStore(t)
	joiner := createUser(t, store, "Grace", "grace@example.com")
	metrics := &recordingMetrics{}
	svc := NewEnrollmentService(store, store.UserRepository(), nil, metrics, testLogger, testTimeout)

	require.NoError(t, svc.Join(context.Background(), event.ID, joiner.ID))

	stored, err := store.EventRepository().GetByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{joiner.ID}, stored.Attendees)
	requireConsistent(t, store, event.ID, creator, joiner)
	assert.Equal(t, []string{"ok"}, metrics.joins)
}

func TestJoinEventNotFound(t *testing.T) {
	store, _, _ := newTestStore(t)
	joiner := createUser(t, store, "Grace", "grace@example.com")
	svc := NewEnrollmentService(store, store.UserRepository(), nil, nil, testLogger, testTimeout)

	err := svc.Join(context.Background(), "missing-event", joiner.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestJoinTwiceIsRejected(t *testing.T) {
	store, creator, event := newTestStore(t)
	joiner := createUser(t, store, "Grace", "grace@example.com")
	metrics := &recordingMetrics{}
	svc := NewEnrollmentService(store, store.UserRepository(), nil, metrics, testLogger, testTimeout)

	require.NoError(t, svc.Join(context.Background(), event.ID, joiner.ID))
	err := svc.Join(context.Background(), event.ID, joiner.ID)
	require.ErrorIs(t, err, domain.ErrAlreadyEnrolled)

	// The rejected join must not have touched anything.
	stored, err := store.EventRepository().GetByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{joiner.ID}, stored.Attendees)
	storedUser, err := store.UserRepository().GetByID(context.Background(), joiner.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{event.ID}, storedUser.JoinedEvents)
	requireConsistent(t, store, event.ID, creator, joiner)
	assert.Equal(t, []string{"ok", "already_enrolled"}, metrics.joins)
}

func TestJoinFullEventIsRejected(t *testing.T) {
	store, creator, event := newTestStoreWithCapacity(t, 2)
	a := createUser(t, store, "A", "a@example.com")
	b := createUser(t, store, "B", "b@example.com")
	c := createUser(t, store, "C", "c@example.com")
	svc := NewEnrollmentService(store, store.UserRepository(), nil, nil, testLogger, testTimeout)

	require.NoError(t, svc.Join(context.Background(), event.ID, a.ID))
	require.NoError(t, svc.Join(context.Background(), event.ID, b.ID))
	err := svc.Join(context.Background(), event.ID, c.ID)
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)

	requireConsistent(t, store, event.ID, creator, a, b, c)
}

func TestJoinUnknownUserRollsBackAtomically(t *testing.T) {
	store, creator, event := newTestStore(t)
	metrics := &recordingMetrics{}
	svc := NewEnrollmentService(store, store.UserRepository(), nil, metrics, testLogger, testTimeout)

	// The attendee insert is staged before the user mirror check fails, so a
	// partial apply here would leave a dangling attendee entry.
	err := svc.Join(context.Background(), event.ID, "ghost-user")
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	stored, err := store.EventRepository().GetByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Attendees)
	assert.Equal(t, event.Version, stored.Version)
	assert.Equal(t, []string{"user_not_found"}, metrics.joins)
	requireConsistent(t, store, event.ID, creator)
}

func TestJoinSendsConfirmationEmail(t *testing.T) {
	store, _, event := newTestStore(t)
	joiner := createUser(t, store, "Grace", "grace@example.com")
	emails := &recordingEmailService{}
	svc := NewEnrollmentService(store, store.UserRepository(), emails, nil, testLogger, testTimeout)

	require.NoError(t, svc.Join(context.Background(), event.ID, joiner.ID))

	require.Len(t, emails.confirmations, 1)
	assert.Equal(t, "grace@example.com", emails.confirmations[0].Email)
	assert.Equal(t, "Go Meetup", emails.confirmations[0].EventTitle)
	assert.Equal(t, "Berlin", emails.confirmations[0].Location)
}

func TestLeaveRemovesAttendeeAndMirror(t *testing.T) {
	store, creator, event := newTestStore(t)
	joiner := createUser(t, store, "Grace", "grace@example.com")
	metrics := &recordingMetrics{}
	svc := NewEnrollmentService(store, store.UserRepository(), nil, metrics, testLogger, testTimeout)

	require.NoError(t, svc.Join(context.Background(), event.ID, joiner.ID))
	require.NoError(t, svc.Leave(context.Background(), event.ID, joiner.ID))

	stored, err := store.EventRepository().GetByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Attendees)
	storedUser, err := store.UserRepository().GetByID(context.Background(), joiner.ID)
	require.NoError(t, err)
	assert.Empty(t, storedUser.JoinedEvents)
	requireConsistent(t, store, event.ID, creator, joiner)
	assert.Equal(t, []string{"ok"}, metrics.leaves)
}

func TestLeaveWithoutJoinIsRejected(t *testing.T) {
	store, _, event := newTestStore(t)
	user := createUser(t, store, "Grace", "grace@example.com")
	svc := NewEnrollmentService(store, store.UserRepository(), nil, nil, testLogger, testTimeout)

	err := svc.Leave(context.Background(), event.ID, user.ID)
	require.ErrorIs(t, err, domain.ErrNotEnrolled)
}

func TestLeaveEventNotFound(t *testing.T) {
	store, _, _ := newTestStore(t)
	user := createUser(t, store, "Grace", "grace@example.com")
	svc := NewEnrollmentService(store, store.UserRepository(), nil, nil, testLogger, testTimeout)

	err := svc.Leave(context.Background(), "missing-event", user.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLeaveFreesSpotForWaitingJoiner(t *testing.T) {
	store, creator, event := newTestStoreWithCapacity(t, 2)
	a := createUser(t, store, "A", "a@example.com")
	b := createUser(t, store, "B", "b@example.com")
	c := createUser(t, store, "C", "c@example.com")
	svc := NewEnrollmentService(store, store.UserRepository(), nil, nil, testLogger, testTimeout)

	require.NoError(t, svc.Join(context.Background(), event.ID, a.ID))
	require.NoError(t, svc.Join(context.Background(), event.ID, b.ID))
	require.ErrorIs(t, svc.Join(context.Background(), event.ID, c.ID), domain.ErrCapacityExceeded)

	require.NoError(t, svc.Leave(context.Background(), event.ID, a.ID))
	require.NoError(t, svc.Join(context.Background(), event.ID, c.ID))

	stored, err := store.EventRepository().GetByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{b.ID, c.ID}, stored.Attendees)
	requireConsistent(t, store, event.ID, creator, a, b, c)
}

func TestConcurrentJoinsNeverOverbook(t *testing.T) {
	const joiners = 10
	store, creator, event := newTestStoreWithCapacity(t, 1)
	users := make([]*domain.User, joiners)
	for i := range users {
		users[i] = createUser(t, store, fmt.Sprintf("User %d", i), fmt.Sprintf("user%d@example.com", i))
	}
	metrics := &recordingMetrics{}
	svc := NewEnrollmentService(store, store.UserRepository(), nil, metrics, testLogger, testTimeout)

	errs := make([]error, joiners)
	var wg sync.WaitGroup
	for i := range users {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.Join(context.Background(), event.ID, users[i].ID)
		}(i)
	}
	wg.Wait()

	var ok, full int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrCapacityExceeded):
			full++
		default:
			t.Fatalf("unexpected join error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, joiners-1, full)

	stored, err := store.EventRepository().GetByID(context.Background(), event.ID)
	require.NoError(t, err)
	require.Len(t, stored.Attendees, 1)
	requireConsistent(t, store, event.ID, append([]*domain.User{creator}, users...)...)
}

// conflictStore always loses the version check, as if every attempt raced a
// concurrent writer that committed first.
type conflictStore struct {
	calls int
}

func (s *conflictStore) WithinTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	s.calls++
	return domain.ErrVersionConflict
}

func TestJoinExhaustedRetriesReturnTransient(t *testing.T) {
	store, _, event := newTestStore(t)
	joiner := createUser(t, store, "Grace", "grace@example.com")
	cs := &conflictStore{}
	metrics := &recordingMetrics{}
	svc := NewEnrollmentService(cs, store.UserRepository(), nil, metrics, testLogger, testTimeout)

	err := svc.Join(context.Background(), event.ID, joiner.ID)
	require.ErrorIs(t, err, domain.ErrTransient)
	assert.Equal(t, maxConflictRetries, cs.calls)
	assert.Equal(t, maxConflictRetries, metrics.retries)
	assert.Equal(t, []string{"conflict"}, metrics.joins)
}

func TestLeaveExhaustedRetriesReturnTransient(t *testing.T) {
	store, _, event := newTestStore(t)
	joiner := createUser(t, store, "Grace", "grace@example.com")
	cs := &conflictStore{}
	svc := NewEnrollmentService(cs, store.UserRepository(), nil, nil, testLogger, testTimeout)

	err := svc.Leave(context.Background(), event.ID, joiner.ID)
	require.ErrorIs(t, err, domain.ErrTransient)
	assert.Equal(t, maxConflictRetries, cs.calls)
}

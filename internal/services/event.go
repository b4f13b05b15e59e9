package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventplatform/internal/domain"
)

type eventService struct {
	store          domain.Store
	eventRepo      domain.EventRepository
	userRepo       domain.UserRepository
	emailService   domain.EmailService
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewEventService creates an EventService. emailService may be nil.
func NewEventService(
	store domain.Store,
	eventRepo domain.EventRepository,
	userRepo domain.UserRepository,
	emailService domain.EmailService,
	logger *slog.Logger,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		store:          store,
		eventRepo:      eventRepo,
		userRepo:       userRepo,
		emailService:   emailService,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if event.CreatorID == "" {
		return fmt.Errorf("%w: event creator is required", domain.ErrInvalidInput)
	}
	if event.Title == "" || event.Description == "" || event.Location == "" {
		return domain.ErrInvalidInput
	}
	if event.Capacity < 1 {
		return domain.ErrInvalidCapacity
	}

	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now

	// Insert and the creator-side mirror entry commit together.
	return s.store.WithinTx(ctx, func(tx domain.Tx) error {
		if err := tx.InsertEvent(ctx, event); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		if err := tx.AddCreatedEvent(ctx, event.CreatorID, event.ID); err != nil {
			return fmt.Errorf("add created event: %w", err)
		}
		return nil
	})
}

func (s *eventService) GetEventByID(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *eventService) ListEvents(ctx context.Context) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.eventRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, eventID, callerID string, update domain.EventUpdate) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		var updated *domain.Event
		err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
			event, err := tx.LoadEventForUpdate(ctx, eventID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.ErrNotFound
				}
				return fmt.Errorf("load event: %w", err)
			}
			if event.CreatorID != callerID {
				return domain.ErrForbidden
			}
			if update.Capacity != nil {
				// Shrinking below the current attendee count would silently
				// break the capacity invariant for everyone already enrolled.
				if *update.Capacity < 1 || *update.Capacity < len(event.Attendees) {
					return domain.ErrInvalidCapacity
				}
				event.Capacity = *update.Capacity
			}
			if update.Title != nil {
				event.Title = *update.Title
			}
			if update.Description != nil {
				event.Description = *update.Description
			}
			if update.Date != nil {
				event.Date = *update.Date
			}
			if update.Location != nil {
				event.Location = *update.Location
			}
			if update.ImageURL != nil {
				event.ImageURL = *update.ImageURL
			}
			expected := event.Version
			event.UpdatedAt = time.Now()
			if err := tx.UpdateEvent(ctx, event, expected); err != nil {
				if errors.Is(err, domain.ErrVersionConflict) {
					return domain.ErrVersionConflict
				}
				return fmt.Errorf("update event: %w", err)
			}
			updated = event
			return nil
		})
		if errors.Is(err, domain.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, domain.ErrTransient
}

func (s *eventService) DeleteEvent(ctx context.Context, eventID, callerID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		var deleted *domain.Event
		err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
			event, err := tx.LoadEventForUpdate(ctx, eventID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.ErrNotFound
				}
				return fmt.Errorf("load event: %w", err)
			}
			if event.CreatorID != callerID {
				return domain.ErrForbidden
			}
			// Every attendee's joined-events mirror and the creator's
			// created-events mirror are detached in the same unit of work,
			// so no user record ever points at a deleted event.
			for _, attendeeID := range event.Attendees {
				if err := tx.RemoveJoinedEvent(ctx, attendeeID, eventID); err != nil {
					return fmt.Errorf("remove joined event for %s: %w", attendeeID, err)
				}
			}
			if err := tx.RemoveCreatedEvent(ctx, event.CreatorID, eventID); err != nil {
				return fmt.Errorf("remove created event: %w", err)
			}
			if err := tx.DeleteEvent(ctx, eventID, event.Version); err != nil {
				if errors.Is(err, domain.ErrVersionConflict) {
					return domain.ErrVersionConflict
				}
				return fmt.Errorf("delete event: %w", err)
			}
			deleted = event
			return nil
		})
		if errors.Is(err, domain.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return err
		}
		s.sendCancellationEmails(ctx, deleted)
		return nil
	}
	return domain.ErrTransient
}

// sendCancellationEmails notifies attendees of a deleted event. Best-effort.
func (s *eventService) sendCancellationEmails(ctx context.Context, event *domain.Event) {
	if s.emailService == nil || len(event.Attendees) == 0 {
		return
	}
	for _, attendeeID := range event.Attendees {
		user, err := s.userRepo.GetByID(ctx, attendeeID)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping cancellation email", "user_id", attendeeID, "err", err)
			continue
		}
		data := &domain.EventCancelledEmailData{
			Email:      user.Email,
			Name:       user.Name,
			EventTitle: event.Title,
		}
		if err := s.emailService.SendEventCancelled(ctx, data); err != nil {
			s.logger.WarnContext(ctx, "cancellation email failed", "user_id", attendeeID, "err", err)
		}
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventplatform/internal/domain"
)

// maxConflictRetries bounds how often a join/leave transaction is restarted
// after losing the version compare-and-swap to a concurrent writer.
const maxConflictRetries = 3

// EnrollmentMetrics records enrollment outcomes. Implemented by metrics.Collector.
type EnrollmentMetrics interface {
	RecordJoin(outcome string)
	RecordLeave(outcome string)
	RecordConflictRetry()
}

type enrollmentService struct {
	store          domain.Store
	userRepo       domain.UserRepository
	emailService   domain.EmailService
	metrics        EnrollmentMetrics
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewEnrollmentService creates an EnrollmentService. emailService and metrics may be nil.
func NewEnrollmentService(
	store domain.Store,
	userRepo domain.UserRepository,
	emailService domain.EmailService,
	metrics EnrollmentMetrics,
	logger *slog.Logger,
	timeout time.Duration,
) domain.EnrollmentService {
	return &enrollmentService{
		store:          store,
		userRepo:       userRepo,
		emailService:   emailService,
		metrics:        metrics,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func (s *enrollmentService) Join(ctx context.Context, eventID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var joined *domain.Event
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
			event, err := tx.LoadEventForUpdate(ctx, eventID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.ErrNotFound
				}
				return fmt.Errorf("load event: %w", err)
			}
			if event.HasAttendee(userID) {
				return domain.ErrAlreadyEnrolled
			}
			if event.Full() {
				return domain.ErrCapacityExceeded
			}
			// The version bump serializes concurrent joins on the same event:
			// of two transactions that both passed the capacity check, one
			// commits and the other loses the compare-and-swap and restarts.
			expected := event.Version
			event.UpdatedAt = time.Now()
			if err := tx.UpdateEvent(ctx, event, expected); err != nil {
				if errors.Is(err, domain.ErrVersionConflict) {
					return domain.ErrVersionConflict
				}
				return fmt.Errorf("update event: %w", err)
			}
			if err := tx.AddAttendee(ctx, eventID, userID); err != nil {
				return fmt.Errorf("add attendee: %w", err)
			}
			if err := tx.AddJoinedEvent(ctx, userID, eventID); err != nil {
				return fmt.Errorf("add joined event: %w", err)
			}
			event.Attendees = append(event.Attendees, userID)
			joined = event
			return nil
		})
		if errors.Is(err, domain.ErrVersionConflict) {
			s.recordConflictRetry()
			continue
		}
		if err != nil {
			s.recordJoin(outcomeLabel(err))
			return err
		}
		s.recordJoin("ok")
		s.sendEnrollmentConfirmation(ctx, joined, userID)
		return nil
	}
	s.recordJoin("conflict")
	return domain.ErrTransient
}

func (s *enrollmentService) Leave(ctx context.Context, eventID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
			event, err := tx.LoadEventForUpdate(ctx, eventID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.ErrNotFound
				}
				return fmt.Errorf("load event: %w", err)
			}
			if !event.HasAttendee(userID) {
				return domain.ErrNotEnrolled
			}
			expected := event.Version
			event.UpdatedAt = time.Now()
			if err := tx.UpdateEvent(ctx, event, expected); err != nil {
				if errors.Is(err, domain.ErrVersionConflict) {
					return domain.ErrVersionConflict
				}
				return fmt.Errorf("update event: %w", err)
			}
			if err := tx.RemoveAttendee(ctx, eventID, userID); err != nil {
				return fmt.Errorf("remove attendee: %w", err)
			}
			if err := tx.RemoveJoinedEvent(ctx, userID, eventID); err != nil {
				return fmt.Errorf("remove joined event: %w", err)
			}
			return nil
		})
		if errors.Is(err, domain.ErrVersionConflict) {
			s.recordConflictRetry()
			continue
		}
		if err != nil {
			s.recordLeave(outcomeLabel(err))
			return err
		}
		s.recordLeave("ok")
		return nil
	}
	s.recordLeave("conflict")
	return domain.ErrTransient
}

// sendEnrollmentConfirmation is best-effort; a failed email never fails the join.
func (s *enrollmentService) sendEnrollmentConfirmation(ctx context.Context, event *domain.Event, userID string) {
	if s.emailService == nil {
		return
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping enrollment confirmation", "user_id", userID, "err", err)
		return
	}
	data := &domain.EnrollmentConfirmationEmailData{
		Email:      user.Email,
		Name:       user.Name,
		EventTitle: event.Title,
		EventDate:  event.Date.Format("Mon, 2 Jan 2006 15:04 MST"),
		Location:   event.Location,
	}
	if err := s.emailService.SendEnrollmentConfirmation(ctx, data); err != nil {
		s.logger.WarnContext(ctx, "enrollment confirmation email failed", "user_id", userID, "err", err)
	}
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrAlreadyEnrolled):
		return "already_enrolled"
	case errors.Is(err, domain.ErrNotEnrolled):
		return "not_enrolled"
	case errors.Is(err, domain.ErrCapacityExceeded):
		return "event_full"
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found"
	default:
		return "error"
	}
}

func (s *enrollmentService) recordJoin(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordJoin(outcome)
	}
}

func (s *enrollmentService) recordLeave(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordLeave(outcome)
	}
}

func (s *enrollmentService) recordConflictRetry() {
	if s.metrics != nil {
		s.metrics.RecordConflictRetry()
	}
}

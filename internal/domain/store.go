package domain

import (
	"context"
	"errors"
)

// Store-level errors. ErrVersionConflict is consumed by the enrollment retry
// loop; ErrTransient is what callers see once retries are exhausted or the
// store itself is unavailable. Both are distinct from every business-rule error.
var (
	ErrVersionConflict = errors.New("event version conflict")
	ErrTransient       = errors.New("transient store failure")
)

// Tx is a single all-or-nothing unit of work spanning the event and user
// records touched by one operation. Writes are only visible to other callers
// after WithinTx returns nil; any error from the callback rolls everything back.
type Tx interface {
	// LoadEventForUpdate returns a consistent snapshot of the event,
	// including its attendee set and current version.
	LoadEventForUpdate(ctx context.Context, eventID string) (*Event, error)

	// InsertEvent stores a new event and sets its ID and Version.
	InsertEvent(ctx context.Context, event *Event) error

	// UpdateEvent writes the event's content fields and bumps its version.
	// The write only applies if the stored version still equals
	// expectedVersion; otherwise it fails with ErrVersionConflict.
	UpdateEvent(ctx context.Context, event *Event, expectedVersion int64) error

	// DeleteEvent removes the event record and its attendee set. Like
	// UpdateEvent it is guarded by expectedVersion, so a deletion cannot
	// race a concurrent join and leave a dangling joined-events entry.
	DeleteEvent(ctx context.Context, eventID string, expectedVersion int64) error

	AddAttendee(ctx context.Context, eventID, userID string) error
	RemoveAttendee(ctx context.Context, eventID, userID string) error

	AddJoinedEvent(ctx context.Context, userID, eventID string) error
	RemoveJoinedEvent(ctx context.Context, userID, eventID string) error

	AddCreatedEvent(ctx context.Context, userID, eventID string) error
	RemoveCreatedEvent(ctx context.Context, userID, eventID string) error
}

// Store runs transactions across the event and user records.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// EnrollmentService owns the join/leave protocol: capacity enforcement and
// the attendee-set / joined-events consistency guarantee.
type EnrollmentService interface {
	// Join enrolls the user in the event. Fails with ErrNotFound,
	// ErrAlreadyEnrolled, ErrCapacityExceeded, or ErrTransient.
	Join(ctx context.Context, eventID, userID string) error
	// Leave withdraws the user from the event. Fails with ErrNotFound,
	// ErrNotEnrolled, or ErrTransient.
	Leave(ctx context.Context, eventID, userID string) error
}

package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared across event and enrollment operations.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidCapacity  = errors.New("capacity below current attendee count")
	ErrAlreadyEnrolled  = errors.New("already enrolled in event")
	ErrNotEnrolled      = errors.New("not enrolled in event")
	ErrCapacityExceeded = errors.New("event is full")
)

// Event represents a capacity-bounded event. Attendees has set semantics:
// no duplicates, order irrelevant. Version increments on every committed
// write to the event record and backs optimistic concurrency control.
// swagger:model Event
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Capacity    int       `json:"capacity"`
	ImageURL    string    `json:"image_url"`
	CreatorID   string    `json:"creator_id"`
	Attendees   []string  `json:"attendees"`
	Version     int64     `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewEvent returns a new Event with the given fields. ID and Version are set by the store on insert.
func NewEvent(title, description, location, imageURL, creatorID string, date time.Time, capacity int, createdAt, updatedAt time.Time) *Event {
	return &Event{
		Title:       title,
		Description: description,
		Date:        date,
		Location:    location,
		Capacity:    capacity,
		ImageURL:    imageURL,
		CreatorID:   creatorID,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
}

// HasAttendee reports whether userID is in the attendee set.
func (e *Event) HasAttendee(userID string) bool {
	for _, id := range e.Attendees {
		if id == userID {
			return true
		}
	}
	return false
}

// Full reports whether the attendee set has reached capacity.
func (e *Event) Full() bool {
	return len(e.Attendees) >= e.Capacity
}

// EventUpdate carries the optional fields of an event update. Nil means "leave unchanged".
type EventUpdate struct {
	Title       *string
	Description *string
	Date        *time.Time
	Location    *string
	Capacity    *int
	ImageURL    *string
}

// EventRepository defines read-side event storage. Mutations that touch the
// attendee set or a user's event lists go through Store instead.
type EventRepository interface {
	GetByID(ctx context.Context, id string) (*Event, error)
	// List returns all events ordered by date, soonest first.
	List(ctx context.Context) ([]*Event, error)
	ListByIDs(ctx context.Context, ids []string) ([]*Event, error)
}

// EventService defines event content operations. All mutations are
// creator-guarded; capacity reduction below the current attendee count is
// rejected with ErrInvalidCapacity.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event) error
	GetEventByID(ctx context.Context, eventID string) (*Event, error)
	ListEvents(ctx context.Context) ([]*Event, error)
	UpdateEvent(ctx context.Context, eventID, callerID string, update EventUpdate) (*Event, error)
	DeleteEvent(ctx context.Context, eventID, callerID string) error
}

package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"eventplatform/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

// NewEventRepository returns the read-side event repository.
func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{DB: db}
}

const eventColumns = `id, title, description, date, location, capacity, image_url, creator_id, version, created_at, updated_at`

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e := &domain.Event{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.Title, &e.Description, &e.Date, &e.Location, &e.Capacity,
		&e.ImageURL, &e.CreatorID, &e.Version, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	attendees, err := r.attendeesByEventIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	e.Attendees = attendees[id]
	if e.Attendees == nil {
		e.Attendees = []string{}
	}
	return e, nil
}

func (r *eventRepository) List(ctx context.Context) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY date ASC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	return r.fillAttendees(ctx, events)
}

func (r *eventRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.Event, error) {
	if len(ids) == 0 {
		return []*domain.Event{}, nil
	}
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ANY($1) ORDER BY date ASC`
	rows, err := r.DB.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	return r.fillAttendees(ctx, events)
}

func scanEvents(rows *sql.Rows) ([]*domain.Event, error) {
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e := &domain.Event{}
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Description, &e.Date, &e.Location, &e.Capacity,
			&e.ImageURL, &e.CreatorID, &e.Version, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepository) fillAttendees(ctx context.Context, events []*domain.Event) ([]*domain.Event, error) {
	if len(events) == 0 {
		return events, nil
	}
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	attendees, err := r.attendeesByEventIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		e.Attendees = attendees[e.ID]
		if e.Attendees == nil {
			e.Attendees = []string{}
		}
	}
	return events, nil
}

func (r *eventRepository) attendeesByEventIDs(ctx context.Context, eventIDs []string) (map[string][]string, error) {
	query := `SELECT event_id, user_id FROM event_attendees WHERE event_id = ANY($1)`
	rows, err := r.DB.QueryContext(ctx, query, pq.Array(eventIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	attendees := make(map[string][]string)
	for rows.Next() {
		var eventID, userID string
		if err := rows.Scan(&eventID, &userID); err != nil {
			return nil, err
		}
		attendees[eventID] = append(attendees[eventID], userID)
	}
	return attendees, rows.Err()
}

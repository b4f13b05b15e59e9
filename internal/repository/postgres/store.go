package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"eventplatform/internal/domain"
)

// foreignKeyViolation is the Postgres error code for a missing referenced row.
const foreignKeyViolation = "23503"

type store struct {
	DB *sql.DB
}

// NewStore returns a domain.Store backed by database/sql transactions.
// Version checks on the events row serialize concurrent writers; begin and
// commit failures surface as domain.ErrTransient so callers can retry.
func NewStore(db *sql.DB) domain.Store {
	return &store{DB: db}
}

func (s *store) WithinTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", domain.ErrTransient, err)
	}
	if err := fn(&storeTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx: %v", domain.ErrTransient, err)
	}
	return nil
}

type storeTx struct {
	tx *sql.Tx
}

func (t *storeTx) LoadEventForUpdate(ctx context.Context, eventID string) (*domain.Event, error) {
	query := `
		SELECT id, title, description, date, location, capacity, image_url, creator_id, version, created_at, updated_at
		FROM events
		WHERE id = $1
		FOR UPDATE
	`
	e := &domain.Event{}
	err := t.tx.QueryRowContext(ctx, query, eventID).Scan(
		&e.ID, &e.Title, &e.Description, &e.Date, &e.Location, &e.Capacity,
		&e.ImageURL, &e.CreatorID, &e.Version, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	rows, err := t.tx.QueryContext(ctx, `SELECT user_id FROM event_attendees WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		e.Attendees = append(e.Attendees, userID)
	}
	return e, rows.Err()
}

func (t *storeTx) InsertEvent(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (title, description, date, location, capacity, image_url, creator_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, version
	`
	return t.tx.QueryRowContext(ctx, query,
		e.Title, e.Description, e.Date, e.Location, e.Capacity, e.ImageURL, e.CreatorID, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID, &e.Version)
}

func (t *storeTx) UpdateEvent(ctx context.Context, e *domain.Event, expectedVersion int64) error {
	query := `
		UPDATE events
		SET title = $1, description = $2, date = $3, location = $4, capacity = $5, image_url = $6, updated_at = $7, version = version + 1
		WHERE id = $8 AND version = $9
	`
	result, err := t.tx.ExecContext(ctx, query,
		e.Title, e.Description, e.Date, e.Location, e.Capacity, e.ImageURL, e.UpdatedAt, e.ID, expectedVersion,
	)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrVersionConflict
	}
	e.Version = expectedVersion + 1
	return nil
}

func (t *storeTx) DeleteEvent(ctx context.Context, eventID string, expectedVersion int64) error {
	// event_attendees rows go with the event via ON DELETE CASCADE.
	result, err := t.tx.ExecContext(ctx, `DELETE FROM events WHERE id = $1 AND version = $2`, eventID, expectedVersion)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}

func (t *storeTx) AddAttendee(ctx context.Context, eventID, userID string) error {
	query := `
		INSERT INTO event_attendees (event_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (event_id, user_id) DO NOTHING
	`
	_, err := t.tx.ExecContext(ctx, query, eventID, userID)
	return mapUserFK(err)
}

func (t *storeTx) RemoveAttendee(ctx context.Context, eventID, userID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM event_attendees WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	return err
}

func (t *storeTx) AddJoinedEvent(ctx context.Context, userID, eventID string) error {
	query := `
		INSERT INTO user_joined_events (user_id, event_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, event_id) DO NOTHING
	`
	_, err := t.tx.ExecContext(ctx, query, userID, eventID)
	return mapUserFK(err)
}

func (t *storeTx) RemoveJoinedEvent(ctx context.Context, userID, eventID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM user_joined_events WHERE user_id = $1 AND event_id = $2`, userID, eventID)
	return err
}

func (t *storeTx) AddCreatedEvent(ctx context.Context, userID, eventID string) error {
	query := `
		INSERT INTO user_created_events (user_id, event_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, event_id) DO NOTHING
	`
	_, err := t.tx.ExecContext(ctx, query, userID, eventID)
	return mapUserFK(err)
}

func (t *storeTx) RemoveCreatedEvent(ctx context.Context, userID, eventID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM user_created_events WHERE user_id = $1 AND event_id = $2`, userID, eventID)
	return err
}

// mapUserFK maps a foreign key violation on user_id to domain.ErrUserNotFound.
func mapUserFK(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
		return domain.ErrUserNotFound
	}
	return err
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"eventplatform/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

var eventRows = []string{"id", "title", "description", "date", "location", "capacity", "image_url", "creator_id", "version", "created_at", "updated_at"}

func eventRow(id string, capacity int, version int64) *sqlmock.Rows {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(eventRows).
		AddRow(id, "Go Meetup", "Monthly meetup", ts.Add(24*time.Hour), "Berlin", capacity, "", "creator-1", version, ts, ts)
}

func TestStoreWithinTxCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO event_attendees`).
		WithArgs("ev-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s := NewStore(db)
	err = s.WithinTx(context.Background(), func(tx domain.Tx) error {
		return tx.AddAttendee(context.Background(), "ev-1", "user-1")
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreWithinTxRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO event_attendees`).
		WithArgs("ev-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	boom := errors.New("enrollment check failed")
	s := NewStore(db)
	err = s.WithinTx(context.Background(), func(tx domain.Tx) error {
		if err := tx.AddAttendee(context.Background(), "ev-1", "user-1"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreWithinTxBeginFailureIsTransient(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(sql.ErrConnDone)

	s := NewStore(db)
	err = s.WithinTx(context.Background(), func(tx domain.Tx) error { return nil })
	require.ErrorIs(t, err, domain.ErrTransient)
}

func TestStoreWithinTxCommitFailureIsTransient(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(sql.ErrConnDone)

	s := NewStore(db)
	err = s.WithinTx(context.Background(), func(tx domain.Tx) error { return nil })
	require.ErrorIs(t, err, domain.ErrTransient)
}

func TestLoadEventForUpdate(t *testing.T) {
	tests := []struct {
		name      string
		mock      func(mock sqlmock.Sqlmock)
		wantErr   error
		wantUsers []string
	}{
		{
			name: "success with attendees",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`SELECT id, title, description, date, location, capacity, image_url, creator_id, version, created_at, updated_at`).
					WithArgs("ev-1").
					WillReturnRows(eventRow("ev-1", 5, 3))
				mock.ExpectQuery(`SELECT user_id FROM event_attendees WHERE event_id = \$1`).
					WithArgs("ev-1").
					WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("user-1").AddRow("user-2"))
				mock.ExpectCommit()
			},
			wantUsers: []string{"user-1", "user-2"},
		},
		{
			name: "not found",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`SELECT id, title, description`).
					WithArgs("ev-1").
					WillReturnError(sql.ErrNoRows)
				mock.ExpectRollback()
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.mock(mock)

			s := NewStore(db)
			err = s.WithinTx(context.Background(), func(tx domain.Tx) error {
				event, err := tx.LoadEventForUpdate(context.Background(), "ev-1")
				if err != nil {
					return err
				}
				require.Equal(t, "ev-1", event.ID)
				require.Equal(t, int64(3), event.Version)
				require.Equal(t, tt.wantUsers, event.Attendees)
				return nil
			})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestInsertEventReturnsIDAndVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	event := domain.NewEvent("Go Meetup", "Monthly meetup", "Berlin", "", "creator-1", ts.Add(24*time.Hour), 5, ts, ts)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO events \(title, description, date, location, capacity, image_url, creator_id, created_at, updated_at\)`).
		WithArgs("Go Meetup", "Monthly meetup", ts.Add(24*time.Hour), "Berlin", 5, "", "creator-1", ts, ts).
		WillReturnRows(sqlmock.NewRows([]string{"id", "version"}).AddRow("ev-1", int64(1)))
	mock.ExpectCommit()

	s := NewStore(db)
	err = s.WithinTx(context.Background(), func(tx domain.Tx) error {
		return tx.InsertEvent(context.Background(), event)
	})
	require.NoError(t, err)
	require.Equal(t, "ev-1", event.ID)
	require.Equal(t, int64(1), event.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEventVersionConflict(t *testing.T) {
	tests := []struct {
		name         string
		rowsAffected int64
		wantErr      error
		wantVersion  int64
	}{
		{"matching version bumps", 1, nil, 4},
		{"stale version conflicts", 0, domain.ErrVersionConflict, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectBegin()
			mock.ExpectExec(`UPDATE events`).
				WillReturnResult(sqlmock.NewResult(0, tt.rowsAffected))
			if tt.wantErr == nil {
				mock.ExpectCommit()
			} else {
				mock.ExpectRollback()
			}

			event := &domain.Event{ID: "ev-1", Version: 3}
			s := NewStore(db)
			err = s.WithinTx(context.Background(), func(tx domain.Tx) error {
				return tx.UpdateEvent(context.Background(), event, 3)
			})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tt.wantVersion, event.Version)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDeleteEventVersionConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM events WHERE id = \$1 AND version = \$2`).
		WithArgs("ev-1", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	s := NewStore(db)
	err = s.WithinTx(context.Background(), func(tx domain.Tx) error {
		return tx.DeleteEvent(context.Background(), "ev-1", 3)
	})
	require.ErrorIs(t, err, domain.ErrVersionConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddJoinedEventUnknownUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO user_joined_events`).
		WithArgs("ghost", "ev-1").
		WillReturnError(&pq.Error{Code: foreignKeyViolation})
	mock.ExpectRollback()

	s := NewStore(db)
	err = s.WithinTx(context.Background(), func(tx domain.Tx) error {
		return tx.AddJoinedEvent(context.Background(), "ghost", "ev-1")
	})
	require.ErrorIs(t, err, domain.ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveAttendeeAndMirrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM event_attendees WHERE event_id = \$1 AND user_id = \$2`).
		WithArgs("ev-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM user_joined_events WHERE user_id = \$1 AND event_id = \$2`).
		WithArgs("user-1", "ev-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s := NewStore(db)
	err = s.WithinTx(context.Background(), func(tx domain.Tx) error {
		if err := tx.RemoveAttendee(context.Background(), "ev-1", "user-1"); err != nil {
			return err
		}
		return tx.RemoveJoinedEvent(context.Background(), "user-1", "ev-1")
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

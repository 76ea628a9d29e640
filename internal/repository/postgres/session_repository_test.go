package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"campus-market/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionColumns = []string{"token", "csrf_token", "email", "name", "campus", "expires_at", "created_at"}

func setupSessionRepositoryMocks(mock sqlmock.Sqlmock) {
	mock.ExpectPrepare(`INSERT INTO sessions`)
	mock.ExpectPrepare(`SELECT token, csrf_token, email, name, campus, expires_at, created_at FROM sessions`)
	mock.ExpectPrepare(`UPDATE sessions SET csrf_token`)
	mock.ExpectPrepare(`DELETE FROM sessions WHERE token`)
	mock.ExpectPrepare(`DELETE FROM sessions WHERE expires_at`)
}

func newSessionRepo(t *testing.T) (*SessionRepository, sqlmock.Sqlmock, time.Time) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	setupSessionRepositoryMocks(mock)
	repo, err := NewSessionRepository(db)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	return repo, mock, now
}

func TestNewSessionRepository_PrepareFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPrepare(`INSERT INTO sessions`).WillReturnError(errors.New("prepare failed"))

	repo, err := NewSessionRepository(db)
	require.Error(t, err)
	assert.Nil(t, repo)
	assert.Contains(t, err.Error(), "failed to prepare create statement")
}

func TestSessionRepository_Create(t *testing.T) {
	t.Run("stamps_created_at", func(t *testing.T) {
		repo, mock, now := newSessionRepo(t)
		expires := now.Add(time.Hour)

		mock.ExpectExec(`INSERT INTO sessions`).
			WithArgs("tok", "csrf", "f20230001@pilani.bits-pilani.ac.in", "Asha", "Pilani", expires, now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		session := &domain.ServerSession{
			Token:     "tok",
			CSRFToken: "csrf",
			Identity:  domain.Identity{Email: "f20230001@pilani.bits-pilani.ac.in", Name: "Asha"},
			Campus:    domain.CampusPilani,
			ExpiresAt: expires,
		}
		require.NoError(t, repo.Create(context.Background(), session))
		assert.Equal(t, now, session.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate_token", func(t *testing.T) {
		repo, mock, _ := newSessionRepo(t)

		mock.ExpectExec(`INSERT INTO sessions`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: constraintSessionsPK})

		err := repo.Create(context.Background(), &domain.ServerSession{Token: "tok"})
		assert.ErrorIs(t, err, domain.ErrSessionExists)
	})

	t.Run("database_error", func(t *testing.T) {
		repo, mock, _ := newSessionRepo(t)

		mock.ExpectExec(`INSERT INTO sessions`).WillReturnError(sql.ErrConnDone)

		err := repo.Create(context.Background(), &domain.ServerSession{Token: "tok"})
		assert.ErrorIs(t, err, sql.ErrConnDone)
		assert.Contains(t, err.Error(), "failed to create session")
	})
}

func TestSessionRepository_GetByToken(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock, now := newSessionRepo(t)

		mock.ExpectQuery(`SELECT token, csrf_token`).
			WithArgs("tok", now).
			WillReturnRows(sqlmock.NewRows(sessionColumns).
				AddRow("tok", "csrf", "a@goa.bits-pilani.ac.in", "A", "Goa", now.Add(time.Hour), now))

		session, err := repo.GetByToken(context.Background(), "tok")
		require.NoError(t, err)
		assert.Equal(t, domain.CampusGoa, session.Campus)
		assert.Equal(t, "csrf", session.CSRFToken)
		assert.Equal(t, "a@goa.bits-pilani.ac.in", session.Email)
	})

	t.Run("missing_or_expired", func(t *testing.T) {
		repo, mock, _ := newSessionRepo(t)

		mock.ExpectQuery(`SELECT token, csrf_token`).WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByToken(context.Background(), "tok")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}

func TestSessionRepository_Update(t *testing.T) {
	t.Run("rotates_token", func(t *testing.T) {
		repo, mock, now := newSessionRepo(t)
		expires := now.Add(time.Hour)

		mock.ExpectExec(`UPDATE sessions SET csrf_token`).
			WithArgs("fresh", expires, "tok").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Update(context.Background(), &domain.ServerSession{Token: "tok", CSRFToken: "fresh", ExpiresAt: expires})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown_session", func(t *testing.T) {
		repo, mock, _ := newSessionRepo(t)

		mock.ExpectExec(`UPDATE sessions SET csrf_token`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(context.Background(), &domain.ServerSession{Token: "gone"})
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}

func TestSessionRepository_Delete(t *testing.T) {
	repo, mock, _ := newSessionRepo(t)

	mock.ExpectExec(`DELETE FROM sessions WHERE token`).
		WithArgs("tok").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "tok"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	t.Run("reports_count", func(t *testing.T) {
		repo, mock, now := newSessionRepo(t)

		mock.ExpectExec(`DELETE FROM sessions WHERE expires_at`).
			WithArgs(now).
			WillReturnResult(sqlmock.NewResult(0, 3))

		count, err := repo.DeleteExpired(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("rows_affected_error", func(t *testing.T) {
		repo, mock, _ := newSessionRepo(t)

		mock.ExpectExec(`DELETE FROM sessions WHERE expires_at`).
			WillReturnResult(sqlmock.NewErrorResult(errors.New("driver does not support RowsAffected")))

		_, err := repo.DeleteExpired(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get rows affected")
	})
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"campus-market/internal/domain"
)

type SessionRepository struct {
	db                *sql.DB
	now               func() time.Time
	createStmt        *sql.Stmt
	getByTokenStmt    *sql.Stmt
	updateStmt        *sql.Stmt
	deleteStmt        *sql.Stmt
	deleteExpiredStmt *sql.Stmt
}

// NewSessionRepository creates a SessionRepository with prepared statements.
// Returns an error if statement preparation fails.
func NewSessionRepository(db *sql.DB) (*SessionRepository, error) {
	repo := &SessionRepository{db: db, now: time.Now}

	var err error
	repo.createStmt, err = db.Prepare(`
		INSERT INTO sessions (token, csrf_token, email, name, campus, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare create statement: %w", err)
	}

	repo.getByTokenStmt, err = db.Prepare(`
		SELECT token, csrf_token, email, name, campus, expires_at, created_at
		FROM sessions
		WHERE token = $1 AND expires_at > $2
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare getByToken statement: %w", err)
	}

	repo.updateStmt, err = db.Prepare(`
		UPDATE sessions SET csrf_token = $1, expires_at = $2 WHERE token = $3
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare update statement: %w", err)
	}

	repo.deleteStmt, err = db.Prepare(`DELETE FROM sessions WHERE token = $1`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	repo.deleteExpiredStmt, err = db.Prepare(`DELETE FROM sessions WHERE expires_at <= $1`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare deleteExpired statement: %w", err)
	}

	return repo, nil
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.ServerSession) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = r.now()
	}
	_, err := r.createStmt.ExecContext(ctx,
		session.Token,
		session.CSRFToken,
		session.Email,
		session.Name,
		string(session.Campus),
		session.ExpiresAt,
		session.CreatedAt,
	)
	if IsUniqueViolation(err, constraintSessionsPK) {
		return domain.ErrSessionExists
	}
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByToken returns the session if it has not expired.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*domain.ServerSession, error) {
	session := &domain.ServerSession{}
	var campus string
	err := r.getByTokenStmt.QueryRowContext(ctx, token, r.now()).Scan(
		&session.Token,
		&session.CSRFToken,
		&session.Email,
		&session.Name,
		&campus,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session by token: %w", err)
	}
	session.Campus = domain.Campus(campus)
	return session, nil
}

// Update stores a rotated anti-forgery token and expiry.
func (r *SessionRepository) Update(ctx context.Context, session *domain.ServerSession) error {
	result, err := r.updateStmt.ExecContext(ctx, session.CSRFToken, session.ExpiresAt, session.Token)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	_, err := r.deleteStmt.ExecContext(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.deleteExpiredStmt.ExecContext(ctx, r.now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return count, nil
}

// Close releases the prepared statements.
func (r *SessionRepository) Close() error {
	return errors.Join(
		r.createStmt.Close(),
		r.getByTokenStmt.Close(),
		r.updateStmt.Close(),
		r.deleteStmt.Close(),
		r.deleteExpiredStmt.Close(),
	)
}

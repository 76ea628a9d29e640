package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"campus-market/internal/observability"
)

// TxManager runs functions inside a transaction.
type TxManager struct {
	db   *sql.DB
	opts *sql.TxOptions
}

// NewTxManager creates a manager whose transactions use opts; nil means the
// driver default (READ COMMITTED on PostgreSQL).
func NewTxManager(db *sql.DB, opts *sql.TxOptions) *TxManager {
	return &TxManager{db: db, opts: opts}
}

// WithTx commits when fn returns nil and rolls back otherwise, including
// when fn panics. fn's error is returned unwrapped so callers can match
// domain sentinels.
func (tm *TxManager) WithTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := tm.db.BeginTx(ctx, tm.opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if fnErr := fn(tx); fnErr != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			observability.FromContext(ctx).Error("Rollback failed", slog.String("error", rbErr.Error()))
			return fmt.Errorf("%w (rollback: %v)", fnErr, rbErr)
		}
		return fnErr
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

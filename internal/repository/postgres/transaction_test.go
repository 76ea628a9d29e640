package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"campus-market/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxManager_WithTx(t *testing.T) {
	t.Run("commits_on_success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE listings").WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		err = NewTxManager(db, nil).WithTx(context.Background(), func(tx *sql.Tx) error {
			_, err := tx.Exec("UPDATE listings SET sold = true")
			return err
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls_back_and_keeps_sentinel", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		err = NewTxManager(db, nil).WithTx(context.Background(), func(tx *sql.Tx) error {
			return domain.ErrForbidden
		})

		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports_rollback_failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback().WillReturnError(errors.New("connection reset"))

		err = NewTxManager(db, nil).WithTx(context.Background(), func(tx *sql.Tx) error {
			return domain.ErrForbidden
		})

		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.Contains(t, err.Error(), "connection reset")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls_back_on_panic", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.PanicsWithValue(t, "boom", func() {
			_ = NewTxManager(db, nil).WithTx(context.Background(), func(tx *sql.Tx) error {
				panic("boom")
			})
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin_failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

		called := false
		err = NewTxManager(db, nil).WithTx(context.Background(), func(tx *sql.Tx) error {
			called = true
			return nil
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to begin transaction")
		assert.False(t, called)
	})

	t.Run("commit_failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(sql.ErrTxDone)

		err = NewTxManager(db, nil).WithTx(context.Background(), func(tx *sql.Tx) error { return nil })

		assert.ErrorIs(t, err, sql.ErrTxDone)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

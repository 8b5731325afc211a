package database

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finvero/ledgercore/internal/pkg/ledgererr"
)

func setupOptimisticTest(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func TestWithOptimisticLockSuccess(t *testing.T) {
	db, mock := setupOptimisticTest(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT version FROM accounts WHERE id").
		WithArgs("acc-1").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(7)))
	mock.ExpectExec("UPDATE accounts SET owner_id").
		WithArgs("owner-2", "acc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE accounts SET version = version \\+ 1").
		WithArgs("acc-1", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mutated := false
	err := WithOptimisticLock(context.Background(), db, EntityAccount, "acc-1", 7,
		func(ctx context.Context, tx *sqlx.Tx) error {
			mutated = true
			_, err := tx.ExecContext(ctx, "UPDATE accounts SET owner_id = $1 WHERE id = $2", "owner-2", "acc-1")
			return err
		})

	assert.NoError(t, err)
	assert.True(t, mutated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithOptimisticLockVersionMismatch(t *testing.T) {
	db, mock := setupOptimisticTest(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT version FROM accounts WHERE id").
		WithArgs("acc-1").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(9)))
	mock.ExpectRollback()

	mutated := false
	err := WithOptimisticLock(context.Background(), db, EntityAccount, "acc-1", 7,
		func(ctx context.Context, tx *sqlx.Tx) error {
			mutated = true
			return nil
		})

	assert.ErrorIs(t, err, ledgererr.ErrOptimisticLockConflict)
	assert.Equal(t, ledgererr.CategoryBusiness, ledgererr.CategoryOf(err))
	assert.False(t, mutated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithOptimisticLockConcurrentBumpDetected(t *testing.T) {
	db, mock := setupOptimisticTest(t)

	// Version matched at read time but the guarded update hit zero rows
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT version FROM inventory_items WHERE id").
		WithArgs("sku-1").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(3)))
	mock.ExpectExec("UPDATE inventory_items SET version = version \\+ 1").
		WithArgs("sku-1", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := WithOptimisticLock(context.Background(), db, EntityInventoryItem, "sku-1", 3,
		func(ctx context.Context, tx *sqlx.Tx) error { return nil })

	assert.ErrorIs(t, err, ledgererr.ErrOptimisticLockConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithOptimisticLockRowNotFound(t *testing.T) {
	db, mock := setupOptimisticTest(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT version FROM accounts WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := WithOptimisticLock(context.Background(), db, EntityAccount, "missing", 1,
		func(ctx context.Context, tx *sqlx.Tx) error { return nil })

	assert.ErrorIs(t, err, ledgererr.ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finvero/ledgercore/internal/pkg/ledgererr"
	"github.com/finvero/ledgercore/internal/pkg/logger"
	"github.com/finvero/ledgercore/internal/pkg/models"
)

func setupLedgerRepo(t *testing.T) (*LedgerRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "sqlmock")
	return NewLedgerRepository(&models.Config{}, db, logger.NewTestLogger()), mock
}

func transferTransaction() *models.FinancialTransaction {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	amt := decimal.NewFromInt(400000)
	return &models.FinancialTransaction{
		ID:          "txn-1",
		Type:        models.TransactionTypeTransfer,
		Status:      models.TransactionStatusPending,
		TotalAmount: amt,
		Currency:    "IDR",
		CreatedAt:   now,
		Entries: []models.Entry{
			{ID: "ent-1", TransactionID: "txn-1", AccountID: "acc-b", Amount: amt, Type: models.EntryTypeCredit, CreatedAt: now},
			{ID: "ent-2", TransactionID: "txn-1", AccountID: "acc-a", Amount: amt, Type: models.EntryTypeDebit, CreatedAt: now},
		},
	}
}

func lockedRows(id string, balance int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "balance", "currency", "version"}).
		AddRow(id, decimal.NewFromInt(balance).String(), "IDR", int64(1))
}

func TestExecuteLedgerTransaction_Success(t *testing.T) {
	repo, mock := setupLedgerRepo(t)
	txn := transferTransaction()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO financial_transactions").
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Locks are acquired in ascending account id order regardless of
	// entry order.
	mock.ExpectQuery("SELECT id, balance, currency, version").
		WithArgs("acc-a").
		WillReturnRows(lockedRows("acc-a", 1000000))
	mock.ExpectQuery("SELECT id, balance, currency, version").
		WithArgs("acc-b").
		WillReturnRows(lockedRows("acc-b", 200000))

	mock.ExpectExec("UPDATE accounts").
		WithArgs(decimal.NewFromInt(400000), "acc-b").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO transaction_entries").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE accounts").
		WithArgs(decimal.NewFromInt(-400000), "acc-a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO transaction_entries").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery("SELECT balance FROM accounts").
		WithArgs("acc-a").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("600000"))
	mock.ExpectQuery("SELECT balance FROM accounts").
		WithArgs("acc-b").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("600000"))

	mock.ExpectExec("UPDATE financial_transactions SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	before, after, err := repo.ExecuteLedgerTransaction(context.Background(), txn)

	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCompleted, txn.Status)
	assert.NotNil(t, txn.CompletedAt)
	assert.True(t, before["acc-a"].Equal(decimal.NewFromInt(1000000)))
	assert.True(t, after["acc-a"].Equal(decimal.NewFromInt(600000)))
	assert.True(t, after["acc-b"].Equal(decimal.NewFromInt(600000)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteLedgerTransaction_InsufficientBalance(t *testing.T) {
	repo, mock := setupLedgerRepo(t)
	txn := transferTransaction()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO financial_transactions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, balance, currency, version").
		WithArgs("acc-a").
		WillReturnRows(lockedRows("acc-a", 100))
	mock.ExpectQuery("SELECT id, balance, currency, version").
		WithArgs("acc-b").
		WillReturnRows(lockedRows("acc-b", 0))
	mock.ExpectRollback()

	_, _, err := repo.ExecuteLedgerTransaction(context.Background(), txn)

	require.Error(t, err)
	assert.ErrorIs(t, err, ledgererr.ErrInsufficientBalance)
	assert.Equal(t, ledgererr.CategoryBusiness, ledgererr.CategoryOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteLedgerTransaction_CurrencyMismatch(t *testing.T) {
	repo, mock := setupLedgerRepo(t)
	txn := transferTransaction()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO financial_transactions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, balance, currency, version").
		WithArgs("acc-a").
		WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "currency", "version"}).
			AddRow("acc-a", "1000000", "USD", int64(1)))
	mock.ExpectRollback()

	_, _, err := repo.ExecuteLedgerTransaction(context.Background(), txn)

	require.Error(t, err)
	assert.ErrorIs(t, err, ledgererr.ErrCurrencyMismatch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteLedgerTransaction_AccountNotFound(t *testing.T) {
	repo, mock := setupLedgerRepo(t)
	txn := transferTransaction()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO financial_transactions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, balance, currency, version").
		WithArgs("acc-a").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, _, err := repo.ExecuteLedgerTransaction(context.Background(), txn)

	require.Error(t, err)
	assert.ErrorIs(t, err, ledgererr.ErrAccountNotFound)
	assert.Equal(t, ledgererr.CategoryBusiness, ledgererr.CategoryOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteLedgerTransaction_SerializationConflictIsTransient(t *testing.T) {
	repo, mock := setupLedgerRepo(t)
	txn := transferTransaction()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO financial_transactions").
		WillReturnError(&pgconn.PgError{Code: "40001", Message: "could not serialize access"})
	mock.ExpectRollback()

	_, _, err := repo.ExecuteLedgerTransaction(context.Background(), txn)

	require.Error(t, err)
	assert.Equal(t, ledgererr.CategoryTransient, ledgererr.CategoryOf(err))
	assert.True(t, ledgererr.IsRetryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteLedgerTransaction_DuplicateIdempotencyKey(t *testing.T) {
	repo, mock := setupLedgerRepo(t)
	txn := transferTransaction()
	txn.IdempotencyKey = "idem-1"

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO financial_transactions").
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})
	mock.ExpectRollback()

	_, _, err := repo.ExecuteLedgerTransaction(context.Background(), txn)

	require.Error(t, err)
	assert.ErrorIs(t, err, ledgererr.ErrDuplicateIdempotency)
	assert.False(t, ledgererr.IsRetryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordFailedTransaction(t *testing.T) {
	repo, mock := setupLedgerRepo(t)
	txn := transferTransaction()
	txn.ErrorMessage = "insufficient balance"
	txn.Metadata = map[string]string{"error_category": "BUSINESS"}

	// Entries land in the metadata document, never in
	// transaction_entries.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO financial_transactions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.RecordFailedTransaction(context.Background(), txn)

	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusFailed, txn.Status)
	assert.Contains(t, txn.Metadata[MetaRejectedEntries], "acc-a")
	assert.Contains(t, txn.Metadata[MetaRejectedEntries], "acc-b")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordFailedTransaction_NonPositiveAmountStillAudited(t *testing.T) {
	repo, mock := setupLedgerRepo(t)
	txn := transferTransaction()
	txn.Entries[0].Amount = decimal.NewFromInt(-50)
	txn.ErrorMessage = "entry amount must be positive"
	txn.Metadata = map[string]string{"error_category": "VALIDATION"}

	// A negative amount would violate the entry constraints, so the
	// audit row must commit without touching transaction_entries.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO financial_transactions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.RecordFailedTransaction(context.Background(), txn)

	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusFailed, txn.Status)
	assert.Contains(t, txn.Metadata[MetaRejectedEntries], "-50")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTransactionByIdempotencyKey_UnusedKey(t *testing.T) {
	repo, mock := setupLedgerRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM financial_transactions WHERE idempotency_key").
		WithArgs("idem-unused").
		WillReturnError(sql.ErrNoRows)

	txn, err := repo.GetTransactionByIdempotencyKey(context.Background(), "idem-unused")

	assert.NoError(t, err)
	assert.Nil(t, txn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTransactionByID_NotFound(t *testing.T) {
	repo, mock := setupLedgerRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM financial_transactions WHERE id").
		WithArgs("txn-404").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetTransactionByID(context.Background(), "txn-404")

	require.Error(t, err)
	assert.ErrorIs(t, err, ledgererr.ErrTransactionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTransactionByID_LoadsEntriesAndMetadata(t *testing.T) {
	repo, mock := setupLedgerRepo(t)

	created := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	txnRows := sqlmock.NewRows([]string{
		"id", "type", "status", "total_amount", "currency",
		"reference_id", "reference_type", "idempotency_key", "metadata",
		"error_message", "created_at", "completed_at", "rolled_back_at",
	}).AddRow(
		"txn-1", "TRANSFER", "FAILED", "400000", "IDR",
		nil, nil, "idem-1", []byte(`{"error_category":"BUSINESS"}`),
		"insufficient balance", created, nil, nil,
	)
	mock.ExpectQuery("SELECT (.+) FROM financial_transactions WHERE id").
		WithArgs("txn-1").
		WillReturnRows(txnRows)

	entryRows := sqlmock.NewRows([]string{
		"id", "transaction_id", "account_id", "amount", "type", "description", "created_at",
	}).AddRow("ent-1", "txn-1", "acc-a", "400000", "DEBIT", "", created)
	mock.ExpectQuery("SELECT (.+) FROM transaction_entries").
		WithArgs("txn-1").
		WillReturnRows(entryRows)

	txn, err := repo.GetTransactionByID(context.Background(), "txn-1")

	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusFailed, txn.Status)
	assert.Equal(t, "BUSINESS", txn.Metadata["error_category"])
	assert.Equal(t, "insufficient balance", txn.ErrorMessage)
	require.Len(t, txn.Entries, 1)
	assert.Equal(t, "acc-a", txn.Entries[0].AccountID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistinctAccountIDs_SortedAndDeduplicated(t *testing.T) {
	entries := []models.Entry{
		{AccountID: "acc-c"},
		{AccountID: "acc-a"},
		{AccountID: "acc-c"},
		{AccountID: "acc-b"},
	}

	assert.Equal(t, []string{"acc-a", "acc-b", "acc-c"}, distinctAccountIDs(entries))
}

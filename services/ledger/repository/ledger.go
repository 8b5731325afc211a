package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/finvero/ledgercore/internal/pkg/database"
	"github.com/finvero/ledgercore/internal/pkg/ledgererr"
	"github.com/finvero/ledgercore/internal/pkg/logger"
	"github.com/finvero/ledgercore/internal/pkg/models"
)

// MetaRejectedEntries is the metadata key holding the submitted
// entries of a FAILED transaction as a JSON document
const MetaRejectedEntries = "rejected_entries"

// LedgerRepository is the PostgreSQL implementation of the ledger store
type LedgerRepository struct {
	cfg    *models.Config
	db     *sqlx.DB
	logger *logger.ZapLogger
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(cfg *models.Config, db *sqlx.DB, l *logger.ZapLogger) *LedgerRepository {
	return &LedgerRepository{
		cfg:    cfg,
		db:     db,
		logger: l,
	}
}

// lockedAccount is an account row read under FOR UPDATE
type lockedAccount struct {
	ID       string          `db:"id"`
	Balance  decimal.Decimal `db:"balance"`
	Currency string          `db:"currency"`
	Version  int64           `db:"version"`
}

// ExecuteLedgerTransaction runs the posting sequence inside one
// serializable store transaction. On any error the store discards all
// mutations atomically, so either every entry is applied or none is.
func (r *LedgerRepository) ExecuteLedgerTransaction(ctx context.Context, txn *models.FinancialTransaction) (map[string]decimal.Decimal, map[string]decimal.Decimal, error) {
	tx, err := r.db.BeginTxx(ctx, database.TxSerializable)
	if err != nil {
		return nil, nil, classifyStoreError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	if err := r.insertTransaction(ctx, tx, txn, models.TransactionStatusProcessing); err != nil {
		return nil, nil, err
	}

	// Lock the referenced accounts in ascending id order so two
	// overlapping transactions always acquire locks in the same order.
	accountIDs := distinctAccountIDs(txn.Entries)
	locked := make(map[string]*lockedAccount, len(accountIDs))
	before := make(map[string]decimal.Decimal, len(accountIDs))

	for _, id := range accountIDs {
		acc, err := lockAccount(ctx, tx, id)
		if err != nil {
			return nil, nil, err
		}
		if acc.Currency != txn.Currency {
			return nil, nil, ledgererr.Business(fmt.Errorf("account %s holds %s, transaction is %s: %w",
				id, acc.Currency, txn.Currency, ledgererr.ErrCurrencyMismatch))
		}
		locked[id] = acc
		before[id] = acc.Balance
	}

	// Re-validate funding at read time: the DEBIT total against each
	// account must be covered by its locked balance. Credits inside
	// the same transaction do not fund debits.
	debitTotals := make(map[string]decimal.Decimal)
	for _, entry := range txn.Entries {
		if entry.Type == models.EntryTypeDebit {
			debitTotals[entry.AccountID] = debitTotals[entry.AccountID].Add(entry.Amount)
		}
	}
	for id, debit := range debitTotals {
		if locked[id].Balance.LessThan(debit) {
			return nil, nil, ledgererr.Business(fmt.Errorf("account %s balance %s cannot cover debit %s: %w",
				id, locked[id].Balance, debit, ledgererr.ErrInsufficientBalance))
		}
	}

	// Apply every entry's signed delta and persist the entry record
	for i := range txn.Entries {
		entry := &txn.Entries[i]
		delta := entry.Amount
		if entry.Type == models.EntryTypeDebit {
			delta = delta.Neg()
		}

		if err := applyEntryDelta(ctx, tx, entry.AccountID, delta); err != nil {
			return nil, nil, err
		}
		if err := insertEntry(ctx, tx, entry); err != nil {
			return nil, nil, err
		}
	}

	// Re-read each touched account: defense in depth against logic
	// errors upstream.
	after := make(map[string]decimal.Decimal, len(accountIDs))
	for _, id := range accountIDs {
		var balance decimal.Decimal
		if err := tx.GetContext(ctx, &balance, "SELECT balance FROM accounts WHERE id = $1", id); err != nil {
			return nil, nil, classifyStoreError(fmt.Errorf("failed to re-read account %s: %w", id, err))
		}
		if balance.IsNegative() {
			return nil, nil, ledgererr.Business(fmt.Errorf("account %s would end at %s: %w",
				id, balance, ledgererr.ErrNegativeBalance))
		}
		after[id] = balance
	}

	completedAt := time.Now()
	_, err = tx.ExecContext(ctx,
		"UPDATE financial_transactions SET status = $1, completed_at = $2 WHERE id = $3",
		models.TransactionStatusCompleted, completedAt, txn.ID)
	if err != nil {
		return nil, nil, classifyStoreError(fmt.Errorf("failed to finalize transaction: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, classifyStoreError(fmt.Errorf("failed to commit transaction: %w", err))
	}

	txn.Status = models.TransactionStatusCompleted
	txn.CompletedAt = &completedAt

	r.logger.Info("Ledger transaction committed",
		logger.String("transaction_id", txn.ID),
		logger.String("type", string(txn.Type)),
		logger.String("currency", txn.Currency),
		logger.Int("entries", len(txn.Entries)))

	return before, after, nil
}

// RecordFailedTransaction persists a FAILED transaction row for audit.
// It runs outside any serializable scope since no account is touched.
// The submitted entries go into the metadata document rather than
// transaction_entries: a rejected request may carry entries that
// violate the entry constraints (a non-positive amount, an unknown
// direction), and those must not cost us the audit row itself.
func (r *LedgerRepository) RecordFailedTransaction(ctx context.Context, txn *models.FinancialTransaction) error {
	tx, err := r.db.BeginTxx(ctx, database.TxReadCommitted)
	if err != nil {
		return classifyStoreError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	txn.Status = models.TransactionStatusFailed
	if len(txn.Entries) > 0 {
		raw, err := json.Marshal(txn.Entries)
		if err != nil {
			return ledgererr.Internal(fmt.Errorf("failed to marshal rejected entries: %w", err))
		}
		if txn.Metadata == nil {
			txn.Metadata = map[string]string{}
		}
		txn.Metadata[MetaRejectedEntries] = string(raw)
	}

	if err := r.insertTransaction(ctx, tx, txn, models.TransactionStatusFailed); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return classifyStoreError(fmt.Errorf("failed to commit failed-transaction audit row: %w", err))
	}
	return nil
}

// insertTransaction inserts the transaction row with the given status
func (r *LedgerRepository) insertTransaction(ctx context.Context, tx *sqlx.Tx, txn *models.FinancialTransaction, status models.TransactionStatus) error {
	var metadata []byte
	if len(txn.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(txn.Metadata)
		if err != nil {
			return ledgererr.Internal(fmt.Errorf("failed to marshal metadata: %w", err))
		}
	}

	query := `
		INSERT INTO financial_transactions (
			id, type, status, total_amount, currency,
			reference_id, reference_type, idempotency_key, metadata,
			error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := tx.ExecContext(ctx, query,
		txn.ID,
		txn.Type,
		status,
		txn.TotalAmount,
		txn.Currency,
		nullableString(txn.ReferenceID),
		nullableString(txn.ReferenceType),
		nullableString(txn.IdempotencyKey),
		metadata,
		nullableString(txn.ErrorMessage),
		txn.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ledgererr.Business(fmt.Errorf("idempotency key %q: %w",
				txn.IdempotencyKey, ledgererr.ErrDuplicateIdempotency))
		}
		return classifyStoreError(fmt.Errorf("failed to insert transaction: %w", err))
	}
	return nil
}

func lockAccount(ctx context.Context, tx *sqlx.Tx, id string) (*lockedAccount, error) {
	query := `
		SELECT id, balance, currency, version
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`
	acc := &lockedAccount{}
	if err := tx.GetContext(ctx, acc, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledgererr.Business(fmt.Errorf("account %s: %w", id, ledgererr.ErrAccountNotFound))
		}
		return nil, classifyStoreError(fmt.Errorf("failed to lock account %s: %w", id, err))
	}
	return acc, nil
}

func applyEntryDelta(ctx context.Context, tx *sqlx.Tx, accountID string, delta decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = balance + $1, version = version + 1, updated_at = NOW()
		WHERE id = $2
	`, delta, accountID)
	if err != nil {
		return classifyStoreError(fmt.Errorf("failed to apply delta to account %s: %w", accountID, err))
	}
	return nil
}

func insertEntry(ctx context.Context, tx *sqlx.Tx, entry *models.Entry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transaction_entries (
			id, transaction_id, account_id, amount, type, description, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		entry.ID,
		entry.TransactionID,
		entry.AccountID,
		entry.Amount,
		entry.Type,
		entry.Description,
		entry.CreatedAt,
	)
	if err != nil {
		return classifyStoreError(fmt.Errorf("failed to insert entry for account %s: %w", entry.AccountID, err))
	}
	return nil
}

// transactionRow scans a financial_transactions row with its nullable columns
type transactionRow struct {
	ID             string          `db:"id"`
	Type           string          `db:"type"`
	Status         string          `db:"status"`
	TotalAmount    decimal.Decimal `db:"total_amount"`
	Currency       string          `db:"currency"`
	ReferenceID    sql.NullString  `db:"reference_id"`
	ReferenceType  sql.NullString  `db:"reference_type"`
	IdempotencyKey sql.NullString  `db:"idempotency_key"`
	Metadata       []byte          `db:"metadata"`
	ErrorMessage   sql.NullString  `db:"error_message"`
	CreatedAt      time.Time       `db:"created_at"`
	CompletedAt    sql.NullTime    `db:"completed_at"`
	RolledBackAt   sql.NullTime    `db:"rolled_back_at"`
}

func (row *transactionRow) toModel() (*models.FinancialTransaction, error) {
	txn := &models.FinancialTransaction{
		ID:             row.ID,
		Type:           models.TransactionType(row.Type),
		Status:         models.TransactionStatus(row.Status),
		TotalAmount:    row.TotalAmount,
		Currency:       row.Currency,
		ReferenceID:    row.ReferenceID.String,
		ReferenceType:  row.ReferenceType.String,
		IdempotencyKey: row.IdempotencyKey.String,
		ErrorMessage:   row.ErrorMessage.String,
		CreatedAt:      row.CreatedAt,
	}
	if row.CompletedAt.Valid {
		t := row.CompletedAt.Time
		txn.CompletedAt = &t
	}
	if row.RolledBackAt.Valid {
		t := row.RolledBackAt.Time
		txn.RolledBackAt = &t
	}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &txn.Metadata); err != nil {
			return nil, ledgererr.Internal(fmt.Errorf("failed to unmarshal metadata: %w", err))
		}
	}
	return txn, nil
}

const transactionColumns = `
	id, type, status, total_amount, currency,
	reference_id, reference_type, idempotency_key, metadata,
	error_message, created_at, completed_at, rolled_back_at
`

// GetTransactionByID retrieves a transaction with its entries
func (r *LedgerRepository) GetTransactionByID(ctx context.Context, id string) (*models.FinancialTransaction, error) {
	row := &transactionRow{}
	query := "SELECT " + transactionColumns + " FROM financial_transactions WHERE id = $1"
	if err := r.db.GetContext(ctx, row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledgererr.Business(fmt.Errorf("transaction %s: %w", id, ledgererr.ErrTransactionNotFound))
		}
		return nil, classifyStoreError(fmt.Errorf("failed to read transaction %s: %w", id, err))
	}

	txn, err := row.toModel()
	if err != nil {
		return nil, err
	}
	if err := r.loadEntries(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// GetTransactionByIdempotencyKey retrieves a transaction by its
// idempotency key. A nil transaction with nil error means the key is
// unused.
func (r *LedgerRepository) GetTransactionByIdempotencyKey(ctx context.Context, key string) (*models.FinancialTransaction, error) {
	row := &transactionRow{}
	query := "SELECT " + transactionColumns + " FROM financial_transactions WHERE idempotency_key = $1"
	if err := r.db.GetContext(ctx, row, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classifyStoreError(fmt.Errorf("failed to read transaction by idempotency key: %w", err))
	}

	txn, err := row.toModel()
	if err != nil {
		return nil, err
	}
	if err := r.loadEntries(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// GetAccountTransactions lists transactions touching an account,
// newest first. The read runs at REPEATABLE READ so the page is
// internally consistent.
func (r *LedgerRepository) GetAccountTransactions(ctx context.Context, accountID string, limit, offset int) ([]models.FinancialTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	tx, err := r.db.BeginTxx(ctx, database.TxRepeatableRead)
	if err != nil {
		return nil, classifyStoreError(fmt.Errorf("failed to begin read transaction: %w", err))
	}
	defer tx.Rollback()

	query := `
		SELECT ` + transactionColumns + `
		FROM financial_transactions
		WHERE id IN (
			SELECT DISTINCT transaction_id FROM transaction_entries WHERE account_id = $1
		)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	var rows []transactionRow
	if err := tx.SelectContext(ctx, &rows, query, accountID, limit, offset); err != nil {
		return nil, classifyStoreError(fmt.Errorf("failed to list transactions for account %s: %w", accountID, err))
	}

	txns := make([]models.FinancialTransaction, 0, len(rows))
	for i := range rows {
		txn, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		txns = append(txns, *txn)
	}
	return txns, nil
}

func (r *LedgerRepository) loadEntries(ctx context.Context, txn *models.FinancialTransaction) error {
	query := `
		SELECT id, transaction_id, account_id, amount, type, description, created_at
		FROM transaction_entries
		WHERE transaction_id = $1
		ORDER BY created_at, id
	`
	if err := r.db.SelectContext(ctx, &txn.Entries, query, txn.ID); err != nil {
		return classifyStoreError(fmt.Errorf("failed to load entries for transaction %s: %w", txn.ID, err))
	}
	return nil
}

// distinctAccountIDs returns the distinct account ids referenced by
// the entries, sorted ascending for a stable lock order.
func distinctAccountIDs(entries []models.Entry) []string {
	seen := make(map[string]struct{}, len(entries))
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if _, ok := seen[entry.AccountID]; !ok {
			seen[entry.AccountID] = struct{}{}
			ids = append(ids, entry.AccountID)
		}
	}
	sort.Strings(ids)
	return ids
}

// classifyStoreError tags store failures: serialization conflicts and
// deadlocks become transient (eligible for retry); anything else is
// internal and propagates without consuming a retry.
func classifyStoreError(err error) error {
	if database.IsRetryableConflict(err) {
		return ledgererr.Transient(err)
	}
	return ledgererr.Internal(err)
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finvero/ledgercore/internal/pkg/circuitbreaker"
	"github.com/finvero/ledgercore/internal/pkg/ledgererr"
	"github.com/finvero/ledgercore/internal/pkg/logger"
	"github.com/finvero/ledgercore/internal/pkg/models"
	"github.com/finvero/ledgercore/internal/pkg/retry"
	"github.com/finvero/ledgercore/services/ledger"
)

// metadata key carrying the stable error category of a FAILED
// transaction, so idempotent replays report the original category
const metaErrorCategory = "error_category"

// auditTimeout bounds the detached FAILED-row write and its balance
// snapshot after the caller's own deadline is gone
const auditTimeout = 5 * time.Second

// LedgerUsecase implements the ledger transaction manager
type LedgerUsecase struct {
	cfg          *models.Config
	repo         ledger.LedgerRepo
	accounts     ledger.AccountRepo
	cache        ledger.AccountCache
	gw           ledger.LedgerGW
	storeBreaker *circuitbreaker.CircuitBreaker
	retrier      *retry.Retrier
	logger       *logger.ZapLogger
}

// NewLedgerUsecase creates a new ledger transaction manager
func NewLedgerUsecase(
	cfg *models.Config,
	repo ledger.LedgerRepo,
	accounts ledger.AccountRepo,
	cache ledger.AccountCache,
	gw ledger.LedgerGW,
	storeBreaker *circuitbreaker.CircuitBreaker,
	retrier *retry.Retrier,
	l *logger.ZapLogger,
) *LedgerUsecase {
	return &LedgerUsecase{
		cfg:          cfg,
		repo:         repo,
		accounts:     accounts,
		cache:        cache,
		gw:           gw,
		storeBreaker: storeBreaker,
		retrier:      retrier,
		logger:       l,
	}
}

// ExecuteTransaction validates, executes and finalizes a ledger
// transaction. Handled outcomes (validation failures, business
// failures, exhausted retries) are reported through the result with a
// nil error; a non-nil error means the manager could not produce an
// outcome at all, for example when the store breaker is open.
func (uc *LedgerUsecase) ExecuteTransaction(ctx context.Context, req *models.TransactionRequest) (*models.TransactionResult, error) {
	// Idempotent replay: a known key returns the stored outcome
	// without re-executing, including stored failures.
	if req.IdempotencyKey != "" {
		stored, err := uc.lookupByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if stored != nil {
			return uc.replayStoredOutcome(stored), nil
		}
	}

	txn := buildTransaction(req)

	// Pre-validation happens before any store transaction is opened.
	// A failure is persisted as a FAILED row for audit; no account is
	// touched.
	if err := validateRequest(req); err != nil {
		return uc.failTransaction(ctx, txn, err), nil
	}

	if uc.cfg.Ledger.TransactionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.cfg.Ledger.TransactionTimeout)
		defer cancel()
	}

	var before, after map[string]decimal.Decimal
	err := uc.retrier.Execute(ctx, func(ctx context.Context) error {
		return uc.storeBreaker.Execute(ctx, func(ctx context.Context) error {
			var execErr error
			before, after, execErr = uc.repo.ExecuteLedgerTransaction(ctx, txn)
			return execErr
		})
	})

	if err != nil {
		if errors.Is(err, ledgererr.ErrDuplicateIdempotency) {
			// Lost a concurrent race on the same key: the winner's
			// stored outcome is the answer.
			stored, lookupErr := uc.lookupByIdempotencyKey(ctx, req.IdempotencyKey)
			if lookupErr == nil && stored != nil {
				return uc.replayStoredOutcome(stored), nil
			}
		}
		if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
			return nil, ledgererr.Dependency(err)
		}
		return uc.failTransaction(ctx, txn, err), nil
	}

	for id := range after {
		if cacheErr := uc.cache.InvalidateAccount(ctx, id); cacheErr != nil {
			uc.logger.Warn("Failed to invalidate account cache",
				logger.String("account_id", id), logger.Err(cacheErr))
		}
	}

	uc.publishEvent(ctx, txn)

	return &models.TransactionResult{
		Success:        true,
		Transaction:    txn,
		BalancesBefore: before,
		BalancesAfter:  after,
	}, nil
}

// failTransaction records a FAILED row for audit and builds the
// failure result. Reported before/after balances are equal, proving
// no effective change was made.
func (uc *LedgerUsecase) failTransaction(ctx context.Context, txn *models.FinancialTransaction, cause error) *models.TransactionResult {
	category := ledgererr.CategoryOf(cause)

	// The caller's context may already be canceled or past its
	// deadline here, and a timeout is itself a failure we must audit,
	// so the audit write runs on a detached context.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	txn.Status = models.TransactionStatusFailed
	txn.ErrorMessage = cause.Error()
	if txn.Metadata == nil {
		txn.Metadata = map[string]string{}
	}
	txn.Metadata[metaErrorCategory] = string(category)

	if err := uc.repo.RecordFailedTransaction(ctx, txn); err != nil {
		// The failure must never be silently lost; the audit row is
		// best effort but its absence is loud.
		uc.logger.Error("Failed to record FAILED transaction for audit",
			logger.String("transaction_id", txn.ID),
			logger.Err(err))
	}

	balances := uc.snapshotBalances(ctx, txn)

	uc.publishEvent(ctx, txn)

	uc.logger.Warn("Ledger transaction failed",
		logger.String("transaction_id", txn.ID),
		logger.String("category", string(category)),
		logger.Err(cause))

	return &models.TransactionResult{
		Success:        false,
		Transaction:    txn,
		ErrorCategory:  string(category),
		ErrorMessage:   cause.Error(),
		BalancesBefore: balances,
		BalancesAfter:  balances,
	}
}

// snapshotBalances reads the current balances of the referenced
// accounts, best effort, so failure results can prove atomicity.
func (uc *LedgerUsecase) snapshotBalances(ctx context.Context, txn *models.FinancialTransaction) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal)
	seen := make(map[string]struct{})
	for _, entry := range txn.Entries {
		if _, ok := seen[entry.AccountID]; ok {
			continue
		}
		seen[entry.AccountID] = struct{}{}
		account, err := uc.accounts.GetAccountByID(ctx, entry.AccountID)
		if err != nil {
			continue
		}
		balances[account.ID] = account.Balance
	}
	return balances
}

func (uc *LedgerUsecase) lookupByIdempotencyKey(ctx context.Context, key string) (*models.FinancialTransaction, error) {
	var stored *models.FinancialTransaction
	err := uc.storeBreaker.Execute(ctx, func(ctx context.Context) error {
		var lookupErr error
		stored, lookupErr = uc.repo.GetTransactionByIdempotencyKey(ctx, key)
		return lookupErr
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
			return nil, ledgererr.Dependency(err)
		}
		return nil, err
	}
	return stored, nil
}

// replayStoredOutcome maps a stored transaction back to the result its
// original submission produced. A stored failure is reported as a
// failure with its stored error; it is never silently retried.
func (uc *LedgerUsecase) replayStoredOutcome(stored *models.FinancialTransaction) *models.TransactionResult {
	if stored.Status == models.TransactionStatusCompleted {
		return &models.TransactionResult{
			Success:     true,
			Transaction: stored,
		}
	}

	category := stored.Metadata[metaErrorCategory]
	if category == "" {
		category = string(ledgererr.CategoryInternal)
	}
	return &models.TransactionResult{
		Success:       false,
		Transaction:   stored,
		ErrorCategory: category,
		ErrorMessage:  stored.ErrorMessage,
	}
}

// publishEvent emits the audit event. Queue failures are isolated by
// the gateway's breaker and never affect the ledger outcome.
func (uc *LedgerUsecase) publishEvent(ctx context.Context, txn *models.FinancialTransaction) {
	event := &models.TransactionEvent{
		TransactionID: txn.ID,
		Type:          txn.Type,
		Status:        txn.Status,
		TotalAmount:   txn.TotalAmount,
		Currency:      txn.Currency,
		ErrorMessage:  txn.ErrorMessage,
		Timestamp:     time.Now().UTC(),
	}
	if err := uc.gw.PublishTransactionEvent(ctx, event); err != nil {
		uc.logger.Warn("Failed to publish transaction event",
			logger.String("transaction_id", txn.ID),
			logger.String("status", string(txn.Status)),
			logger.Err(err))
	}
}

// GetTransaction retrieves a transaction with its entries
func (uc *LedgerUsecase) GetTransaction(ctx context.Context, id string) (*models.FinancialTransaction, error) {
	var txn *models.FinancialTransaction
	err := uc.storeBreaker.Execute(ctx, func(ctx context.Context) error {
		var readErr error
		txn, readErr = uc.repo.GetTransactionByID(ctx, id)
		return readErr
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// GetAccountTransactions lists transactions touching an account
func (uc *LedgerUsecase) GetAccountTransactions(ctx context.Context, accountID string, limit, offset int) ([]models.FinancialTransaction, error) {
	var txns []models.FinancialTransaction
	err := uc.storeBreaker.Execute(ctx, func(ctx context.Context) error {
		var readErr error
		txns, readErr = uc.repo.GetAccountTransactions(ctx, accountID, limit, offset)
		return readErr
	})
	if err != nil {
		return nil, err
	}
	return txns, nil
}

// buildTransaction expands a request into a transaction with generated
// ids and timestamps. TotalAmount is the debit-side total.
func buildTransaction(req *models.TransactionRequest) *models.FinancialTransaction {
	now := time.Now()
	txnID := uuid.New().String()

	var total decimal.Decimal
	entries := make([]models.Entry, 0, len(req.Entries))
	for _, e := range req.Entries {
		if e.Type == models.EntryTypeDebit {
			total = total.Add(e.Amount)
		}
		entries = append(entries, models.Entry{
			ID:            uuid.New().String(),
			TransactionID: txnID,
			AccountID:     e.AccountID,
			Amount:        e.Amount,
			Type:          e.Type,
			Description:   e.Description,
			CreatedAt:     now,
		})
	}

	var metadata map[string]string
	if len(req.Metadata) > 0 {
		metadata = make(map[string]string, len(req.Metadata))
		for k, v := range req.Metadata {
			metadata[k] = v
		}
	}

	return &models.FinancialTransaction{
		ID:             txnID,
		Type:           req.Type,
		Status:         models.TransactionStatusPending,
		Entries:        entries,
		TotalAmount:    total,
		Currency:       req.Currency,
		ReferenceID:    req.ReferenceID,
		ReferenceType:  req.ReferenceType,
		IdempotencyKey: req.IdempotencyKey,
		Metadata:       metadata,
		CreatedAt:      now,
	}
}

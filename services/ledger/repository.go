package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/finvero/ledgercore/internal/pkg/models"
)

// LedgerRepo is the store interface consumed by the transaction manager
type LedgerRepo interface {
	// ExecuteLedgerTransaction runs the full posting sequence inside a
	// single serializable store transaction: insert the PROCESSING row,
	// lock the referenced accounts in ascending id order, validate,
	// apply every entry delta, persist the entries and finalize the row
	// as COMPLETED. It returns the pre-image and post-image balances of
	// every touched account. Any error means the store discarded all
	// mutations.
	ExecuteLedgerTransaction(ctx context.Context, txn *models.FinancialTransaction) (before, after map[string]decimal.Decimal, err error)

	// RecordFailedTransaction persists a FAILED row for audit. No
	// account is touched; runs outside any serializable scope.
	RecordFailedTransaction(ctx context.Context, txn *models.FinancialTransaction) error

	GetTransactionByID(ctx context.Context, id string) (*models.FinancialTransaction, error)
	GetTransactionByIdempotencyKey(ctx context.Context, key string) (*models.FinancialTransaction, error)
	GetAccountTransactions(ctx context.Context, accountID string, limit, offset int) ([]models.FinancialTransaction, error)
}

// AccountRepo manages account rows outside the posting path
type AccountRepo interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)
	UpdateAccountOwner(ctx context.Context, id string, expectedVersion int64, ownerID string) error
}

// AccountCache is the optional read acceleration for account
// snapshots. It is never authoritative: every method may fail and the
// ledger stays correct with the cache entirely absent.
type AccountCache interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	SetAccount(ctx context.Context, account *models.Account) error
	InvalidateAccount(ctx context.Context, id string) error
}

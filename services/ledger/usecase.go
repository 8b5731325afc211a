package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/finvero/ledgercore/internal/pkg/models"
)

// LedgerUC is the transaction manager surface exposed to handlers
type LedgerUC interface {
	// ExecuteTransaction validates, executes and finalizes a ledger
	// transaction exactly once. Submissions carrying a known
	// idempotency key return the stored outcome without re-executing.
	ExecuteTransaction(ctx context.Context, req *models.TransactionRequest) (*models.TransactionResult, error)

	GetTransaction(ctx context.Context, id string) (*models.FinancialTransaction, error)
	GetAccountTransactions(ctx context.Context, accountID string, limit, offset int) ([]models.FinancialTransaction, error)

	CreateAccount(ctx context.Context, req *models.CreateAccountRequest) (*models.Account, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error)

	// UpdateAccountOwner reassigns an account to a new owner. The
	// caller supplies the account version it read; a stale version
	// fails with an optimistic lock conflict.
	UpdateAccountOwner(ctx context.Context, id string, expectedVersion int64, ownerID string) error
}

// PaymentUC fronts the external payment gateway
type PaymentUC interface {
	InitiatePayment(ctx context.Context, req *models.InitiatePaymentRequest) (*models.InitiatePaymentResponse, error)
	VerifyPayment(ctx context.Context, req *models.VerifyPaymentRequest) (*models.VerifyPaymentResponse, error)
}

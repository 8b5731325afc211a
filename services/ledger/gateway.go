package ledger

import (
	"context"

	"github.com/finvero/ledgercore/internal/pkg/models"
)

// LedgerGW publishes ledger lifecycle events to the queue. Publishing
// is never on the critical path: a failing queue must not abort an
// otherwise-successful ledger commit.
type LedgerGW interface {
	PublishTransactionEvent(ctx context.Context, event *models.TransactionEvent) error
}

// PaymentGW is the external payment gateway consumed through a
// dedicated circuit breaker. Both calls are idempotent from the
// caller's perspective via the order/authority reference.
type PaymentGW interface {
	InitiatePayment(ctx context.Context, req *models.InitiatePaymentRequest) (*models.InitiatePaymentResponse, error)
	VerifyPayment(ctx context.Context, req *models.VerifyPaymentRequest) (*models.VerifyPaymentResponse, error)
}

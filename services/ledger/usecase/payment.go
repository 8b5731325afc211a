package usecase

import (
	"context"
	"fmt"

	"github.com/finvero/ledgercore/internal/pkg/ledgererr"
	"github.com/finvero/ledgercore/internal/pkg/logger"
	"github.com/finvero/ledgercore/internal/pkg/models"
	"github.com/finvero/ledgercore/services/ledger"
)

// PaymentUsecase fronts the external payment gateway. Both calls are
// idempotent from the caller's perspective via the order/authority
// reference; resilience is handled inside the gateway adapter.
type PaymentUsecase struct {
	cfg    *models.Config
	gw     ledger.PaymentGW
	logger *logger.ZapLogger
}

// NewPaymentUsecase creates a new payment use case
func NewPaymentUsecase(cfg *models.Config, gw ledger.PaymentGW, l *logger.ZapLogger) *PaymentUsecase {
	return &PaymentUsecase{cfg: cfg, gw: gw, logger: l}
}

// InitiatePayment starts a payment with the gateway
func (uc *PaymentUsecase) InitiatePayment(ctx context.Context, req *models.InitiatePaymentRequest) (*models.InitiatePaymentResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, ledgererr.Validation(fmt.Errorf("payment amount %s: %w",
			req.Amount, ledgererr.ErrNonPositiveAmount))
	}
	if req.OrderRef == "" {
		return nil, ledgererr.Validation(fmt.Errorf("order reference is required"))
	}

	resp, err := uc.gw.InitiatePayment(ctx, req)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("Payment initiated",
		logger.String("order_ref", req.OrderRef),
		logger.String("authority_id", resp.AuthorityID))

	return resp, nil
}

// VerifyPayment verifies a payment with the gateway
func (uc *PaymentUsecase) VerifyPayment(ctx context.Context, req *models.VerifyPaymentRequest) (*models.VerifyPaymentResponse, error) {
	if req.AuthorityID == "" {
		return nil, ledgererr.Validation(fmt.Errorf("authority id is required"))
	}
	if !req.Amount.IsPositive() {
		return nil, ledgererr.Validation(fmt.Errorf("payment amount %s: %w",
			req.Amount, ledgererr.ErrNonPositiveAmount))
	}

	resp, err := uc.gw.VerifyPayment(ctx, req)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("Payment verified",
		logger.String("authority_id", req.AuthorityID),
		logger.Bool("success", resp.Success),
		logger.String("ref_id", resp.RefID))

	return resp, nil
}

package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/finvero/ledgercore/internal/pkg/circuitbreaker"
	httpclient "github.com/finvero/ledgercore/internal/pkg/http"
	"github.com/finvero/ledgercore/internal/pkg/ledgererr"
	"github.com/finvero/ledgercore/internal/pkg/logger"
	"github.com/finvero/ledgercore/internal/pkg/models"
)

// PaymentGateway is the HTTP client for the external payment provider.
// Every call runs through a dedicated circuit breaker so a degraded
// provider cannot exhaust connections or block ledger traffic.
type PaymentGateway struct {
	client     *httpclient.Client
	breaker    *circuitbreaker.CircuitBreaker
	merchantID string
	logger     *logger.ZapLogger
}

// NewPaymentGateway creates a new payment gateway client
func NewPaymentGateway(cfg models.GatewayConfig, breaker *circuitbreaker.CircuitBreaker, l *logger.ZapLogger) *PaymentGateway {
	return &PaymentGateway{
		client:     httpclient.NewClient(cfg.BaseURL, cfg.Timeout),
		breaker:    breaker,
		merchantID: cfg.MerchantID,
		logger:     l,
	}
}

type initiateRequest struct {
	MerchantID string `json:"merchant_id"`
	Amount     string `json:"amount"`
	OrderRef   string `json:"order_ref"`
}

type verifyRequest struct {
	MerchantID  string `json:"merchant_id"`
	AuthorityID string `json:"authority_id"`
	Amount      string `json:"amount"`
}

// InitiatePayment starts a payment with the provider and returns the
// authority handle the caller redirects with
func (g *PaymentGateway) InitiatePayment(ctx context.Context, req *models.InitiatePaymentRequest) (*models.InitiatePaymentResponse, error) {
	payload := initiateRequest{
		MerchantID: g.merchantID,
		Amount:     req.Amount.String(),
		OrderRef:   req.OrderRef,
	}

	var resp models.InitiatePaymentResponse
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.client.PostJSON(ctx, "/v1/payments/initiate", payload, &resp)
	})
	if err != nil {
		g.logger.Error("Failed to initiate payment",
			logger.String("order_ref", req.OrderRef),
			logger.Err(err))
		return nil, classifyGatewayError(err)
	}

	return &resp, nil
}

// VerifyPayment confirms a previously initiated payment with the
// provider. Re-verifying a settled authority returns the same outcome.
func (g *PaymentGateway) VerifyPayment(ctx context.Context, req *models.VerifyPaymentRequest) (*models.VerifyPaymentResponse, error) {
	payload := verifyRequest{
		MerchantID:  g.merchantID,
		AuthorityID: req.AuthorityID,
		Amount:      req.Amount.String(),
	}

	var resp models.VerifyPaymentResponse
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.client.PostJSON(ctx, "/v1/payments/verify", payload, &resp)
	})
	if err != nil {
		g.logger.Error("Failed to verify payment",
			logger.String("authority_id", req.AuthorityID),
			logger.Err(err))
		return nil, classifyGatewayError(err)
	}

	return &resp, nil
}

// classifyGatewayError tags provider failures so callers can report a
// dependency outage rather than an internal fault
func classifyGatewayError(err error) error {
	if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return ledgererr.Dependency(fmt.Errorf("payment gateway unavailable: %w", err))
	}
	return ledgererr.Dependency(err)
}

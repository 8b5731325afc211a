package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/finvero/ledgercore/internal/pkg/ledgererr"
	"github.com/finvero/ledgercore/internal/pkg/logger"
	"github.com/finvero/ledgercore/internal/pkg/models"
	"github.com/finvero/ledgercore/internal/utils"
	"github.com/finvero/ledgercore/services/ledger"
)

// PaymentHandler handles HTTP requests for external payment operations
type PaymentHandler struct {
	paymentUC ledger.PaymentUC
	logger    *logger.ZapLogger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentUC ledger.PaymentUC, l *logger.ZapLogger) *PaymentHandler {
	return &PaymentHandler{
		paymentUC: paymentUC,
		logger:    l,
	}
}

// InitiatePayment handles payment initiation requests
func (h *PaymentHandler) InitiatePayment(c echo.Context) error {
	var req models.InitiatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "Invalid request payload")
	}

	resp, err := h.paymentUC.InitiatePayment(c.Request().Context(), &req)
	if err != nil {
		category := ledgererr.CategoryOf(err)
		if category == ledgererr.CategoryValidation {
			return utils.BadRequestResponse(c, err.Error())
		}
		h.logger.Error("Payment initiation failed",
			logger.Err(err),
			logger.String("order_ref", req.OrderRef))
		return utils.CategorizedErrorResponse(c,
			statusForCategory(category), string(category), "Payment initiation failed")
	}

	return utils.SuccessResponse(c, http.StatusOK, "Payment initiated", resp)
}

// VerifyPayment handles payment verification requests
func (h *PaymentHandler) VerifyPayment(c echo.Context) error {
	var req models.VerifyPaymentRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "Invalid request payload")
	}

	resp, err := h.paymentUC.VerifyPayment(c.Request().Context(), &req)
	if err != nil {
		category := ledgererr.CategoryOf(err)
		if category == ledgererr.CategoryValidation {
			return utils.BadRequestResponse(c, err.Error())
		}
		h.logger.Error("Payment verification failed",
			logger.Err(err),
			logger.String("authority_id", req.AuthorityID))
		return utils.CategorizedErrorResponse(c,
			statusForCategory(category), string(category), "Payment verification failed")
	}

	return utils.SuccessResponse(c, http.StatusOK, "Payment verified", resp)
}

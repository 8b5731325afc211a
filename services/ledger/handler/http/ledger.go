package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/finvero/ledgercore/internal/pkg/ledgererr"
	"github.com/finvero/ledgercore/internal/pkg/logger"
	"github.com/finvero/ledgercore/internal/pkg/models"
	"github.com/finvero/ledgercore/internal/utils"
	"github.com/finvero/ledgercore/services/ledger"
)

// LedgerHandler handles HTTP requests for ledger transactions
type LedgerHandler struct {
	ledgerUC ledger.LedgerUC
	logger   *logger.ZapLogger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(ledgerUC ledger.LedgerUC, l *logger.ZapLogger) *LedgerHandler {
	return &LedgerHandler{
		ledgerUC: ledgerUC,
		logger:   l,
	}
}

// ExecuteTransaction handles transaction submission requests
func (h *LedgerHandler) ExecuteTransaction(c echo.Context) error {
	var req models.TransactionRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Warn("Invalid transaction payload",
			logger.Err(err),
			logger.String("endpoint", "ExecuteTransaction"))
		return utils.BadRequestResponse(c, "Invalid request payload")
	}

	result, err := h.ledgerUC.ExecuteTransaction(c.Request().Context(), &req)
	if err != nil {
		h.logger.Error("Transaction execution failed",
			logger.Err(err),
			logger.String("idempotency_key", req.IdempotencyKey))
		return utils.CategorizedErrorResponse(c,
			statusForCategory(ledgererr.CategoryOf(err)),
			string(ledgererr.CategoryOf(err)),
			"Transaction could not be processed")
	}

	if !result.Success {
		return utils.CategorizedErrorResponse(c,
			statusForCategory(ledgererr.Category(result.ErrorCategory)),
			result.ErrorCategory,
			result.ErrorMessage)
	}

	return utils.SuccessResponse(c, http.StatusCreated, "Transaction completed", result)
}

// GetTransaction handles transaction retrieval requests
func (h *LedgerHandler) GetTransaction(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return utils.BadRequestResponse(c, "Invalid transaction ID")
	}

	txn, err := h.ledgerUC.GetTransaction(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ledgererr.ErrTransactionNotFound) {
			return utils.NotFoundResponse(c, "Transaction not found")
		}
		h.logger.Error("Failed to retrieve transaction",
			logger.Err(err),
			logger.String("transaction_id", id))
		return utils.InternalServerErrorResponse(c, "Failed to retrieve transaction")
	}

	return utils.SuccessResponse(c, http.StatusOK, "Transaction retrieved", txn)
}

// GetAccountTransactions handles paginated account history requests
func (h *LedgerHandler) GetAccountTransactions(c echo.Context) error {
	accountID := c.Param("id")
	if accountID == "" {
		return utils.BadRequestResponse(c, "Invalid account ID")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	txns, err := h.ledgerUC.GetAccountTransactions(c.Request().Context(), accountID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to retrieve account transactions",
			logger.Err(err),
			logger.String("account_id", accountID))
		return utils.InternalServerErrorResponse(c, "Failed to retrieve account transactions")
	}

	return utils.SuccessResponse(c, http.StatusOK, "Transactions retrieved", txns)
}

// statusForCategory maps error categories to HTTP statuses
func statusForCategory(category ledgererr.Category) int {
	switch category {
	case ledgererr.CategoryValidation:
		return http.StatusBadRequest
	case ledgererr.CategoryBusiness:
		return http.StatusUnprocessableEntity
	case ledgererr.CategoryTransient, ledgererr.CategoryDependency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

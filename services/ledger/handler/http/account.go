package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/finvero/ledgercore/internal/pkg/ledgererr"
	"github.com/finvero/ledgercore/internal/pkg/logger"
	"github.com/finvero/ledgercore/internal/pkg/models"
	"github.com/finvero/ledgercore/internal/utils"
	"github.com/finvero/ledgercore/services/ledger"
)

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	ledgerUC ledger.LedgerUC
	logger   *logger.ZapLogger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(ledgerUC ledger.LedgerUC, l *logger.ZapLogger) *AccountHandler {
	return &AccountHandler{
		ledgerUC: ledgerUC,
		logger:   l,
	}
}

// CreateAccount handles account creation requests
func (h *AccountHandler) CreateAccount(c echo.Context) error {
	var req models.CreateAccountRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "Invalid request payload")
	}

	account, err := h.ledgerUC.CreateAccount(c.Request().Context(), &req)
	if err != nil {
		category := ledgererr.CategoryOf(err)
		if category == ledgererr.CategoryValidation {
			return utils.BadRequestResponse(c, err.Error())
		}
		h.logger.Error("Failed to create account",
			logger.Err(err),
			logger.String("owner_id", req.OwnerID))
		return utils.CategorizedErrorResponse(c,
			statusForCategory(category), string(category), "Failed to create account")
	}

	return utils.SuccessResponse(c, http.StatusCreated, "Account created", account)
}

// GetAccount handles account retrieval requests
func (h *AccountHandler) GetAccount(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return utils.BadRequestResponse(c, "Invalid account ID")
	}

	account, err := h.ledgerUC.GetAccount(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ledgererr.ErrAccountNotFound) {
			return utils.NotFoundResponse(c, "Account not found")
		}
		h.logger.Error("Failed to retrieve account",
			logger.Err(err),
			logger.String("account_id", id))
		return utils.InternalServerErrorResponse(c, "Failed to retrieve account")
	}

	return utils.SuccessResponse(c, http.StatusOK, "Account retrieved", account)
}

// UpdateAccountOwner handles owner reassignment requests
func (h *AccountHandler) UpdateAccountOwner(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return utils.BadRequestResponse(c, "Invalid account ID")
	}

	var req models.UpdateAccountOwnerRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "Invalid request payload")
	}

	err := h.ledgerUC.UpdateAccountOwner(c.Request().Context(), id, req.ExpectedVersion, req.OwnerID)
	if err != nil {
		category := ledgererr.CategoryOf(err)
		switch {
		case errors.Is(err, ledgererr.ErrAccountNotFound):
			return utils.NotFoundResponse(c, "Account not found")
		case errors.Is(err, ledgererr.ErrOptimisticLockConflict):
			return utils.CategorizedErrorResponse(c,
				http.StatusConflict, string(category), "Account version is stale, re-read and retry")
		case category == ledgererr.CategoryValidation:
			return utils.BadRequestResponse(c, err.Error())
		}
		h.logger.Error("Failed to update account owner",
			logger.Err(err),
			logger.String("account_id", id))
		return utils.CategorizedErrorResponse(c,
			statusForCategory(category), string(category), "Failed to update account owner")
	}

	return utils.SuccessResponse(c, http.StatusOK, "Account owner updated", map[string]interface{}{
		"account_id": id,
		"owner_id":   req.OwnerID,
	})
}

// GetBalance handles account balance requests
func (h *AccountHandler) GetBalance(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return utils.BadRequestResponse(c, "Invalid account ID")
	}

	balance, err := h.ledgerUC.GetBalance(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ledgererr.ErrAccountNotFound) {
			return utils.NotFoundResponse(c, "Account not found")
		}
		h.logger.Error("Failed to retrieve balance",
			logger.Err(err),
			logger.String("account_id", id))
		return utils.InternalServerErrorResponse(c, "Failed to retrieve balance")
	}

	return utils.SuccessResponse(c, http.StatusOK, "Balance retrieved", map[string]interface{}{
		"account_id": id,
		"balance":    balance,
	})
}

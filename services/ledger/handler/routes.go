package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/finvero/ledgercore/internal/pkg/middleware"
	"github.com/finvero/ledgercore/internal/pkg/models"
	"github.com/finvero/ledgercore/services/ledger/handler/http"
)

// Handler coordinates the HTTP handlers for the ledger service
type Handler struct {
	ledgerHandler  *http.LedgerHandler
	accountHandler *http.AccountHandler
	paymentHandler *http.PaymentHandler
	adminHandler   *http.AdminHandler
	cfg            *models.Config
}

// NewHandler creates and initializes all handlers
func NewHandler(
	ledgerHandler *http.LedgerHandler,
	accountHandler *http.AccountHandler,
	paymentHandler *http.PaymentHandler,
	adminHandler *http.AdminHandler,
	cfg *models.Config,
) *Handler {
	return &Handler{
		ledgerHandler:  ledgerHandler,
		accountHandler: accountHandler,
		paymentHandler: paymentHandler,
		adminHandler:   adminHandler,
		cfg:            cfg,
	}
}

// RegisterRoutes registers all HTTP routes
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Service routes guarded by the shared API key
	v1 := e.Group("/v1", middleware.ValidateAPIKey(h.cfg.Server.APIKey))

	txnGroup := v1.Group("/transactions")
	txnGroup.POST("", h.ledgerHandler.ExecuteTransaction)
	txnGroup.GET("/:id", h.ledgerHandler.GetTransaction)

	accountGroup := v1.Group("/accounts")
	accountGroup.POST("", h.accountHandler.CreateAccount)
	accountGroup.GET("/:id", h.accountHandler.GetAccount)
	accountGroup.PATCH("/:id/owner", h.accountHandler.UpdateAccountOwner)
	accountGroup.GET("/:id/balance", h.accountHandler.GetBalance)
	accountGroup.GET("/:id/transactions", h.ledgerHandler.GetAccountTransactions)

	paymentGroup := v1.Group("/payments")
	paymentGroup.POST("/initiate", h.paymentHandler.InitiatePayment)
	paymentGroup.POST("/verify", h.paymentHandler.VerifyPayment)

	// Operator routes require an admin JWT
	adminGroup := e.Group("/admin", middleware.AdminAuthMiddleware(h.cfg.JWT))
	adminGroup.GET("/circuit-breakers", h.adminHandler.GetCircuitBreakerStats)
	adminGroup.POST("/circuit-breakers/:name/force-open", h.adminHandler.ForceOpenCircuitBreaker)
	adminGroup.POST("/circuit-breakers/:name/reset", h.adminHandler.ResetCircuitBreaker)
}

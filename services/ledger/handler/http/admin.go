package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/finvero/ledgercore/internal/pkg/circuitbreaker"
	"github.com/finvero/ledgercore/internal/pkg/logger"
	"github.com/finvero/ledgercore/internal/utils"
)

// AdminHandler exposes operational controls over the circuit breakers
type AdminHandler struct {
	breakers *circuitbreaker.Manager
	logger   *logger.ZapLogger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(breakers *circuitbreaker.Manager, l *logger.ZapLogger) *AdminHandler {
	return &AdminHandler{
		breakers: breakers,
		logger:   l,
	}
}

// GetCircuitBreakerStats returns the state and counters of every
// registered breaker
func (h *AdminHandler) GetCircuitBreakerStats(c echo.Context) error {
	return utils.SuccessResponse(c, http.StatusOK, "Circuit breaker stats", h.breakers.GetStats())
}

// ForceOpenCircuitBreaker trips the named breaker until an explicit
// reset. Used to cut off a dependency known to be failing.
func (h *AdminHandler) ForceOpenCircuitBreaker(c echo.Context) error {
	name := c.Param("name")
	cb, ok := h.breakers.Get(name)
	if !ok {
		return utils.NotFoundResponse(c, "Unknown circuit breaker")
	}

	cb.ForceOpen()
	h.logger.Warn("Circuit breaker forced open",
		logger.String("breaker", name))

	return utils.SuccessResponse(c, http.StatusOK, "Circuit breaker forced open", map[string]string{
		"name":  name,
		"state": cb.State().String(),
	})
}

// ResetCircuitBreaker returns the named breaker to CLOSED with cleared
// counters
func (h *AdminHandler) ResetCircuitBreaker(c echo.Context) error {
	name := c.Param("name")
	cb, ok := h.breakers.Get(name)
	if !ok {
		return utils.NotFoundResponse(c, "Unknown circuit breaker")
	}

	cb.Reset()
	h.logger.Warn("Circuit breaker reset",
		logger.String("breaker", name))

	return utils.SuccessResponse(c, http.StatusOK, "Circuit breaker reset", map[string]string{
		"name":  name,
		"state": cb.State().String(),
	})
}

package middleware

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"

	"github.com/finvero/ledgercore/internal/utils"
)

// APIKeyHeader carries the service-to-service API key
const APIKeyHeader = "X-API-Key"

// ValidateAPIKey validates the API key for service-to-service calls
func ValidateAPIKey(expectedKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if expectedKey == "" {
				// No key configured: auth is handled upstream
				return next(c)
			}

			apiKey := c.Request().Header.Get(APIKeyHeader)
			if apiKey == "" {
				return utils.UnauthorizedResponse(c, "API key is required")
			}

			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(expectedKey)) != 1 {
				return utils.UnauthorizedResponse(c, "Invalid API key")
			}

			return next(c)
		}
	}
}

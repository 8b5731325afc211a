package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"github.com/finvero/ledgercore/internal/pkg/logger"
	"github.com/finvero/ledgercore/internal/utils"
)

// PanicRecoveryMiddleware recovers from handler panics, logs the
// stack trace and returns a generic 500 without leaking internals.
func PanicRecoveryMiddleware(zapLogger *logger.ZapLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer func() {
				if r := recover(); r != nil {
					zapLogger.Error("Panic recovered in HTTP handler",
						logger.Any("panic", r),
						logger.String("method", c.Request().Method),
						logger.String("path", c.Request().URL.Path),
						logger.String("client_ip", c.RealIP()),
						logger.String("stacktrace", string(debug.Stack())))

					_ = utils.ErrorResponseHandler(c, http.StatusInternalServerError, "Internal server error")
				}
			}()

			return next(c)
		}
	}
}

package middleware

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/finvero/ledgercore/internal/pkg/models"
	"github.com/finvero/ledgercore/internal/utils"
)

// AdminAuthMiddleware guards the operational endpoints (circuit
// breaker kill-switches) with a JWT carrying an admin role claim.
func AdminAuthMiddleware(config models.JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return utils.UnauthorizedResponse(c, "Authorization header is required")
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return utils.UnauthorizedResponse(c, "Invalid authorization format")
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(config.Secret), nil
			})
			if err != nil || !token.Valid {
				return utils.UnauthorizedResponse(c, "Invalid token")
			}

			if config.Issuer != "" && !claims.VerifyIssuer(config.Issuer, true) {
				return utils.UnauthorizedResponse(c, "Invalid token issuer")
			}

			role, _ := claims["role"].(string)
			if role != "admin" {
				return utils.ErrorResponseHandler(c, 403, "Admin role required")
			}

			c.Set("user_role", role)
			return next(c)
		}
	}
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

// Context keys populated by Auth.
const (
	CtxAccountID = "account_id"
	CtxEmail     = "email"
	CtxRoleID    = "role_id"
	CtxRole      = "role"
)

// CallerRole returns the role reference Auth stored in c. The id is empty for
// tokens minted before role ids were embedded.
func CallerRole(c echo.Context) domain.RoleRef {
	id, _ := c.Get(CtxRoleID).(string)
	name, _ := c.Get(CtxRole).(string)
	return domain.RoleRef{ID: id, Name: name}
}

// Auth validates the bearer token and injects its claims into context.
func Auth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims, err := verifier.Parse(strings.TrimSpace(parts[1]))
			if err != nil {
				return err
			}
			if claims.AccountID == "" || claims.Role == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(CtxAccountID, claims.AccountID)
			c.Set(CtxEmail, claims.Email)
			c.Set(CtxRoleID, claims.RoleID)
			c.Set(CtxRole, claims.Role)

			return next(c)
		}
	}
}

package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-system/internal/api/metrics"
	"github.com/99minutos/identity-system/internal/core/ports"
)

// RBAC enforces role-based access control.
func RBAC(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(CtxRole).(string)
			if _, ok := allowed[role]; !ok {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden", "code": "FORBIDDEN"})
			}
			return next(c)
		}
	}
}

// RequireAction admits the request only when the caller's role holds action.
// It must run after Auth.
func RequireAction(perms ports.PermissionService, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := CallerRole(c)
			if role.Name == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
			}

			ok, err := perms.HasAction(c.Request().Context(), role, action)
			if err != nil {
				return err
			}
			if !ok {
				metrics.AuthorizationDecisionsTotal.WithLabelValues(action, "denied").Inc()
				return c.JSON(http.StatusForbidden, map[string]string{
					"error": "role '" + role.Name + "' lacks action '" + action + "'",
					"code":  "FORBIDDEN",
				})
			}

			metrics.AuthorizationDecisionsTotal.WithLabelValues(action, "allowed").Inc()
			return next(c)
		}
	}
}

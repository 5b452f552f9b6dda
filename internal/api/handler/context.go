package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-system/internal/api/middleware"
	"github.com/99minutos/identity-system/internal/core/domain"
)

// ctxClaims extracts the auth claims injected by the Auth middleware.
// The role name must be non-empty: its presence proves the middleware ran.
func ctxClaims(c echo.Context) (accountID string, role domain.RoleRef, err error) {
	role = middleware.CallerRole(c)
	accountID, _ = c.Get(middleware.CtxAccountID).(string)
	if role.Name == "" || accountID == "" {
		return "", domain.RoleRef{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return accountID, role, nil
}

// bindBody binds and validates a JSON body into req.
func bindBody(c echo.Context, req any) error {
	if c.Request().ContentLength == 0 {
		return domain.Validation(domain.CodeInvalidInput, "Request body cannot be empty")
	}
	if err := c.Bind(req); err != nil {
		return domain.Validation(domain.CodeInvalidInput, "invalid payload")
	}
	return c.Validate(req)
}

// pageQuery reads ?page=&limit=. Malformed values fall back to defaults.
func pageQuery(c echo.Context) domain.Page {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return domain.Page{Page: page, Limit: limit}.Normalize()
}

// boolQuery reads an optional boolean query parameter.
func boolQuery(c echo.Context, name string) (*bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, domain.Validation(domain.CodeInvalidInput, name+" must be true or false")
	}
	return &v, nil
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	return string(domain.KindOf(err))
}

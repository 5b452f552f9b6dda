package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

type UserHandler struct {
	users ports.UserAdminService
}

func NewUserHandler(users ports.UserAdminService) *UserHandler {
	return &UserHandler{users: users}
}

// List
//
// @Summary      List accounts
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page (default 1)"
// @Param        limit  query     int  false  "Page size (default 10, max 100)"
// @Success      200    {object}  accountListResponse
// @Router       /v1/admin/users [get]
func (h *UserHandler) List(c echo.Context) error {
	res, err := h.users.List(c.Request().Context(), pageQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Delete
//
// @Summary      Delete an account
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      string  true  "Account ID"
// @Success      200     {object}  map[string]any
// @Failure      400     {object}  errorBody
// @Failure      404     {object}  errorBody
// @Router       /v1/admin/users/{userId} [delete]
// @Router       /v1/admin/users [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	callerID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}
	target := c.Param("userId")
	if target == "" {
		target = c.QueryParam("userId")
	}
	if target == "" {
		return domain.Validation(domain.CodeInvalidInput, "userId is required")
	}
	if target == callerID {
		return domain.Validation(domain.CodeInvalidInput, "cannot delete the authenticated account")
	}

	res, err := h.users.Delete(c.Request().Context(), target)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// AssignRole
//
// @Summary      Assign a role to an account
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      string             true  "Account ID"
// @Param        body    body      assignRoleRequest  true  "Role"
// @Success      200     {object}  accountResponse
// @Failure      400     {object}  errorBody
// @Failure      403     {object}  errorBody
// @Failure      404     {object}  errorBody
// @Router       /v1/admin/users/{userId}/role [put]
func (h *UserHandler) AssignRole(c echo.Context) error {
	_, actor, err := ctxClaims(c)
	if err != nil {
		return err
	}
	var req assignRoleRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	res, err := h.users.AssignRole(c.Request().Context(), actor, c.Param("userId"), req.RoleID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

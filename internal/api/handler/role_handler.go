package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-system/internal/api/metrics"
	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

type RoleHandler struct {
	roles ports.RoleService
}

func NewRoleHandler(roles ports.RoleService) *RoleHandler {
	return &RoleHandler{roles: roles}
}

// Create
//
// @Summary      Create a role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createRoleRequest  true  "Role"
// @Success      201   {object}  roleResponse
// @Failure      400   {object}  errorBody
// @Failure      409   {object}  errorBody
// @Router       /v1/admin/roles [post]
func (h *RoleHandler) Create(c echo.Context) error {
	var req createRoleRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	res, err := h.roles.Create(c.Request().Context(), ports.CreateRoleInput{
		Name:        req.Name,
		Description: req.Description,
		Actions:     req.Actions,
	})
	if err != nil {
		return err
	}
	metrics.CatalogMutationsTotal.WithLabelValues("role", "create").Inc()
	return c.JSON(http.StatusCreated, res)
}

// List
//
// @Summary      List roles
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        page      query     int   false  "Page (default 1)"
// @Param        limit     query     int   false  "Page size (default 10, max 100)"
// @Param        isActive  query     bool  false  "Filter by active flag"
// @Success      200       {object}  roleListResponse
// @Router       /v1/admin/roles [get]
func (h *RoleHandler) List(c echo.Context) error {
	active, err := boolQuery(c, "isActive")
	if err != nil {
		return err
	}

	res, err := h.roles.List(c.Request().Context(), ports.ListRolesInput{Page: pageQuery(c), IsActive: active})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Get
//
// @Summary      Get a role with its actions
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        roleId  path      string  true  "Role ID"
// @Success      200     {object}  roleResponse
// @Failure      404     {object}  errorBody
// @Router       /v1/admin/roles/{roleId} [get]
func (h *RoleHandler) Get(c echo.Context) error {
	res, err := h.roles.Get(c.Request().Context(), c.Param("roleId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Update
//
// @Summary      Update a role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        roleId  path      string             true  "Role ID"
// @Param        body    body      updateRoleRequest  true  "Fields to change"
// @Success      200     {object}  roleResponse
// @Failure      400     {object}  errorBody
// @Failure      404     {object}  errorBody
// @Failure      409     {object}  errorBody
// @Router       /v1/admin/roles/{roleId} [put]
func (h *RoleHandler) Update(c echo.Context) error {
	var req updateRoleRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if req.empty() {
		return domain.Validation(domain.CodeInvalidInput, "At least one field must be provided for update")
	}

	res, err := h.roles.Update(c.Request().Context(), c.Param("roleId"), ports.UpdateRoleInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	metrics.CatalogMutationsTotal.WithLabelValues("role", "update").Inc()
	return c.JSON(http.StatusOK, res)
}

// Delete
//
// @Summary      Delete a role
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        roleId  path      string  true  "Role ID"
// @Success      200     {object}  map[string]any
// @Failure      404     {object}  errorBody
// @Failure      409     {object}  errorBody
// @Router       /v1/admin/roles/{roleId} [delete]
func (h *RoleHandler) Delete(c echo.Context) error {
	res, err := h.roles.Delete(c.Request().Context(), c.Param("roleId"))
	if err != nil {
		return err
	}
	metrics.CatalogMutationsTotal.WithLabelValues("role", "delete").Inc()
	return c.JSON(http.StatusOK, res)
}

// AddAction
//
// @Summary      Add an action to a role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        roleId  path      string            true  "Role ID"
// @Param        body    body      addActionRequest  true  "Action"
// @Success      200     {object}  roleResponse
// @Failure      404     {object}  errorBody
// @Failure      409     {object}  errorBody
// @Router       /v1/admin/roles/{roleId}/actions [post]
func (h *RoleHandler) AddAction(c echo.Context) error {
	var req addActionRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	res, err := h.roles.AddAction(c.Request().Context(), c.Param("roleId"), req.ActionID)
	if err != nil {
		return err
	}
	metrics.CatalogMutationsTotal.WithLabelValues("role", "add_action").Inc()
	return c.JSON(http.StatusOK, res)
}

// RemoveAction
//
// @Summary      Remove an action from a role
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        roleId    path      string  true  "Role ID"
// @Param        actionId  path      string  true  "Action ID"
// @Success      200       {object}  roleResponse
// @Failure      404       {object}  errorBody
// @Router       /v1/admin/roles/{roleId}/actions/{actionId} [delete]
func (h *RoleHandler) RemoveAction(c echo.Context) error {
	res, err := h.roles.RemoveAction(c.Request().Context(), c.Param("roleId"), c.Param("actionId"))
	if err != nil {
		return err
	}
	metrics.CatalogMutationsTotal.WithLabelValues("role", "remove_action").Inc()
	return c.JSON(http.StatusOK, res)
}

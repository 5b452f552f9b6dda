package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-system/internal/api/metrics"
	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

type ActionHandler struct {
	actions ports.ActionService
}

func NewActionHandler(actions ports.ActionService) *ActionHandler {
	return &ActionHandler{actions: actions}
}

// Create
//
// @Summary      Create an action
// @Tags         actions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createActionRequest  true  "Action"
// @Success      201   {object}  actionResponse
// @Failure      400   {object}  errorBody
// @Failure      409   {object}  errorBody
// @Router       /v1/admin/actions [post]
func (h *ActionHandler) Create(c echo.Context) error {
	var req createActionRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	res, err := h.actions.Create(c.Request().Context(), ports.CreateActionInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		return err
	}
	metrics.CatalogMutationsTotal.WithLabelValues("action", "create").Inc()
	return c.JSON(http.StatusCreated, res)
}

// List
//
// @Summary      List actions
// @Tags         actions
// @Produce      json
// @Security     BearerAuth
// @Param        page      query     int     false  "Page (default 1)"
// @Param        limit     query     int     false  "Page size (default 10, max 100)"
// @Param        category  query     string  false  "Filter by category"
// @Param        isActive  query     bool    false  "Filter by active flag"
// @Success      200       {object}  actionListResponse
// @Failure      400       {object}  errorBody
// @Router       /v1/admin/actions [get]
func (h *ActionHandler) List(c echo.Context) error {
	active, err := boolQuery(c, "isActive")
	if err != nil {
		return err
	}

	res, err := h.actions.List(c.Request().Context(), ports.ListActionsInput{
		Page:     pageQuery(c),
		Category: c.QueryParam("category"),
		IsActive: active,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// ByCategory
//
// @Summary      Active actions grouped by category
// @Tags         actions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  categoryResponse
// @Router       /v1/admin/actions/by-category [get]
func (h *ActionHandler) ByCategory(c echo.Context) error {
	res, err := h.actions.GroupByCategory(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Get
//
// @Summary      Get an action with the roles using it
// @Tags         actions
// @Produce      json
// @Security     BearerAuth
// @Param        actionId  path      string  true  "Action ID"
// @Success      200       {object}  actionDetailResponse
// @Failure      404       {object}  errorBody
// @Router       /v1/admin/actions/{actionId} [get]
func (h *ActionHandler) Get(c echo.Context) error {
	res, err := h.actions.Get(c.Request().Context(), c.Param("actionId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Update
//
// @Summary      Update an action
// @Tags         actions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        actionId  path      string               true  "Action ID"
// @Param        body      body      updateActionRequest  true  "Fields to change"
// @Success      200       {object}  actionResponse
// @Failure      400       {object}  errorBody
// @Failure      404       {object}  errorBody
// @Failure      409       {object}  errorBody
// @Router       /v1/admin/actions/{actionId} [put]
func (h *ActionHandler) Update(c echo.Context) error {
	var req updateActionRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if req.empty() {
		return domain.Validation(domain.CodeInvalidInput, "At least one field must be provided for update")
	}

	res, err := h.actions.Update(c.Request().Context(), c.Param("actionId"), ports.UpdateActionInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	metrics.CatalogMutationsTotal.WithLabelValues("action", "update").Inc()
	return c.JSON(http.StatusOK, res)
}

// Delete removes the action and prunes it from every role.
//
// @Summary      Delete an action
// @Tags         actions
// @Produce      json
// @Security     BearerAuth
// @Param        actionId  path      string  true  "Action ID"
// @Success      200       {object}  map[string]any
// @Failure      404       {object}  errorBody
// @Router       /v1/admin/actions/{actionId} [delete]
func (h *ActionHandler) Delete(c echo.Context) error {
	res, err := h.actions.Delete(c.Request().Context(), c.Param("actionId"))
	if err != nil {
		return err
	}
	metrics.CatalogMutationsTotal.WithLabelValues("action", "delete").Inc()
	return c.JSON(http.StatusOK, res)
}

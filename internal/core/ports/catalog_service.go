package ports

import (
	"context"

	"github.com/99minutos/identity-system/internal/core/domain"
)

type CreateActionInput struct {
	Name        string
	Description string
	Category    string
}

type UpdateActionInput struct {
	Name        *string
	Description *string
	Category    *string
	IsActive    *bool
}

type ListActionsInput struct {
	Page     domain.Page
	Category string
	IsActive *bool
}

// DeletedAction identifies a removed action.
type DeletedAction struct {
	ActionID string `json:"actionId"`
	Name     string `json:"name"`
}

// ActionService manages permission primitives.
type ActionService interface {
	Create(ctx context.Context, in CreateActionInput) (*domain.Envelope[*domain.Action], error)
	List(ctx context.Context, in ListActionsInput) (*domain.Envelope[[]*domain.Action], error)
	Get(ctx context.Context, id string) (*domain.Envelope[*domain.ActionDetail], error)
	Update(ctx context.Context, id string, in UpdateActionInput) (*domain.Envelope[*domain.Action], error)
	Delete(ctx context.Context, id string) (*domain.Envelope[*DeletedAction], error)
	GroupByCategory(ctx context.Context) (*domain.Envelope[[]domain.CategoryGroup], error)
}

type CreateRoleInput struct {
	Name        string
	Description string
	Actions     []string
}

type UpdateRoleInput struct {
	Name        *string
	Description *string
	IsActive    *bool
}

type ListRolesInput struct {
	Page     domain.Page
	IsActive *bool
}

// DeletedRole identifies a removed role.
type DeletedRole struct {
	RoleID string `json:"roleId"`
	Name   string `json:"name"`
}

// RoleService manages roles and their action membership.
type RoleService interface {
	Create(ctx context.Context, in CreateRoleInput) (*domain.Envelope[*domain.Role], error)
	List(ctx context.Context, in ListRolesInput) (*domain.Envelope[[]*domain.Role], error)
	Get(ctx context.Context, id string) (*domain.Envelope[*domain.Role], error)
	Update(ctx context.Context, id string, in UpdateRoleInput) (*domain.Envelope[*domain.Role], error)
	Delete(ctx context.Context, id string) (*domain.Envelope[*DeletedRole], error)
	AddAction(ctx context.Context, roleID, actionID string) (*domain.Envelope[*domain.Role], error)
	RemoveAction(ctx context.Context, roleID, actionID string) (*domain.Envelope[*domain.Role], error)
}

// UserAdminService is the administrative view over accounts.
type UserAdminService interface {
	List(ctx context.Context, page domain.Page) (*domain.Envelope[[]*domain.Account], error)
	Delete(ctx context.Context, id string) (*domain.Envelope[string], error)
	// AssignRole moves accountID to roleID on behalf of actor. Only a superuser
	// actor may hand out the admin role.
	AssignRole(ctx context.Context, actor domain.RoleRef, accountID, roleID string) (*domain.Envelope[*domain.Account], error)
}

// PermissionService resolves what a role may do. References carrying an id
// resolve by id only; the name is consulted for legacy name-only references.
type PermissionService interface {
	ActionsForRole(ctx context.Context, ref domain.RoleRef) ([]string, error)
	HasAction(ctx context.Context, ref domain.RoleRef, action string) (bool, error)
}

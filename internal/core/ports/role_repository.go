package ports

import (
	"context"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// RoleFilter narrows role listings. Nil fields are not applied.
type RoleFilter struct {
	IsActive *bool
}

// RoleUpdate is a partial update; nil fields are left untouched.
type RoleUpdate struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// RoleRepository defines persistence operations for roles and their action sets.
type RoleRepository interface {
	Create(ctx context.Context, r *domain.Role) (*domain.Role, error)
	FindByID(ctx context.Context, id string) (*domain.Role, error)
	FindByName(ctx context.Context, name string) (*domain.Role, error)
	// FindByAction returns every role whose action set contains actionID.
	FindByAction(ctx context.Context, actionID string) ([]*domain.Role, error)
	// List returns one page sorted by creation time, newest first.
	List(ctx context.Context, filter RoleFilter, page domain.Page) ([]*domain.Role, int64, error)
	Update(ctx context.Context, id string, upd RoleUpdate) (*domain.Role, error)
	Delete(ctx context.Context, id string) error

	// AddAction appends actionID only when it is not already a member.
	// It returns domain.ErrActionAlreadyInRole when it is.
	AddAction(ctx context.Context, roleID, actionID string) error
	// RemoveAction returns domain.ErrActionNotInRole when actionID is not a member.
	RemoveAction(ctx context.Context, roleID, actionID string) error
	// PullActionFromAll removes actionID from every role and reports how many changed.
	PullActionFromAll(ctx context.Context, actionID string) (int64, error)
}

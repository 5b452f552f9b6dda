package ports

import (
	"context"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// ActionFilter narrows action listings. Empty/nil fields are not applied.
type ActionFilter struct {
	Category domain.Category
	IsActive *bool
}

// ActionUpdate is a partial update; nil fields are left untouched.
type ActionUpdate struct {
	Name        *string
	Description *string
	Category    *domain.Category
	IsActive    *bool
}

// ActionRepository defines persistence operations for actions.
type ActionRepository interface {
	Create(ctx context.Context, a *domain.Action) (*domain.Action, error)
	FindByID(ctx context.Context, id string) (*domain.Action, error)
	FindByName(ctx context.Context, name string) (*domain.Action, error)
	// FindByIDs returns the actions that exist among ids; unknown ids are skipped.
	FindByIDs(ctx context.Context, ids []string) ([]*domain.Action, error)
	// List returns one page sorted by category then name.
	List(ctx context.Context, filter ActionFilter, page domain.Page) ([]*domain.Action, int64, error)
	Update(ctx context.Context, id string, upd ActionUpdate) (*domain.Action, error)
	Delete(ctx context.Context, id string) error
	// GroupByCategory aggregates active actions into sorted category buckets.
	GroupByCategory(ctx context.Context) ([]domain.CategoryGroup, error)
}

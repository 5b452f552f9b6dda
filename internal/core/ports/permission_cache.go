package ports

import (
	"context"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// PermissionCache memoizes resolved grants keyed by domain.RoleRef.Key.
type PermissionCache interface {
	// Get reports ok=false on a miss.
	Get(ctx context.Context, key string) (grant *domain.Grant, ok bool, err error)
	Set(ctx context.Context, key string, grant *domain.Grant) error
	// Invalidate drops every cached entry.
	Invalidate(ctx context.Context) error
}

package service

import (
	"context"
	"errors"
	"slices"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

// PermissionService resolves a role reference to its grant, caching the
// result. The cache is optional.
type PermissionService struct {
	roles   ports.RoleRepository
	actions ports.ActionRepository
	cache   ports.PermissionCache
	log     zerolog.Logger
}

func NewPermissionService(roles ports.RoleRepository, actions ports.ActionRepository, cache ports.PermissionCache, log zerolog.Logger) *PermissionService {
	return &PermissionService{roles: roles, actions: actions, cache: cache, log: log}
}

// ActionsForRole returns the sorted names of the active actions granted to ref.
// Unknown or inactive roles resolve to an empty set.
func (s *PermissionService) ActionsForRole(ctx context.Context, ref domain.RoleRef) ([]string, error) {
	grant, err := s.Grant(ctx, ref)
	if err != nil {
		return nil, err
	}
	return grant.Actions, nil
}

// HasAction reports whether ref may perform action. An active role named
// admin always may.
func (s *PermissionService) HasAction(ctx context.Context, ref domain.RoleRef, action string) (bool, error) {
	grant, err := s.Grant(ctx, ref)
	if err != nil {
		return false, err
	}
	return grant.Allows(action), nil
}

// Grant resolves ref through the cache. A reference with an id never falls
// back to its name.
func (s *PermissionService) Grant(ctx context.Context, ref domain.RoleRef) (*domain.Grant, error) {
	if ref.ID == "" && domain.NormalizeName(ref.Name) == "" {
		return &domain.Grant{Actions: []string{}}, nil
	}
	key := ref.Key()

	if s.cache != nil {
		grant, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Str("role", key).Msg("permission cache read failed")
		} else if ok {
			return grant, nil
		}
	}

	grant, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, wrapInternal(s.log, "Resolve Permissions", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, grant); err != nil {
			s.log.Warn().Err(err).Str("role", key).Msg("permission cache write failed")
		}
	}
	return grant, nil
}

func (s *PermissionService) resolve(ctx context.Context, ref domain.RoleRef) (*domain.Grant, error) {
	role, err := findRole(ctx, s.roles, ref)
	if errors.Is(err, domain.ErrRoleNotFound) {
		return &domain.Grant{Actions: []string{}}, nil
	}
	if err != nil {
		return nil, err
	}

	grant := &domain.Grant{Role: role.Name, Actions: []string{}}
	if !role.IsActive {
		return grant, nil
	}
	grant.Superuser = role.Name == domain.AdminRoleName
	if len(role.ActionIDs) == 0 {
		return grant, nil
	}

	actions, err := s.actions.FindByIDs(ctx, role.ActionIDs)
	if err != nil {
		return nil, err
	}
	for _, a := range actions {
		if a.IsActive {
			grant.Actions = append(grant.Actions, a.Name)
		}
	}
	slices.Sort(grant.Actions)
	return grant, nil
}

// findRole looks ref up by id, or by name for a legacy name-only reference.
func findRole(ctx context.Context, roles ports.RoleRepository, ref domain.RoleRef) (*domain.Role, error) {
	if ref.ID != "" {
		return roles.FindByID(ctx, ref.ID)
	}
	return roles.FindByName(ctx, domain.NormalizeName(ref.Name))
}

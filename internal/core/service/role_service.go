package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

// RoleService manages roles and their action membership.
type RoleService struct {
	roles    ports.RoleRepository
	actions  ports.ActionRepository
	accounts ports.AccountRepository
	cache    ports.PermissionCache
	log      zerolog.Logger
	now      func() time.Time
}

func NewRoleService(
	roles ports.RoleRepository,
	actions ports.ActionRepository,
	accounts ports.AccountRepository,
	cache ports.PermissionCache,
	log zerolog.Logger,
) *RoleService {
	return &RoleService{roles: roles, actions: actions, accounts: accounts, cache: cache, log: log, now: time.Now}
}

// Create persists a role. Every supplied action id must resolve or nothing is written.
func (s *RoleService) Create(ctx context.Context, in ports.CreateRoleInput) (*domain.Envelope[*domain.Role], error) {
	const op = "Create Role"

	name := domain.NormalizeName(in.Name)
	if name == "" {
		return nil, domain.Validation(domain.CodeInvalidInput, "role name is required")
	}
	if err := s.ensureNameFree(ctx, name); err != nil {
		return nil, wrapInternal(s.log, op, err)
	}

	ids := domain.UniqueIDs(in.Actions)
	var resolved []*domain.Action
	if len(ids) > 0 {
		found, err := s.actions.FindByIDs(ctx, ids)
		if err != nil {
			return nil, wrapInternal(s.log, op, err)
		}
		if len(found) != len(ids) {
			return nil, domain.Validation(domain.CodeInvalidActionIDs, "One or more action IDs are invalid")
		}
		resolved = found
	}

	created, err := s.roles.Create(ctx, &domain.Role{
		Name:        name,
		Description: in.Description,
		ActionIDs:   ids,
		IsActive:    true,
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}
	created.Actions = sortedActions(resolved)

	invalidate(ctx, s.cache, s.log)
	s.log.Info().Str("role_id", created.ID).Str("name", created.Name).Int("actions", len(ids)).Msg("role created")

	return &domain.Envelope[*domain.Role]{Data: created, MetaData: domain.Message("Role created successfully")}, nil
}

func (s *RoleService) List(ctx context.Context, in ports.ListRolesInput) (*domain.Envelope[[]*domain.Role], error) {
	const op = "Get Roles"

	page := in.Page.Normalize()
	roles, total, err := s.roles.List(ctx, ports.RoleFilter{IsActive: in.IsActive}, page)
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}
	if err := s.expand(ctx, roles...); err != nil {
		return nil, wrapInternal(s.log, op, err)
	}
	if roles == nil {
		roles = []*domain.Role{}
	}
	return &domain.Envelope[[]*domain.Role]{Data: roles, MetaData: page.Meta("totalRoles", total)}, nil
}

func (s *RoleService) Get(ctx context.Context, id string) (*domain.Envelope[*domain.Role], error) {
	role, err := s.load(ctx, id)
	if err != nil {
		return nil, wrapInternal(s.log, "Get Role", err)
	}
	return &domain.Envelope[*domain.Role]{Data: role, MetaData: domain.MetaData{}}, nil
}

func (s *RoleService) Update(ctx context.Context, id string, in ports.UpdateRoleInput) (*domain.Envelope[*domain.Role], error) {
	const op = "Update Role"

	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}

	upd := ports.RoleUpdate{Description: in.Description, IsActive: in.IsActive}
	if in.Name != nil {
		name := domain.NormalizeName(*in.Name)
		if name != "" && name != role.Name {
			if reservedRole(role.Name) {
				return nil, domain.Conflict(domain.CodeReservedRole,
					fmt.Sprintf("Role '%s' is reserved and cannot be renamed", role.Name))
			}
			if err := s.ensureNameFree(ctx, name); err != nil {
				return nil, wrapInternal(s.log, op, err)
			}
			upd.Name = &name
		}
	}
	if role.Name == domain.AdminRoleName && in.IsActive != nil && !*in.IsActive {
		return nil, domain.Conflict(domain.CodeReservedRole, "Role 'admin' is reserved and cannot be deactivated")
	}

	updated, err := s.roles.Update(ctx, role.ID, upd)
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}
	if upd.Name != nil {
		n, err := s.accounts.RenameRole(ctx, role.Ref(), updated.Name)
		if err != nil {
			return nil, wrapInternal(s.log, op, err)
		}
		s.log.Info().Str("role_id", role.ID).Str("from", role.Name).Str("to", updated.Name).
			Int64("accounts", n).Msg("role renamed")
	}
	if err := s.expand(ctx, updated); err != nil {
		return nil, wrapInternal(s.log, op, err)
	}

	invalidate(ctx, s.cache, s.log)

	return &domain.Envelope[*domain.Role]{Data: updated, MetaData: domain.Message("Role updated successfully")}, nil
}

// Delete refuses while any account still references the role.
func (s *RoleService) Delete(ctx context.Context, id string) (*domain.Envelope[*ports.DeletedRole], error) {
	const op = "Delete Role"

	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}

	if reservedRole(role.Name) {
		return nil, domain.Conflict(domain.CodeReservedRole,
			fmt.Sprintf("Role '%s' is reserved and cannot be deleted", role.Name))
	}

	inUse, err := s.accounts.CountByRole(ctx, role.Ref())
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}
	if inUse > 0 {
		return nil, domain.Conflict(domain.CodeRoleInUse,
			fmt.Sprintf("Cannot delete role that is assigned to users (%d assigned)", inUse))
	}

	if err := s.roles.Delete(ctx, role.ID); err != nil {
		return nil, wrapInternal(s.log, op, err)
	}

	invalidate(ctx, s.cache, s.log)
	s.log.Info().Str("role_id", role.ID).Str("name", role.Name).Msg("role deleted")

	return &domain.Envelope[*ports.DeletedRole]{
		Data:     &ports.DeletedRole{RoleID: role.ID, Name: role.Name},
		MetaData: domain.Message("Role deleted successfully"),
	}, nil
}

func (s *RoleService) AddAction(ctx context.Context, roleID, actionID string) (*domain.Envelope[*domain.Role], error) {
	const op = "Add Action to Role"

	role, err := s.roles.FindByID(ctx, roleID)
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}
	action, err := s.actions.FindByID(ctx, actionID)
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}
	if role.HasAction(action.ID) {
		return nil, domain.ErrActionAlreadyInRole
	}

	if err := s.roles.AddAction(ctx, role.ID, action.ID); err != nil {
		return nil, wrapInternal(s.log, op, err)
	}

	updated, err := s.load(ctx, role.ID)
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}

	invalidate(ctx, s.cache, s.log)

	return &domain.Envelope[*domain.Role]{
		Data:     updated,
		MetaData: domain.Message(fmt.Sprintf("Action '%s' added to role '%s'", action.Name, role.Name)),
	}, nil
}

func (s *RoleService) RemoveAction(ctx context.Context, roleID, actionID string) (*domain.Envelope[*domain.Role], error) {
	const op = "Remove Action from Role"

	role, err := s.roles.FindByID(ctx, roleID)
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}
	if !role.HasAction(actionID) {
		return nil, domain.ErrActionNotInRole
	}

	if err := s.roles.RemoveAction(ctx, role.ID, actionID); err != nil {
		return nil, wrapInternal(s.log, op, err)
	}

	updated, err := s.load(ctx, role.ID)
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}

	invalidate(ctx, s.cache, s.log)

	return &domain.Envelope[*domain.Role]{Data: updated, MetaData: domain.Message("Action removed from role successfully")}, nil
}

// EnsureRole returns the named role, creating it when absent. Used to seed
// the bootstrap roles at startup.
func (s *RoleService) EnsureRole(ctx context.Context, name, description string) (*domain.Role, error) {
	name = domain.NormalizeName(name)
	role, err := s.roles.FindByName(ctx, name)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, domain.ErrRoleNotFound) {
		return nil, err
	}

	role, err = s.roles.Create(ctx, &domain.Role{
		Name:        name,
		Description: description,
		IsActive:    true,
		CreatedAt:   s.now().UTC(),
	})
	if errors.Is(err, domain.ErrRoleExists) {
		return s.roles.FindByName(ctx, name)
	}
	return role, err
}

func (s *RoleService) load(ctx context.Context, id string) (*domain.Role, error) {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.expand(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// expand resolves the action sets of roles with a single catalog lookup.
func (s *RoleService) expand(ctx context.Context, roles ...*domain.Role) error {
	var ids []string
	for _, r := range roles {
		ids = append(ids, r.ActionIDs...)
	}
	ids = domain.UniqueIDs(ids)

	byID := make(map[string]*domain.Action, len(ids))
	if len(ids) > 0 {
		found, err := s.actions.FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		for _, a := range found {
			byID[a.ID] = a
		}
	}

	for _, r := range roles {
		var resolved []*domain.Action
		for _, id := range r.ActionIDs {
			if a, ok := byID[id]; ok {
				resolved = append(resolved, a)
			}
		}
		r.Actions = sortedActions(resolved)
	}
	return nil
}

func (s *RoleService) ensureNameFree(ctx context.Context, name string) error {
	_, err := s.roles.FindByName(ctx, name)
	switch {
	case err == nil:
		return domain.Conflict(domain.CodeRoleExists, fmt.Sprintf("Role '%s' already exists", name))
	case errors.Is(err, domain.ErrRoleNotFound):
		return nil
	default:
		return err
	}
}

func sortedActions(in []*domain.Action) []domain.Action {
	out := make([]domain.Action, 0, len(in))
	for _, a := range in {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// reservedRole reports whether name is one of the bootstrap roles that the
// auth flow depends on.
func reservedRole(name string) bool {
	return name == domain.AdminRoleName || name == domain.DefaultRoleName
}

package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

// UserAdminService exposes account administration.
type UserAdminService struct {
	accounts ports.AccountRepository
	roles    ports.RoleRepository
	log      zerolog.Logger
}

func NewUserAdminService(accounts ports.AccountRepository, roles ports.RoleRepository, log zerolog.Logger) *UserAdminService {
	return &UserAdminService{accounts: accounts, roles: roles, log: log}
}

func (s *UserAdminService) List(ctx context.Context, page domain.Page) (*domain.Envelope[[]*domain.Account], error) {
	page = page.Normalize()
	accounts, total, err := s.accounts.List(ctx, page)
	if err != nil {
		return nil, wrapInternal(s.log, "Get Users", err)
	}

	out := make([]*domain.Account, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Sanitized())
	}
	return &domain.Envelope[[]*domain.Account]{Data: out, MetaData: page.Meta("totalUsers", total)}, nil
}

func (s *UserAdminService) Delete(ctx context.Context, id string) (*domain.Envelope[string], error) {
	if err := s.accounts.Delete(ctx, id); err != nil {
		return nil, wrapInternal(s.log, "Delete User", err)
	}
	s.log.Info().Str("account_id", id).Msg("account deleted")
	return &domain.Envelope[string]{Data: "user deleted", MetaData: domain.MetaData{}}, nil
}

// AssignRole points the account at an existing, active role. Granting the
// admin role, or moving an account that holds it, requires an admin actor.
func (s *UserAdminService) AssignRole(ctx context.Context, actor domain.RoleRef, accountID, roleID string) (*domain.Envelope[*domain.Account], error) {
	const op = "Assign Role"

	role, err := s.roles.FindByID(ctx, roleID)
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}
	if !role.IsActive {
		return nil, domain.Validation(domain.CodeInvalidInput, "role '"+role.Name+"' is inactive")
	}

	target, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}
	if role.Name == domain.AdminRoleName || s.holdsAdmin(ctx, target.Role) {
		ok, err := s.isAdmin(ctx, actor)
		if err != nil {
			return nil, wrapInternal(s.log, op, err)
		}
		if !ok {
			s.log.Warn().Str("account_id", accountID).Str("actor_role", actor.Key()).Msg("admin role change refused")
			return nil, domain.Forbidden(domain.CodeForbidden, "only an admin may grant or revoke the admin role")
		}
	}

	updated, err := s.accounts.UpdateRole(ctx, accountID, role.Ref())
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}

	s.log.Info().Str("account_id", updated.ID).Str("role", role.Name).Msg("role assigned")

	return &domain.Envelope[*domain.Account]{Data: updated.Sanitized(), MetaData: domain.Message("Role assigned successfully")}, nil
}

// isAdmin resolves ref against the catalog.
func (s *UserAdminService) isAdmin(ctx context.Context, ref domain.RoleRef) (bool, error) {
	role, err := findRole(ctx, s.roles, ref)
	if errors.Is(err, domain.ErrRoleNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return role.IsActive && role.Name == domain.AdminRoleName, nil
}

func (s *UserAdminService) holdsAdmin(ctx context.Context, ref domain.RoleRef) bool {
	ok, err := s.isAdmin(ctx, ref)
	if err != nil {
		// fail closed
		return true
	}
	return ok
}

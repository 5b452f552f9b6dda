package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

// ActionService manages the action catalog.
type ActionService struct {
	actions ports.ActionRepository
	roles   ports.RoleRepository
	cache   ports.PermissionCache
	log     zerolog.Logger
	now     func() time.Time
}

func NewActionService(actions ports.ActionRepository, roles ports.RoleRepository, cache ports.PermissionCache, log zerolog.Logger) *ActionService {
	return &ActionService{actions: actions, roles: roles, cache: cache, log: log, now: time.Now}
}

func (s *ActionService) Create(ctx context.Context, in ports.CreateActionInput) (*domain.Envelope[*domain.Action], error) {
	const op = "Create Action"

	name := domain.NormalizeName(in.Name)
	if name == "" {
		return nil, domain.Validation(domain.CodeInvalidInput, "action name is required")
	}
	category, err := domain.ParseCategory(in.Category)
	if err != nil {
		return nil, err
	}

	if err := s.ensureNameFree(ctx, name); err != nil {
		return nil, wrapInternal(s.log, op, err)
	}

	created, err := s.actions.Create(ctx, &domain.Action{
		Name:        name,
		Description: in.Description,
		Category:    category,
		IsActive:    true,
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}

	invalidate(ctx, s.cache, s.log)
	s.log.Info().Str("action_id", created.ID).Str("name", created.Name).Msg("action created")

	return &domain.Envelope[*domain.Action]{Data: created, MetaData: domain.Message("Action created successfully")}, nil
}

func (s *ActionService) List(ctx context.Context, in ports.ListActionsInput) (*domain.Envelope[[]*domain.Action], error) {
	page := in.Page.Normalize()
	filter := ports.ActionFilter{IsActive: in.IsActive}
	if in.Category != "" {
		category, err := domain.ParseCategory(in.Category)
		if err != nil {
			return nil, err
		}
		filter.Category = category
	}

	items, total, err := s.actions.List(ctx, filter, page)
	if err != nil {
		return nil, wrapInternal(s.log, "Get Actions", err)
	}
	if items == nil {
		items = []*domain.Action{}
	}
	return &domain.Envelope[[]*domain.Action]{Data: items, MetaData: page.Meta("totalActions", total)}, nil
}

// Get returns the action together with every role currently referencing it.
func (s *ActionService) Get(ctx context.Context, id string) (*domain.Envelope[*domain.ActionDetail], error) {
	const op = "Get Action"

	action, err := s.actions.FindByID(ctx, id)
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}
	roles, err := s.roles.FindByAction(ctx, action.ID)
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}

	assigned := make([]domain.RoleSummary, 0, len(roles))
	for _, r := range roles {
		assigned = append(assigned, domain.RoleSummary{ID: r.ID, Name: r.Name, Description: r.Description})
	}

	return &domain.Envelope[*domain.ActionDetail]{
		Data:     &domain.ActionDetail{Action: *action, AssignedRoles: assigned},
		MetaData: domain.MetaData{},
	}, nil
}

func (s *ActionService) Update(ctx context.Context, id string, in ports.UpdateActionInput) (*domain.Envelope[*domain.Action], error) {
	const op = "Update Action"

	action, err := s.actions.FindByID(ctx, id)
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}

	var upd ports.ActionUpdate
	if in.Name != nil {
		name := domain.NormalizeName(*in.Name)
		if name != "" && name != action.Name {
			if err := s.ensureNameFree(ctx, name); err != nil {
				return nil, wrapInternal(s.log, op, err)
			}
			upd.Name = &name
		}
	}
	if in.Category != nil {
		category, err := domain.ParseCategory(*in.Category)
		if err != nil {
			return nil, err
		}
		upd.Category = &category
	}
	upd.Description = in.Description
	upd.IsActive = in.IsActive

	updated, err := s.actions.Update(ctx, action.ID, upd)
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}

	invalidate(ctx, s.cache, s.log)

	return &domain.Envelope[*domain.Action]{Data: updated, MetaData: domain.Message("Action updated successfully")}, nil
}

// Delete prunes the action from every role before and after removing it, so
// that an add racing with the delete cannot leave a dangling reference.
func (s *ActionService) Delete(ctx context.Context, id string) (*domain.Envelope[*ports.DeletedAction], error) {
	const op = "Delete Action"

	action, err := s.actions.FindByID(ctx, id)
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}

	pulled, err := s.roles.PullActionFromAll(ctx, action.ID)
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}
	if err := s.actions.Delete(ctx, action.ID); err != nil {
		return nil, wrapInternal(s.log, op, err)
	}
	late, err := s.roles.PullActionFromAll(ctx, action.ID)
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}

	invalidate(ctx, s.cache, s.log)
	s.log.Info().Str("action_id", action.ID).Int64("roles_updated", pulled+late).Msg("action deleted")

	meta := domain.Message("Action deleted successfully and removed from all roles")
	meta["rolesUpdated"] = pulled + late

	return &domain.Envelope[*ports.DeletedAction]{
		Data:     &ports.DeletedAction{ActionID: action.ID, Name: action.Name},
		MetaData: meta,
	}, nil
}

// GroupByCategory buckets active actions by category.
func (s *ActionService) GroupByCategory(ctx context.Context) (*domain.Envelope[[]domain.CategoryGroup], error) {
	groups, err := s.actions.GroupByCategory(ctx)
	if err != nil {
		return nil, wrapInternal(s.log, "Get Actions By Category", err)
	}
	if groups == nil {
		groups = []domain.CategoryGroup{}
	}

	total := 0
	for _, g := range groups {
		total += g.Count
	}

	return &domain.Envelope[[]domain.CategoryGroup]{
		Data: groups,
		MetaData: domain.MetaData{
			"totalCategories": len(groups),
			"totalActions":    total,
		},
	}, nil
}

// ensureNameFree is a fast-path check; the unique index on name stays authoritative.
func (s *ActionService) ensureNameFree(ctx context.Context, name string) error {
	_, err := s.actions.FindByName(ctx, name)
	switch {
	case err == nil:
		return domain.Conflict(domain.CodeActionExists, fmt.Sprintf("Action '%s' already exists", name))
	case errors.Is(err, domain.ErrActionNotFound):
		return nil
	default:
		return err
	}
}

// invalidate drops cached permission sets after a catalog mutation.
func invalidate(ctx context.Context, cache ports.PermissionCache, log zerolog.Logger) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("permission cache invalidation failed")
	}
}

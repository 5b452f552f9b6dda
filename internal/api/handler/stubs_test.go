package handler

import (
	"context"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-system/internal/api/middleware"
	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

type stubAccountService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.Envelope[*domain.Account], error)
	verifyFn   func(ctx context.Context, email, code string) (*domain.Envelope[*ports.VerifyResult], error)
	resendFn   func(ctx context.Context, email string) (*domain.Envelope[map[string]string], error)
	loginFn    func(ctx context.Context, email, password string) (*domain.Envelope[*ports.LoginResult], error)
}

func (s *stubAccountService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Envelope[*domain.Account], error) {
	return s.registerFn(ctx, in)
}

func (s *stubAccountService) VerifyEmail(ctx context.Context, email, code string) (*domain.Envelope[*ports.VerifyResult], error) {
	return s.verifyFn(ctx, email, code)
}

func (s *stubAccountService) ResendVerification(ctx context.Context, email string) (*domain.Envelope[map[string]string], error) {
	return s.resendFn(ctx, email)
}

func (s *stubAccountService) Login(ctx context.Context, email, password string) (*domain.Envelope[*ports.LoginResult], error) {
	return s.loginFn(ctx, email, password)
}

type stubPermissions struct {
	grants map[string][]string
	asked  domain.RoleRef
}

func (s *stubPermissions) ActionsForRole(_ context.Context, ref domain.RoleRef) ([]string, error) {
	s.asked = ref
	return s.grants[ref.Name], nil
}

func (s *stubPermissions) HasAction(_ context.Context, ref domain.RoleRef, action string) (bool, error) {
	for _, a := range s.grants[ref.Name] {
		if a == action {
			return true, nil
		}
	}
	return false, nil
}

// stubRoleService records the last input it was handed.
type stubRoleService struct {
	created  ports.CreateRoleInput
	listed   ports.ListRolesInput
	updated  ports.UpdateRoleInput
	added    [2]string
	removed  [2]string
	err      error
	gotID    string
	response *domain.Role
}

func (s *stubRoleService) envelope() (*domain.Envelope[*domain.Role], error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Envelope[*domain.Role]{Data: s.response, MetaData: domain.MetaData{}}, nil
}

func (s *stubRoleService) Create(_ context.Context, in ports.CreateRoleInput) (*domain.Envelope[*domain.Role], error) {
	s.created = in
	return s.envelope()
}

func (s *stubRoleService) List(_ context.Context, in ports.ListRolesInput) (*domain.Envelope[[]*domain.Role], error) {
	s.listed = in
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Envelope[[]*domain.Role]{Data: []*domain.Role{s.response}, MetaData: in.Page.Meta("totalRoles", 1)}, nil
}

func (s *stubRoleService) Get(_ context.Context, id string) (*domain.Envelope[*domain.Role], error) {
	s.gotID = id
	return s.envelope()
}

func (s *stubRoleService) Update(_ context.Context, id string, in ports.UpdateRoleInput) (*domain.Envelope[*domain.Role], error) {
	s.gotID, s.updated = id, in
	return s.envelope()
}

func (s *stubRoleService) Delete(_ context.Context, id string) (*domain.Envelope[*ports.DeletedRole], error) {
	s.gotID = id
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Envelope[*ports.DeletedRole]{Data: &ports.DeletedRole{RoleID: id}, MetaData: domain.Message("Role deleted successfully")}, nil
}

func (s *stubRoleService) AddAction(_ context.Context, roleID, actionID string) (*domain.Envelope[*domain.Role], error) {
	s.added = [2]string{roleID, actionID}
	return s.envelope()
}

func (s *stubRoleService) RemoveAction(_ context.Context, roleID, actionID string) (*domain.Envelope[*domain.Role], error) {
	s.removed = [2]string{roleID, actionID}
	return s.envelope()
}

type stubActionService struct {
	created ports.CreateActionInput
	listed  ports.ListActionsInput
	updated ports.UpdateActionInput
	gotID   string
	err     error
}

func (s *stubActionService) Create(_ context.Context, in ports.CreateActionInput) (*domain.Envelope[*domain.Action], error) {
	s.created = in
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Envelope[*domain.Action]{Data: &domain.Action{ID: "act-1", Name: in.Name}}, nil
}

func (s *stubActionService) List(_ context.Context, in ports.ListActionsInput) (*domain.Envelope[[]*domain.Action], error) {
	s.listed = in
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Envelope[[]*domain.Action]{Data: []*domain.Action{}, MetaData: in.Page.Meta("totalActions", 0)}, nil
}

func (s *stubActionService) Get(_ context.Context, id string) (*domain.Envelope[*domain.ActionDetail], error) {
	s.gotID = id
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Envelope[*domain.ActionDetail]{Data: &domain.ActionDetail{}}, nil
}

func (s *stubActionService) Update(_ context.Context, id string, in ports.UpdateActionInput) (*domain.Envelope[*domain.Action], error) {
	s.gotID, s.updated = id, in
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Envelope[*domain.Action]{Data: &domain.Action{ID: id}}, nil
}

func (s *stubActionService) Delete(_ context.Context, id string) (*domain.Envelope[*ports.DeletedAction], error) {
	s.gotID = id
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Envelope[*ports.DeletedAction]{Data: &ports.DeletedAction{ActionID: id}}, nil
}

func (s *stubActionService) GroupByCategory(context.Context) (*domain.Envelope[[]domain.CategoryGroup], error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Envelope[[]domain.CategoryGroup]{Data: []domain.CategoryGroup{}}, nil
}

type stubUserAdmin struct {
	page     domain.Page
	deleted  string
	assigned [2]string
	actor    domain.RoleRef
	err      error
}

func (s *stubUserAdmin) List(_ context.Context, page domain.Page) (*domain.Envelope[[]*domain.Account], error) {
	s.page = page
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Envelope[[]*domain.Account]{Data: []*domain.Account{}, MetaData: page.Meta("totalUsers", 0)}, nil
}

func (s *stubUserAdmin) Delete(_ context.Context, id string) (*domain.Envelope[string], error) {
	s.deleted = id
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Envelope[string]{Data: "user deleted"}, nil
}

func (s *stubUserAdmin) AssignRole(_ context.Context, actor domain.RoleRef, accountID, roleID string) (*domain.Envelope[*domain.Account], error) {
	s.actor = actor
	s.assigned = [2]string{accountID, roleID}
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Envelope[*domain.Account]{Data: &domain.Account{ID: accountID}}, nil
}

// newContext builds an echo context with the validator installed. A non-empty
// body is sent as JSON.
func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, nil)
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func authenticate(c echo.Context, accountID, role string) {
	c.Set(middleware.CtxAccountID, accountID)
	c.Set(middleware.CtxRoleID, "role-"+role)
	c.Set(middleware.CtxRole, role)
}

func kindOf(err error) domain.Kind {
	if err == nil {
		return ""
	}
	return domain.KindOf(err)
}

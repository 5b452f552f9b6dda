package service

import (
	"context"
	"errors"
	"testing"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

type catalogFixture struct {
	actions  *ActionService
	roles    *RoleService
	perms    *PermissionService
	actRepo  *stubActionRepo
	roleRepo *stubRoleRepo
	accRepo  *stubAccountRepo
	cache    *stubCache
}

func newCatalogFixture() *catalogFixture {
	actRepo := newStubActionRepo()
	roleRepo := newStubRoleRepo()
	accRepo := newStubAccountRepo()
	cache := newStubCache()
	return &catalogFixture{
		actions:  NewActionService(actRepo, roleRepo, cache, testLog),
		roles:    NewRoleService(roleRepo, actRepo, accRepo, cache, testLog),
		perms:    NewPermissionService(roleRepo, actRepo, cache, testLog),
		actRepo:  actRepo,
		roleRepo: roleRepo,
		accRepo:  accRepo,
		cache:    cache,
	}
}

func (f *catalogFixture) action(t *testing.T, name, category string) *domain.Action {
	t.Helper()
	res, err := f.actions.Create(context.Background(), ports.CreateActionInput{Name: name, Category: category})
	if err != nil {
		t.Fatalf("Create action %s: %v", name, err)
	}
	return res.Data
}

func (f *catalogFixture) role(t *testing.T, name string, actionIDs ...string) *domain.Role {
	t.Helper()
	res, err := f.roles.Create(context.Background(), ports.CreateRoleInput{Name: name, Actions: actionIDs})
	if err != nil {
		t.Fatalf("Create role %s: %v", name, err)
	}
	return res.Data
}

func TestActionService_Create(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()

	res, err := f.actions.Create(ctx, ports.CreateActionInput{Name: " Manage_Users ", Description: "Manage users", Category: "USER_MANAGEMENT"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if res.Data.Name != "manage_users" || res.Data.Category != domain.CategoryUserManagement || !res.Data.IsActive {
		t.Fatalf("unexpected action: %+v", res.Data)
	}
	if res.MetaData["message"] != "Action created successfully" {
		t.Fatalf("unexpected meta: %v", res.MetaData)
	}

	_, err = f.actions.Create(ctx, ports.CreateActionInput{Name: "MANAGE_USERS", Category: "system"})
	if !errors.Is(err, domain.ErrActionExists) {
		t.Fatalf("expected ErrActionExists, got %v", err)
	}
	if e := domain.AsError(err); e.Message != "Action 'manage_users' already exists" {
		t.Fatalf("unexpected conflict message %q", e.Message)
	}

	_, err = f.actions.Create(ctx, ports.CreateActionInput{Name: "x", Category: "gardening"})
	if codeOf(err) != domain.CodeInvalidCategory {
		t.Fatalf("expected invalid category, got %v", err)
	}
	if f.cache.invalidated != 1 {
		t.Fatalf("expected one invalidation, got %d", f.cache.invalidated)
	}
}

func TestActionService_ListAndGroup(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()
	f.action(t, "view_reports", "reporting")
	f.action(t, "delete_users", "user_management")
	f.action(t, "create_users", "user_management")
	inactive := f.action(t, "old_report", "reporting")
	off := false
	if _, err := f.actions.Update(ctx, inactive.ID, ports.UpdateActionInput{IsActive: &off}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	res, err := f.actions.List(ctx, ports.ListActionsInput{Page: domain.Page{Page: 1, Limit: 2}})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(res.Data) != 2 || res.MetaData["totalActions"] != int64(4) || res.MetaData["totalPages"] != 2 {
		t.Fatalf("unexpected page: %d items, meta=%v", len(res.Data), res.MetaData)
	}

	res, _ = f.actions.List(ctx, ports.ListActionsInput{Category: "reporting", IsActive: &off})
	if len(res.Data) != 1 || res.Data[0].ID != inactive.ID {
		t.Fatalf("unexpected filtered list: %+v", res.Data)
	}

	if _, err := f.actions.List(ctx, ports.ListActionsInput{Category: "bogus"}); codeOf(err) != domain.CodeInvalidCategory {
		t.Fatalf("expected invalid category, got %v", err)
	}

	groups, err := f.actions.GroupByCategory(ctx)
	if err != nil {
		t.Fatalf("GroupByCategory returned error: %v", err)
	}
	if groups.MetaData["totalCategories"] != 2 || groups.MetaData["totalActions"] != 3 {
		t.Fatalf("unexpected group meta: %v", groups.MetaData)
	}
	if groups.Data[0].Category != domain.CategoryReporting || groups.Data[1].Actions[0].Name != "create_users" {
		t.Fatalf("unexpected grouping: %+v", groups.Data)
	}
}

func TestActionService_ListPartialLastPage(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()
	for _, name := range []string{"a1", "a2", "a3", "a4", "a5"} {
		f.action(t, name, "system")
	}

	for page, want := range map[int]int{1: 2, 2: 2, 3: 1, 4: 0} {
		res, err := f.actions.List(ctx, ports.ListActionsInput{Page: domain.Page{Page: page, Limit: 2}})
		if err != nil {
			t.Fatalf("List page %d returned error: %v", page, err)
		}
		if len(res.Data) != want {
			t.Fatalf("page %d: expected %d items, got %d", page, want, len(res.Data))
		}
		if res.MetaData["totalActions"] != int64(5) || res.MetaData["totalPages"] != 3 || res.MetaData["currentPage"] != page {
			t.Fatalf("page %d: unexpected meta %v", page, res.MetaData)
		}
	}
}

func TestActionService_GetWithAssignedRoles(t *testing.T) {
	f := newCatalogFixture()
	a := f.action(t, "view_reports", "reporting")
	f.role(t, "editor", a.ID)
	f.role(t, "viewer", a.ID)
	f.role(t, "guest")

	res, err := f.actions.Get(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if len(res.Data.AssignedRoles) != 2 || res.Data.AssignedRoles[0].Name != "editor" {
		t.Fatalf("unexpected assigned roles: %+v", res.Data.AssignedRoles)
	}

	if _, err := f.actions.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrActionNotFound) {
		t.Fatalf("expected ErrActionNotFound, got %v", err)
	}
}

func TestActionService_Update(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()
	a := f.action(t, "view_reports", "reporting")
	f.action(t, "export_reports", "reporting")

	taken := "Export_Reports"
	if _, err := f.actions.Update(ctx, a.ID, ports.UpdateActionInput{Name: &taken}); !errors.Is(err, domain.ErrActionExists) {
		t.Fatalf("expected ErrActionExists, got %v", err)
	}

	same := "VIEW_REPORTS"
	desc := "See reports"
	cat := "system"
	res, err := f.actions.Update(ctx, a.ID, ports.UpdateActionInput{Name: &same, Description: &desc, Category: &cat})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if res.Data.Name != "view_reports" || res.Data.Description != desc || res.Data.Category != domain.CategorySystem {
		t.Fatalf("unexpected update: %+v", res.Data)
	}

	bad := "nope"
	if _, err := f.actions.Update(ctx, a.ID, ports.UpdateActionInput{Category: &bad}); codeOf(err) != domain.CodeInvalidCategory {
		t.Fatalf("expected invalid category, got %v", err)
	}
}

func TestActionService_DeleteCascades(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()
	a := f.action(t, "view_reports", "reporting")
	keep := f.action(t, "edit_posts", "content_management")
	editor := f.role(t, "editor", a.ID, keep.ID)
	viewer := f.role(t, "viewer", a.ID)

	res, err := f.actions.Delete(ctx, a.ID)
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if res.Data.ActionID != a.ID || res.Data.Name != "view_reports" {
		t.Fatalf("unexpected delete result: %+v", res.Data)
	}
	if res.MetaData["message"] != "Action deleted successfully and removed from all roles" || res.MetaData["rolesUpdated"] != int64(2) {
		t.Fatalf("unexpected meta: %v", res.MetaData)
	}

	for _, id := range []string{editor.ID, viewer.ID} {
		r, _ := f.roleRepo.FindByID(ctx, id)
		if r.HasAction(a.ID) {
			t.Fatalf("role %s still references deleted action", r.Name)
		}
	}
	r, _ := f.roleRepo.FindByID(ctx, editor.ID)
	if !r.HasAction(keep.ID) {
		t.Fatalf("unrelated action was removed")
	}

	if _, err := f.actions.Delete(ctx, a.ID); !errors.Is(err, domain.ErrActionNotFound) {
		t.Fatalf("expected ErrActionNotFound, got %v", err)
	}
}

func TestRoleService_Create(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()
	b := f.action(t, "b_action", "system")
	a := f.action(t, "a_action", "system")

	res, err := f.roles.Create(ctx, ports.CreateRoleInput{Name: "Editor", Description: "edits", Actions: []string{b.ID, a.ID, b.ID}})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	role := res.Data
	if role.Name != "editor" || !role.IsActive || len(role.ActionIDs) != 2 {
		t.Fatalf("unexpected role: %+v", role)
	}
	if len(role.Actions) != 2 || role.Actions[0].Name != "a_action" {
		t.Fatalf("expected expanded actions sorted by name: %+v", role.Actions)
	}

	if _, err := f.roles.Create(ctx, ports.CreateRoleInput{Name: "EDITOR"}); !errors.Is(err, domain.ErrRoleExists) {
		t.Fatalf("expected ErrRoleExists, got %v", err)
	}

	_, err = f.roles.Create(ctx, ports.CreateRoleInput{Name: "viewer", Actions: []string{a.ID, "missing"}})
	if codeOf(err) != domain.CodeInvalidActionIDs {
		t.Fatalf("expected invalid action ids, got %v", err)
	}
	if _, err := f.roleRepo.FindByName(ctx, "viewer"); !errors.Is(err, domain.ErrRoleNotFound) {
		t.Fatalf("role must not be persisted when action ids are invalid")
	}
}

func TestRoleService_ListGetUpdate(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()
	a := f.action(t, "view", "reporting")
	editor := f.role(t, "editor", a.ID)
	f.role(t, "viewer")

	list, err := f.roles.List(ctx, ports.ListRolesInput{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(list.Data) != 2 || list.MetaData["totalRoles"] != int64(2) || list.MetaData["currentPage"] != 1 || list.MetaData["limit"] != 10 {
		t.Fatalf("unexpected list: %d meta=%v", len(list.Data), list.MetaData)
	}
	if len(list.Data[0].Actions) != 1 || list.Data[0].Actions[0].Name != "view" {
		t.Fatalf("expected expanded actions: %+v", list.Data[0])
	}

	got, err := f.roles.Get(ctx, editor.ID)
	if err != nil || len(got.Data.Actions) != 1 {
		t.Fatalf("Get returned %+v, %v", got, err)
	}
	if _, err := f.roles.Get(ctx, "missing"); !errors.Is(err, domain.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}

	taken := "viewer"
	if _, err := f.roles.Update(ctx, editor.ID, ports.UpdateRoleInput{Name: &taken}); !errors.Is(err, domain.ErrRoleExists) {
		t.Fatalf("expected ErrRoleExists, got %v", err)
	}
	off := false
	upd, err := f.roles.Update(ctx, editor.ID, ports.UpdateRoleInput{IsActive: &off})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if upd.Data.IsActive || len(upd.Data.Actions) != 1 {
		t.Fatalf("unexpected update: %+v", upd.Data)
	}

	active := true
	list, _ = f.roles.List(ctx, ports.ListRolesInput{IsActive: &active})
	if len(list.Data) != 1 || list.Data[0].Name != "viewer" {
		t.Fatalf("unexpected active filter: %+v", list.Data)
	}
}

func TestRoleService_DeleteGuard(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()
	editor := f.role(t, "editor")
	legacy := f.role(t, "legacy")

	acc, _ := f.accRepo.Create(ctx, &domain.Account{Email: "a@b.com", Role: editor.Ref()})
	_, _ = f.accRepo.Create(ctx, &domain.Account{Email: "c@d.com", ReferralCode: "x", Role: domain.RoleRef{Name: "legacy"}})

	if _, err := f.roles.Delete(ctx, editor.ID); codeOf(err) != domain.CodeRoleInUse {
		t.Fatalf("expected role in use, got %v", err)
	}
	if _, err := f.roles.Delete(ctx, legacy.ID); codeOf(err) != domain.CodeRoleInUse {
		t.Fatalf("expected legacy name reference to block delete, got %v", err)
	}

	_ = f.accRepo.Delete(ctx, acc.ID)
	res, err := f.roles.Delete(ctx, editor.ID)
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if res.Data.RoleID != editor.ID || res.Data.Name != "editor" {
		t.Fatalf("unexpected delete result: %+v", res.Data)
	}
	if _, err := f.roles.Delete(ctx, editor.ID); !errors.Is(err, domain.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestRoleService_AddRemoveAction(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()
	a := f.action(t, "view_reports", "reporting")
	editor := f.role(t, "editor")

	res, err := f.roles.AddAction(ctx, editor.ID, a.ID)
	if err != nil {
		t.Fatalf("AddAction returned error: %v", err)
	}
	if len(res.Data.Actions) != 1 || res.MetaData["message"] != "Action 'view_reports' added to role 'editor'" {
		t.Fatalf("unexpected add result: %+v meta=%v", res.Data, res.MetaData)
	}

	if _, err := f.roles.AddAction(ctx, editor.ID, a.ID); !errors.Is(err, domain.ErrActionAlreadyInRole) {
		t.Fatalf("expected ErrActionAlreadyInRole, got %v", err)
	}
	if _, err := f.roles.AddAction(ctx, editor.ID, "missing"); !errors.Is(err, domain.ErrActionNotFound) {
		t.Fatalf("expected ErrActionNotFound, got %v", err)
	}
	if _, err := f.roles.AddAction(ctx, "missing", a.ID); !errors.Is(err, domain.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}

	res, err = f.roles.RemoveAction(ctx, editor.ID, a.ID)
	if err != nil {
		t.Fatalf("RemoveAction returned error: %v", err)
	}
	if len(res.Data.Actions) != 0 {
		t.Fatalf("expected empty action set, got %+v", res.Data.Actions)
	}
	if _, err := f.roles.RemoveAction(ctx, editor.ID, a.ID); !errors.Is(err, domain.ErrActionNotInRole) {
		t.Fatalf("expected ErrActionNotInRole, got %v", err)
	}
}

func TestRoleService_EnsureRole(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()

	first, err := f.roles.EnsureRole(ctx, "Admin", "superuser")
	if err != nil {
		t.Fatalf("EnsureRole returned error: %v", err)
	}
	second, err := f.roles.EnsureRole(ctx, "admin", "ignored")
	if err != nil {
		t.Fatalf("EnsureRole returned error: %v", err)
	}
	if first.ID != second.ID || second.Description != "superuser" {
		t.Fatalf("expected idempotent seed, got %+v and %+v", first, second)
	}
}

func TestPermissionService(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()
	view := f.action(t, "view_reports", "reporting")
	edit := f.action(t, "edit_posts", "content_management")
	editor := f.role(t, "editor", view.ID, edit.ID)
	admin := f.role(t, "admin")

	names, err := f.perms.ActionsForRole(ctx, editor.Ref())
	if err != nil {
		t.Fatalf("ActionsForRole returned error: %v", err)
	}
	if len(names) != 2 || names[0] != "edit_posts" {
		t.Fatalf("unexpected actions: %v", names)
	}
	if cached := f.cache.entries["id:"+editor.ID]; cached == nil || len(cached.Actions) != 2 {
		t.Fatalf("expected resolved grant to be cached by id, got %+v", cached)
	}

	legacy, _ := f.perms.ActionsForRole(ctx, domain.RoleRef{Name: "Editor"})
	if len(legacy) != 2 {
		t.Fatalf("name-only reference must resolve by name, got %v", legacy)
	}

	ok, _ := f.perms.HasAction(ctx, editor.Ref(), "view_reports")
	if !ok {
		t.Fatalf("expected editor to hold view_reports")
	}
	ok, _ = f.perms.HasAction(ctx, editor.Ref(), "manage_users")
	if ok {
		t.Fatalf("editor must not hold manage_users")
	}
	ok, _ = f.perms.HasAction(ctx, admin.Ref(), "anything")
	if !ok {
		t.Fatalf("admin must hold every action")
	}

	if _, err := f.actions.Delete(ctx, view.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	ok, _ = f.perms.HasAction(ctx, editor.Ref(), "view_reports")
	if ok {
		t.Fatalf("deleted action must not be granted after invalidation")
	}

	names, _ = f.perms.ActionsForRole(ctx, domain.RoleRef{Name: "ghost"})
	if len(names) != 0 {
		t.Fatalf("unknown role must resolve to nothing, got %v", names)
	}
}

func TestPermissionService_IDDoesNotFallBackToName(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()
	view := f.action(t, "view_reports", "reporting")
	f.role(t, "editor", view.ID)

	ok, err := f.perms.HasAction(ctx, domain.RoleRef{ID: "role-404", Name: "editor"}, "view_reports")
	if err != nil || ok {
		t.Fatalf("deleted role id must not inherit grants by name, got %v, %v", ok, err)
	}
	ok, _ = f.perms.HasAction(ctx, domain.RoleRef{ID: "role-404", Name: "admin"}, "anything")
	if ok {
		t.Fatalf("admin name on an unknown id must not grant superuser")
	}
}

func TestPermissionService_CacheFailureFallsBack(t *testing.T) {
	f := newCatalogFixture()
	view := f.action(t, "view_reports", "reporting")
	editor := f.role(t, "editor", view.ID)
	f.cache.err = errBackend

	ok, err := f.perms.HasAction(context.Background(), editor.Ref(), "view_reports")
	if err != nil || !ok {
		t.Fatalf("expected repository fallback, got %v, %v", ok, err)
	}

	uncached := NewPermissionService(f.roleRepo, f.actRepo, nil, testLog)
	ok, err = uncached.HasAction(context.Background(), editor.Ref(), "view_reports")
	if err != nil || !ok {
		t.Fatalf("expected lookup without cache, got %v, %v", ok, err)
	}
}

func TestRoleService_RenameKeepsHoldersGranted(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()
	manage := f.action(t, "manage_roles", "system")
	editor := f.role(t, "editor", manage.ID)
	acc, _ := f.accRepo.Create(ctx, &domain.Account{Email: "a@b.com", Role: editor.Ref()})
	legacyAcc, _ := f.accRepo.Create(ctx, &domain.Account{Email: "c@d.com", ReferralCode: "x", Role: domain.RoleRef{Name: "editor"}})
	staleRef := editor.Ref()

	writer := "Writer"
	if _, err := f.roles.Update(ctx, editor.ID, ports.UpdateRoleInput{Name: &writer}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	stored, _ := f.accRepo.FindByID(ctx, acc.ID)
	if stored.Role != (domain.RoleRef{ID: editor.ID, Name: "writer"}) {
		t.Fatalf("holder reference not renamed: %+v", stored.Role)
	}
	upgraded, _ := f.accRepo.FindByID(ctx, legacyAcc.ID)
	if upgraded.Role.ID != editor.ID || upgraded.Role.Name != "writer" {
		t.Fatalf("legacy holder not upgraded: %+v", upgraded.Role)
	}

	ok, err := f.perms.HasAction(ctx, staleRef, "manage_roles")
	if err != nil || !ok {
		t.Fatalf("token minted before the rename must keep its grants, got %v, %v", ok, err)
	}

	f.role(t, "editor")
	ok, _ = f.perms.HasAction(ctx, staleRef, "manage_roles")
	if !ok {
		t.Fatalf("a new role reusing the old name must not displace the original grants")
	}
	ok, _ = f.perms.HasAction(ctx, domain.RoleRef{Name: "editor"}, "manage_roles")
	if ok {
		t.Fatalf("the new role under the old name must grant nothing")
	}
}

func TestRoleService_ReservedRoles(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()
	admin := f.role(t, "admin")
	user := f.role(t, "user")

	renamed := "root"
	if _, err := f.roles.Update(ctx, admin.ID, ports.UpdateRoleInput{Name: &renamed}); codeOf(err) != domain.CodeReservedRole {
		t.Fatalf("expected admin rename to be refused, got %v", err)
	}
	if _, err := f.roles.Update(ctx, user.ID, ports.UpdateRoleInput{Name: &renamed}); codeOf(err) != domain.CodeReservedRole {
		t.Fatalf("expected user rename to be refused, got %v", err)
	}
	off := false
	if _, err := f.roles.Update(ctx, admin.ID, ports.UpdateRoleInput{IsActive: &off}); codeOf(err) != domain.CodeReservedRole {
		t.Fatalf("expected admin deactivation to be refused, got %v", err)
	}
	desc := "everyone"
	if _, err := f.roles.Update(ctx, user.ID, ports.UpdateRoleInput{Description: &desc}); err != nil {
		t.Fatalf("description edits stay allowed, got %v", err)
	}
	for _, r := range []*domain.Role{admin, user} {
		if _, err := f.roles.Delete(ctx, r.ID); codeOf(err) != domain.CodeReservedRole {
			t.Fatalf("expected %s delete to be refused, got %v", r.Name, err)
		}
	}
}

func TestUserAdminService(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()
	svc := NewUserAdminService(f.accRepo, f.roleRepo, testLog)
	editor := f.role(t, "editor")
	off := false
	retired := f.role(t, "retired")
	_, _ = f.roleRepo.Update(ctx, retired.ID, ports.RoleUpdate{IsActive: &off})
	actor := domain.RoleRef{Name: "support"}

	empty, err := svc.List(ctx, domain.Page{})
	if err != nil || len(empty.Data) != 0 || empty.MetaData["totalUsers"] != int64(0) {
		t.Fatalf("expected empty listing, got %+v, %v", empty, err)
	}

	acc, _ := f.accRepo.Create(ctx, &domain.Account{Email: "a@b.com", PasswordHash: "hash", Role: domain.RoleRef{Name: "user"}})

	list, _ := svc.List(ctx, domain.Page{})
	if len(list.Data) != 1 || list.Data[0].PasswordHash != "" {
		t.Fatalf("expected sanitized listing, got %+v", list.Data)
	}

	res, err := svc.AssignRole(ctx, actor, acc.ID, editor.ID)
	if err != nil {
		t.Fatalf("AssignRole returned error: %v", err)
	}
	if res.Data.Role != editor.Ref() {
		t.Fatalf("unexpected role: %+v", res.Data.Role)
	}
	if _, err := svc.AssignRole(ctx, actor, acc.ID, retired.ID); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected validation error for inactive role, got %v", err)
	}
	if _, err := svc.AssignRole(ctx, actor, acc.ID, "missing"); !errors.Is(err, domain.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
	if _, err := svc.AssignRole(ctx, actor, "nobody", editor.ID); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	del, err := svc.Delete(ctx, acc.ID)
	if err != nil || del.Data != "user deleted" {
		t.Fatalf("Delete returned %+v, %v", del, err)
	}
	if _, err := svc.Delete(ctx, acc.ID); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestUserAdminService_AdminRoleNeedsAdminActor(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()
	svc := NewUserAdminService(f.accRepo, f.roleRepo, testLog)
	manage := f.action(t, "manage_users", "user_management")
	support := f.role(t, "support", manage.ID)
	admin := f.role(t, "admin")
	self, _ := f.accRepo.Create(ctx, &domain.Account{Email: "s@b.com", Role: support.Ref()})
	boss, _ := f.accRepo.Create(ctx, &domain.Account{Email: "b@b.com", ReferralCode: "x", Role: admin.Ref()})

	_, err := svc.AssignRole(ctx, support.Ref(), self.ID, admin.ID)
	if domain.KindOf(err) != domain.KindForbidden {
		t.Fatalf("expected self-promotion to be forbidden, got %v", err)
	}
	if stored, _ := f.accRepo.FindByID(ctx, self.ID); stored.Role != support.Ref() {
		t.Fatalf("role must be unchanged after refusal: %+v", stored.Role)
	}

	if _, err := svc.AssignRole(ctx, support.Ref(), boss.ID, support.ID); domain.KindOf(err) != domain.KindForbidden {
		t.Fatalf("expected demoting an admin to be forbidden, got %v", err)
	}
	if _, err := svc.AssignRole(ctx, domain.RoleRef{ID: support.ID, Name: "admin"}, self.ID, admin.ID); domain.KindOf(err) != domain.KindForbidden {
		t.Fatalf("admin name on a non-admin id must not pass, got %v", err)
	}

	res, err := svc.AssignRole(ctx, admin.Ref(), self.ID, admin.ID)
	if err != nil || res.Data.Role != admin.Ref() {
		t.Fatalf("admin actor must be able to promote, got %+v, %v", res, err)
	}
}

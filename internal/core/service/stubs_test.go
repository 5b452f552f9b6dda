package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

var testLog = zerolog.Nop()

func testHasher() *BcryptHasher { return NewBcryptHasher(bcrypt.MinCost) }

type stubAccountRepo struct {
	mu       sync.Mutex
	seq      int
	accounts map[string]*domain.Account
	failWith error
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{accounts: make(map[string]*domain.Account)}
}

func cloneAccount(a *domain.Account) *domain.Account {
	if a == nil {
		return nil
	}
	out := *a
	return &out
}

func (r *stubAccountRepo) Create(_ context.Context, a *domain.Account) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	for _, existing := range r.accounts {
		if existing.Email == a.Email {
			return nil, domain.ErrAccountExists
		}
		if a.ReferralCode != "" && existing.ReferralCode == a.ReferralCode {
			return nil, domain.ErrReferralCodeTaken
		}
	}
	r.seq++
	stored := cloneAccount(a)
	stored.ID = fmt.Sprintf("acc-%d", r.seq)
	r.accounts[stored.ID] = stored
	return cloneAccount(stored), nil
}

func (r *stubAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *stubAccountRepo) byEmail(email string) *domain.Account {
	for _, a := range r.accounts {
		if a.Email == email {
			return a
		}
	}
	return nil
}

func (r *stubAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a := r.byEmail(email); a != nil {
		return cloneAccount(a), nil
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byEmail(email) != nil, nil
}

func (r *stubAccountRepo) ExistsByReferralCode(_ context.Context, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.ReferralCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubAccountRepo) ConsumeVerificationCode(_ context.Context, email, digest string, now time.Time) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.byEmail(email)
	if a == nil || a.VerificationCode == "" || a.VerificationCode != digest {
		return nil, domain.ErrAccountNotFound
	}
	if a.CodeExpiresAt != nil && !a.CodeExpiresAt.After(now) {
		return nil, domain.ErrAccountNotFound
	}
	prev := cloneAccount(a)
	a.VerificationCode = ""
	a.CodeExpiresAt = nil
	a.IsVerified = true
	return prev, nil
}

func (r *stubAccountRepo) SetVerificationCode(_ context.Context, id, digest string, expiresAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.VerificationCode = digest
	a.CodeExpiresAt = expiresAt
	return nil
}

func (r *stubAccountRepo) CountByRole(_ context.Context, ref domain.RoleRef) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.accounts {
		if (ref.ID != "" && a.Role.ID == ref.ID) || (a.Role.ID == "" && a.Role.Name == ref.Name) {
			n++
		}
	}
	return n, nil
}

func (r *stubAccountRepo) RenameRole(_ context.Context, from domain.RoleRef, name string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.accounts {
		if (from.ID != "" && a.Role.ID == from.ID) || (a.Role.ID == "" && a.Role.Name == from.Name) {
			a.Role = domain.RoleRef{ID: from.ID, Name: name}
			n++
		}
	}
	return n, nil
}

func (r *stubAccountRepo) UpdateRole(_ context.Context, id string, ref domain.RoleRef) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	a.Role = ref
	return cloneAccount(a), nil
}

func (r *stubAccountRepo) List(_ context.Context, page domain.Page) ([]*domain.Account, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*domain.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		all = append(all, cloneAccount(a))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, page), int64(len(all)), nil
}

func (r *stubAccountRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return domain.ErrAccountNotFound
	}
	delete(r.accounts, id)
	return nil
}

type stubRoleRepo struct {
	mu    sync.Mutex
	seq   int
	roles map[string]*domain.Role
}

func newStubRoleRepo() *stubRoleRepo {
	return &stubRoleRepo{roles: make(map[string]*domain.Role)}
}

func cloneRole(r *domain.Role) *domain.Role {
	out := *r
	out.ActionIDs = append([]string(nil), r.ActionIDs...)
	out.Actions = nil
	return &out
}

func (r *stubRoleRepo) Create(_ context.Context, role *domain.Role) (*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.roles {
		if existing.Name == role.Name {
			return nil, domain.ErrRoleExists
		}
	}
	r.seq++
	stored := cloneRole(role)
	stored.ID = fmt.Sprintf("role-%d", r.seq)
	r.roles[stored.ID] = stored
	return cloneRole(stored), nil
}

func (r *stubRoleRepo) FindByID(_ context.Context, id string) (*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[id]
	if !ok {
		return nil, domain.ErrRoleNotFound
	}
	return cloneRole(role), nil
}

func (r *stubRoleRepo) FindByName(_ context.Context, name string) (*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, role := range r.roles {
		if role.Name == name {
			return cloneRole(role), nil
		}
	}
	return nil, domain.ErrRoleNotFound
}

func (r *stubRoleRepo) FindByAction(_ context.Context, actionID string) ([]*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Role
	for _, role := range r.roles {
		if role.HasAction(actionID) {
			out = append(out, cloneRole(role))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *stubRoleRepo) List(_ context.Context, filter ports.RoleFilter, page domain.Page) ([]*domain.Role, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*domain.Role
	for _, role := range r.roles {
		if filter.IsActive != nil && role.IsActive != *filter.IsActive {
			continue
		}
		all = append(all, cloneRole(role))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, page), int64(len(all)), nil
}

func (r *stubRoleRepo) Update(_ context.Context, id string, upd ports.RoleUpdate) (*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[id]
	if !ok {
		return nil, domain.ErrRoleNotFound
	}
	if upd.Name != nil {
		role.Name = *upd.Name
	}
	if upd.Description != nil {
		role.Description = *upd.Description
	}
	if upd.IsActive != nil {
		role.IsActive = *upd.IsActive
	}
	return cloneRole(role), nil
}

func (r *stubRoleRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roles[id]; !ok {
		return domain.ErrRoleNotFound
	}
	delete(r.roles, id)
	return nil
}

func (r *stubRoleRepo) AddAction(_ context.Context, roleID, actionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[roleID]
	if !ok {
		return domain.ErrRoleNotFound
	}
	if role.HasAction(actionID) {
		return domain.ErrActionAlreadyInRole
	}
	role.ActionIDs = append(role.ActionIDs, actionID)
	return nil
}

func (r *stubRoleRepo) RemoveAction(_ context.Context, roleID, actionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[roleID]
	if !ok {
		return domain.ErrRoleNotFound
	}
	if !role.HasAction(actionID) {
		return domain.ErrActionNotInRole
	}
	role.ActionIDs = without(role.ActionIDs, actionID)
	return nil
}

func (r *stubRoleRepo) PullActionFromAll(_ context.Context, actionID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, role := range r.roles {
		if role.HasAction(actionID) {
			role.ActionIDs = without(role.ActionIDs, actionID)
			n++
		}
	}
	return n, nil
}

type stubActionRepo struct {
	mu      sync.Mutex
	seq     int
	actions map[string]*domain.Action
}

func newStubActionRepo() *stubActionRepo {
	return &stubActionRepo{actions: make(map[string]*domain.Action)}
}

func cloneAction(a *domain.Action) *domain.Action {
	out := *a
	return &out
}

func (r *stubActionRepo) Create(_ context.Context, a *domain.Action) (*domain.Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.actions {
		if existing.Name == a.Name {
			return nil, domain.ErrActionExists
		}
	}
	r.seq++
	stored := cloneAction(a)
	stored.ID = fmt.Sprintf("act-%d", r.seq)
	r.actions[stored.ID] = stored
	return cloneAction(stored), nil
}

func (r *stubActionRepo) FindByID(_ context.Context, id string) (*domain.Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.actions[id]
	if !ok {
		return nil, domain.ErrActionNotFound
	}
	return cloneAction(a), nil
}

func (r *stubActionRepo) FindByName(_ context.Context, name string) (*domain.Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.actions {
		if a.Name == name {
			return cloneAction(a), nil
		}
	}
	return nil, domain.ErrActionNotFound
}

func (r *stubActionRepo) FindByIDs(_ context.Context, ids []string) ([]*domain.Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Action
	for _, id := range ids {
		if a, ok := r.actions[id]; ok {
			out = append(out, cloneAction(a))
		}
	}
	return out, nil
}

func (r *stubActionRepo) List(_ context.Context, filter ports.ActionFilter, page domain.Page) ([]*domain.Action, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*domain.Action
	for _, a := range r.actions {
		if filter.Category != "" && a.Category != filter.Category {
			continue
		}
		if filter.IsActive != nil && a.IsActive != *filter.IsActive {
			continue
		}
		all = append(all, cloneAction(a))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Category != all[j].Category {
			return all[i].Category < all[j].Category
		}
		return all[i].Name < all[j].Name
	})
	return paginate(all, page), int64(len(all)), nil
}

func (r *stubActionRepo) Update(_ context.Context, id string, upd ports.ActionUpdate) (*domain.Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.actions[id]
	if !ok {
		return nil, domain.ErrActionNotFound
	}
	if upd.Name != nil {
		a.Name = *upd.Name
	}
	if upd.Description != nil {
		a.Description = *upd.Description
	}
	if upd.Category != nil {
		a.Category = *upd.Category
	}
	if upd.IsActive != nil {
		a.IsActive = *upd.IsActive
	}
	return cloneAction(a), nil
}

func (r *stubActionRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.actions[id]; !ok {
		return domain.ErrActionNotFound
	}
	delete(r.actions, id)
	return nil
}

func (r *stubActionRepo) GroupByCategory(_ context.Context) ([]domain.CategoryGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	buckets := map[domain.Category][]domain.ActionSummary{}
	for _, a := range r.actions {
		if !a.IsActive {
			continue
		}
		buckets[a.Category] = append(buckets[a.Category], domain.ActionSummary{ID: a.ID, Name: a.Name, Description: a.Description})
	}
	var out []domain.CategoryGroup
	for c, list := range buckets {
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
		out = append(out, domain.CategoryGroup{Category: c, Actions: list, Count: len(list)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

type stubMailer struct {
	mu   sync.Mutex
	sent []ports.MailMessage
	err  error
}

func (m *stubMailer) Send(_ context.Context, msg ports.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *stubMailer) last() ports.MailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ports.MailMessage{}
	}
	return m.sent[len(m.sent)-1]
}

type stubCache struct {
	mu          sync.Mutex
	entries     map[string]*domain.Grant
	gets        int
	invalidated int
	err         error
}

func newStubCache() *stubCache { return &stubCache{entries: map[string]*domain.Grant{}} }

func (c *stubCache) Get(_ context.Context, key string) (*domain.Grant, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.err != nil {
		return nil, false, c.err
	}
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *stubCache) Set(_ context.Context, key string, grant *domain.Grant) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.entries[key] = grant
	return nil
}

func (c *stubCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	c.entries = map[string]*domain.Grant{}
	return c.err
}

var errBackend = errors.New("backend unavailable")

func paginate[T any](all []T, page domain.Page) []T {
	page = page.Normalize()
	start := int(page.Skip())
	if start >= len(all) {
		return []T{}
	}
	end := start + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

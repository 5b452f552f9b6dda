package domain

import (
	"slices"
	"time"
)

// Role is a named bundle of actions. ActionIDs is the stored membership set;
// Actions is populated only on read paths that resolve it.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ActionIDs   []string  `json:"-"`
	Actions     []Action  `json:"actions"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HasAction reports whether actionID is a member of the role.
func (r *Role) HasAction(actionID string) bool {
	return slices.Contains(r.ActionIDs, actionID)
}

// Ref builds the account-side reference to this role.
func (r *Role) Ref() RoleRef {
	return RoleRef{ID: r.ID, Name: r.Name}
}

// Grant is the resolved permission set behind a role reference. Actions is
// sorted.
type Grant struct {
	Role      string   `json:"role"`
	Superuser bool     `json:"superuser"`
	Actions   []string `json:"actions"`
}

// Allows reports whether the grant covers action.
func (g *Grant) Allows(action string) bool {
	if g.Superuser {
		return true
	}
	_, ok := slices.BinarySearch(g.Actions, NormalizeName(action))
	return ok
}

// UniqueIDs returns ids without duplicates, keeping first-seen order.
func UniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

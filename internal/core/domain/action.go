package domain

import (
	"strings"
	"time"
)

// Category groups actions for presentation.
type Category string

const (
	CategoryUserManagement    Category = "user_management"
	CategoryRoleManagement    Category = "role_management"
	CategoryContentManagement Category = "content_management"
	CategoryReporting         Category = "reporting"
	CategorySettings          Category = "settings"
	CategorySystem            Category = "system"
)

var validCategories = map[Category]struct{}{
	CategoryUserManagement:    {},
	CategoryRoleManagement:    {},
	CategoryContentManagement: {},
	CategoryReporting:         {},
	CategorySettings:          {},
	CategorySystem:            {},
}

// ParseCategory lower-cases s and checks it against the fixed set.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := validCategories[c]; !ok {
		return "", Validation(CodeInvalidCategory, "invalid category '"+s+"'")
	}
	return c, nil
}

// Action is an atomic named permission.
type Action struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ActionSummary is the trimmed record used inside category groups.
type ActionSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CategoryGroup is one bucket of the group-by-category view.
type CategoryGroup struct {
	Category Category        `json:"category"`
	Actions  []ActionSummary `json:"actions"`
	Count    int             `json:"count"`
}

// RoleSummary is the reverse-lookup record attached to an action.
type RoleSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ActionDetail is an action together with the roles referencing it.
type ActionDetail struct {
	Action
	AssignedRoles []RoleSummary `json:"assignedRoles"`
}

// NormalizeName is the canonical form for role and action names.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

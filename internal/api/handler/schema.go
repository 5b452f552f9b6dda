package handler

import (
	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

type registerRequest struct {
	FirstName  string `json:"firstName"  validate:"required,max=50"`
	LastName   string `json:"lastName"   validate:"required,max=50"`
	Email      string `json:"email"      validate:"required,email"`
	Phone      string `json:"phone"      validate:"omitempty,max=25"`
	Password   string `json:"password"   validate:"required,min=6,max=72"`
	ReferredBy string `json:"referredBy" validate:"omitempty,max=20"`
}

type verifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp"   validate:"required,len=6,numeric"`
}

type resendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type createRoleRequest struct {
	Name        string   `json:"name"        validate:"required,min=3,max=30"`
	Description string   `json:"description" validate:"max=200"`
	Actions     []string `json:"actions"     validate:"omitempty,dive,mongodb"`
}

type updateRoleRequest struct {
	Name        *string `json:"name"        validate:"omitempty,min=3,max=30"`
	Description *string `json:"description" validate:"omitempty,max=200"`
	IsActive    *bool   `json:"isActive"`
}

func (r updateRoleRequest) empty() bool {
	return r.Name == nil && r.Description == nil && r.IsActive == nil
}

type addActionRequest struct {
	ActionID string `json:"actionId" validate:"required,mongodb"`
}

type createActionRequest struct {
	Name        string `json:"name"        validate:"required,min=3,max=50"`
	Description string `json:"description" validate:"max=200"`
	Category    string `json:"category"    validate:"required"`
}

type updateActionRequest struct {
	Name        *string `json:"name"        validate:"omitempty,min=3,max=50"`
	Description *string `json:"description" validate:"omitempty,max=200"`
	Category    *string `json:"category"`
	IsActive    *bool   `json:"isActive"`
}

func (r updateActionRequest) empty() bool {
	return r.Name == nil && r.Description == nil && r.Category == nil && r.IsActive == nil
}

type assignRoleRequest struct {
	RoleID string `json:"roleId" validate:"required,mongodb"`
}

// Response shapes, named for the API docs.
type (
	accountResponse      = domain.Envelope[*domain.Account]
	accountListResponse  = domain.Envelope[[]*domain.Account]
	verifyResponse       = domain.Envelope[*ports.VerifyResult]
	loginResponse        = domain.Envelope[*ports.LoginResult]
	roleResponse         = domain.Envelope[*domain.Role]
	roleListResponse     = domain.Envelope[[]*domain.Role]
	actionResponse       = domain.Envelope[*domain.Action]
	actionListResponse   = domain.Envelope[[]*domain.Action]
	actionDetailResponse = domain.Envelope[*domain.ActionDetail]
	categoryResponse     = domain.Envelope[[]domain.CategoryGroup]
)

type myActionsResponse struct {
	Role    string   `json:"role"`
	Actions []string `json:"actions"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

package ports

import (
	"context"
	"time"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Password   string
	ReferredBy string
}

// VerifyResult is the public view of a freshly verified account.
type VerifyResult struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	IsVerified bool   `json:"isVerified"`
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Account   *domain.Account `json:"account"`
	Token     string          `json:"token"`
	TokenType string          `json:"tokenType"`
	ExpiresAt time.Time       `json:"expiresAt"`
	ExpiresIn int64           `json:"expiresIn"`
}

// AccountService is the account lifecycle: pending -> verified, then login.
type AccountService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.Envelope[*domain.Account], error)
	VerifyEmail(ctx context.Context, email, code string) (*domain.Envelope[*VerifyResult], error)
	ResendVerification(ctx context.Context, email string) (*domain.Envelope[map[string]string], error)
	Login(ctx context.Context, email, password string) (*domain.Envelope[*LoginResult], error)
}

// TokenClaims is the identity asserted by a session token.
type TokenClaims struct {
	AccountID string
	Email     string
	RoleID    string
	Role      string
	ExpiresAt time.Time
}

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Parse(token string) (*TokenClaims, error)
}

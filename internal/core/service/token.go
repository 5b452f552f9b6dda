package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

const (
	// TokenTypeBearer is the fixed type tag of issued session tokens.
	TokenTypeBearer = "Bearer"
	// DefaultTokenTTL is the session lifetime when none is configured.
	DefaultTokenTTL = 7 * 24 * time.Hour
)

var signingMethod = jwt.SigningMethodHS256

type sessionClaims struct {
	Email  string `json:"email"`
	RoleID string `json:"rid,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and validates signed session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is the configured session lifetime.
func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

// Issue binds the account id, email and role reference into a token.
func (t *TokenIssuer) Issue(a *domain.Account) (string, time.Time, error) {
	if len(t.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("jwt secret is required")
	}
	now := t.now().UTC()
	expiresAt := now.Add(t.ttl)

	claims := sessionClaims{
		Email:  a.Email,
		RoleID: a.Role.ID,
		Role:   a.Role.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing jwt: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates the signature, algorithm and expiry of token.
func (t *TokenIssuer) Parse(token string) (*ports.TokenClaims, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(tk *jwt.Token) (interface{}, error) {
			if tk.Method.Alg() != signingMethod.Alg() {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return t.secret, nil
		},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.Auth(domain.CodeInvalidCredentials, "token expired")
		}
		return nil, domain.Auth(domain.CodeInvalidCredentials, "invalid token")
	}

	out := &ports.TokenClaims{
		AccountID: claims.Subject,
		Email:     claims.Email,
		RoleID:    claims.RoleID,
		Role:      claims.Role,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

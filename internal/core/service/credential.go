package service

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = 10

// BcryptHasher is the credential store: randomized, cost-tunable one-way hashing.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher clamps cost into bcrypt's accepted range; 0 selects DefaultBcryptCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	switch {
	case cost == 0:
		cost = DefaultBcryptCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", domain.Validation(domain.CodeInvalidInput, "password must not exceed 72 bytes")
		}
		return "", err
	}
	return string(digest), nil
}

func (h *BcryptHasher) Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

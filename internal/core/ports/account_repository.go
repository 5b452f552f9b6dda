package ports

import (
	"context"
	"time"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	// Create inserts a new account. A duplicate email yields domain.ErrAccountExists,
	// a duplicate referral code yields domain.ErrReferralCodeTaken.
	Create(ctx context.Context, a *domain.Account) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	// FindByEmail returns the account including its password hash.
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByReferralCode(ctx context.Context, code string) (bool, error)

	// ConsumeVerificationCode atomically matches email+digest (unexpired at now),
	// clears the code and marks the account verified. It returns the account as
	// it was before the update, or domain.ErrAccountNotFound when nothing matched.
	ConsumeVerificationCode(ctx context.Context, email, digest string, now time.Time) (*domain.Account, error)
	SetVerificationCode(ctx context.Context, id, digest string, expiresAt *time.Time) error

	// CountByRole counts accounts referencing the role by id or by legacy name.
	CountByRole(ctx context.Context, ref domain.RoleRef) (int64, error)
	UpdateRole(ctx context.Context, id string, ref domain.RoleRef) (*domain.Account, error)
	// RenameRole points every account holding from (by id or legacy name) at
	// the role's id under its new name, returning the number of accounts touched.
	RenameRole(ctx context.Context, from domain.RoleRef, name string) (int64, error)
	List(ctx context.Context, page domain.Page) ([]*domain.Account, int64, error)
	Delete(ctx context.Context, id string) error
}

package domain

import "time"

// DefaultRoleName is the role every new account starts with.
const DefaultRoleName = "user"

// AdminRoleName is the superuser role; it implicitly holds every action.
const AdminRoleName = "admin"

// AccountState is the lifecycle state of an account.
type AccountState string

const (
	StatePending  AccountState = "pending"
	StateVerified AccountState = "verified"
)

// PasswordHasher is the contract of the credential store.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// RoleRef is a typed reference from an account to a role. Name is kept
// alongside the id so tokens and legacy name-based lookups do not need a join.
type RoleRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Key identifies the referenced role: by id when present, by name otherwise.
func (r RoleRef) Key() string {
	if r.ID != "" {
		return "id:" + r.ID
	}
	return "name:" + NormalizeName(r.Name)
}

// Account models an end-user identity record.
type Account struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	Role         RoleRef   `json:"role"`
	ReferralCode string    `json:"referralCode"`
	ReferredBy   string    `json:"referredBy,omitempty"`
	IsVerified   bool      `json:"isVerified"`
	CreatedAt    time.Time `json:"createdAt"`

	// VerificationCode holds the digest of the outstanding one-time code.
	// Empty means no code is outstanding.
	VerificationCode string     `json:"-"`
	CodeExpiresAt    *time.Time `json:"-"`
}

// State derives the lifecycle state from the verified flag.
func (a *Account) State() AccountState {
	if a.IsVerified {
		return StateVerified
	}
	return StatePending
}

// SetPassword stores the digest of plain, hashing only when the password
// actually changes. It reports whether a new digest was written.
func (a *Account) SetPassword(plain string, hasher PasswordHasher) (bool, error) {
	if plain == "" {
		return false, Validation(CodeInvalidInput, "password is required")
	}
	if a.PasswordHash != "" && hasher.Verify(plain, a.PasswordHash) {
		return false, nil
	}
	digest, err := hasher.Hash(plain)
	if err != nil {
		return false, err
	}
	a.PasswordHash = digest
	return true, nil
}

// CheckPassword compares plain against the stored digest.
func (a *Account) CheckPassword(plain string, hasher PasswordHasher) bool {
	if a.PasswordHash == "" {
		return false
	}
	return hasher.Verify(plain, a.PasswordHash)
}

// Sanitized returns a copy with credential material removed.
func (a *Account) Sanitized() *Account {
	if a == nil {
		return nil
	}
	out := *a
	out.PasswordHash = ""
	out.VerificationCode = ""
	out.CodeExpiresAt = nil
	return &out
}

package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
	"github.com/rs/zerolog"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
	"github.com/99minutos/identity-system/pkg/logger"
)

const (
	referralLetters  = 6
	referralDigits   = 3
	referralAttempts = 5

	// DefaultPhoneRegion is used to parse phone numbers without a country prefix.
	DefaultPhoneRegion = "US"
)

// AccountDeps groups the collaborators of AccountService.
type AccountDeps struct {
	Accounts    ports.AccountRepository
	Roles       ports.RoleRepository
	Hasher      domain.PasswordHasher
	OTP         *OTPEngine
	Tokens      *TokenIssuer
	Mailer      ports.Mailer
	PhoneRegion string
	// AdminEmail names the account that is promoted to the admin role once its
	// email is verified. Empty disables the bootstrap.
	AdminEmail string
	Logger     zerolog.Logger
}

// AccountService implements registration, email verification and login.
type AccountService struct {
	accounts    ports.AccountRepository
	roles       ports.RoleRepository
	hasher      domain.PasswordHasher
	otp         *OTPEngine
	tokens      *TokenIssuer
	mailer      ports.Mailer
	phoneRegion string
	adminEmail  string
	log         zerolog.Logger
	now         func() time.Time
}

func NewAccountService(d AccountDeps) *AccountService {
	region := d.PhoneRegion
	if region == "" {
		region = DefaultPhoneRegion
	}
	return &AccountService{
		accounts:    d.Accounts,
		roles:       d.Roles,
		hasher:      d.Hasher,
		otp:         d.OTP,
		tokens:      d.Tokens,
		mailer:      d.Mailer,
		phoneRegion: region,
		adminEmail:  normalizeEmail(d.AdminEmail),
		log:         d.Logger,
		now:         time.Now,
	}
}

// Register persists a pending account and then dispatches its verification code.
// Notification is best-effort: a failed dispatch leaves the account pending and
// is reported through metaData["emailDispatched"].
func (s *AccountService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Envelope[*domain.Account], error) {
	const op = "Register"

	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.Validation(domain.CodeInvalidInput, "email and password are required")
	}

	exists, err := s.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}
	if exists {
		return nil, domain.Conflict(domain.CodeAccountExists, "User already existed")
	}

	phone, err := normalizePhone(in.Phone, s.phoneRegion)
	if err != nil {
		return nil, err
	}

	referredBy := strings.ToLower(strings.TrimSpace(in.ReferredBy))
	if referredBy != "" {
		ok, err := s.accounts.ExistsByReferralCode(ctx, referredBy)
		if err != nil {
			return nil, wrapInternal(s.log, op, err)
		}
		if !ok {
			return nil, domain.Validation(domain.CodeInvalidReferral, fmt.Sprintf("referral code '%s' does not exist", referredBy))
		}
	}

	role, err := s.defaultRole(ctx)
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}

	code, digest, expiresAt, err := s.otp.Issue()
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}

	account := &domain.Account{
		FirstName:        strings.TrimSpace(in.FirstName),
		LastName:         strings.TrimSpace(in.LastName),
		Email:            email,
		Phone:            phone,
		Role:             role,
		ReferredBy:       referredBy,
		VerificationCode: digest,
		CodeExpiresAt:    expiresAt,
		CreatedAt:        s.now().UTC(),
	}
	if _, err := account.SetPassword(in.Password, s.hasher); err != nil {
		return nil, wrapInternal(s.log, op, err)
	}

	var created *domain.Account
	for attempt := 0; attempt < referralAttempts; attempt++ {
		account.ReferralCode, err = generateReferralCode(email)
		if err != nil {
			return nil, wrapInternal(s.log, op, err)
		}
		created, err = s.accounts.Create(ctx, account)
		if !errors.Is(err, domain.ErrReferralCodeTaken) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, domain.ErrAccountExists) {
			return nil, domain.Conflict(domain.CodeAccountExists, "User already existed")
		}
		return nil, wrapInternal(s.log, op, err)
	}

	s.log.Info().Str("account_id", created.ID).Str("email", logger.MaskEmail(created.Email)).Msg("account registered")

	dispatched := s.sendCode(ctx, created.Email, "Registration Verification", code)
	meta := domain.Message("Registration successful, please verify your email")
	meta["emailDispatched"] = dispatched

	return &domain.Envelope[*domain.Account]{Data: created.Sanitized(), MetaData: meta}, nil
}

// VerifyEmail consumes a one-time code. Only the first redemption of a code
// can succeed: consumption clears the stored digest.
func (s *AccountService) VerifyEmail(ctx context.Context, email, code string) (*domain.Envelope[*ports.VerifyResult], error) {
	const op = "Verify Email"

	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || !WellFormed(code) {
		return nil, domain.Validation(domain.CodeInvalidOTP, "Invalid OTP or email")
	}

	prev, err := s.accounts.ConsumeVerificationCode(ctx, email, s.otp.Digest(code), s.now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.Validation(domain.CodeInvalidOTP, "Invalid OTP or email")
		}
		return nil, wrapInternal(s.log, op, err)
	}
	if prev.IsVerified {
		return nil, domain.Validation(domain.CodeAlreadyVerified, "Email already verified")
	}

	s.log.Info().Str("account_id", prev.ID).Msg("email verified")

	if s.adminEmail != "" && prev.Email == s.adminEmail {
		if err := s.promote(ctx, prev.ID); err != nil {
			s.log.Error().Err(err).Str("account_id", prev.ID).Msg("bootstrap admin promotion failed")
		}
	}

	return &domain.Envelope[*ports.VerifyResult]{
		Data: &ports.VerifyResult{
			ID:         prev.ID,
			Email:      prev.Email,
			FirstName:  prev.FirstName,
			LastName:   prev.LastName,
			IsVerified: true,
		},
		MetaData: domain.Message("Email verified successfully"),
	}, nil
}

// ResendVerification replaces the outstanding code of a pending account.
func (s *AccountService) ResendVerification(ctx context.Context, email string) (*domain.Envelope[map[string]string], error) {
	const op = "Resend Verification"

	account, err := s.accounts.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}
	if account.IsVerified {
		return nil, domain.Validation(domain.CodeAlreadyVerified, "Email already verified")
	}

	code, digest, expiresAt, err := s.otp.Issue()
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}
	if err := s.accounts.SetVerificationCode(ctx, account.ID, digest, expiresAt); err != nil {
		return nil, wrapInternal(s.log, op, err)
	}

	dispatched := s.sendCode(ctx, account.Email, "Email Verification", code)
	meta := domain.Message("Verification code issued")
	meta["emailDispatched"] = dispatched

	return &domain.Envelope[map[string]string]{
		Data:     map[string]string{"email": account.Email},
		MetaData: meta,
	}, nil
}

// Login authenticates a verified account and issues a session token.
func (s *AccountService) Login(ctx context.Context, email, password string) (*domain.Envelope[*ports.LoginResult], error) {
	const op = "Login"

	account, err := s.accounts.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.Auth(domain.CodeInvalidCredentials, "invalid email or password")
		}
		return nil, wrapInternal(s.log, op, err)
	}
	if !account.IsVerified {
		return nil, domain.Auth(domain.CodeNotVerified, "account email is not verified")
	}
	if !account.CheckPassword(password, s.hasher) {
		return nil, domain.Auth(domain.CodeInvalidCredentials, "invalid email or password")
	}

	account.Role = s.currentRole(ctx, account.Role)

	token, expiresAt, err := s.tokens.Issue(account)
	if err != nil {
		return nil, wrapInternal(s.log, op, err)
	}

	s.log.Info().Str("account_id", account.ID).Msg("login succeeded")

	return &domain.Envelope[*ports.LoginResult]{
		Data: &ports.LoginResult{
			Account:   account.Sanitized(),
			Token:     token,
			TokenType: TokenTypeBearer,
			ExpiresAt: expiresAt,
			ExpiresIn: int64(s.tokens.TTL().Seconds()),
		},
		MetaData: domain.Message("Login successful"),
	}, nil
}

// defaultRole resolves the "user" role. When the catalog has no such role the
// bare name is stored so the account still carries the legacy reference.
func (s *AccountService) defaultRole(ctx context.Context) (domain.RoleRef, error) {
	role, err := s.roles.FindByName(ctx, domain.DefaultRoleName)
	if err != nil {
		if errors.Is(err, domain.ErrRoleNotFound) {
			s.log.Warn().Str("role", domain.DefaultRoleName).Msg("default role missing from catalog")
			return domain.RoleRef{Name: domain.DefaultRoleName}, nil
		}
		return domain.RoleRef{}, err
	}
	return role.Ref(), nil
}

// BootstrapAdmin promotes the configured admin account when it exists and is
// verified. It is a no-op without an admin email.
func (s *AccountService) BootstrapAdmin(ctx context.Context) error {
	if s.adminEmail == "" {
		return nil
	}
	account, err := s.accounts.FindByEmail(ctx, s.adminEmail)
	if errors.Is(err, domain.ErrAccountNotFound) {
		s.log.Info().Str("email", logger.MaskEmail(s.adminEmail)).Msg("bootstrap admin not registered yet")
		return nil
	}
	if err != nil {
		return wrapInternal(s.log, "Bootstrap Admin", err)
	}
	if !account.IsVerified {
		s.log.Info().Str("email", logger.MaskEmail(s.adminEmail)).Msg("bootstrap admin awaiting verification")
		return nil
	}
	return s.promote(ctx, account.ID)
}

func (s *AccountService) promote(ctx context.Context, accountID string) error {
	role, err := s.roles.FindByName(ctx, domain.AdminRoleName)
	if err != nil {
		return wrapInternal(s.log, "Bootstrap Admin", err)
	}
	if _, err := s.accounts.UpdateRole(ctx, accountID, role.Ref()); err != nil {
		return wrapInternal(s.log, "Bootstrap Admin", err)
	}
	s.log.Info().Str("account_id", accountID).Msg("bootstrap admin promoted")
	return nil
}

// currentRole reconciles the stored reference with the catalog: the id wins and
// the name follows it, and a legacy name-only reference picks up the id. The
// stored reference is kept when the catalog cannot answer.
func (s *AccountService) currentRole(ctx context.Context, ref domain.RoleRef) domain.RoleRef {
	role, err := findRole(ctx, s.roles, ref)
	if err != nil {
		if !errors.Is(err, domain.ErrRoleNotFound) {
			s.log.Warn().Err(err).Str("role", ref.Key()).Msg("role lookup failed, using stored reference")
		}
		return ref
	}
	return role.Ref()
}

func (s *AccountService) sendCode(ctx context.Context, to, subject, code string) bool {
	msg := ports.MailMessage{
		To:      to,
		Subject: subject,
		HTML:    fmt.Sprintf("Welcome to our business.<br/>Please verify your email.<br/>Your One Time Password is: <span>%s</span>.", code),
		Text:    fmt.Sprintf("Welcome to our business.\nPlease verify your email.\nYour One Time Password is: %s.", code),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.Warn().Err(err).Str("email", logger.MaskEmail(to)).Msg("verification email not dispatched")
		return false
	}
	return true
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	num, err := phonenumbers.Parse(raw, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", domain.Validation(domain.CodeInvalidPhone, fmt.Sprintf("invalid phone number '%s'", raw))
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

const lowerAlphabet = "abcdefghijklmnopqrstuvwxyz"

// generateReferralCode takes up to six letters from the email's local part,
// pads with random letters and appends three random digits.
func generateReferralCode(email string) (string, error) {
	local, _, _ := strings.Cut(email, "@")

	var b strings.Builder
	for _, r := range local {
		if b.Len() == referralLetters {
			break
		}
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	for b.Len() < referralLetters {
		i, err := rand.Int(rand.Reader, big.NewInt(int64(len(lowerAlphabet))))
		if err != nil {
			return "", fmt.Errorf("generate referral code: %w", err)
		}
		b.WriteByte(lowerAlphabet[i.Int64()])
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		return "", fmt.Errorf("generate referral code: %w", err)
	}
	fmt.Fprintf(&b, "%0*d", referralDigits, n.Int64())
	return b.String(), nil
}

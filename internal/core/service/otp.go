package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"time"
)

const (
	otpLength = 6
	// DefaultOTPTTL bounds how long an emailed code stays redeemable.
	DefaultOTPTTL = 15 * time.Minute
)

var otpSpace = big.NewInt(1_000_000)

// OTPEngine generates and digests one-time verification codes.
type OTPEngine struct {
	ttl    time.Duration
	random io.Reader
	now    func() time.Time
}

// NewOTPEngine returns an engine whose codes expire after ttl.
// A zero ttl issues codes that never expire.
func NewOTPEngine(ttl time.Duration) *OTPEngine {
	if ttl < 0 {
		ttl = DefaultOTPTTL
	}
	return &OTPEngine{ttl: ttl, random: rand.Reader, now: time.Now}
}

// Generate returns a uniformly distributed 6-digit code.
func (e *OTPEngine) Generate() (string, error) {
	n, err := rand.Int(e.random, otpSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", otpLength, n.Int64()), nil
}

// Digest is the deterministic stored form of a code.
func (e *OTPEngine) Digest(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// Issue generates a code and returns it with its digest and expiry (nil when codes do not expire).
func (e *OTPEngine) Issue() (code, digest string, expiresAt *time.Time, err error) {
	code, err = e.Generate()
	if err != nil {
		return "", "", nil, err
	}
	if e.ttl > 0 {
		exp := e.now().UTC().Add(e.ttl)
		expiresAt = &exp
	}
	return code, e.Digest(code), expiresAt, nil
}

// WellFormed reports whether code has the shape of an issued code.
func WellFormed(code string) bool {
	if len(code) != otpLength {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

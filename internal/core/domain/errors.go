package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure. Every public operation reports exactly one kind.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindAuth       Kind = "auth"
	KindForbidden  Kind = "forbidden"
	KindTransient  Kind = "transient"
)

// Machine-readable error codes.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeInvalidCategory     = "INVALID_CATEGORY"
	CodeInvalidActionIDs    = "INVALID_ACTION_IDS"
	CodeInvalidReferral     = "INVALID_REFERRAL_CODE"
	CodeInvalidPhone        = "INVALID_PHONE"
	CodeInvalidOTP          = "INVALID_OTP"
	CodeAlreadyVerified     = "ALREADY_VERIFIED"
	CodeAccountNotFound     = "ACCOUNT_NOT_FOUND"
	CodeRoleNotFound        = "ROLE_NOT_FOUND"
	CodeActionNotFound      = "ACTION_NOT_FOUND"
	CodeActionNotInRole     = "ACTION_NOT_IN_ROLE"
	CodeAccountExists       = "ACCOUNT_EXISTS"
	CodeRoleExists          = "ROLE_EXISTS"
	CodeActionExists        = "ACTION_EXISTS"
	CodeRoleInUse           = "ROLE_IN_USE"
	CodeActionAlreadyInRole = "ACTION_ALREADY_IN_ROLE"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeNotVerified         = "ACCOUNT_NOT_VERIFIED"
	CodeReferralCodeTaken   = "REFERRAL_CODE_TAKEN"
	CodeReservedRole        = "RESERVED_ROLE"
	CodeForbidden           = "FORBIDDEN"
	CodeInternal            = "INTERNAL_ERROR"
)

// Error is the single error type crossing the core boundary.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	cause   error
}

func NewError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap attaches cause to a new Error. A nil cause behaves like NewError.
func Wrap(kind Kind, code string, cause error, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches another *Error by kind and code so sentinel comparisons work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// AsError returns the *Error in err's chain, or nil.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return nil
}

// KindOf reports the kind of err. Unknown errors are transient.
func KindOf(err error) Kind {
	if e := AsError(err); e != nil {
		return e.Kind
	}
	return KindTransient
}

func Validation(code, message string) *Error { return NewError(KindValidation, code, message) }
func NotFound(code, message string) *Error   { return NewError(KindNotFound, code, message) }
func Conflict(code, message string) *Error   { return NewError(KindConflict, code, message) }
func Auth(code, message string) *Error       { return NewError(KindAuth, code, message) }
func Forbidden(code, message string) *Error  { return NewError(KindForbidden, code, message) }

// Sentinels returned by repositories.
var (
	ErrAccountNotFound = NotFound(CodeAccountNotFound, "account not found")
	ErrRoleNotFound    = NotFound(CodeRoleNotFound, "role not found")
	ErrActionNotFound  = NotFound(CodeActionNotFound, "action not found")
	ErrAccountExists   = Conflict(CodeAccountExists, "account already exists")
	ErrRoleExists      = Conflict(CodeRoleExists, "role already exists")
	ErrActionExists    = Conflict(CodeActionExists, "action already exists")
	ErrInvalidOTP      = Validation(CodeInvalidOTP, "invalid OTP or email")
	ErrAlreadyVerified = Validation(CodeAlreadyVerified, "email already verified")

	ErrReferralCodeTaken   = Conflict(CodeReferralCodeTaken, "referral code already taken")
	ErrActionAlreadyInRole = Conflict(CodeActionAlreadyInRole, "action already exists in this role")
	ErrActionNotInRole     = NotFound(CodeActionNotInRole, "action not found in this role")
)

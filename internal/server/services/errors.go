package services

import "errors"

// Kind groups failures by how a caller should react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindAuthFailure
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAuthFailure:
		return "auth_failure"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Code is a stable identifier safe to show to clients.
type Code string

const (
	CodeEmailNotFound         Code = "EMAIL_NOT_FOUND"
	CodeWrongPassword         Code = "WRONG_PASSWORD"
	CodeDuplicateEmail        Code = "DUPLICATE_EMAIL"
	CodeSocialLoginFailed     Code = "SOCIAL_LOGIN_FAIL"
	CodeInvalidOrExpiredToken Code = "INVALID_OR_EXPIRED_TOKEN"
	CodeRefreshTokenNotFound  Code = "REFRESH_TOKEN_NOT_FOUND"
	CodeRefreshTokenMismatch  Code = "REFRESH_TOKEN_NOT_MATCH"
	CodeUserNotFound          Code = "USER_NOT_FOUND"
	CodeRecertificationFailed Code = "RECERTIFICATION_FAILED"
	CodeInternal              Code = "INTERNAL_ERROR"
)

// Error is the only error type AuthService returns. Error() yields just the
// code; the cause is kept for logs and errors.Unwrap.
type Error struct {
	Code  Code
	Kind  Kind
	Cause error
}

func (e *Error) Error() string { return string(e.Code) }

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error with the same code, so errors.Is(err, ErrWrongPassword)
// holds regardless of the attached cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func (e *Error) withCause(cause error) *Error {
	return &Error{Code: e.Code, Kind: e.Kind, Cause: cause}
}

var (
	ErrEmailNotFound         = &Error{Code: CodeEmailNotFound, Kind: KindNotFound}
	ErrWrongPassword         = &Error{Code: CodeWrongPassword, Kind: KindAuthFailure}
	ErrDuplicateEmail        = &Error{Code: CodeDuplicateEmail, Kind: KindConflict}
	ErrSocialLoginFailed     = &Error{Code: CodeSocialLoginFailed, Kind: KindAuthFailure}
	ErrInvalidOrExpiredToken = &Error{Code: CodeInvalidOrExpiredToken, Kind: KindAuthFailure}
	ErrRefreshTokenNotFound  = &Error{Code: CodeRefreshTokenNotFound, Kind: KindAuthFailure}
	ErrRefreshTokenMismatch  = &Error{Code: CodeRefreshTokenMismatch, Kind: KindAuthFailure}
	ErrUserNotFound          = &Error{Code: CodeUserNotFound, Kind: KindNotFound}
	ErrRecertificationFailed = &Error{Code: CodeRecertificationFailed, Kind: KindInternal}
	ErrInternal              = &Error{Code: CodeInternal, Kind: KindInternal}
)

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the code of err, CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

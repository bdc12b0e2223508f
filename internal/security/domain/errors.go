package domain

import (
	"fmt"

	apperrors "github.com/loamstore/access/internal/errors"
)

// ErrorCode identifies why a security decision failed.
type ErrorCode string

// The closed set of caller-visible failure reasons. Backend-specific error
// shapes never cross the engine boundary; they are translated to one of
// these.
const (
	ErrCodeBadCredentials   ErrorCode = "BAD_CREDENTIALS"
	ErrCodeInvalidInstance  ErrorCode = "INVALID_INSTANCE"
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	ErrCodeUserDoesntExist  ErrorCode = "USER_DOESNT_EXIST"
	ErrCodeTableDoesntExist ErrorCode = "TABLE_DOESNT_EXIST"
	ErrCodeGrantInvalid     ErrorCode = "GRANT_INVALID"
)

// Error is a typed security failure attributed to a user name.
// It unwraps to the matching sentinel in internal/errors so the HTTP layer
// can map it to a status code without knowing the taxonomy.
type Error struct {
	User string
	Code ErrorCode
}

// NewError builds a security error attributed to the given user.
func NewError(user string, code ErrorCode) *Error {
	return &Error{User: user, Code: code}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("security error for user %q: %s", e.User, e.Code)
}

// ErrorCode returns the reason code for transport-layer error payloads.
func (e *Error) ErrorCode() string {
	return string(e.Code)
}

// Unwrap maps the reason code onto the shared sentinel errors.
func (e *Error) Unwrap() error {
	switch e.Code {
	case ErrCodeBadCredentials, ErrCodeInvalidInstance:
		return apperrors.ErrUnauthorized
	case ErrCodePermissionDenied, ErrCodeGrantInvalid:
		return apperrors.ErrForbidden
	case ErrCodeUserDoesntExist, ErrCodeTableDoesntExist:
		return apperrors.ErrNotFound
	}
	return nil
}

// IsCode reports whether err is a security Error carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	var se *Error
	if !apperrors.As(err, &se) {
		return false
	}
	return se.Code == code
}

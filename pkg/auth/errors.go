package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to clients.
const (
	CodeValidation         = "validation_error"
	CodeInvalidCredentials = "invalid_credentials"
	CodeRoleMismatch       = "role_mismatch"
	CodeAccountInactive    = "account_inactive"
	CodeUnauthorized       = "unauthorized"
	CodeForbidden          = "forbidden"
	CodeRateLimited        = "too_many_requests"
	CodeServer             = "server_error"
)

// Error is a client-safe authentication failure. The wrapped cause is for
// server-side logging only and never reaches the response body.
type Error struct {
	Code    string
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return e.Code + ": " + e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error with the same code, so errors.Is(err, ErrUnauthorized)
// holds for every unauthorized variant.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

var (
	ErrValidation = &Error{Code: CodeValidation, Status: http.StatusBadRequest, Message: "Invalid request"}

	// ErrInvalidCredentials is returned for both unknown usernames and wrong
	// passwords.
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Status: http.StatusUnauthorized, Message: "Invalid username or password"}

	ErrRoleMismatch    = &Error{Code: CodeRoleMismatch, Status: http.StatusForbidden, Message: "Role mismatch"}
	ErrAccountInactive = &Error{Code: CodeAccountInactive, Status: http.StatusForbidden, Message: "Account is inactive"}

	// ErrUnauthorized covers malformed, expired, forged and revoked tokens alike.
	ErrUnauthorized = &Error{Code: CodeUnauthorized, Status: http.StatusUnauthorized, Message: "Unauthorized"}

	ErrForbidden   = &Error{Code: CodeForbidden, Status: http.StatusForbidden, Message: "Insufficient role"}
	ErrRateLimited = &Error{Code: CodeRateLimited, Status: http.StatusTooManyRequests, Message: "Too many attempts, try again later"}
	ErrServer      = &Error{Code: CodeServer, Status: http.StatusInternalServerError, Message: "Internal server error"}

	// ErrAccountNotFound is returned by AccountStore implementations. It never
	// leaves the gateway.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists is returned by AccountStore.Create on a duplicate username.
	ErrAccountExists = errors.New("account already exists")

	// ErrInvalidToken is returned by Codec.Decode for every rejected token.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Validation returns a validation error with a specific message.
func Validation(message string) *Error {
	cp := *ErrValidation
	cp.Message = message
	return &cp
}

// RoleMismatch names both the requested and the actual role. Revealing the
// actual role is deliberate; it lets the login page redirect the user.
func RoleMismatch(requested string, actual Role) *Error {
	cp := *ErrRoleMismatch
	cp.Message = fmt.Sprintf("Role mismatch: requested %q but account role is %q", requested, actual)
	return &cp
}

// AsError converts any error into an *Error, mapping unknown errors to ErrServer.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrServer.Wrap(err)
}

package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an authentication failure.
type Kind string

// Failure kinds.
const (
	KindMissingToken       Kind = "missing_token"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindInvalidToken       Kind = "invalid_token"
	KindNotAnAdmin         Kind = "not_an_admin"
	KindInternal           Kind = "internal"
)

// Sentinel errors for authentication failures. The Message is the only part
// that reaches the client; causes and audit detail stay in server logs.
var (
	// ErrMissingToken indicates that no credential was presented.
	ErrMissingToken = &Error{Kind: KindMissingToken, Message: "missing authorization token"}

	// ErrInvalidCredentials indicates a failed username/password login.
	// Unknown user and wrong password are deliberately indistinguishable.
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "invalid username or password"}

	// ErrInvalidToken indicates a malformed or unverifiable token.
	ErrInvalidToken = &Error{Kind: KindInvalidToken, Message: "invalid authorization token"}

	// ErrNotAnAdmin indicates a verified bearer token without the admin role.
	ErrNotAnAdmin = &Error{Kind: KindNotAnAdmin, Message: "admin role required"}
)

// Error is a typed authentication failure.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth error (%s): %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("auth error (%s): %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors of the same Kind.
func (e *Error) Is(target error) bool {
	var authErr *Error
	if errors.As(target, &authErr) {
		return authErr.Kind == e.Kind
	}
	return false
}

// Status returns the HTTP status code for the failure.
func (e *Error) Status() int {
	switch e.Kind {
	case KindMissingToken, KindInvalidCredentials, KindInvalidToken:
		return http.StatusUnauthorized
	case KindNotAnAdmin:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ClientMessage returns the message exposed to the client. Internal failures
// are masked; the full detail is available to server-side logging only.
func (e *Error) ClientMessage() string {
	if e.Kind == KindInternal {
		return "internal server error"
	}
	return e.Message
}

// Internal wraps an unexpected failure. The message reaching the client is
// always masked regardless of the wrapped detail.
func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Cause: cause}
}

// Unauthorized wraps a token verification failure from the JWT library,
// preserving the library error for logs while the client sees the generic
// invalid-token message.
func Unauthorized(cause error) *Error {
	return &Error{Kind: KindInvalidToken, Message: ErrInvalidToken.Message, Cause: cause}
}

// AsError coerces any error into a typed *Error, wrapping unknown errors as
// internal failures.
func AsError(err error) *Error {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr
	}
	return Internal("unexpected error", err)
}

package domain

import "errors"

// Kind is a stable error category that crosses the service boundary.
// Handlers map kinds to HTTP status codes; internal store or crypto
// error text never leaves the service unwrapped.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindInvalidCredentials  Kind = "invalid_credentials"
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindAccountLocked       Kind = "account_locked"
	KindAuthorization       Kind = "authorization"
	KindUnauthorized        Kind = "unauthorized"
	KindUnsupportedProvider Kind = "unsupported_provider"
	KindInvalidToken        Kind = "invalid_token"
	KindTokenMismatch       Kind = "token_mismatch"
	KindUnavailable         Kind = "service_unavailable"
	KindInternal            Kind = "internal"
)

// Error is the taxonomy error carried across the auth boundary.
type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, for logs only
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E creates a taxonomy error with no underlying cause.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a lower-level cause to a taxonomy error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

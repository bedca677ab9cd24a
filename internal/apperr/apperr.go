// Package apperr defines the platform's error kinds and their HTTP mapping.
package apperr

import "fmt"

// Kind is one of the error categories the gateway maps to a status code.
type Kind string

const (
	BadRequest          Kind = "bad_request"
	Unauthenticated     Kind = "unauthenticated"
	Forbidden           Kind = "forbidden"
	NotFound            Kind = "not_found"
	Conflict            Kind = "conflict"
	QuotaExceeded       Kind = "quota_exceeded"
	RateLimited         Kind = "rate_limited"
	UpstreamUnavailable Kind = "upstream_unavailable"
	Internal            Kind = "internal"
)

// Error carries a Kind plus a human message and optional structured detail,
// matching the `{error:{code,message,details?}}` response envelope.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func WithDetails(kind Kind, message string, details map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

// As extracts an *Error from err if present.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}

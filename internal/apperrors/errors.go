// Package apperrors provides the structured error taxonomy shared by all
// handlers and adapters. Every failure that crosses a package boundary
// carries a Kind so callers map it to an HTTP status without ever parsing
// error text.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for HTTP response mapping.
type Kind string

const (
	// KindValidation marks bad or missing caller input.
	KindValidation Kind = "validation"
	// KindAuth marks a bad or missing bearer token.
	KindAuth Kind = "auth"
	// KindNotFound marks a document that does not exist in the store.
	KindNotFound Kind = "not_found"
	// KindConflict marks a rejected write precondition (stale revision).
	KindConflict Kind = "conflict"
	// KindUpstream marks a non-success response from a remote dependency.
	KindUpstream Kind = "upstream"
	// KindConfig marks a missing required configuration value.
	KindConfig Kind = "config"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a classified error around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of err, or KindUpstream when err carries none.
// A nil error has no kind and returns the empty string.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUpstream
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPError represents a raw HTTP error from a remote API, kept for
// debugging alongside the classified wrapper.
type HTTPError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// NewHTTPError creates a new HTTPError.
func NewHTTPError(statusCode int, body string) *HTTPError {
	return &HTTPError{StatusCode: statusCode, Body: body}
}

// Common static errors used throughout the application.
var (
	// ErrStoreNotConfigured is returned when a remote store operation is
	// attempted without ALB_GITHUB_REPO and ALB_GITHUB_TOKEN set.
	ErrStoreNotConfigured = errors.New("remote store not configured (set ALB_GITHUB_REPO and ALB_GITHUB_TOKEN)")

	// ErrEmailNotConfigured is returned when sending email without ALB_RESEND_API_KEY set.
	ErrEmailNotConfigured = errors.New("email not configured (set ALB_RESEND_API_KEY)")

	// ErrMaxRetriesExceeded is returned when the maximum number of retries is exceeded.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")

	// ErrEmptyDocumentKey is returned when a store operation receives an empty key.
	ErrEmptyDocumentKey = errors.New("document key cannot be empty")
)

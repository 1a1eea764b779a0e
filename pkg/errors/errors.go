package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error independently of transport
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidArgument
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindInvalidState
	KindConflict
	KindRateLimited
	KindUpstreamUnavailable
	KindUpstreamTimeout
)

// String returns the wire code for the kind
func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "INVALID_ARGUMENT"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindForbidden:
		return "FORBIDDEN"
	case KindNotFound:
		return "NOT_FOUND"
	case KindInvalidState:
		return "INVALID_STATE"
	case KindConflict:
		return "CONFLICT"
	case KindRateLimited:
		return "RATE_LIMITED"
	case KindUpstreamUnavailable:
		return "UPSTREAM_UNAVAILABLE"
	case KindUpstreamTimeout:
		return "UPSTREAM_TIMEOUT"
	case KindInternal:
		return "INTERNAL_ERROR"
	}
	return "INTERNAL_ERROR"
}

// StatusCode maps the kind onto an HTTP status
func (k Kind) StatusCode() int {
	switch k {
	case KindInvalidArgument, KindInvalidState:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// Retryable reports whether the caller should retry the same request later
func (k Kind) Retryable() bool {
	switch k {
	case KindUpstreamUnavailable, KindUpstreamTimeout, KindRateLimited:
		return true
	}
	return false
}

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	Kind       Kind   `json:"-"`
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
	// Err is the underlying cause. It is logged, never rendered.
	Err error `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the cause to errors.Is / errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// Wrap records the underlying cause
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// New creates an application error of the given kind
func New(kind Kind, message string) *AppError {
	return &AppError{
		Kind:       kind,
		StatusCode: kind.StatusCode(),
		Code:       kind.String(),
		Message:    message,
	}
}

// Newf is New with formatting
func Newf(kind Kind, format string, args ...any) *AppError {
	return New(kind, fmt.Sprintf(format, args...))
}

func InvalidArgument(message string) *AppError { return New(KindInvalidArgument, message) }
func Unauthorized(message string) *AppError    { return New(KindUnauthorized, message) }
func Forbidden(message string) *AppError       { return New(KindForbidden, message) }
func NotFound(message string) *AppError        { return New(KindNotFound, message) }
func InvalidState(message string) *AppError    { return New(KindInvalidState, message) }
func Conflict(message string) *AppError        { return New(KindConflict, message) }
func RateLimited(message string) *AppError     { return New(KindRateLimited, message) }

// UpstreamUnavailable marks a failed or misconfigured external dependency
func UpstreamUnavailable(message string, cause error) *AppError {
	return New(KindUpstreamUnavailable, message).Wrap(cause)
}

// UpstreamTimeout marks an external dependency that exceeded its deadline
func UpstreamTimeout(message string, cause error) *AppError {
	return New(KindUpstreamTimeout, message).Wrap(cause)
}

// Internal hides the cause behind a generic message
func Internal(cause error) *AppError {
	return New(KindInternal, "An unexpected error occurred").Wrap(cause)
}

// FromError converts any error to an AppError.
// Unknown errors become Internal so their text never reaches the client.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// KindOf returns the kind of err, KindInternal for foreign errors
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind checks whether err is an AppError of the given kind
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Kind == kind
}

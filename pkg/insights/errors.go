package insights

import (
	"errors"
	"fmt"
)

// ErrorKind identifies the stable category of a request failure.
type ErrorKind string

// The exhaustive failure taxonomy. Every error surfaced by the client
// carries exactly one of these kinds.
const (
	KindTimeout          ErrorKind = "timeout"
	KindConnectionError  ErrorKind = "connection_error"
	KindUnauthorized     ErrorKind = "unauthorized"
	KindForbidden        ErrorKind = "forbidden"
	KindNotFound         ErrorKind = "not_found"
	KindConflict         ErrorKind = "conflict"
	KindValidationFailed ErrorKind = "validation_failed"
	KindRateLimited      ErrorKind = "rate_limited"
	KindServerError      ErrorKind = "server_error"
	KindCancelled        ErrorKind = "cancelled"
	KindUnknown          ErrorKind = "unknown"
)

// ClassifiedError is the stable representation of any failure surfaced to
// callers. It is created once per failed attempt and never mutated.
type ClassifiedError struct {
	// Kind is the taxonomy category.
	Kind ErrorKind

	// StatusCode is the HTTP status, if the failure came from a response.
	StatusCode int

	// Message is a locale-free technical description.
	Message string

	// Retryable reports whether the retry step may re-dispatch the request.
	// It is derived from Kind and the request method's idempotency.
	Retryable bool

	// Cause is the original failure, if any.
	Cause error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Kind, e.Message, e.StatusCode)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the original failure for errors.Is/errors.As chains.
func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

// Static errors that can be wrapped with context.
var (
	ErrCacheMiss            = errors.New("cache: key not found")
	ErrConfigRequired       = errors.New("config is required")
	ErrBaseURLRequired      = errors.New("base URL is required")
	ErrNATSConfigRequired   = errors.New("NATS configuration required for NATS cache")
	ErrRedisConfigRequired  = errors.New("redis configuration required for redis cache")
	ErrUnsupportedCacheType = errors.New("unsupported cache type")
)

// AsClassified extracts a *ClassifiedError from an error chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	classified := &ClassifiedError{}
	if errors.As(err, &classified) {
		return classified, true
	}

	return nil, false
}

// kindOf returns the kind of a classified error, or KindUnknown.
func kindOf(err error) ErrorKind {
	if classified, ok := AsClassified(err); ok {
		return classified.Kind
	}

	return KindUnknown
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return kindOf(err) == KindNotFound
}

// IsUnauthorized checks if the error is an unauthorized error.
func IsUnauthorized(err error) bool {
	return kindOf(err) == KindUnauthorized
}

// IsForbidden checks if the error is a forbidden error.
func IsForbidden(err error) bool {
	return kindOf(err) == KindForbidden
}

// IsCancelled checks if the error represents an explicit cancellation.
func IsCancelled(err error) bool {
	return kindOf(err) == KindCancelled
}

// IsRetryable reports whether the failure was classified as retryable.
func IsRetryable(err error) bool {
	classified, ok := AsClassified(err)

	return ok && classified.Retryable
}

package insights

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// IdempotentMethod reports whether the HTTP method is safe to repeat
// without changing server-side state twice.
func IdempotentMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// Classify maps a failed attempt to a ClassifiedError. A transport-level
// failure is passed as cause with statusCode 0; a protocol-level failure is
// passed as a non-2xx statusCode with a nil cause. hasIdempotencyKey marks a
// non-idempotent request that carries an explicit idempotency key and may
// therefore be retried on Timeout/ServerError.
func Classify(method string, hasIdempotencyKey bool, statusCode int, cause error) *ClassifiedError {
	kind, message := classifyKind(statusCode, cause)

	return &ClassifiedError{
		Kind:       kind,
		StatusCode: statusCode,
		Message:    message,
		Retryable:  retryable(kind, method, hasIdempotencyKey),
		Cause:      cause,
	}
}

func classifyKind(statusCode int, cause error) (ErrorKind, string) {
	if cause != nil {
		return classifyTransportFailure(cause)
	}

	return classifyStatus(statusCode)
}

func classifyTransportFailure(cause error) (ErrorKind, string) {
	// Cancellation takes precedence: a cancelled context often also
	// surfaces as a net error.
	if errors.Is(cause, context.Canceled) {
		return KindCancelled, "request cancelled"
	}

	if errors.Is(cause, context.DeadlineExceeded) {
		return KindTimeout, "request deadline exceeded"
	}

	var netErr net.Error
	if errors.As(cause, &netErr) && netErr.Timeout() {
		return KindTimeout, "request timed out"
	}

	var opErr *net.OpError
	if errors.As(cause, &opErr) {
		return KindConnectionError, fmt.Sprintf("connection failed: %s", opErr.Op)
	}

	return KindUnknown, cause.Error()
}

func classifyStatus(statusCode int) (ErrorKind, string) {
	switch {
	case statusCode == http.StatusUnauthorized:
		return KindUnauthorized, "authentication required"
	case statusCode == http.StatusForbidden:
		return KindForbidden, "access denied"
	case statusCode == http.StatusNotFound:
		return KindNotFound, "resource not found"
	case statusCode == http.StatusConflict:
		return KindConflict, "resource conflict"
	case statusCode == http.StatusUnprocessableEntity:
		return KindValidationFailed, "request validation failed"
	case statusCode == http.StatusTooManyRequests:
		return KindRateLimited, "rate limit exceeded"
	case statusCode >= 500:
		return KindServerError, "server error"
	default:
		return KindUnknown, fmt.Sprintf("unexpected response status %d", statusCode)
	}
}

// retryable derives retry eligibility from the kind and the request
// method's idempotency. Timeout and ServerError on a non-idempotent method
// are downgraded to non-retryable unless the request carries an explicit
// idempotency key, to avoid duplicate side effects.
func retryable(kind ErrorKind, method string, hasIdempotencyKey bool) bool {
	switch kind {
	case KindConnectionError, KindRateLimited:
		return true
	case KindTimeout, KindServerError:
		return IdempotentMethod(method) || hasIdempotencyKey
	default:
		return false
	}
}

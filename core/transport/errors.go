package transport

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/leofalp/gemkit/internal/utils"
)

// Sentinel errors for the HTTP status codes the Gemini API documents. A
// [*StatusError] unwraps to one of them so callers can use [errors.Is]
// without looking at status codes.
var (
	ErrRequestRejected   = errors.New("gemkit: request rejected")
	ErrPermissionDenied  = errors.New("gemkit: permission denied")
	ErrNotFound          = errors.New("gemkit: resource not found")
	ErrRateLimited       = errors.New("gemkit: rate limit exceeded")
	ErrServerError       = errors.New("gemkit: internal server error")
	ErrServerUnavailable = errors.New("gemkit: service unavailable")
	ErrServerTimeout     = errors.New("gemkit: server deadline exceeded")
	ErrUnexpectedStatus  = errors.New("gemkit: unexpected status")
)

// ErrRetryExhausted is returned by the retry middleware when all attempts
// failed with retryable errors. The last underlying error is wrapped as well.
//
// Example:
//
//	if errors.Is(err, transport.ErrRetryExhausted) {
//	    // all retries failed
//	}
var ErrRetryExhausted = errors.New("gemkit: all retry attempts exhausted")

// StatusError describes a non-2xx reply from the API.
type StatusError struct {
	StatusCode int
	Body       []byte
	// Retryable reports whether repeating the same request may succeed.
	Retryable bool

	sentinel error
}

// errorBodyPreview caps how much of the reply body ends up in Error().
const errorBodyPreview = 300

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%v (HTTP %d)", e.sentinel, e.StatusCode)
	if len(e.Body) > 0 {
		msg += ": " + utils.TruncateString(string(e.Body), errorBodyPreview)
	}
	return msg
}

func (e *StatusError) Unwrap() error {
	return e.sentinel
}

// NewStatusError maps a status code and reply body to a [*StatusError].
func NewStatusError(statusCode int, body []byte) *StatusError {
	e := &StatusError{StatusCode: statusCode, Body: body}

	switch statusCode {
	case http.StatusBadRequest:
		e.sentinel = ErrRequestRejected
	case http.StatusForbidden:
		e.sentinel = ErrPermissionDenied
	case http.StatusNotFound:
		e.sentinel = ErrNotFound
	case http.StatusTooManyRequests:
		e.sentinel, e.Retryable = ErrRateLimited, true
	case http.StatusInternalServerError:
		e.sentinel, e.Retryable = ErrServerError, true
	case http.StatusServiceUnavailable:
		e.sentinel, e.Retryable = ErrServerUnavailable, true
	case http.StatusGatewayTimeout:
		// not retried
		e.sentinel = ErrServerTimeout
	default:
		e.sentinel = ErrUnexpectedStatus
	}

	return e
}

// IsRetryable reports whether err carries a retryable [*StatusError].
func IsRetryable(err error) bool {
	statusErr, ok := asStatusError(err)
	return ok && statusErr.Retryable
}

func asStatusError(err error) (*StatusError, bool) {
	var statusErr *StatusError
	ok := errors.As(err, &statusErr)
	return statusErr, ok
}

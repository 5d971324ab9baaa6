package gemini

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/leofalp/gemkit/core/transport"
	"github.com/leofalp/gemkit/internal/utils"
)

var (
	// ErrConfiguration reports invalid builder usage: a schema mutator on the
	// wrong kind, an unsupported image extension, a tool without a name.
	ErrConfiguration = errors.New("gemkit: invalid configuration")

	// ErrRetrieval reports that an image could not be fetched or read.
	ErrRetrieval = errors.New("gemkit: retrieval failed")

	// ErrRequestRejected matches both an HTTP 400 reply and a 2xx reply whose
	// body carries a top-level "error" field.
	ErrRequestRejected = transport.ErrRequestRejected

	// ErrResponseUnusable reports a reply that cannot be acted upon: an
	// unknown tool, malformed call arguments, a structured output that does
	// not decode, or a refusal the caller asked to fail on.
	ErrResponseUnusable = errors.New("gemkit: response unusable")

	// ErrTurnLimitExceeded is returned when a run keeps producing function
	// calls past [MaxTurns].
	ErrTurnLimitExceeded = errors.New("gemkit: turn limit exceeded")
)

// RequestRejectedError carries the raw reply of a request the API rejected
// in-band. It matches [ErrRequestRejected] with errors.Is.
type RequestRejectedError struct {
	Payload json.RawMessage
}

func (e *RequestRejectedError) Error() string {
	return fmt.Sprintf("%v: gemini api returned an error: %s", ErrRequestRejected, utils.TruncateString(string(e.Payload), 300))
}

func (e *RequestRejectedError) Unwrap() error {
	return ErrRequestRejected
}

// Message returns error.message from the payload, or "".
func (e *RequestRejectedError) Message() string {
	return gjson.GetBytes(e.Payload, "error.message").String()
}

// Code returns error.code from the payload, or 0.
func (e *RequestRejectedError) Code() int {
	return int(gjson.GetBytes(e.Payload, "error.code").Int())
}

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func unusableErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrResponseUnusable, fmt.Sprintf(format, args...))
}

package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/leofalp/gemkit/core/parse"
)

const (
	pathParts   = "candidates.0.content.parts"
	pathContent = "candidates.0.content"
)

// Response wraps a generateContent reply. Its accessors never fail: a field
// that is missing or has an unexpected type reads as "", false or nil,
// because the reply shape depends on how generation finished.
type Response struct {
	raw     []byte
	request *Request
}

// NewResponse wraps raw, which must be a JSON object. req may be nil.
func NewResponse(raw []byte, req *Request) (*Response, error) {
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return nil, unusableErrorf("reply is not a JSON object: %.200s", raw)
	}
	return &Response{raw: raw, request: req}, nil
}

// JSON returns the raw reply.
func (r *Response) JSON() []byte { return r.raw }

// Request returns the request that produced this reply.
func (r *Response) Request() *Request { return r.request }

func (r *Response) get(path string) gjson.Result {
	return gjson.GetBytes(r.raw, path)
}

// HasError reports whether the reply carries a top-level "error" field.
func (r *Response) HasError() bool {
	return r.get("error").Exists()
}

// AssistantMessage concatenates the text parts of the first candidate.
// ok is false when the parts array cannot be reached at all (no candidates,
// blocked prompt). When parts exist but none carries text, the message is
// "" and ok is true.
func (r *Response) AssistantMessage() (message string, ok bool) {
	parts := r.get(pathParts)
	if !parts.IsArray() {
		return "", false
	}

	var sb strings.Builder
	for _, p := range parts.Array() {
		if text := p.Get("text"); text.Type == gjson.String {
			sb.WriteString(text.String())
		}
	}
	return sb.String(), true
}

// Text is AssistantMessage without the reachability flag.
func (r *Response) Text() string {
	text, _ := r.AssistantMessage()
	return text
}

// Thoughts concatenates the parts flagged as thought summaries.
func (r *Response) Thoughts() string {
	var sb strings.Builder
	for _, p := range r.get(pathParts).Array() {
		if p.Get("thought").Bool() {
			sb.WriteString(p.Get("text").String())
		}
	}
	return sb.String()
}

// FinishReason returns the first candidate's finishReason, or "".
func (r *Response) FinishReason() string {
	return r.stringAt("candidates.0.finishReason")
}

// HasRefusal reports whether the first candidate's content carries a
// non-null refusal.
func (r *Response) HasRefusal() bool {
	refusal := r.get(pathContent + ".refusal")
	return refusal.Exists() && refusal.Type != gjson.Null
}

// Refusal returns the refusal text, or "".
func (r *Response) Refusal() string {
	return r.stringAt(pathContent + ".refusal")
}

// FailOnRefusal returns an error wrapping [ErrResponseUnusable] when the
// model refused, and nil otherwise.
func (r *Response) FailOnRefusal() error {
	if r.HasRefusal() {
		return unusableErrorf("model refused to comply: %s", r.Refusal())
	}
	return nil
}

// BlockReason returns promptFeedback.blockReason, or "".
func (r *Response) BlockReason() string {
	return r.stringAt("promptFeedback.blockReason")
}

// ModelVersion returns the modelVersion the API reported, or "".
func (r *Response) ModelVersion() string {
	return r.stringAt("modelVersion")
}

// Usage returns the token counts, zero when absent.
func (r *Response) Usage() Usage {
	meta := r.get("usageMetadata")
	return Usage{
		PromptTokens:     int(meta.Get("promptTokenCount").Int()),
		CandidatesTokens: int(meta.Get("candidatesTokenCount").Int()),
		ThoughtsTokens:   int(meta.Get("thoughtsTokenCount").Int()),
		CachedTokens:     int(meta.Get("cachedContentTokenCount").Int()),
		TotalTokens:      int(meta.Get("totalTokenCount").Int()),
	}
}

// FunctionCalls returns the function calls of the first candidate in part
// order. Malformed entries are skipped; an unreachable path yields nil.
func (r *Response) FunctionCalls() []FunctionCall {
	var calls []FunctionCall
	for _, p := range r.get(pathParts).Array() {
		fc := p.Get("functionCall")
		if !fc.IsObject() {
			continue
		}
		call := FunctionCall{Name: fc.Get("name").String()}
		if args := fc.Get("args"); args.Exists() {
			call.Args = json.RawMessage(args.Raw)
		}
		calls = append(calls, call)
	}
	return calls
}

// Content returns the first candidate's content as a Message that
// re-serializes byte for byte.
func (r *Response) Content() (Message, bool) {
	content := r.get(pathContent)
	if !content.IsObject() {
		return Message{}, false
	}
	msg, err := MessageFromRaw(json.RawMessage(content.Raw))
	if err != nil {
		return Message{}, false
	}
	return msg, true
}

// Parsed decodes the assistant message as a JSON object. Unlike the other
// accessors it fails, with [ErrResponseUnusable], when there is no message
// or it is not a JSON object.
func (r *Response) Parsed() (map[string]any, error) {
	text, ok := r.AssistantMessage()
	if !ok {
		return nil, unusableErrorf("reply has no assistant message")
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("%w: assistant message is not a JSON object: %w", ErrResponseUnusable, err)
	}
	if out == nil {
		return nil, unusableErrorf("assistant message is null")
	}
	return out, nil
}

// ConvertTo decodes the assistant message into v, which must be a non-nil
// pointer. Failures wrap [ErrResponseUnusable] and the decode error.
func (r *Response) ConvertTo(v any) error {
	text, ok := r.AssistantMessage()
	if !ok {
		return unusableErrorf("reply has no assistant message")
	}
	if err := parse.Into(text, v); err != nil {
		return fmt.Errorf("%w: %w", ErrResponseUnusable, err)
	}
	return nil
}

// Decode decodes the assistant message of r into a T.
//
//	forecast, err := gemini.Decode[Forecast](resp)
func Decode[T any](r *Response) (T, error) {
	var out T
	if r == nil {
		return out, unusableErrorf("nil response")
	}
	err := r.ConvertTo(&out)
	return out, err
}

func (r *Response) stringAt(path string) string {
	v := r.get(path)
	if v.Type != gjson.String {
		return ""
	}
	return v.String()
}

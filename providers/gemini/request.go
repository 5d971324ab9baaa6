package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/leofalp/gemkit/internal/utils"
)

// Request is an immutable generateContent call. It implements
// transport.Request. Build one with [RequestBuilder].
type Request struct {
	model             string
	temperature       *float64
	topK              *int
	topP              *float64
	maxOutputTokens   *int
	stopSequences     []string
	safetySettings    []SafetySetting
	systemInstruction string
	thinkingBudget    *int
	tools             []ToolDefinition
	parallelToolCalls *bool
	responseSchema    *Schema
	responseMimeType  string
	messages          []Message
	timeout           time.Duration

	onSuccess func(*Response)
	onError   func(*Request, error)
}

// Model, the sampling parameters and the stop list are returned as copies;
// unset pointers read as nil. ResponseSchema returns a copy too.
func (r *Request) Model() string             { return r.model }
func (r *Request) Temperature() *float64     { return clonePtr(r.temperature) }
func (r *Request) TopK() *int                { return clonePtr(r.topK) }
func (r *Request) TopP() *float64            { return clonePtr(r.topP) }
func (r *Request) MaxOutputTokens() *int     { return clonePtr(r.maxOutputTokens) }
func (r *Request) StopSequences() []string   { return slices.Clone(r.stopSequences) }
func (r *Request) SystemInstruction() string { return r.systemInstruction }
func (r *Request) ResponseSchema() *Schema   { return r.responseSchema.clone() }
func (r *Request) ResponseMimeType() string  { return r.responseMimeType }

// SafetySettings returns a copy of the safety settings.
func (r *Request) SafetySettings() []SafetySetting { return slices.Clone(r.safetySettings) }

// ThinkingBudget returns nil when no budget was set.
func (r *Request) ThinkingBudget() *int { return clonePtr(r.thinkingBudget) }

// Tools returns a copy of the tool list.
func (r *Request) Tools() []ToolDefinition { return slices.Clone(r.tools) }

// ParallelToolCalls reports the flag; unset reads as false.
func (r *Request) ParallelToolCalls() bool {
	return r.parallelToolCalls != nil && *r.parallelToolCalls
}

// Messages returns a copy of the conversation.
func (r *Request) Messages() []Message { return cloneMessages(r.messages) }

// RelativePath is the endpoint path for the model.
func (r *Request) RelativePath() string {
	model := strings.TrimPrefix(r.model, "models/")
	return "/v1beta/models/" + url.PathEscape(model) + ":generateContent"
}

// Method is always POST.
func (r *Request) Method() string { return http.MethodPost }

// Timeout is the time limit of one send. Zero means none.
func (r *Request) Timeout() time.Duration { return r.timeout }

// Body serializes the request to the generateContent wire format.
func (r *Request) Body() ([]byte, error) {
	body := generateContentRequest{
		Contents:       r.messages,
		SafetySettings: r.safetySettings,
	}
	if body.Contents == nil {
		body.Contents = []Message{}
	}

	if strings.TrimSpace(r.systemInstruction) != "" {
		body.SystemInstruction = &systemInstruction{Parts: []Part{{Text: r.systemInstruction}}}
	}

	if r.hasGenerationConfig() {
		cfg := &generationConfig{
			Temperature:      r.temperature,
			TopK:             r.topK,
			TopP:             r.topP,
			MaxOutputTokens:  r.maxOutputTokens,
			StopSequences:    r.stopSequences,
			ResponseMimeType: strings.TrimSpace(r.responseMimeType),
			ResponseSchema:   r.responseSchema,
		}
		if r.thinkingBudget != nil {
			cfg.ThinkingConfig = &thinkingConfig{ThinkingBudget: *r.thinkingBudget}
		}
		body.GenerationConfig = cfg
	}

	if len(r.tools) > 0 {
		body.Tools = []tool{{FunctionDeclarations: r.tools}}
		mode := FunctionCallingAuto
		if r.ParallelToolCalls() {
			mode = FunctionCallingAny
		}
		body.ToolConfig = &toolConfig{FunctionCallingConfig: functionCallingConfig{Mode: mode}}
	}

	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal generateContent request: %w", err)
	}
	return b, nil
}

// hasGenerationConfig reports whether any field of generationConfig is set.
func (r *Request) hasGenerationConfig() bool {
	return r.temperature != nil ||
		r.topK != nil ||
		r.topP != nil ||
		r.maxOutputTokens != nil ||
		len(r.stopSequences) > 0 ||
		strings.TrimSpace(r.responseMimeType) != "" ||
		r.responseSchema != nil ||
		r.thinkingBudget != nil
}

// withMessages returns a copy of r with every field cloned and the
// conversation replaced.
func (r *Request) withMessages(messages []Message) *Request {
	next := *r
	next.temperature = clonePtr(r.temperature)
	next.topK = clonePtr(r.topK)
	next.topP = clonePtr(r.topP)
	next.maxOutputTokens = clonePtr(r.maxOutputTokens)
	next.stopSequences = slices.Clone(r.stopSequences)
	next.safetySettings = slices.Clone(r.safetySettings)
	next.thinkingBudget = clonePtr(r.thinkingBudget)
	next.tools = slices.Clone(r.tools)
	next.parallelToolCalls = clonePtr(r.parallelToolCalls)
	next.messages = cloneMessages(messages)
	return &next
}

// RequestBuilder accumulates a Request. Setters are chainable; the first
// error raised by any of them is kept and returned by Build or Execute.
type RequestBuilder struct {
	client *Client
	req    Request
	err    error
}

// NewRequestBuilder returns a builder not bound to a client. Its requests
// can be sent with [CallHandler.HandleRequest] but not with Execute.
func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{req: Request{model: DefaultModel}}
}

func (b *RequestBuilder) setErr(err error) *RequestBuilder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Model sets the model name, with or without the "models/" prefix.
func (b *RequestBuilder) Model(model string) *RequestBuilder {
	b.req.model = model
	return b
}

// Temperature sets generationConfig.temperature.
func (b *RequestBuilder) Temperature(temperature float64) *RequestBuilder {
	b.req.temperature = utils.Ptr(temperature)
	return b
}

// TopK sets generationConfig.topK.
func (b *RequestBuilder) TopK(topK int) *RequestBuilder {
	b.req.topK = utils.Ptr(topK)
	return b
}

// TopP sets generationConfig.topP.
func (b *RequestBuilder) TopP(topP float64) *RequestBuilder {
	b.req.topP = utils.Ptr(topP)
	return b
}

// MaxOutputTokens caps the tokens generated per reply.
func (b *RequestBuilder) MaxOutputTokens(n int) *RequestBuilder {
	b.req.maxOutputTokens = utils.Ptr(n)
	return b
}

// StopSequences appends to the stop list.
func (b *RequestBuilder) StopSequences(sequences ...string) *RequestBuilder {
	b.req.stopSequences = append(b.req.stopSequences, sequences...)
	return b
}

// AddStopSequence appends one stop sequence.
func (b *RequestBuilder) AddStopSequence(sequence string) *RequestBuilder {
	return b.StopSequences(sequence)
}

// SafetySettings appends safety settings.
func (b *RequestBuilder) SafetySettings(settings ...SafetySetting) *RequestBuilder {
	b.req.safetySettings = append(b.req.safetySettings, settings...)
	return b
}

// AddSafetySetting appends one category/threshold pair.
func (b *RequestBuilder) AddSafetySetting(category, threshold string) *RequestBuilder {
	return b.SafetySettings(SafetySetting{Category: category, Threshold: threshold})
}

// Tools appends tools. When two tools share a name, the one added last
// handles calls to that name.
func (b *RequestBuilder) Tools(tools ...ToolDefinition) *RequestBuilder {
	b.req.tools = append(b.req.tools, tools...)
	return b
}

// AddTool appends one tool.
func (b *RequestBuilder) AddTool(tool ToolDefinition) *RequestBuilder {
	return b.Tools(tool)
}

// ParallelToolCalls selects function calling mode ANY (true) or AUTO (false).
func (b *RequestBuilder) ParallelToolCalls(parallel bool) *RequestBuilder {
	b.req.parallelToolCalls = utils.Ptr(parallel)
	return b
}

// ResponseSchema constrains the reply to schema. Pair it with
// ResponseMimeType("application/json").
func (b *RequestBuilder) ResponseSchema(schema *Schema) *RequestBuilder {
	b.req.responseSchema = schema
	return b
}

// ResponseMimeType sets the MIME type of the reply, "application/json" for
// structured output.
func (b *RequestBuilder) ResponseMimeType(mimeType string) *RequestBuilder {
	b.req.responseMimeType = mimeType
	return b
}

// SystemInstruction sets the system instruction. Blank means none.
func (b *RequestBuilder) SystemInstruction(instruction string) *RequestBuilder {
	b.req.systemInstruction = instruction
	return b
}

// Thinking sets the thinking budget in tokens. Without a call no thinking
// configuration is sent.
func (b *RequestBuilder) Thinking(budget int) *RequestBuilder {
	b.req.thinkingBudget = utils.Ptr(budget)
	return b
}

// Timeout bounds every send of the request, each turn of a run included.
func (b *RequestBuilder) Timeout(timeout time.Duration) *RequestBuilder {
	if timeout < 0 {
		return b.setErr(configErrorf("timeout must not be negative, got %s", timeout))
	}
	b.req.timeout = timeout
	return b
}

// AddMessage appends a single-part text message.
func (b *RequestBuilder) AddMessage(role Role, text string) *RequestBuilder {
	b.req.messages = append(b.req.messages, NewTextMessage(role, text))
	return b
}

// AddAllMessages appends prebuilt messages unchanged.
func (b *RequestBuilder) AddAllMessages(messages ...Message) *RequestBuilder {
	b.req.messages = append(b.req.messages, cloneMessages(messages)...)
	return b
}

// CaptureOnSuccess registers fn to observe every successful reply of the
// request, each turn included.
func (b *RequestBuilder) CaptureOnSuccess(fn func(*Response)) *RequestBuilder {
	b.req.onSuccess = fn
	return b
}

// CaptureOnError registers fn to observe every failed send of the request.
func (b *RequestBuilder) CaptureOnError(fn func(*Request, error)) *RequestBuilder {
	b.req.onError = fn
	return b
}

// Build returns the immutable Request. Nothing in the result is shared with
// the builder: slices, messages and the response schema are copied.
func (b *RequestBuilder) Build() (*Request, error) {
	if b.err != nil {
		return nil, b.err
	}
	if strings.TrimSpace(b.req.model) == "" {
		return nil, configErrorf("model must not be blank")
	}
	if b.req.responseSchema != nil {
		if err := b.req.responseSchema.Err(); err != nil {
			return nil, fmt.Errorf("response schema: %w", err)
		}
	}
	for _, t := range b.req.tools {
		if err := t.parameters.Err(); err != nil {
			return nil, fmt.Errorf("tool %q parameters: %w", t.name, err)
		}
	}

	req := b.req.withMessages(b.req.messages)
	req.responseSchema = b.req.responseSchema.clone()
	return req, nil
}

// Execute builds the request and runs it to completion, resolving every
// function call the model makes along the way.
func (b *RequestBuilder) Execute(ctx context.Context) (*Response, error) {
	return b.execute(ctx, false)
}

// ExecuteWithBackoff is Execute with transport retries on transient
// failures.
func (b *RequestBuilder) ExecuteWithBackoff(ctx context.Context) (*Response, error) {
	return b.execute(ctx, true)
}

func (b *RequestBuilder) execute(ctx context.Context, useBackoff bool) (*Response, error) {
	if b.client == nil {
		return nil, configErrorf("request builder is not bound to a client")
	}
	req, err := b.Build()
	if err != nil {
		return nil, err
	}
	return b.client.CallHandler().HandleRequest(ctx, req, useBackoff)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneMessages(messages []Message) []Message {
	if messages == nil {
		return nil
	}
	out := make([]Message, len(messages))
	for i, m := range messages {
		out[i] = m.clone()
	}
	return out
}

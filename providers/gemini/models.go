package gemini

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Model identifiers accepted by generateContent.
const (
	Model25Pro       = "gemini-2.5-pro"
	Model25Flash     = "gemini-2.5-flash"
	Model25FlashLite = "gemini-2.5-flash-lite"
	Model20Flash     = "gemini-2.0-flash"
	Model20FlashLite = "gemini-2.0-flash-lite"

	// DefaultModel is used when a request does not name one.
	DefaultModel = Model20FlashLite
)

// Role tags the author of a Message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

/*
	CONVERSATION TYPES
*/

// Message is one entry of the conversation sent in "contents".
//
// A Message captured from a model reply with [MessageFromRaw] keeps the exact
// bytes the API returned and serializes them unchanged, so fields this
// package does not model (thought signatures, for instance) survive the
// round trip.
type Message struct {
	Role  Role   `json:"role,omitempty"`
	Parts []Part `json:"parts"`

	raw json.RawMessage
}

// Part is one fragment of a Message. Exactly one of its fields is expected
// to be set.
type Part struct {
	Text             string            `json:"text,omitempty"`
	Thought          bool              `json:"thought,omitempty"`
	InlineData       *InlineData       `json:"inlineData,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// InlineData is base64-encoded binary content.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// FunctionCall is the model asking for a tool to be invoked.
type FunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// FunctionResponse is the result of a tool invocation sent back to the model.
type FunctionResponse struct {
	Name     string          `json:"name"`
	Response json.RawMessage `json:"response"`
}

// NewTextMessage returns a single-part text message.
func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Parts: []Part{{Text: text}}}
}

// MessageFromRaw decodes raw for inspection and keeps it for verbatim
// re-serialization.
func MessageFromRaw(raw json.RawMessage) (Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	m.raw = append(json.RawMessage(nil), raw...)
	return m, nil
}

// Text concatenates the non-thought text parts.
func (m Message) Text() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if !p.Thought {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// FunctionCalls returns the function-call parts in order.
func (m Message) FunctionCalls() []FunctionCall {
	var calls []FunctionCall
	for _, p := range m.Parts {
		if p.FunctionCall != nil {
			calls = append(calls, *p.FunctionCall)
		}
	}
	return calls
}

type messageJSON Message

func (m Message) MarshalJSON() ([]byte, error) {
	if m.raw != nil {
		return m.raw, nil
	}
	parts := m.Parts
	if parts == nil {
		parts = []Part{}
	}
	return json.Marshal(messageJSON{Role: m.Role, Parts: parts})
}

// clone deep-copies the message: parts, their payload pointers and the
// captured raw bytes.
func (m Message) clone() Message {
	out := m
	out.raw = cloneRaw(m.raw)
	if m.Parts != nil {
		out.Parts = make([]Part, len(m.Parts))
		for i, p := range m.Parts {
			out.Parts[i] = p.clone()
		}
	}
	return out
}

func (p Part) clone() Part {
	out := p
	if p.InlineData != nil {
		d := *p.InlineData
		out.InlineData = &d
	}
	if p.FunctionCall != nil {
		out.FunctionCall = &FunctionCall{Name: p.FunctionCall.Name, Args: cloneRaw(p.FunctionCall.Args)}
	}
	if p.FunctionResponse != nil {
		out.FunctionResponse = &FunctionResponse{Name: p.FunctionResponse.Name, Response: cloneRaw(p.FunctionResponse.Response)}
	}
	return out
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

/*
	SAFETY SETTINGS
*/

// SafetySetting pairs a harm category with a blocking threshold.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// Harm categories.
const (
	HarmCategoryHarassment       = "HARM_CATEGORY_HARASSMENT"
	HarmCategoryHateSpeech       = "HARM_CATEGORY_HATE_SPEECH"
	HarmCategorySexuallyExplicit = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	HarmCategoryDangerousContent = "HARM_CATEGORY_DANGEROUS_CONTENT"
	HarmCategoryCivicIntegrity   = "HARM_CATEGORY_CIVIC_INTEGRITY"
)

// Blocking thresholds.
const (
	BlockNone           = "BLOCK_NONE"
	BlockOnlyHigh       = "BLOCK_ONLY_HIGH"
	BlockMediumAndAbove = "BLOCK_MEDIUM_AND_ABOVE"
	BlockLowAndAbove    = "BLOCK_LOW_AND_ABOVE"
	BlockOff            = "OFF"
)

/*
	REQUEST WIRE TYPES
*/

// generateContentRequest is the body of models/{model}:generateContent.
type generateContentRequest struct {
	SystemInstruction *systemInstruction `json:"systemInstruction,omitempty"`
	Contents          []Message          `json:"contents"`
	SafetySettings    []SafetySetting    `json:"safetySettings,omitempty"`
	GenerationConfig  *generationConfig  `json:"generationConfig,omitempty"`
	Tools             []tool             `json:"tools,omitempty"`
	ToolConfig        *toolConfig        `json:"toolConfig,omitempty"`
}

type systemInstruction struct {
	Parts []Part `json:"parts"`
}

type generationConfig struct {
	Temperature      *float64        `json:"temperature,omitempty"`
	TopK             *int            `json:"topK,omitempty"`
	TopP             *float64        `json:"topP,omitempty"`
	MaxOutputTokens  *int            `json:"maxOutputTokens,omitempty"`
	StopSequences    []string        `json:"stopSequences,omitempty"`
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema         `json:"responseSchema,omitempty"`
	ThinkingConfig   *thinkingConfig `json:"thinkingConfig,omitempty"`
}

type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type tool struct {
	FunctionDeclarations []ToolDefinition `json:"functionDeclarations"`
}

type toolConfig struct {
	FunctionCallingConfig functionCallingConfig `json:"functionCallingConfig"`
}

type functionCallingConfig struct {
	Mode string `json:"mode"`
}

// Function calling modes.
const (
	FunctionCallingAny  = "ANY"
	FunctionCallingAuto = "AUTO"
)

/*
	RESPONSE
*/

// Usage is the token accounting of a reply's usageMetadata.
type Usage struct {
	PromptTokens     int `json:"promptTokenCount"`
	CandidatesTokens int `json:"candidatesTokenCount"`
	ThoughtsTokens   int `json:"thoughtsTokenCount"`
	CachedTokens     int `json:"cachedContentTokenCount"`
	TotalTokens      int `json:"totalTokenCount"`
}

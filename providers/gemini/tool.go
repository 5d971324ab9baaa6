package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/leofalp/gemkit/core/parse"
)

// ToolCall is one function call issued by the model.
type ToolCall struct {
	Name string
	Args json.RawMessage
}

// Arguments decodes the call arguments as a generic JSON object.
func (c ToolCall) Arguments() (map[string]any, error) {
	var args map[string]any
	if err := json.Unmarshal(c.Args, &args); err != nil {
		return nil, fmt.Errorf("decode arguments of %q: %w", c.Name, err)
	}
	return args, nil
}

// DecodeArgs decodes the call arguments into T.
func DecodeArgs[T any](c ToolCall) (T, error) {
	args, err := parse.ParseStringAs[T](string(c.Args))
	if err != nil {
		return args, fmt.Errorf("decode arguments of %q: %w", c.Name, err)
	}
	return args, nil
}

// ToolResult is what a callback hands back to the model. When Data is set it
// is serialized as the function response. Otherwise the response is
// {"content": Content}.
type ToolResult struct {
	Content string
	Data    any
}

// TextResult is shorthand for ToolResult{Content: content}.
func TextResult(content string) ToolResult {
	return ToolResult{Content: content}
}

func (r ToolResult) payload() (json.RawMessage, error) {
	if r.Data == nil {
		return json.Marshal(map[string]string{"content": r.Content})
	}

	b, err := json.Marshal(r.Data)
	if err != nil {
		return nil, err
	}
	if trimmed := strings.TrimSpace(string(b)); !strings.HasPrefix(trimmed, "{") {
		// functionResponse.response must be an object
		return json.Marshal(map[string]json.RawMessage{"content": b})
	}
	return b, nil
}

// ToolCallback executes a tool. Returning an error aborts the orchestration
// run.
type ToolCallback func(ctx context.Context, call ToolCall) (ToolResult, error)

// ToolDefinition is an immutable function declaration bound to its
// callback. It serializes to exactly name, description and parameters.
type ToolDefinition struct {
	name        string
	description string
	parameters  *Schema
	callback    ToolCallback
}

// Name is the function name the model calls.
func (t ToolDefinition) Name() string { return t.name }

// Description is the text the model sees for the tool.
func (t ToolDefinition) Description() string { return t.description }

// Parameters returns a copy of the object schema of the arguments.
func (t ToolDefinition) Parameters() *Schema { return t.parameters.clone() }

// Callback returns the bound callback.
func (t ToolDefinition) Callback() ToolCallback { return t.callback }

// Invoke runs the callback.
func (t ToolDefinition) Invoke(ctx context.Context, call ToolCall) (ToolResult, error) {
	if t.callback == nil {
		return ToolResult{}, configErrorf("tool %q has no callback", t.name)
	}
	return t.callback(ctx, call)
}

func (t ToolDefinition) MarshalJSON() ([]byte, error) {
	params := t.parameters
	if params == nil {
		params = ObjectSchema()
	}
	return json.Marshal(struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Parameters  *Schema `json:"parameters"`
	}{t.name, t.description, params})
}

// ToolBuilder accumulates a ToolDefinition.
type ToolBuilder struct {
	name        string
	description string
	parameters  *Schema
	callback    ToolCallback
	err         error
}

// NewTool starts a tool definition.
//
//	weather, err := gemini.NewTool("get_weather").
//	    Description("Current weather for a city").
//	    Parameter("city", gemini.StringSchema("City name"), true).
//	    Callback(getWeather).
//	    Build()
func NewTool(name string) *ToolBuilder {
	return &ToolBuilder{name: name, parameters: ObjectSchema()}
}

// Description sets the description the model sees.
func (b *ToolBuilder) Description(description string) *ToolBuilder {
	b.description = description
	return b
}

// Parameter declares an argument. Parameters accumulate in call order.
func (b *ToolBuilder) Parameter(name string, schema *Schema, required bool) *ToolBuilder {
	b.parameters.Property(name, schema, required)
	return b
}

// Parameters replaces the whole argument schema, which must be an object.
func (b *ToolBuilder) Parameters(schema *Schema) *ToolBuilder {
	if schema == nil || schema.Kind() != KindObject {
		b.err = errors.Join(b.err, configErrorf("tool %q: parameters must be an object schema", b.name))
		return b
	}
	b.parameters = schema
	return b
}

// Callback binds the function run for each call of the tool.
func (b *ToolBuilder) Callback(fn ToolCallback) *ToolBuilder {
	b.callback = fn
	return b
}

// Build validates and freezes the definition. The parameter schema is
// copied, so later changes to the builder or to schemas passed to it do not
// reach the result.
func (b *ToolBuilder) Build() (ToolDefinition, error) {
	if strings.TrimSpace(b.name) == "" {
		return ToolDefinition{}, configErrorf("tool name must not be blank")
	}
	if b.err != nil {
		return ToolDefinition{}, b.err
	}
	if err := b.parameters.Err(); err != nil {
		return ToolDefinition{}, fmt.Errorf("tool %q parameters: %w", b.name, err)
	}
	if b.callback == nil {
		return ToolDefinition{}, configErrorf("tool %q has no callback", b.name)
	}

	return ToolDefinition{
		name:        b.name,
		description: b.description,
		parameters:  b.parameters.clone(),
		callback:    b.callback,
	}, nil
}

// NewTypedTool builds a tool whose parameters are derived from I with
// [SchemaFor] and whose arguments are decoded into I before fn runs. The
// output O becomes the function response.
func NewTypedTool[I, O any](name, description string, fn func(ctx context.Context, input I) (O, error)) (ToolDefinition, error) {
	return NewTool(name).
		Description(description).
		Parameters(SchemaFor[I]()).
		Callback(func(ctx context.Context, call ToolCall) (ToolResult, error) {
			input, err := DecodeArgs[I](call)
			if err != nil {
				return ToolResult{}, err
			}
			output, err := fn(ctx, input)
			if err != nil {
				return ToolResult{}, err
			}
			return ToolResult{Data: output}, nil
		}).
		Build()
}

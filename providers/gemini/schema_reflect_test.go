package gemini

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type forecastDay struct {
	Date        time.Time `json:"date"`
	Summary     string    `json:"summary" jsonschema:"description=One sentence summary"`
	Temperature float64   `json:"temperature"`
}

type forecast struct {
	City     string        `json:"city" jsonschema:"description=City name"`
	Unit     string        `json:"unit,omitempty" jsonschema:"enum=celsius,enum=fahrenheit"`
	Days     []forecastDay `json:"days"`
	Alerts   *string       `json:"alerts"`
	Sources  []string      `json:"sources,omitempty" jsonschema:"required"`
	Internal string        `json:"-"`
	hidden   int
}

func TestSchemaFor_Struct(t *testing.T) {
	s := SchemaFor[forecast]()
	require.NoError(t, s.Err())

	out := schemaJSON(t, s)
	assert.Equal(t, "object", out["type"])
	assert.ElementsMatch(t, []any{"city", "days", "sources"}, out["required"])

	props := out["properties"].(map[string]any)
	assert.NotContains(t, props, "Internal")
	assert.NotContains(t, props, "hidden")
	assert.Equal(t, map[string]any{"type": "string", "description": "City name"}, props["city"])
	assert.Equal(t, map[string]any{"type": "string", "enum": []any{"celsius", "fahrenheit"}}, props["unit"])
	assert.Equal(t, map[string]any{"type": "string"}, props["alerts"])

	days := props["days"].(map[string]any)
	assert.Equal(t, "array", days["type"])
	item := days["items"].(map[string]any)
	itemProps := item["properties"].(map[string]any)
	assert.Equal(t, "string", itemProps["date"].(map[string]any)["type"])
	assert.Equal(t, "number", itemProps["temperature"].(map[string]any)["type"])
	assert.Equal(t, "One sentence summary", itemProps["summary"].(map[string]any)["description"])
}

func TestSchemaFor_Primitives(t *testing.T) {
	assert.Equal(t, KindString, SchemaFor[string]().Kind())
	assert.Equal(t, KindInteger, SchemaFor[uint16]().Kind())
	assert.Equal(t, KindNumber, SchemaFor[float32]().Kind())
	assert.Equal(t, KindBoolean, SchemaFor[*bool]().Kind())
	assert.Equal(t, KindArray, SchemaFor[[]int]().Kind())
	assert.Equal(t, KindString, SchemaFor[[]byte]().Kind())
}

type withMetadata struct {
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func TestSchemaFor_OpenObjectsFail(t *testing.T) {
	tests := []struct {
		name   string
		schema *Schema
	}{
		{"map", SchemaFor[map[string]int]()},
		{"interface", SchemaFor[any]()},
		{"raw message", SchemaFor[json.RawMessage]()},
		{"map field", SchemaFor[withMetadata]()},
		{"slice of maps", SchemaFor[[]map[string]any]()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.schema.Err(), ErrConfiguration)
		})
	}

	_, err := NewRequestBuilder().ResponseSchema(SchemaFor[withMetadata]()).Build()
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewTypedTool("tag", "", func(_ context.Context, in withMetadata) (string, error) { return in.Name, nil })
	assert.ErrorIs(t, err, ErrConfiguration)
}

type treeNode struct {
	Name     string     `json:"name"`
	Children []treeNode `json:"children"`
}

func TestSchemaFor_RecursiveTypeFails(t *testing.T) {
	assert.ErrorIs(t, SchemaFor[treeNode]().Err(), ErrConfiguration)
}

type badEnum struct {
	Level int `json:"level" jsonschema:"enum=1,enum=2"`
}

func TestSchemaFor_EnumOnNonStringFails(t *testing.T) {
	assert.ErrorIs(t, SchemaFor[badEnum]().Err(), ErrConfiguration)
}

func TestSchemaFor_UnsupportedKind(t *testing.T) {
	assert.ErrorIs(t, SchemaFor[chan int]().Err(), ErrConfiguration)
}

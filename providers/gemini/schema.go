package gemini

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"
)

// SchemaKind is the variant of a Schema node.
type SchemaKind int

const (
	KindObject SchemaKind = iota
	KindArray
	KindString
	KindNumber
	KindBoolean
	KindInteger
	KindAnyOf
)

func (k SchemaKind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindAnyOf:
		return "anyOf"
	default:
		return "unknown"
	}
}

// Schema describes the shape of tool parameters or of a structured
// response. It is built with one constructor per kind and configured with
// chainable mutators:
//
//	s := gemini.ObjectSchema().
//	    Property("city", gemini.StringSchema("City name"), true).
//	    Property("unit", gemini.EnumSchema("Temperature unit", "celsius", "fahrenheit"), false)
//
// A mutator applied to the wrong kind (Items on an object, Property on a
// string) leaves the node unchanged and records an error wrapping
// [ErrConfiguration]. The error is reported by [Schema.Err] and by every
// consumer of the schema, including parents it was attached to.
//
// AdditionalProperties is tracked but never serialized, because
// generateContent rejects that keyword.
type Schema struct {
	kind        SchemaKind
	description string

	properties map[string]*Schema
	required   []string
	items      *Schema
	enum       []string
	anyOf      []*Schema

	additionalProperties bool

	err error
}

// ObjectSchema returns an empty object schema.
func ObjectSchema() *Schema {
	return &Schema{kind: KindObject}
}

// StringSchema returns a string schema.
func StringSchema(description string) *Schema {
	return &Schema{kind: KindString, description: description}
}

// NumberSchema returns a number schema.
func NumberSchema(description string) *Schema {
	return &Schema{kind: KindNumber, description: description}
}

// BooleanSchema returns a boolean schema.
func BooleanSchema(description string) *Schema {
	return &Schema{kind: KindBoolean, description: description}
}

// IntegerSchema returns an integer schema.
func IntegerSchema(description string) *Schema {
	return &Schema{kind: KindInteger, description: description}
}

// ArraySchema returns an array schema whose elements match items. A nil
// items leaves the element type open.
func ArraySchema(items *Schema) *Schema {
	s := &Schema{kind: KindArray}
	if items != nil {
		s.Items(items)
	}
	return s
}

// EnumSchema returns a string schema restricted to values.
func EnumSchema(description string, values ...string) *Schema {
	return StringSchema(description).EnumValues(values...)
}

// AnyOf returns a schema matched by any of variants.
func AnyOf(variants ...*Schema) *Schema {
	s := &Schema{kind: KindAnyOf}
	for i, v := range variants {
		if v == nil {
			s.fail(configErrorf("anyOf variant %d is nil", i))
			continue
		}
		s.anyOf = append(s.anyOf, v)
	}
	return s
}

// Kind reports the schema variant.
func (s *Schema) Kind() SchemaKind {
	return s.kind
}

// Description sets the description. It is valid on every kind.
func (s *Schema) Description(description string) *Schema {
	s.description = description
	return s
}

// Property adds or replaces a property of an object schema. Required names
// keep the order in which they were first declared.
func (s *Schema) Property(name string, schema *Schema, required bool) *Schema {
	if s.kind != KindObject {
		return s.fail(configErrorf("property %q: properties can only be added to an object schema, not %s", name, s.kind))
	}
	if strings.TrimSpace(name) == "" {
		return s.fail(configErrorf("property name must not be blank"))
	}
	if schema == nil {
		return s.fail(configErrorf("property %q has a nil schema", name))
	}

	if s.properties == nil {
		s.properties = make(map[string]*Schema)
	}
	s.properties[name] = schema
	if required && !slices.Contains(s.required, name) {
		s.required = append(s.required, name)
	}
	return s
}

// Items sets the element schema of an array schema.
func (s *Schema) Items(items *Schema) *Schema {
	if s.kind != KindArray {
		return s.fail(configErrorf("items can only be set on an array schema, not %s", s.kind))
	}
	if items == nil {
		return s.fail(configErrorf("items schema is nil"))
	}
	s.items = items
	return s
}

// EnumValues appends allowed values to a string schema.
func (s *Schema) EnumValues(values ...string) *Schema {
	if s.kind != KindString {
		return s.fail(configErrorf("enum values are only supported on string schemas, not %s", s.kind))
	}
	s.enum = append(s.enum, values...)
	return s
}

// AdditionalProperties records whether undeclared properties are allowed.
// The flag is never serialized.
func (s *Schema) AdditionalProperties(allowed bool) *Schema {
	if s.kind == KindAnyOf {
		return s.fail(configErrorf("additionalProperties cannot be set on an anyOf schema"))
	}
	s.additionalProperties = allowed
	return s
}

// AdditionalPropertiesAllowed reports the flag set by AdditionalProperties.
func (s *Schema) AdditionalPropertiesAllowed() bool {
	return s.additionalProperties
}

// Err returns every configuration error recorded on this node or on a
// schema reachable from it, joined.
func (s *Schema) Err() error {
	return s.collectErr(make(map[*Schema]bool))
}

func (s *Schema) collectErr(seen map[*Schema]bool) error {
	if s == nil || seen[s] {
		return nil
	}
	seen[s] = true

	errs := []error{s.err}
	for _, p := range s.properties {
		errs = append(errs, p.collectErr(seen))
	}
	errs = append(errs, s.items.collectErr(seen))
	for _, v := range s.anyOf {
		errs = append(errs, v.collectErr(seen))
	}
	return errors.Join(errs...)
}

// clone deep-copies the tree. Nodes reached twice, cycles included, map to
// a single copy.
func (s *Schema) clone() *Schema {
	return s.cloneInto(make(map[*Schema]*Schema))
}

func (s *Schema) cloneInto(copies map[*Schema]*Schema) *Schema {
	if s == nil {
		return nil
	}
	if c, ok := copies[s]; ok {
		return c
	}

	c := &Schema{
		kind:                 s.kind,
		description:          s.description,
		required:             slices.Clone(s.required),
		enum:                 slices.Clone(s.enum),
		additionalProperties: s.additionalProperties,
		err:                  s.err,
	}
	copies[s] = c

	if s.properties != nil {
		c.properties = make(map[string]*Schema, len(s.properties))
		for name, p := range s.properties {
			c.properties[name] = p.cloneInto(copies)
		}
	}
	c.items = s.items.cloneInto(copies)
	for _, v := range s.anyOf {
		c.anyOf = append(c.anyOf, v.cloneInto(copies))
	}
	return c
}

func (s *Schema) fail(err error) *Schema {
	s.err = errors.Join(s.err, err)
	return s
}

// ToMap returns the wire representation as generic JSON values.
func (s *Schema) ToMap() (map[string]any, error) {
	if err := s.Err(); err != nil {
		return nil, err
	}
	return s.toMap(make(map[*Schema]bool))
}

func (s *Schema) toMap(path map[*Schema]bool) (map[string]any, error) {
	if path[s] {
		return nil, configErrorf("schema contains a cycle")
	}
	path[s] = true
	defer delete(path, s)

	out := make(map[string]any)

	if s.kind == KindAnyOf {
		variants := make([]any, 0, len(s.anyOf))
		for _, v := range s.anyOf {
			m, err := v.toMap(path)
			if err != nil {
				return nil, err
			}
			variants = append(variants, m)
		}
		out["anyOf"] = variants
	} else {
		out["type"] = s.kind.String()
	}

	if len(s.properties) > 0 {
		props := make(map[string]any, len(s.properties))
		for name, p := range s.properties {
			m, err := p.toMap(path)
			if err != nil {
				return nil, err
			}
			props[name] = m
		}
		out["properties"] = props
	}
	if len(s.required) > 0 {
		out["required"] = append([]string(nil), s.required...)
	}
	if s.items != nil {
		m, err := s.items.toMap(path)
		if err != nil {
			return nil, err
		}
		out["items"] = m
	}
	if len(s.enum) > 0 {
		out["enum"] = append([]string(nil), s.enum...)
	}
	if strings.TrimSpace(s.description) != "" {
		out["description"] = s.description
	}

	return out, nil
}

// MarshalJSON emits the wire form, or the recorded configuration error.
func (s *Schema) MarshalJSON() ([]byte, error) {
	m, err := s.ToMap()
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// String returns the compact JSON form, or the error text.
func (s *Schema) String() string {
	b, err := s.MarshalJSON()
	if err != nil {
		return "error: " + err.Error()
	}
	return string(b)
}

package gemini

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"
)

var (
	timeType       = reflect.TypeFor[time.Time]()
	rawMessageType = reflect.TypeFor[json.RawMessage]()
)

// SchemaFor derives a Schema from the Go type T.
//
// Struct fields are named after their json tag. A field is required unless
// it is a pointer or tagged omitempty, or when its jsonschema tag says
// "required". The jsonschema tag also accepts "description=..." and, on
// string fields, repeated "enum=..." entries:
//
//	type Forecast struct {
//	    City string `json:"city" jsonschema:"description=City name"`
//	    Unit string `json:"unit,omitempty" jsonschema:"enum=celsius,enum=fahrenheit"`
//	}
//
// Maps, interfaces and json.RawMessage have no fixed properties, and
// generateContent rejects an object schema without properties. Recursive
// types would need references, which generateContent does not support.
// Both yield a schema whose Err wraps [ErrConfiguration].
func SchemaFor[T any]() *Schema {
	return schemaForType(reflect.TypeFor[T](), make(map[reflect.Type]bool))
}

func schemaForType(t reflect.Type, inProgress map[reflect.Type]bool) *Schema {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch {
	case t == timeType:
		return StringSchema("RFC 3339 timestamp")
	case t == rawMessageType:
		return openObjectSchema(t)
	}

	switch t.Kind() {
	case reflect.String:
		return StringSchema("")
	case reflect.Bool:
		return BooleanSchema("")
	case reflect.Float32, reflect.Float64:
		return NumberSchema("")
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return IntegerSchema("")
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			// encoding/json writes byte slices as base64 strings
			return StringSchema("base64-encoded bytes")
		}
		return ArraySchema(schemaForType(t.Elem(), inProgress))
	case reflect.Map:
		return openObjectSchema(t)
	case reflect.Struct:
		return structSchema(t, inProgress)
	case reflect.Interface:
		return openObjectSchema(t)
	default:
		return ObjectSchema().fail(configErrorf("type %s cannot be described by a schema", t))
	}
}

func openObjectSchema(t reflect.Type) *Schema {
	return ObjectSchema().
		AdditionalProperties(true).
		fail(configErrorf("type %s has no fixed properties and cannot be described by a schema", t))
}

func structSchema(t reflect.Type, inProgress map[reflect.Type]bool) *Schema {
	schema := ObjectSchema()
	if inProgress[t] {
		return schema.fail(configErrorf("recursive type %s is not supported", t))
	}
	inProgress[t] = true
	defer delete(inProgress, t)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name, omitEmpty, skip := jsonFieldName(field)
		if skip {
			continue
		}

		fieldSchema := schemaForType(field.Type, inProgress)
		requiredByTag := applySchemaTag(field, fieldSchema)

		required := (field.Type.Kind() != reflect.Pointer && !omitEmpty) || requiredByTag
		schema.Property(name, fieldSchema, required)
	}

	return schema
}

func jsonFieldName(field reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}

	name = field.Name
	if tag == "" {
		return name, false, false
	}

	tagName, options, _ := strings.Cut(tag, ",")
	if tagName != "" {
		name = tagName
	}
	for _, opt := range strings.Split(options, ",") {
		if opt == "omitempty" || opt == "omitzero" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

// applySchemaTag applies a `jsonschema:"..."` tag to schema and reports
// whether the tag marks the field as required. Entries are comma separated,
// so a description cannot contain a comma.
func applySchemaTag(field reflect.StructField, schema *Schema) bool {
	tag := field.Tag.Get("jsonschema")
	if tag == "" {
		return false
	}

	required := false
	for _, entry := range strings.Split(tag, ",") {
		key, value, hasValue := strings.Cut(strings.TrimSpace(entry), "=")
		switch {
		case key == "required" && !hasValue:
			required = true
		case key == "description" && hasValue:
			schema.Description(value)
		case key == "enum" && hasValue:
			// EnumValues records a configuration error on non-string kinds
			schema.EnumValues(value)
		}
	}
	return required
}

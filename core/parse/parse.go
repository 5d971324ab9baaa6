package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrEmptyContent is returned when there is nothing to decode.
var ErrEmptyContent = errors.New("parse: empty content")

// Into decodes the JSON text content into target, which must be a non-nil
// pointer. Decoding is attempted strictly first; when that fails, markdown
// code fences are stripped and the text is passed through jsonrepair before a
// second attempt. The returned error always wraps the first (strict) decode
// error so callers can inspect the original failure.
//
// Example:
//
//	var city struct {
//	    Name string `json:"name"`
//	}
//	err := parse.Into("```json\n{\"name\": \"Rome\",}\n```", &city)
func Into(content string, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("parse: target must be a non-nil pointer, got %T", target)
	}

	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}

	strictErr := json.Unmarshal([]byte(content), target)
	if strictErr == nil {
		return nil
	}

	candidate := stripCodeFence(content)
	repaired, repairErr := jsonrepair.JSONRepair(candidate)
	if repairErr != nil {
		return fmt.Errorf("decode %T: %w (repair failed: %v)", target, strictErr, repairErr)
	}

	// Decode into a fresh value so a failed repaired attempt cannot leave
	// target half-populated from the strict attempt.
	fresh := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal([]byte(repaired), fresh.Interface()); err != nil {
		return fmt.Errorf("decode %T: %w (repaired: %s)", target, strictErr, repaired)
	}
	rv.Elem().Set(fresh.Elem())
	return nil
}

// ParseStringAs parses content into a value of type T. Strings are returned
// as-is, booleans and numbers go through strconv, and every other kind
// (structs, maps, slices) is decoded with [Into].
//
// Example usage:
//
//	type Person struct {
//	    Name string `json:"name"`
//	    Age  int    `json:"age"`
//	}
//
//	person, err := ParseStringAs[Person](`{name: 'John', age: 30}`)
//	n, err := ParseStringAs[int]("42")
func ParseStringAs[T any](content string) (T, error) {
	var result T
	value := reflect.ValueOf(&result).Elem()
	trimmed := strings.TrimSpace(content)

	switch value.Kind() {
	case reflect.String:
		value.SetString(content)
		return result, nil

	case reflect.Bool:
		parsed, err := strconv.ParseBool(trimmed)
		if err != nil {
			return result, fmt.Errorf("failed to parse content as bool: %w", err)
		}
		value.SetBool(parsed)
		return result, nil

	case reflect.Float32, reflect.Float64:
		parsed, err := strconv.ParseFloat(trimmed, value.Type().Bits())
		if err != nil {
			return result, fmt.Errorf("failed to parse content as float: %w", err)
		}
		value.SetFloat(parsed)
		return result, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		parsed, err := strconv.ParseInt(trimmed, 10, value.Type().Bits())
		if err != nil {
			return result, fmt.Errorf("failed to parse content as int: %w", err)
		}
		value.SetInt(parsed)
		return result, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		parsed, err := strconv.ParseUint(trimmed, 10, value.Type().Bits())
		if err != nil {
			return result, fmt.Errorf("failed to parse content as uint: %w", err)
		}
		value.SetUint(parsed)
		return result, nil

	default:
		err := Into(content, &result)
		return result, err
	}
}

// stripCodeFence removes a surrounding ```json ... ``` (or bare ```) fence.
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if newline := strings.IndexByte(trimmed, '\n'); newline >= 0 {
		// drop the language tag line
		trimmed = trimmed[newline+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

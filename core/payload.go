package core

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"dddkit/pkg/errs"
)

// ErrCircularReference is reported by NewPayload when the source data refers
// to itself through a map or slice.
var ErrCircularReference = errs.NewValueIsInvalidErrorWithCause("payload",
	fmt.Errorf("circular reference detected"))

// Payload holds message data in a JSON-safe form: every value is nil, a bool,
// a number, a string, a []any or a nested Payload. Payloads built with
// NewPayload can always be marshalled with encoding/json.
type Payload map[string]any

// NewPayload deep-copies src into a Payload, normalizing values on the way:
//
//   - bools, numbers and strings pass through unchanged
//   - time.Time values become RFC 3339 strings
//   - fmt.Stringer implementations become their String() form
//   - maps become nested Payloads, slices and arrays become []any
//   - anything else, structs included, is rendered with the %v verb
//
// Maps must have string keys. A value that refers to itself through a map or
// slice produces ErrCircularReference.
func NewPayload(src map[string]any) (Payload, error) {
	result := make(Payload, len(src))
	visited := map[uintptr]struct{}{}
	if m := reflect.ValueOf(src); m.Kind() == reflect.Map && m.Pointer() != 0 {
		visited[m.Pointer()] = struct{}{}
	}
	for key, value := range src {
		normalized, err := normalizeValue(value, visited)
		if err != nil {
			return nil, err
		}
		result[key] = normalized
	}
	return result, nil
}

// MustNewPayload is NewPayload for payloads known to be well-formed, such as
// literals in tests and composition code. It panics on error.
func MustNewPayload(src map[string]any) Payload {
	p, err := NewPayload(src)
	if err != nil {
		panic(err)
	}
	return p
}

// Merge returns a new Payload holding the keys of p overlaid with the keys of
// other. Neither input is modified.
func (p Payload) Merge(other Payload) Payload {
	result := make(Payload, len(p)+len(other))
	for key, value := range p {
		result[key] = value
	}
	for key, value := range other {
		result[key] = value
	}
	return result
}

// ToJSON renders the payload as JSON.
func (p Payload) ToJSON() ([]byte, error) {
	return json.Marshal(map[string]any(p))
}

func normalizeValue(value any, visited map[uintptr]struct{}) (any, error) {
	switch v := value.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return v, nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case Payload:
		return normalizeMap(reflect.ValueOf(map[string]any(v)), visited)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		return normalizeMap(rv, visited)
	case reflect.Slice, reflect.Array:
		return normalizeSequence(rv, visited)
	default:
	}
	if s, ok := value.(fmt.Stringer); ok {
		return s.String(), nil
	}
	return fmt.Sprintf("%v", value), nil
}

func normalizeMap(rv reflect.Value, visited map[uintptr]struct{}) (any, error) {
	ptr := rv.Pointer()
	if ptr != 0 {
		if _, seen := visited[ptr]; seen {
			return nil, ErrCircularReference
		}
		visited[ptr] = struct{}{}
		defer delete(visited, ptr)
	}

	result := make(Payload, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key := iter.Key()
		if key.Kind() != reflect.String {
			return nil, errs.NewValueIsInvalidErrorWithCause("payload",
				fmt.Errorf("map keys must be strings, got %s", key.Type()))
		}
		normalized, err := normalizeValue(iter.Value().Interface(), visited)
		if err != nil {
			return nil, err
		}
		result[key.String()] = normalized
	}
	return result, nil
}

func normalizeSequence(rv reflect.Value, visited map[uintptr]struct{}) (any, error) {
	if rv.Kind() == reflect.Slice {
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			// []byte marshals to a base64 string, keep it intact.
			return rv.Bytes(), nil
		}
		ptr := rv.Pointer()
		if ptr != 0 {
			if _, seen := visited[ptr]; seen {
				return nil, ErrCircularReference
			}
			visited[ptr] = struct{}{}
			defer delete(visited, ptr)
		}
	}

	result := make([]any, rv.Len())
	for i := range rv.Len() {
		normalized, err := normalizeValue(rv.Index(i).Interface(), visited)
		if err != nil {
			return nil, err
		}
		result[i] = normalized
	}
	return result, nil
}

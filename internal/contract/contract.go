// Package contract turns raw reasoning-capability text into typed stage
// results. Decoding never fails outward: a response that cannot be decoded
// is replaced by a stage-supplied fallback and flagged as degraded.
package contract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Shape classifies how a response's outer structure was matched.
type Shape int

const (
	// ShapeMalformed means the text was not well-formed structured data, or
	// its outer value could not carry a stage payload.
	ShapeMalformed Shape = iota
	// ShapeWrapped means the response was a mapping carrying the stage's
	// expected top-level key; the payload is that key's value.
	ShapeWrapped
	// ShapeExpected means the response was the payload itself: a sequence
	// for list stages, a mapping for object stages.
	ShapeExpected
	// ShapeUnknown means the response was a mapping without the expected
	// key; the payload is its first value in document order.
	ShapeUnknown
)

// String returns a human-readable name for the shape.
func (s Shape) String() string {
	switch s {
	case ShapeWrapped:
		return "wrapped"
	case ShapeExpected:
		return "expected"
	case ShapeUnknown:
		return "unknown"
	default:
		return "malformed"
	}
}

// Expect describes the payload a stage expects.
type Expect struct {
	// Key is the top-level key a wrapping mapping carries, e.g. "problems".
	Key string
	// Object marks stages whose payload is a single mapping rather than a
	// sequence. Object stages never fall back to the first mapping value.
	Object bool
}

// Decoded is the result of matching a response against an Expect.
type Decoded struct {
	Shape   Shape
	Payload json.RawMessage
	// Siblings holds the other top-level keys of a wrapping mapping.
	Siblings map[string]json.RawMessage
	Err      error
}

// ErrNotStructured is recorded when the response contains no decodable
// object or array.
var ErrNotStructured = errors.New("response is not structured data")

// Decode matches raw against exp. Precedence is fixed: a mapping carrying
// exp.Key is Wrapped; a value of the expected kind is Expected; any other
// mapping is Unknown; everything else is Malformed.
func Decode(raw string, exp Expect) Decoded {
	body, err := structuredBody(raw)
	if err != nil {
		return Decoded{Shape: ShapeMalformed, Err: err}
	}

	switch body[0] {
	case '{':
		fields, order, err := decodeObject(body)
		if err != nil {
			return Decoded{Shape: ShapeMalformed, Err: err}
		}
		if exp.Key != "" {
			if v, ok := fields[exp.Key]; ok && (!exp.Object || isObject(v)) {
				delete(fields, exp.Key)
				return Decoded{Shape: ShapeWrapped, Payload: v, Siblings: fields}
			}
		}
		if exp.Object {
			return Decoded{Shape: ShapeExpected, Payload: body}
		}
		if len(order) == 0 {
			return Decoded{Shape: ShapeUnknown, Payload: json.RawMessage("[]")}
		}
		first := order[0]
		payload := fields[first]
		delete(fields, first)
		return Decoded{Shape: ShapeUnknown, Payload: payload, Siblings: fields}
	case '[':
		if exp.Object {
			return Decoded{Shape: ShapeMalformed, Err: fmt.Errorf("expected an object, got an array")}
		}
		return Decoded{Shape: ShapeExpected, Payload: body}
	default:
		return Decoded{Shape: ShapeMalformed, Err: ErrNotStructured}
	}
}

// Result is a typed stage payload.
type Result[T any] struct {
	Value T
	Shape Shape
	// Degraded is true when Value came from the fallback builder.
	Degraded bool
	// Err explains why the fallback was used.
	Err      error
	Siblings map[string]json.RawMessage
}

// Note returns a sibling key's value as text, or "" if absent.
func (r Result[T]) Note(key string) string {
	v, ok := r.Siblings[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(v)
}

// Parse decodes raw into T. When the response is malformed, or its payload
// does not decode into T, fallback is called and the result is marked
// degraded. fallback is never called for a well-formed response.
func Parse[T any](raw string, exp Expect, fallback func() T) Result[T] {
	d := Decode(raw, exp)
	if d.Shape == ShapeMalformed {
		return Result[T]{Value: fallback(), Shape: d.Shape, Degraded: true, Err: d.Err}
	}

	var v T
	if err := json.Unmarshal(d.Payload, &v); err != nil {
		return Result[T]{
			Value:    fallback(),
			Shape:    d.Shape,
			Degraded: true,
			Err:      fmt.Errorf("decode %s payload: %w", d.Shape, err),
		}
	}
	return Result[T]{Value: v, Shape: d.Shape, Siblings: d.Siblings}
}

// structuredBody returns the JSON object or array inside raw. Markdown code
// fences and prose around the value are tolerated; the outermost {...} or
// [...] span is tried when raw does not decode as-is.
func structuredBody(raw string) ([]byte, error) {
	s := strings.TrimSpace(stripFence(raw))
	if s == "" {
		return nil, fmt.Errorf("empty response: %w", ErrNotStructured)
	}
	if json.Valid([]byte(s)) {
		b := []byte(s)
		if b[0] != '{' && b[0] != '[' {
			return nil, fmt.Errorf("top-level %s: %w", kindOf(b[0]), ErrNotStructured)
		}
		return b, nil
	}

	for _, delim := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(s, delim[0])
		end := strings.LastIndex(s, delim[1])
		if start == -1 || end <= start {
			continue
		}
		candidate := []byte(s[start : end+1])
		if json.Valid(candidate) {
			return candidate, nil
		}
	}

	preview := s
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	return nil, fmt.Errorf("no valid JSON in %d chars (%q): %w", len(s), preview, ErrNotStructured)
}

// stripFence removes a surrounding ```json ... ``` fence.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return s
}

// decodeObject decodes a JSON object keeping its key order.
func decodeObject(body []byte) (map[string]json.RawMessage, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}

	fields := make(map[string]json.RawMessage)
	var order []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("decode value of %q: %w", key, err)
		}
		if _, dup := fields[key]; !dup {
			order = append(order, key)
		}
		fields[key] = v
	}
	return fields, order, nil
}

func isObject(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '{'
}

func kindOf(b byte) string {
	switch {
	case b == '"':
		return "string"
	case b == 't' || b == 'f':
		return "boolean"
	case b == 'n':
		return "null"
	default:
		return "number"
	}
}

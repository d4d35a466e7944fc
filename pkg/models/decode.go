package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// The reasoning capability is not bound to a schema, so the decoders in this
// file accept the loose encodings it commonly produces: numbers as strings,
// fractional scores, and objects where plain strings were asked for.

// flexInt decodes an integer from a JSON number, a string that starts with
// a number, or null. Anything else decodes as 0, so one loosely typed field
// never fails the record it belongs to.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = 0
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = leadingInt(s)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			*f = 0
			return nil
		}
		*f = flexInt(math.Round(n))
	}
	return nil
}

var leadingNumber = regexp.MustCompile(`^[+-]?\d+(?:\.\d+)?`)

// leadingInt reads the number s starts with: "2 interviews" is 2, "4/5" is
// 4, "1st" is 1 and "high" is 0.
func leadingInt(s string) flexInt {
	m := leadingNumber.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return flexInt(math.Round(n))
}

// flexString decodes a string from a JSON string, a list of strings (joined
// with spaces), null, or any other value (kept as compact JSON).
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case '[':
		var parts []flexString
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		strs := make([]string, 0, len(parts))
		for _, p := range parts {
			if p != "" {
				strs = append(strs, string(p))
			}
		}
		*f = flexString(strings.Join(strs, " "))
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		*f = flexString(buf.String())
	}
	return nil
}

// Quotes is an ordered list of verbatim quotes. It decodes from a list whose
// items are strings or {"quote": ..., "speaker": ...} objects; attributed
// objects are flattened to `speaker: "quote"`.
type Quotes []string

func (q *Quotes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = Quotes{s}
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(Quotes, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '{' {
			var aq struct {
				Quote   flexString `json:"quote"`
				Text    flexString `json:"text"`
				Speaker flexString `json:"speaker"`
			}
			if err := json.Unmarshal(item, &aq); err != nil {
				return err
			}
			text := string(aq.Quote)
			if text == "" {
				text = string(aq.Text)
			}
			if aq.Speaker != "" {
				text = fmt.Sprintf("%s: %q", aq.Speaker, text)
			}
			out = append(out, text)
			continue
		}
		var s flexString
		if err := json.Unmarshal(item, &s); err != nil {
			return err
		}
		out = append(out, string(s))
	}
	*q = out
	return nil
}

// Items is a list section of a specification document. Items are usually
// strings but may be structured objects; both are kept verbatim. A single
// string or object decodes as a one-item list and null as an empty list.
type Items []any

func (it *Items) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*it = Items{}
		return nil
	}
	if data[0] == '[' {
		var list []any
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*it = Items(list)
		return nil
	}
	var single any
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*it = Items{single}
	return nil
}

// Strings renders every item as a line of text. Objects are rendered as
// compact JSON.
func (it Items) Strings() []string {
	out := make([]string, 0, len(it))
	for _, v := range it {
		if s, ok := v.(string); ok {
			out = append(out, s)
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			out = append(out, fmt.Sprint(v))
			continue
		}
		out = append(out, string(b))
	}
	return out
}

// ItemsOf builds an Items list from strings.
func ItemsOf(strs ...string) Items {
	out := make(Items, 0, len(strs))
	for _, s := range strs {
		out = append(out, s)
	}
	return out
}

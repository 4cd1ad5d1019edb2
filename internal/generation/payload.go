package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Payload is a loosely typed JSON object returned by a backend. Field access
// goes through the coercion helpers, which never trust presence or type.
type Payload map[string]any

// ExtractJSON parses the substring from the first '{' to the last '}' of raw,
// tolerating prose wrapped around the object.
func ExtractJSON(raw string) (Payload, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || start >= end {
		return nil, errors.New("no JSON object found")
	}
	var p Payload
	if err := json.Unmarshal([]byte(raw[start:end+1]), &p); err != nil {
		return nil, fmt.Errorf("decode JSON object: %w", err)
	}
	if p == nil {
		return nil, errors.New("JSON object is null")
	}
	return p, nil
}

// Has reports whether key is present, even with a null value.
func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns the trimmed string form of key, or "" when absent or null.
func (p Payload) String(key string) string {
	return stringify(p[key])
}

// Float returns key as a number.
func (p Payload) Float(key string) (float64, bool) {
	return toFloat(p[key])
}

// Int returns key as an integer, truncating fractional numbers.
func (p Payload) Int(key string) (int, bool) {
	return toInt(p[key])
}

// List returns key as a slice, or nil if it is not an array.
func (p Payload) List(key string) []any {
	if l, ok := p[key].([]any); ok {
		return l
	}
	return nil
}

// Object returns key as a nested payload, or nil if it is not an object.
func (p Payload) Object(key string) Payload {
	return AsObject(p[key])
}

// Strings returns the non-empty string forms of the items of an array field.
func (p Payload) Strings(key string) []string {
	var out []string
	for _, item := range p.List(key) {
		if s := stringify(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// AsObject converts a list element into a payload when it is an object.
func AsObject(v any) Payload {
	if m, ok := v.(map[string]any); ok {
		return Payload(m)
	}
	return nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(b))
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || math.Abs(t) > 1e12 {
			return 0, false
		}
		return int(t), true
	case int:
		return t, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

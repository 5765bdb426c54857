package hub

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// Args is the flat argument object of one operation.
type Args map[string]any

// String returns a trimmed string argument, or "" when absent.
func (a Args) String(key string) string {
	if v, ok := a[key]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// Required returns a non-empty string argument or a ValidationError.
func (a Args) Required(key string) (string, error) {
	s := a.String(key)
	if s == "" {
		return "", validation("Missing required argument: %s", key)
	}
	return s, nil
}

// Int returns an integer argument. ok is false when the key is absent.
func (a Args) Int(key string) (n int, ok bool, err error) {
	v, present := a[key]
	if !present || v == nil {
		return 0, false, nil
	}
	switch x := v.(type) {
	case int:
		return x, true, nil
	case int64:
		return int(x), true, nil
	case float64:
		if x != math.Trunc(x) {
			return 0, false, validation("Argument %s must be an integer", key)
		}
		return int(x), true, nil
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, false, validation("Argument %s must be an integer", key)
		}
		return int(i), true, nil
	}
	return 0, false, validation("Argument %s must be an integer", key)
}

// RequiredInt returns an integer argument or a ValidationError.
func (a Args) RequiredInt(key string) (int, error) {
	n, ok, err := a.Int(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, validation("Missing required argument: %s", key)
	}
	return n, nil
}

// Bool returns a boolean argument with a default.
func (a Args) Bool(key string, def bool) bool {
	if b, ok := a[key].(bool); ok {
		return b
	}
	return def
}

// Strings returns a string list argument. A single string is accepted as a
// one-element list.
func (a Args) Strings(key string) []string {
	switch v := a[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return nil
}

// Map returns an object argument, or nil.
func (a Args) Map(key string) map[string]any {
	m, _ := a[key].(map[string]any)
	return m
}

// Time parses an RFC 3339 timestamp argument. ok is false when absent.
func (a Args) Time(key string) (t time.Time, ok bool, err error) {
	s := a.String(key)
	if s == "" {
		return time.Time{}, false, nil
	}
	t, err = time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false, validation("Argument %s must be an RFC 3339 timestamp", key)
	}
	return t, true, nil
}

// Float returns a numeric argument. ok is false when the key is absent.
func (a Args) Float(key string) (f float64, ok bool, err error) {
	v, present := a[key]
	if !present || v == nil {
		return 0, false, nil
	}
	switch x := v.(type) {
	case float64:
		return x, true, nil
	case int:
		return float64(x), true, nil
	case int64:
		return float64(x), true, nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false, validation("Argument %s must be a number", key)
		}
		return f, true, nil
	}
	return 0, false, validation("Argument %s must be a number", key)
}

package content

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// The helpers below are the single coercion boundary for persisted values.
// Content round-trips through JSON, hand-written fixtures and form posts, so
// booleans may arrive as "true" or 1 and numbers as strings.

// Bool reports whether v encodes true: true, "true", 1 or "1".
func Bool(v any) bool {
	switch value := v.(type) {
	case bool:
		return value
	case string:
		trimmed := strings.TrimSpace(value)
		return trimmed == "true" || trimmed == "1"
	case json.Number:
		return value.String() == "1"
	default:
		if n, ok := numeric(v); ok {
			return n == 1
		}
		return false
	}
}

// Number converts v into a float64. Empty strings and nil report false so
// callers can tell "unset" from zero.
func Number(v any) (float64, bool) {
	switch value := v.(type) {
	case nil:
		return 0, false
	case string:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsNaN(n) {
			return 0, false
		}
		return n, true
	case json.Number:
		n, err := value.Float64()
		return n, err == nil
	default:
		return numeric(v)
	}
}

func numeric(v any) (float64, bool) {
	switch value := v.(type) {
	case int:
		return float64(value), true
	case int8:
		return float64(value), true
	case int16:
		return float64(value), true
	case int32:
		return float64(value), true
	case int64:
		return float64(value), true
	case uint:
		return float64(value), true
	case uint8:
		return float64(value), true
	case uint16:
		return float64(value), true
	case uint32:
		return float64(value), true
	case uint64:
		return float64(value), true
	case float32:
		return float64(value), true
	case float64:
		return value, true
	default:
		return 0, false
	}
}

// String renders v as text. nil becomes "", whole floats drop their
// fractional part and slices are comma-joined.
func String(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case json.Number:
		return value.String()
	case float64:
		return formatFloat(value)
	case float32:
		return formatFloat(float64(value))
	case []string:
		return strings.Join(value, ", ")
	case []any:
		parts := make([]string, 0, len(value))
		for _, item := range value {
			if s := String(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		if n, ok := numeric(v); ok {
			return formatFloat(n)
		}
		return fmt.Sprint(v)
	}
}

func formatFloat(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// Strings coerces v into a string slice. Scalars become one-element slices,
// empty values become nil.
func Strings(v any) []string {
	switch value := v.(type) {
	case nil:
		return nil
	case []string:
		return compactStrings(value)
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			out = append(out, String(item))
		}
		return compactStrings(out)
	case string:
		if strings.TrimSpace(value) == "" {
			return nil
		}
		return []string{value}
	default:
		if s := String(v); s != "" {
			return []string{s}
		}
		return nil
	}
}

func compactStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		if strings.TrimSpace(value) == "" {
			continue
		}
		out = append(out, value)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// IsEmpty reports whether v carries no user data: nil, blank strings, empty
// slices and empty maps.
func IsEmpty(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(value) == ""
	case []string:
		return len(value) == 0
	case []any:
		return len(value) == 0
	case map[string]any:
		return len(value) == 0
	case State:
		return len(value) == 0
	default:
		return false
	}
}

// Map coerces v into a map[string]any. Structs are converted through JSON.
func Map(v any) map[string]any {
	switch value := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return value
	case State:
		return map[string]any(value)
	default:
		payload, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		var out map[string]any
		if err := json.Unmarshal(payload, &out); err != nil {
			return nil
		}
		return out
	}
}

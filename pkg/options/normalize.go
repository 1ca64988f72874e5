// Package options normalises remote option payloads into the canonical
// schema.Option {label, value} shape. It is the only place that knows about
// the heterogeneous shapes endpoints return; nothing downstream branches on
// shape again.
package options

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-postgen/pkg/content"
	"github.com/goliatone/go-postgen/pkg/schema"
)

// PlatformPlaceholder is substituted with the platform id in endpoint
// templates.
const PlatformPlaceholder = ":platformId"

// ExpandEndpoint substitutes the platform id into an endpoint template.
func ExpandEndpoint(template, platformID string) string {
	return strings.ReplaceAll(strings.TrimSpace(template), PlatformPlaceholder, platformID)
}

// NeedsPlatform reports whether the endpoint template references the
// platform id.
func NeedsPlatform(template string) bool {
	return strings.Contains(template, PlatformPlaceholder)
}

// Decode parses a raw JSON response body and extracts its options. See
// Extract for the lookup rules.
func Decode(body []byte, sourceKey, path string) ([]schema.Option, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("options: decode payload: %w", err)
	}
	return Extract(payload, sourceKey, path), nil
}

// Extract locates the option list inside payload and normalises it. Lookup
// order: the dotted path when provided, the "options" key, an array under
// sourceKey, "data", then the payload itself when it is an array.
func Extract(payload any, sourceKey, path string) []schema.Option {
	if path = strings.TrimSpace(path); path != "" {
		if found, ok := lookupPath(payload, path); ok {
			return Normalize(found)
		}
		return nil
	}

	if obj, ok := payload.(map[string]any); ok {
		for _, key := range []string{"options", sourceKey, "data", "items", "results"} {
			if key == "" {
				continue
			}
			if list, ok := obj[key].([]any); ok {
				return Normalize(list)
			}
		}
		return nil
	}
	return Normalize(payload)
}

func lookupPath(payload any, path string) (any, bool) {
	current := payload
	for _, segment := range strings.Split(path, ".") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Normalize converts a list of strings, {label, value}, {name, id} or mixed
// entries into options. Entries without a usable value are dropped and
// duplicate values keep their first occurrence.
func Normalize(raw any) []schema.Option {
	var items []any
	switch value := raw.(type) {
	case nil:
		return nil
	case []any:
		items = value
	case []string:
		items = make([]any, len(value))
		for i, item := range value {
			items[i] = item
		}
	case []schema.Option:
		items = make([]any, len(value))
		for i, item := range value {
			items[i] = item
		}
	case []map[string]any:
		items = make([]any, len(value))
		for i, item := range value {
			items[i] = item
		}
	default:
		return nil
	}

	out := make([]schema.Option, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		option, ok := normalizeItem(item)
		if !ok {
			continue
		}
		if _, dup := seen[option.Value]; dup {
			continue
		}
		seen[option.Value] = struct{}{}
		out = append(out, option)
	}
	return out
}

var (
	valueKeys = []string{"value", "id", "key", "email", "slug"}
	labelKeys = []string{"label", "name", "title", "displayName", "email"}
)

func normalizeItem(item any) (schema.Option, bool) {
	switch value := item.(type) {
	case schema.Option:
		return value, value.Value != ""
	case string:
		trimmed := strings.TrimSpace(value)
		return schema.Option{Label: trimmed, Value: trimmed}, trimmed != ""
	case map[string]any:
		optionValue := firstString(value, valueKeys)
		label := firstString(value, labelKeys)
		if optionValue == "" {
			optionValue = label
		}
		if label == "" {
			label = optionValue
		}
		return schema.Option{Label: label, Value: optionValue}, optionValue != ""
	default:
		if s := content.String(item); s != "" {
			return schema.Option{Label: s, Value: s}, true
		}
		return schema.Option{}, false
	}
}

func firstString(obj map[string]any, keys []string) string {
	for _, key := range keys {
		if raw, ok := obj[key]; ok {
			if s := strings.TrimSpace(content.String(raw)); s != "" {
				return s
			}
		}
	}
	return ""
}

// Labels builds a value → label dictionary.
func Labels(opts []schema.Option) map[string]string {
	out := make(map[string]string, len(opts))
	for _, option := range opts {
		out[option.Value] = option.Label
	}
	return out
}

// Find returns the option whose value or label matches text, ignoring case
// and surrounding whitespace.
func Find(opts []schema.Option, text string) (schema.Option, bool) {
	needle := strings.TrimSpace(text)
	if needle == "" {
		return schema.Option{}, false
	}
	for _, option := range opts {
		if option.Value == needle {
			return option, true
		}
	}
	for _, option := range opts {
		if strings.EqualFold(option.Value, needle) || strings.EqualFold(option.Label, needle) {
			return option, true
		}
	}
	return schema.Option{}, false
}

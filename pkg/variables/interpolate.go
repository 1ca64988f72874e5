package variables

import (
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

var (
	valuePolicyOnce sync.Once
	valuePolicy     *bluemonday.Policy
)

// Placeholders returns the distinct variable names referenced by text in
// order of first use.
func Placeholders(text string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, match := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		name := match[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// Interpolate replaces `{{name}}` placeholders with values. Unknown names are
// left in place. When html is set the substituted values are stripped of
// markup; the surrounding template is trusted.
func Interpolate(text string, values map[string]string, html bool) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(token string) string {
		match := placeholderPattern.FindStringSubmatch(token)
		value, ok := values[match[1]]
		if !ok {
			return token
		}
		if html {
			return sanitizeValue(value)
		}
		return value
	})
}

// InterpolateContent applies Interpolate to every field of a template body.
// Fields whose name ends in "html" are treated as markup.
func InterpolateContent(body map[string]string, values map[string]string) map[string]string {
	out := make(map[string]string, len(body))
	for key, text := range body {
		out[key] = Interpolate(text, values, strings.HasSuffix(strings.ToLower(key), "html"))
	}
	return out
}

func sanitizeValue(raw string) string {
	valuePolicyOnce.Do(func() {
		valuePolicy = bluemonday.StrictPolicy()
	})
	return valuePolicy.Sanitize(raw)
}

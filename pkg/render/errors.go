package render

import (
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-postgen/pkg/schema"
)

// ServerErrors is a collaborator error payload split into field messages and
// section-level messages. Field keys are field names, or "<field>.<subkey>"
// for composite sub-fields.
type ServerErrors struct {
	Fields  map[string][]string
	Section []string
}

// wrapperSegments prefix content paths in apply and registration payloads.
var wrapperSegments = map[string]struct{}{
	"content":         {},
	"existingcontent": {},
	"data":            {},
	"body":            {},
	"payload":         {},
	"request":         {},
}

// MapServerErrors assigns payload messages to the fields of section. Keys
// may be dotted ("content.targets.mode"), bracketed ("targets[0]") or JSON
// pointers ("/content/subject"). A key matching no field contributes its
// messages to Section.
func MapServerErrors(section schema.Section, payload map[string][]string) ServerErrors {
	var out ServerErrors
	if len(payload) == 0 {
		return out
	}
	known := make(map[string]struct{})
	for _, field := range section.Fields {
		if field.Name == "" {
			continue
		}
		known[field.Name] = struct{}{}
		for key := range field.Schema {
			known[field.Name+"."+key] = struct{}{}
		}
	}

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		messages := compactMessages(payload[key])
		if len(messages) == 0 {
			continue
		}
		target := matchPath(splitErrorPath(key), known)
		if target == "" {
			out.Section = append(out.Section, messages...)
			continue
		}
		if out.Fields == nil {
			out.Fields = make(map[string][]string)
		}
		out.Fields[target] = compactMessages(append(out.Fields[target], messages...))
	}
	out.Section = compactMessages(out.Section)
	return out
}

// Empty reports whether no message was mapped.
func (e ServerErrors) Empty() bool {
	return len(e.Fields) == 0 && len(e.Section) == 0
}

// First keeps one message per field, the shape RenderSection accepts.
func (e ServerErrors) First() map[string]string {
	if len(e.Fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(e.Fields))
	for name, messages := range e.Fields {
		out[name] = messages[0]
	}
	return out
}

func splitErrorPath(raw string) []string {
	raw = strings.TrimLeft(strings.TrimSpace(raw), "#$/.")
	raw = strings.NewReplacer("[", ".", "]", "").Replace(raw)
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '.' || r == '/' })

	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.NewReplacer("~1", "/", "~0", "~").Replace(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if _, err := strconv.Atoi(part); err == nil {
			continue
		}
		segments = append(segments, part)
	}
	for len(segments) > 0 {
		if _, ok := wrapperSegments[strings.ToLower(segments[0])]; !ok {
			break
		}
		segments = segments[1:]
	}
	return segments
}

func matchPath(segments []string, known map[string]struct{}) string {
	for end := len(segments); end > 0; end-- {
		candidate := strings.Join(segments[:end], ".")
		if _, ok := known[candidate]; ok {
			return candidate
		}
	}
	return ""
}

func compactMessages(messages []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		message = strings.TrimSpace(message)
		if message == "" {
			continue
		}
		if _, ok := seen[message]; ok {
			continue
		}
		seen[message] = struct{}{}
		out = append(out, message)
	}
	return out
}

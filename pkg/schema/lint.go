package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Issue is a configuration problem found in a section. Issues are meant to be
// rendered inline next to the offending field; they never abort rendering.
type Issue struct {
	Field   string `json:"field,omitempty"`
	Group   string `json:"group,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	switch {
	case i.Field != "":
		return i.Field + ": " + i.Message
	case i.Group != "":
		return "group " + i.Group + ": " + i.Message
	default:
		return i.Message
	}
}

// Lint checks the structural invariants of a section: unique field names,
// group references, composite data sources and visibility references.
func Lint(section Section) []Issue {
	var issues []Issue

	names := make(map[string]int, len(section.Fields))
	for _, field := range section.Fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			issues = append(issues, Issue{Message: "field without a name"})
			continue
		}
		names[name]++
	}
	for _, name := range sortedCounts(names) {
		issues = append(issues, Issue{Field: name, Message: fmt.Sprintf("field name declared %d times", names[name])})
	}

	for _, field := range section.Fields {
		issues = append(issues, lintField(field, names)...)
	}

	for _, group := range section.Groups {
		for _, ref := range group.Fields {
			if _, ok := names[ref]; !ok {
				issues = append(issues, Issue{Group: group.Name, Message: fmt.Sprintf("references unknown field %q", ref)})
			}
		}
	}

	return issues
}

func lintField(field Field, names map[string]int) []Issue {
	var issues []Issue
	add := func(format string, args ...any) {
		issues = append(issues, Issue{Field: field.Name, Message: fmt.Sprintf(format, args...)})
	}

	if !field.Type.Known() {
		add("unsupported field type %q", field.Type)
	}

	if field.VisibleWhen != nil {
		if _, ok := names[field.VisibleWhen.Field]; !ok {
			add("visibleWhen references unknown field %q", field.VisibleWhen.Field)
		}
	}

	if (len(field.Options) > 0 || field.OptionsSource != nil) && field.Type != FieldTypeSelect && field.Type != FieldTypeMultiselect {
		add("options are ignored for %s fields", field.Type)
	}
	if field.OptionsSource != nil && strings.TrimSpace(field.OptionsSource.Endpoint) == "" {
		add("optionsSource without endpoint")
	}

	if field.Type.IsComposite() {
		for _, key := range field.SubFieldKeys() {
			sub := field.Schema[key]
			if sub.VisibleWhen != nil {
				if _, ok := field.Schema[sub.VisibleWhen.Field]; !ok {
					add("sub-field %q visibleWhen references unknown sub-field %q", key, sub.VisibleWhen.Field)
				}
			}
			if sub.Source == "" || len(sub.Options) > 0 {
				continue
			}
			if _, ok := field.DataEndpoints[sub.Source]; !ok {
				add("sub-field %q source %q has no data endpoint", key, sub.Source)
			}
		}
	} else if len(field.Schema) > 0 || len(field.DataEndpoints) > 0 {
		add("schema and dataEndpoints are ignored for %s fields", field.Type)
	}

	if field.Type == FieldTypeButton && strings.TrimSpace(field.Action) == "" {
		add("button without action")
	}

	return issues
}

func sortedCounts(counts map[string]int) []string {
	var dupes []string
	for name, count := range counts {
		if count > 1 {
			dupes = append(dupes, name)
		}
	}
	sort.Strings(dupes)
	return dupes
}

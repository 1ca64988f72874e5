package widgets

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-postgen/pkg/schema"
)

// Built-in widget identifiers exposed by the registry.
const (
	WidgetToggle    = "toggle"
	WidgetSelect    = "select"
	WidgetChips     = "chips"
	WidgetRemote    = "remote-select"
	WidgetListTable = "list-table"
	WidgetDateTime  = "datetime-picker"
	WidgetTargets   = "targets"
	WidgetRichText  = "rich-text"
)

// Matcher decides whether a widget should handle the supplied field.
type Matcher func(field schema.Field) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Registry selects widgets for fields based on the explicit ui.widget hint or
// registered matchers. Higher priority wins; ties fall back to registration
// order. An empty registry never resolves a widget.
type Registry struct {
	mu    sync.RWMutex
	rules []rule
}

// NewRegistry constructs a registry with the built-in matchers registered.
func NewRegistry() *Registry {
	reg := &Registry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a matcher with the provided name and priority. The latest
// registration of a duplicate name wins ties.
func (r *Registry) Register(name string, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, rule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Resolve returns the widget name for a field.
func (r *Registry) Resolve(field schema.Field) (string, bool) {
	if explicit := strings.TrimSpace(field.UI.Widget); explicit != "" {
		return explicit, true
	}
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	if len(r.rules) == 0 {
		r.mu.RUnlock()
		return "", false
	}
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(field) {
			return entry.name, true
		}
	}
	return "", false
}

// Decorate writes the resolved widget into ui.widget for every field of the
// section that does not already carry one.
func (r *Registry) Decorate(section *schema.Section) {
	if r == nil || section == nil {
		return
	}
	fields := make([]schema.Field, len(section.Fields))
	for idx, field := range section.Fields {
		if widget, ok := r.Resolve(field); ok && field.UI.Widget == "" {
			field.UI.Widget = widget
		}
		fields[idx] = field
	}
	section.Fields = fields
}

func (r *Registry) registerBuiltins() {
	r.Register(WidgetTargets, 100, func(field schema.Field) bool {
		return field.Type == schema.FieldTypeTargets
	})

	r.Register(WidgetToggle, 90, func(field schema.Field) bool {
		return field.Type == schema.FieldTypeBoolean
	})

	r.Register(WidgetListTable, 85, func(field schema.Field) bool {
		return field.Type == schema.FieldTypeTargetList
	})

	r.Register(WidgetChips, 80, func(field schema.Field) bool {
		return field.Type == schema.FieldTypeMultiselect
	})

	r.Register(WidgetRemote, 75, func(field schema.Field) bool {
		return field.Type == schema.FieldTypeSelect && field.OptionsSource != nil && field.OptionsSource.Endpoint != ""
	})

	r.Register(WidgetSelect, 70, func(field schema.Field) bool {
		return field.Type == schema.FieldTypeSelect
	})

	r.Register(WidgetDateTime, 60, func(field schema.Field) bool {
		switch field.Type {
		case schema.FieldTypeDate, schema.FieldTypeTime, schema.FieldTypeDatetime:
			return true
		}
		return false
	})

	r.Register(WidgetRichText, 40, func(field schema.Field) bool {
		if field.Type != schema.FieldTypeTextarea {
			return false
		}
		return strings.HasSuffix(strings.ToLower(field.Name), "html")
	})
}

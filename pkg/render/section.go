package render

import (
	"strings"

	"github.com/goliatone/go-postgen/pkg/schema"
	"github.com/goliatone/go-postgen/pkg/visibility"
)

// GroupView is one rendered FieldGroup.
type GroupView struct {
	Name     string              `json:"name"`
	Label    string              `json:"label,omitempty"`
	Method   string              `json:"method,omitempty"`
	Controls []ControlDescriptor `json:"controls"`
}

// SectionView is a rendered section. Fields claimed by a group render inside
// it; the rest render in Controls.
type SectionView struct {
	Controls []ControlDescriptor `json:"controls"`
	Groups   []GroupView         `json:"groups,omitempty"`
}

// All returns every control in display order: ungrouped first, then groups.
func (v SectionView) All() []ControlDescriptor {
	out := append([]ControlDescriptor(nil), v.Controls...)
	for _, group := range v.Groups {
		out = append(out, group.Controls...)
	}
	return out
}

// RenderSection renders every visible field of section ordered by ui.order.
// errs maps field names to validation messages.
func (r *Renderer) RenderSection(section schema.Section, values map[string]any, errs map[string]string, onChange ChangeFunc, ctx Context) SectionView {
	if ctx.Values == nil {
		ctx.Values = values
	}
	visible := visibility.Filter(r.visibility, schema.SortFields(section.Fields), visibility.Context{Values: ctx.Values})

	rendered := make(map[string]ControlDescriptor, len(visible))
	order := make([]string, 0, len(visible))
	for _, field := range visible {
		rendered[field.Name] = r.Render(field, values[field.Name], onChange, errs[field.Name], ctx)
		order = append(order, field.Name)
	}

	claimed := make(map[string]struct{})
	view := SectionView{Controls: []ControlDescriptor{}}
	for _, group := range section.Groups {
		members := make(map[string]struct{}, len(group.Fields))
		for _, name := range group.Fields {
			members[strings.TrimSpace(name)] = struct{}{}
		}
		gv := GroupView{
			Name:     group.Name,
			Label:    r.localizer.Text(group.Label),
			Method:   group.Method,
			Controls: []ControlDescriptor{},
		}
		for _, name := range order {
			if _, ok := members[name]; !ok {
				continue
			}
			if _, taken := claimed[name]; taken {
				continue
			}
			claimed[name] = struct{}{}
			gv.Controls = append(gv.Controls, rendered[name])
		}
		view.Groups = append(view.Groups, gv)
	}

	for _, name := range order {
		if _, ok := claimed[name]; ok {
			continue
		}
		view.Controls = append(view.Controls, rendered[name])
	}
	return view
}

// FieldSubset narrows a section to named groups and fields.
type FieldSubset struct {
	Groups []string
	Fields []string
}

// ApplySubset returns section restricted to subset. An empty subset returns
// the section unchanged.
func ApplySubset(section schema.Section, subset FieldSubset) schema.Section {
	groups := normaliseTokens(subset.Groups)
	names := normaliseTokens(subset.Fields)
	if len(groups) == 0 && len(names) == 0 {
		return section
	}

	keep := make(map[string]struct{}, len(names))
	for name := range names {
		keep[name] = struct{}{}
	}
	var keptGroups []schema.FieldGroup
	for _, group := range section.Groups {
		if _, ok := groups[normaliseToken(group.Name)]; !ok {
			continue
		}
		keptGroups = append(keptGroups, group)
		for _, name := range group.Fields {
			keep[normaliseToken(name)] = struct{}{}
		}
	}

	out := schema.Section{Groups: keptGroups}
	for _, field := range section.Fields {
		if _, ok := keep[normaliseToken(field.Name)]; ok {
			out.Fields = append(out.Fields, field)
		}
	}
	return out
}

func normaliseTokens(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if token := normaliseToken(part); token != "" {
				out[token] = struct{}{}
			}
		}
	}
	return out
}

func normaliseToken(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

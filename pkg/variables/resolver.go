// Package variables resolves template placeholder variables. Definitions that
// share a canonical name collapse into one Variable whose aliases all read and
// write the same `_var_<alias>` overrides in content.
package variables

import (
	"log/slog"
	"strings"

	"github.com/goliatone/go-postgen/pkg/content"
	"github.com/goliatone/go-postgen/pkg/host"
	"github.com/goliatone/go-postgen/pkg/schema"
)

// Group is one canonical variable with every definition that collapsed onto it.
type Group struct {
	Canonical   string
	Aliases     []string
	Definitions []schema.TemplateDefinition
}

// Primary returns the first definition, which supplies label, source and
// display hints for the group.
func (g Group) Primary() schema.TemplateDefinition {
	if len(g.Definitions) == 0 {
		return schema.TemplateDefinition{Name: g.Canonical}
	}
	return g.Definitions[0]
}

// Variable is the resolved state of one canonical variable.
type Variable struct {
	Name       string   `json:"name"`
	Aliases    []string `json:"aliases"`
	Label      string   `json:"label,omitempty"`
	Type       string   `json:"type,omitempty"`
	Source     string   `json:"source,omitempty"`
	Icon       string   `json:"icon,omitempty"`
	Value      string   `json:"value"`
	Overridden bool     `json:"overridden"`
	AutoFilled bool     `json:"autoFilled"`
	Disabled   bool     `json:"disabled"`
	Editable   bool     `json:"editable"`

	showWhenEmpty bool
}

// Resolution is the outcome of a resolve pass. All carries every variable
// for content generation; Visible is the editable list after display
// suppression.
type Resolution struct {
	All     []Variable `json:"all"`
	Visible []Variable `json:"visible"`
}

// Lookup returns the variable whose canonical name or alias matches name.
func (r Resolution) Lookup(name string) (Variable, bool) {
	for _, v := range r.All {
		if v.Name == name {
			return v, true
		}
		for _, alias := range v.Aliases {
			if alias == name {
				return v, true
			}
		}
	}
	return Variable{}, false
}

// Values maps every alias and canonical name to its effective value.
func (r Resolution) Values() map[string]string {
	out := make(map[string]string)
	for _, v := range r.All {
		out[v.Name] = v.Value
		for _, alias := range v.Aliases {
			out[alias] = v.Value
		}
	}
	return out
}

// Resolver computes variable state from definitions and content.
type Resolver struct {
	provider       host.DataProvider
	hideAutoFilled bool
	logger         *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithProvider sets the host provider consulted for parsed data.
func WithProvider(p host.DataProvider) Option {
	return func(r *Resolver) {
		r.provider = p
	}
}

// WithHideAutoFilled enables the hide-auto-filled display toggle.
func WithHideAutoFilled(hide bool) Option {
	return func(r *Resolver) {
		r.hideAutoFilled = hide
	}
}

// WithLogger sets the resolver logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New builds a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// GroupDefinitions collapses definitions by canonical name. Groups and their
// aliases keep first-seen order; the canonical name is part of the alias set
// only when some definition is named after it.
func GroupDefinitions(defs []schema.TemplateDefinition) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, def := range defs {
		canonical := def.Canonical()
		if canonical == "" {
			continue
		}
		pos, ok := index[canonical]
		if !ok {
			pos = len(groups)
			index[canonical] = pos
			groups = append(groups, Group{Canonical: canonical})
		}
		group := &groups[pos]
		group.Definitions = append(group.Definitions, def)
		group.Aliases = appendAlias(group.Aliases, def.Name)
		for _, alias := range def.Aliases {
			group.Aliases = appendAlias(group.Aliases, alias)
		}
	}
	return groups
}

func appendAlias(aliases []string, alias string) []string {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return aliases
	}
	for _, existing := range aliases {
		if existing == alias {
			return aliases
		}
	}
	return append(aliases, alias)
}

// Resolve computes every canonical variable. fallback is the host's
// precomputed variable map derived from parsed data and uploads.
func (r *Resolver) Resolve(defs []schema.TemplateDefinition, state content.State, fallback map[string]string) Resolution {
	var parsed map[string]any
	if r.provider != nil {
		parsed = r.provider.ParsedData()
	}

	res := Resolution{All: []Variable{}, Visible: []Variable{}}
	for _, group := range GroupDefinitions(defs) {
		v := r.resolveGroup(group, state, fallback, parsed)
		res.All = append(res.All, v)
		if r.hideAutoFilled && v.AutoFilled && !v.Disabled {
			continue
		}
		if !v.showWhenEmpty && v.Value == "" {
			continue
		}
		res.Visible = append(res.Visible, v)
	}
	return res
}

func (r *Resolver) resolveGroup(group Group, state content.State, fallback map[string]string, parsed map[string]any) Variable {
	primary := group.Primary()
	v := Variable{
		Name:          group.Canonical,
		Aliases:       append([]string(nil), group.Aliases...),
		Label:         primary.Label,
		Type:          primary.Type,
		Source:        primary.Source,
		Icon:          primary.Icon,
		showWhenEmpty: true,
	}

	for _, alias := range group.Aliases {
		if value := state.Var(alias); strings.TrimSpace(value) != "" {
			v.Value = value
			v.Overridden = true
			break
		}
	}
	if !v.Overridden {
		v.Value = fallbackValue(group, fallback)
	}

	editable := true
	for _, def := range group.Definitions {
		if def.Editable != nil && !*def.Editable {
			editable = false
		}
		if def.ShowWhenEmpty != nil && !*def.ShowWhenEmpty {
			v.showWhenEmpty = false
		}
		if !v.AutoFilled && autoFilled(def, group.Canonical, parsed) {
			v.AutoFilled = true
		}
	}
	for _, alias := range group.Aliases {
		if state.IsDisabled(alias) {
			v.Disabled = true
			break
		}
	}
	v.Editable = editable && !v.Disabled
	return v
}

func fallbackValue(group Group, fallback map[string]string) string {
	for _, alias := range group.Aliases {
		if value := fallback[alias]; strings.TrimSpace(value) != "" {
			return value
		}
	}
	if value := fallback[group.Canonical]; strings.TrimSpace(value) != "" {
		return value
	}
	return ""
}

func autoFilled(def schema.TemplateDefinition, canonical string, parsed map[string]any) bool {
	if !def.IsParsed() || parsed == nil {
		return false
	}
	key := strings.TrimSpace(def.ParsedField)
	if key == "" {
		key = canonical
	}
	value, ok := lookupPath(parsed, key)
	return ok && value != nil
}

// lookupPath reads a dotted path such as "event.title".
func lookupPath(data map[string]any, path string) (any, bool) {
	if value, ok := data[path]; ok {
		return value, true
	}
	current := any(data)
	for _, part := range strings.Split(path, ".") {
		node := content.Map(current)
		if node == nil {
			return nil, false
		}
		next, ok := node[part]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

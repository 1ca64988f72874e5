package variables

import (
	"strings"

	"github.com/goliatone/go-postgen/pkg/content"
	"github.com/goliatone/go-postgen/pkg/host"
	"github.com/goliatone/go-postgen/pkg/schema"
)

// AliasesOf returns the alias set of the canonical variable that name belongs
// to. An unknown name is its own single alias.
func AliasesOf(defs []schema.TemplateDefinition, name string) []string {
	name = strings.TrimSpace(name)
	for _, group := range GroupDefinitions(defs) {
		if group.Canonical == name {
			return aliasesOrCanonical(group)
		}
		for _, alias := range group.Aliases {
			if alias == name {
				return aliasesOrCanonical(group)
			}
		}
	}
	if name == "" {
		return nil
	}
	return []string{name}
}

func aliasesOrCanonical(group Group) []string {
	if len(group.Aliases) == 0 {
		return []string{group.Canonical}
	}
	return append([]string(nil), group.Aliases...)
}

// Write returns a copy of state with value stored under `_var_<alias>` for
// every alias of the variable name belongs to.
func Write(state content.State, defs []schema.TemplateDefinition, name, value string) content.State {
	out := state.Clone()
	for _, alias := range AliasesOf(defs, name) {
		out[content.VarKey(alias)] = value
	}
	return out
}

// SetDisabled returns a copy of state with the lock flag of every alias set
// or cleared.
func SetDisabled(state content.State, defs []schema.TemplateDefinition, name string, disabled bool) content.State {
	out := state.Clone()
	for _, alias := range AliasesOf(defs, name) {
		if disabled {
			out[content.DisabledKey(alias)] = true
			continue
		}
		delete(out, content.DisabledKey(alias))
	}
	return out
}

// PersistentVariables lists the aliases whose overrides outlive the template
// that introduced them.
func PersistentVariables(state content.State) map[string]string {
	return state.PersistentVariables()
}

// FallbackFromParsed derives the fallback map from parsed event data. Parsed
// definitions read their parsedField (or canonical name), file definitions
// receive the first uploaded file name, and every top-level scalar of parsed
// is offered under its own key.
func FallbackFromParsed(defs []schema.TemplateDefinition, provider host.DataProvider) map[string]string {
	out := make(map[string]string)
	if provider == nil {
		return out
	}
	parsed := provider.ParsedData()
	for key, value := range parsed {
		if content.Map(value) != nil {
			continue
		}
		if text := content.String(value); text != "" {
			out[key] = text
		}
	}

	files := provider.UploadedFiles()
	for _, def := range defs {
		canonical := def.Canonical()
		switch {
		case def.IsParsed():
			key := strings.TrimSpace(def.ParsedField)
			if key == "" {
				key = canonical
			}
			if value, ok := lookupPath(parsed, key); ok {
				if text := content.String(value); text != "" {
					out[canonical] = text
				}
			}
		case def.Source == schema.VariableSourceFile && len(files) > 0:
			name := files[0].Name
			if name == "" {
				name = files[0].ID
			}
			out[canonical] = name
		}
	}
	return out
}

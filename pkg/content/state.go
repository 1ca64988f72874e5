// Package content models the mutable content object the engine edits. A
// State is a flat map from field name to value plus three reserved key
// families: `_var_<alias>` variable overrides, `_disabled_<alias>` lock flags
// and `_templates`, the ordered application history.
//
// State values are treated as snapshots. Every helper returns a new State and
// leaves its receiver untouched so hosts can diff and persist freely.
package content

import (
	"reflect"
	"sort"
	"strings"

	"github.com/mohae/deepcopy"
)

const (
	// VarPrefix marks explicit per-alias variable overrides.
	VarPrefix = "_var_"
	// DisabledPrefix marks per-alias lock flags.
	DisabledPrefix = "_disabled_"
	// TemplatesKey holds the AppliedTemplateEntry history.
	TemplatesKey = "_templates"
)

// State is one platform content snapshot.
type State map[string]any

// VarKey returns the override key for alias.
func VarKey(alias string) string { return VarPrefix + alias }

// DisabledKey returns the lock flag key for alias.
func DisabledKey(alias string) string { return DisabledPrefix + alias }

// IsReserved reports whether key belongs to one of the reserved families.
func IsReserved(key string) bool {
	return key == TemplatesKey || strings.HasPrefix(key, VarPrefix) || strings.HasPrefix(key, DisabledPrefix)
}

// Clone returns a deep copy of s. A nil State clones to an empty State.
func (s State) Clone() State {
	if len(s) == 0 {
		return State{}
	}
	copied, ok := deepcopy.Copy(map[string]any(s)).(map[string]any)
	if !ok {
		out := make(State, len(s))
		for key, value := range s {
			out[key] = value
		}
		return out
	}
	return State(copied)
}

// Get returns the raw value stored under key.
func (s State) Get(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	value, ok := s[key]
	return value, ok
}

// With returns a copy of s with key set to value.
func (s State) With(key string, value any) State {
	out := s.Clone()
	out[key] = deepcopy.Copy(value)
	return out
}

// Without returns a copy of s with the listed keys removed.
func (s State) Without(keys ...string) State {
	out := s.Clone()
	for _, key := range keys {
		delete(out, key)
	}
	return out
}

// Merge returns a copy of s overlaid with patch. Keys in patch win; keys only
// present in s survive.
func (s State) Merge(patch map[string]any) State {
	out := s.Clone()
	for key, value := range patch {
		out[key] = deepcopy.Copy(value)
	}
	return out
}

// Equal reports deep equality between two snapshots after normalising nil
// and empty maps.
func (s State) Equal(other State) bool {
	if len(s) == 0 && len(other) == 0 {
		return true
	}
	return reflect.DeepEqual(map[string]any(s), map[string]any(other))
}

// Keys returns the sorted non-reserved keys.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		if IsReserved(key) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Fields returns a copy of the non-reserved entries.
func (s State) Fields() map[string]any {
	out := make(map[string]any, len(s))
	for key, value := range s {
		if IsReserved(key) {
			continue
		}
		out[key] = deepcopy.Copy(value)
	}
	return out
}

// Var returns the override stored for alias as a string.
func (s State) Var(alias string) string {
	return String(s[VarKey(alias)])
}

// IsDisabled reports whether alias is locked.
func (s State) IsDisabled(alias string) bool {
	return Bool(s[DisabledKey(alias)])
}

// PersistentVariables returns every alias whose `_var_` override holds a
// non-empty value. These survive template removal and replacement.
func (s State) PersistentVariables() map[string]string {
	out := make(map[string]string)
	for key, value := range s {
		if !strings.HasPrefix(key, VarPrefix) {
			continue
		}
		alias := strings.TrimPrefix(key, VarPrefix)
		if alias == "" || IsEmpty(value) {
			continue
		}
		out[alias] = String(value)
	}
	return out
}

package content

import (
	"encoding/json"
	"time"
)

// TargetMode selects the audience of a template application.
type TargetMode string

const (
	TargetModeAll        TargetMode = "all"
	TargetModeGroups     TargetMode = "groups"
	TargetModeIndividual TargetMode = "individual"
)

// Keys used inside a targets value object.
const (
	TargetsModeKey           = "mode"
	TargetsIndividualKey     = "individual"
	TargetsGroupsKey         = "groups"
	TargetsTargetNamesKey    = "targetNames"
	TargetsGroupNamesKey     = "groupNames"
	TargetsTemplateLocaleKey = "templateLocale"
)

// TargetsConfig is the recipient selection attached to a template
// application.
type TargetsConfig struct {
	Mode           TargetMode `json:"mode"`
	Individual     []string   `json:"individual,omitempty"`
	Groups         []string   `json:"groups,omitempty"`
	TargetNames    []string   `json:"targetNames,omitempty"`
	GroupNames     []string   `json:"groupNames,omitempty"`
	TemplateLocale string     `json:"templateLocale,omitempty"`
}

// DefaultTargets is the selection used when the caller supplies none.
func DefaultTargets() TargetsConfig {
	return TargetsConfig{Mode: TargetModeAll}
}

// TargetsFromValue decodes a targets object from the loose shapes content
// carries (map, struct or JSON round-tripped values).
func TargetsFromValue(v any) (TargetsConfig, bool) {
	switch value := v.(type) {
	case TargetsConfig:
		return value, true
	case *TargetsConfig:
		if value == nil {
			return TargetsConfig{}, false
		}
		return *value, true
	}
	raw := Map(v)
	if len(raw) == 0 {
		return TargetsConfig{}, false
	}
	cfg := TargetsConfig{
		Mode:           TargetMode(String(raw[TargetsModeKey])),
		Individual:     Strings(raw[TargetsIndividualKey]),
		Groups:         Strings(raw[TargetsGroupsKey]),
		TargetNames:    Strings(raw[TargetsTargetNamesKey]),
		GroupNames:     Strings(raw[TargetsGroupNamesKey]),
		TemplateLocale: String(raw[TargetsTemplateLocaleKey]),
	}
	return cfg, true
}

// ContentValue returns the targets object as written into the generic
// content key. templateLocale is omitted: it belongs to the audit entry only.
func (t TargetsConfig) ContentValue() map[string]any {
	out := map[string]any{TargetsModeKey: string(t.Mode)}
	if len(t.Individual) > 0 {
		out[TargetsIndividualKey] = append([]string(nil), t.Individual...)
	}
	if len(t.Groups) > 0 {
		out[TargetsGroupsKey] = append([]string(nil), t.Groups...)
	}
	return out
}

// AppliedTemplateEntry is one record of the append-only application history.
type AppliedTemplateEntry struct {
	ID            string        `json:"id"`
	TemplateID    string        `json:"templateId"`
	TemplateName  string        `json:"templateName"`
	Targets       TargetsConfig `json:"targets"`
	SpecificFiles []string      `json:"specificFiles,omitempty"`
	AppliedAt     time.Time     `json:"appliedAt"`
}

// Templates decodes the `_templates` history. Entries that cannot be decoded
// are skipped.
func (s State) Templates() []AppliedTemplateEntry {
	raw, ok := s[TemplatesKey]
	if !ok || raw == nil {
		return nil
	}
	switch value := raw.(type) {
	case []AppliedTemplateEntry:
		return append([]AppliedTemplateEntry(nil), value...)
	case []any:
		out := make([]AppliedTemplateEntry, 0, len(value))
		for _, item := range value {
			if entry, ok := decodeEntry(item); ok {
				out = append(out, entry)
			}
		}
		return out
	default:
		payload, err := json.Marshal(raw)
		if err != nil {
			return nil
		}
		var out []AppliedTemplateEntry
		if err := json.Unmarshal(payload, &out); err != nil {
			return nil
		}
		return out
	}
}

func decodeEntry(item any) (AppliedTemplateEntry, bool) {
	if entry, ok := item.(AppliedTemplateEntry); ok {
		return entry, true
	}
	payload, err := json.Marshal(item)
	if err != nil {
		return AppliedTemplateEntry{}, false
	}
	var entry AppliedTemplateEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return AppliedTemplateEntry{}, false
	}
	return entry, true
}

// WithTemplate returns a copy of s with entry appended to the history.
// Existing entries are never replaced.
func (s State) WithTemplate(entry AppliedTemplateEntry) State {
	history := append(s.Templates(), entry)
	return s.With(TemplatesKey, history)
}

// WithoutTemplate returns a copy of s with the entry id removed from the
// history. Content fields merged by that application are left alone.
func (s State) WithoutTemplate(id string) State {
	history := s.Templates()
	kept := make([]AppliedTemplateEntry, 0, len(history))
	for _, entry := range history {
		if entry.ID == id {
			continue
		}
		kept = append(kept, entry)
	}
	return s.With(TemplatesKey, kept)
}

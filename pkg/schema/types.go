package schema

import (
	"encoding/json"
	"strings"
)

// FieldType is the closed set of editable field kinds a platform schema can
// declare. Renderers dispatch on it; see FieldTypes for the full list.
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeTextarea    FieldType = "textarea"
	FieldTypeNumber      FieldType = "number"
	FieldTypeBoolean     FieldType = "boolean"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiselect FieldType = "multiselect"
	FieldTypePassword    FieldType = "password"
	FieldTypeDate        FieldType = "date"
	FieldTypeTime        FieldType = "time"
	FieldTypeDatetime    FieldType = "datetime"
	FieldTypeTargetList  FieldType = "target-list"
	FieldTypeButton      FieldType = "button"
	FieldTypeComposite   FieldType = "composite"
	// FieldTypeTargets is a composite block whose value is a targets object
	// ({mode, individual, groups, templateLocale}).
	FieldTypeTargets FieldType = "targets"
)

var knownFieldTypes = []FieldType{
	FieldTypeText,
	FieldTypeTextarea,
	FieldTypeNumber,
	FieldTypeBoolean,
	FieldTypeSelect,
	FieldTypeMultiselect,
	FieldTypePassword,
	FieldTypeDate,
	FieldTypeTime,
	FieldTypeDatetime,
	FieldTypeTargetList,
	FieldTypeButton,
	FieldTypeComposite,
	FieldTypeTargets,
}

// FieldTypes returns every supported field type in declaration order.
func FieldTypes() []FieldType {
	return append([]FieldType(nil), knownFieldTypes...)
}

// Known reports whether t belongs to the supported set.
func (t FieldType) Known() bool {
	for _, known := range knownFieldTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsComposite reports whether the type carries a sub-field schema.
func (t FieldType) IsComposite() bool {
	return t == FieldTypeComposite || t == FieldTypeTargets
}

const (
	RuleRequired  = "required"
	RuleMinLength = "minLength"
	RuleMaxLength = "maxLength"
	RuleMin       = "min"
	RuleMax       = "max"
	RulePattern   = "pattern"
	RuleURL       = "url"
	RuleCustom    = "custom"
)

// ValidationRule is a single constraint attached to a field. Value holds the
// rule parameter (length, bound, regular expression or custom predicate
// name). Message overrides the templated default when set.
type ValidationRule struct {
	Type    string `json:"type" yaml:"type"`
	Value   any    `json:"value,omitempty" yaml:"value,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Option is the canonical selectable entry. Remote payloads are normalised
// into this shape at the network boundary.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// OptionsSource points a select field at a remote option list. Path is a
// dotted extraction path into the response payload (e.g. "data.items").
type OptionsSource struct {
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
}

// VisibleWhen hides a field unless Field currently holds Value.
type VisibleWhen struct {
	Field string `json:"field" yaml:"field"`
	Value any    `json:"value" yaml:"value"`
}

// UIHints carries presentation hints that do not change field semantics.
type UIHints struct {
	Order    int    `json:"order,omitempty" yaml:"order,omitempty"`
	Width    string `json:"width,omitempty" yaml:"width,omitempty"`
	Disabled bool   `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Hidden   bool   `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Widget   string `json:"widget,omitempty" yaml:"widget,omitempty"`
}

// SubField describes one part of a composite block.
type SubField struct {
	FieldType   FieldType    `json:"fieldType" yaml:"fieldType"`
	Source      string       `json:"source,omitempty" yaml:"source,omitempty"`
	Label       string       `json:"label,omitempty" yaml:"label,omitempty"`
	VisibleWhen *VisibleWhen `json:"visibleWhen,omitempty" yaml:"visibleWhen,omitempty"`
	Default     any          `json:"default,omitempty" yaml:"default,omitempty"`
	Options     []Option     `json:"options,omitempty" yaml:"options,omitempty"`
	Order       int          `json:"order,omitempty" yaml:"order,omitempty"`
}

// Field models an individual editable unit inside a platform schema.
type Field struct {
	Name          string           `json:"name" yaml:"name"`
	Type          FieldType        `json:"type" yaml:"type"`
	Label         string           `json:"label,omitempty" yaml:"label,omitempty"`
	Description   string           `json:"description,omitempty" yaml:"description,omitempty"`
	Placeholder   string           `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Required      bool             `json:"required,omitempty" yaml:"required,omitempty"`
	Default       any              `json:"default,omitempty" yaml:"default,omitempty"`
	Validation    []ValidationRule `json:"validation,omitempty" yaml:"validation,omitempty"`
	Options       []Option         `json:"options,omitempty" yaml:"options,omitempty"`
	OptionsSource *OptionsSource   `json:"optionsSource,omitempty" yaml:"optionsSource,omitempty"`
	VisibleWhen   *VisibleWhen     `json:"visibleWhen,omitempty" yaml:"visibleWhen,omitempty"`
	UI            UIHints          `json:"ui,omitempty" yaml:"ui,omitempty"`
	// Action is the host action a button forwards.
	Action string `json:"action,omitempty" yaml:"action,omitempty"`
	// Schema and DataEndpoints are only meaningful for composite types.
	Schema        map[string]SubField `json:"schema,omitempty" yaml:"schema,omitempty"`
	DataEndpoints map[string]string   `json:"dataEndpoints,omitempty" yaml:"dataEndpoints,omitempty"`
}

// SubFieldKeys returns the composite sub-field keys ordered by their Order
// hint and then by key.
func (f Field) SubFieldKeys() []string {
	keys := make([]string, 0, len(f.Schema))
	for key := range f.Schema {
		keys = append(keys, key)
	}
	sortSubFieldKeys(keys, f.Schema)
	return keys
}

// FieldGroup buckets field names for UI grouping. Method is a classification
// tag only.
type FieldGroup struct {
	Name   string   `json:"name" yaml:"name"`
	Label  string   `json:"label,omitempty" yaml:"label,omitempty"`
	Method string   `json:"method,omitempty" yaml:"method,omitempty"`
	Fields []string `json:"fields" yaml:"fields"`
}

// Section is one editable area of a platform schema (editor, settings, ...).
type Section struct {
	Fields []Field      `json:"fields,omitempty" yaml:"fields,omitempty"`
	Groups []FieldGroup `json:"groups,omitempty" yaml:"groups,omitempty"`
}

// Field looks up a field by name.
func (s Section) Field(name string) (Field, bool) {
	for _, field := range s.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// TargetsField returns the first targets block declared in the section.
func (s Section) TargetsField() (Field, bool) {
	for _, field := range s.Fields {
		if field.Type == FieldTypeTargets {
			return field, true
		}
	}
	return Field{}, false
}

// UnmarshalJSON accepts both {"fields": [...]} and a bare field array.
func (s *Section) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var fields []Field
		if err := json.Unmarshal(data, &fields); err != nil {
			return err
		}
		*s = Section{Fields: fields}
		return nil
	}
	type section Section
	var decoded section
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*s = Section(decoded)
	return nil
}

// PlatformSchema groups the sections served for one platform.
type PlatformSchema struct {
	Platform    string  `json:"platform,omitempty" yaml:"platform,omitempty"`
	Editor      Section `json:"editor" yaml:"editor"`
	Settings    Section `json:"settings,omitempty" yaml:"settings,omitempty"`
	Credentials Section `json:"credentials,omitempty" yaml:"credentials,omitempty"`
	Template    Section `json:"template,omitempty" yaml:"template,omitempty"`
}

// Sections returns the named sections in a stable order.
func (p PlatformSchema) Sections() map[string]Section {
	return map[string]Section{
		"editor":      p.Editor,
		"settings":    p.Settings,
		"credentials": p.Credentials,
		"template":    p.Template,
	}
}

const (
	VariableSourceParsed         = "parsed"
	VariableSourceParsedOptional = "parsed_optional"
	VariableSourceManual         = "manual"
	VariableSourceFile           = "file"
)

// TemplateDefinition declares one placeholder variable of a template.
type TemplateDefinition struct {
	Name          string   `json:"name" yaml:"name"`
	CanonicalName string   `json:"canonicalName,omitempty" yaml:"canonicalName,omitempty"`
	Aliases       []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Label         string   `json:"label,omitempty" yaml:"label,omitempty"`
	Type          string   `json:"type,omitempty" yaml:"type,omitempty"`
	Source        string   `json:"source,omitempty" yaml:"source,omitempty"`
	ParsedField   string   `json:"parsedField,omitempty" yaml:"parsedField,omitempty"`
	Editable      *bool    `json:"editable,omitempty" yaml:"editable,omitempty"`
	ShowWhenEmpty *bool    `json:"showWhenEmpty,omitempty" yaml:"showWhenEmpty,omitempty"`
	Icon          string   `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// Canonical returns CanonicalName, defaulting to Name.
func (d TemplateDefinition) Canonical() string {
	if name := strings.TrimSpace(d.CanonicalName); name != "" {
		return name
	}
	return strings.TrimSpace(d.Name)
}

// IsParsed reports whether the variable is sourced from parsed event data.
func (d TemplateDefinition) IsParsed() bool {
	return d.Source == VariableSourceParsed || d.Source == VariableSourceParsedOptional
}

// Template is a catalog record as served by the template endpoints.
type Template struct {
	ID                  string               `json:"id" yaml:"id"`
	Name                string               `json:"name" yaml:"name"`
	Platform            string               `json:"platform,omitempty" yaml:"platform,omitempty"`
	Category            string               `json:"category,omitempty" yaml:"category,omitempty"`
	Description         string               `json:"description,omitempty" yaml:"description,omitempty"`
	Content             map[string]string    `json:"content,omitempty" yaml:"content,omitempty"`
	VariableDefinitions []TemplateDefinition `json:"variableDefinitions,omitempty" yaml:"variableDefinitions,omitempty"`
}

// Category groups catalog templates.
type Category struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

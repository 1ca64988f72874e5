package openapi

import (
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-postgen/pkg/content"
	"github.com/goliatone/go-postgen/pkg/schema"
)

const (
	// ExtensionKey carries field overrides: type, widget, order, width,
	// hidden, disabled, placeholder, action, visibleWhen and dataEndpoints.
	ExtensionKey = "x-postgen"
	// EndpointExtensionKey points a property at a remote option list, either
	// as a string endpoint or {url|endpoint, path}.
	EndpointExtensionKey = "x-endpoint"
)

// textareaThreshold promotes long strings to textareas.
const textareaThreshold = 280

// FieldsFromSchema converts the properties of an object schema to fields
// ordered by the x-postgen order hint and then by name. Read-only properties
// are skipped.
func (p *Parser) FieldsFromSchema(ref *openapi3.SchemaRef) []schema.Field {
	if ref == nil || ref.Value == nil || len(ref.Value.Properties) == 0 {
		return nil
	}
	src := ref.Value
	required := make(map[string]struct{}, len(src.Required))
	for _, name := range src.Required {
		required[name] = struct{}{}
	}

	fields := make([]schema.Field, 0, len(src.Properties))
	for name, prop := range src.Properties {
		if prop == nil || prop.Value == nil || prop.Value.ReadOnly {
			continue
		}
		_, isRequired := required[name]
		fields = append(fields, p.fieldFromProperty(name, prop.Value, isRequired))
	}
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].UI.Order != fields[j].UI.Order {
			return fields[i].UI.Order < fields[j].UI.Order
		}
		return fields[i].Name < fields[j].Name
	})
	return fields
}

func (p *Parser) fieldFromProperty(name string, src *openapi3.Schema, required bool) schema.Field {
	field := schema.Field{
		Name:        name,
		Type:        fieldType(src),
		Label:       strings.TrimSpace(src.Title),
		Description: src.Description,
		Required:    required,
		Default:     src.Default,
		Options:     enumOptions(src),
	}
	if field.Label == "" && p.options.Labeler != nil {
		field.Label = p.options.Labeler(name)
	}
	if items := src.Items; field.Type == schema.FieldTypeMultiselect && len(field.Options) == 0 && items != nil && items.Value != nil {
		field.Options = enumOptions(items.Value)
	}
	field.Validation = validationRules(src)

	if src.Type != nil && src.Type.Is(openapi3.TypeObject) && len(src.Properties) > 0 {
		field.Type = schema.FieldTypeComposite
		field.Schema = subFields(p, src)
	}

	applyEndpoint(&field, src.Extensions[EndpointExtensionKey])
	applyOverrides(&field, content.Map(src.Extensions[ExtensionKey]))
	return field
}

func fieldType(src *openapi3.Schema) schema.FieldType {
	typ := firstSchemaType(src.Type)
	switch typ {
	case openapi3.TypeInteger, openapi3.TypeNumber:
		return schema.FieldTypeNumber
	case openapi3.TypeBoolean:
		return schema.FieldTypeBoolean
	case openapi3.TypeArray:
		return schema.FieldTypeMultiselect
	case openapi3.TypeObject:
		return schema.FieldTypeComposite
	}
	if len(src.Enum) > 0 {
		return schema.FieldTypeSelect
	}
	switch strings.ToLower(src.Format) {
	case "date":
		return schema.FieldTypeDate
	case "time":
		return schema.FieldTypeTime
	case "date-time", "datetime", "datetime-local":
		return schema.FieldTypeDatetime
	case "password":
		return schema.FieldTypePassword
	case "textarea", "html", "markdown":
		return schema.FieldTypeTextarea
	}
	if src.MaxLength != nil && *src.MaxLength > textareaThreshold {
		return schema.FieldTypeTextarea
	}
	return schema.FieldTypeText
}

func firstSchemaType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	for _, value := range types.Slice() {
		if value != openapi3.TypeNull {
			return value
		}
	}
	return ""
}

func enumOptions(src *openapi3.Schema) []schema.Option {
	if len(src.Enum) == 0 {
		return nil
	}
	labels := content.Map(src.Extensions["x-enum-labels"])
	out := make([]schema.Option, 0, len(src.Enum))
	for _, value := range src.Enum {
		text := content.String(value)
		if text == "" {
			continue
		}
		label := content.String(labels[text])
		if label == "" {
			label = text
		}
		out = append(out, schema.Option{Label: label, Value: text})
	}
	return out
}

func validationRules(src *openapi3.Schema) []schema.ValidationRule {
	var rules []schema.ValidationRule
	if src.MinLength > 0 {
		rules = append(rules, schema.ValidationRule{Type: schema.RuleMinLength, Value: int(src.MinLength)})
	}
	if src.MaxLength != nil {
		rules = append(rules, schema.ValidationRule{Type: schema.RuleMaxLength, Value: int(*src.MaxLength)})
	}
	if src.Min != nil {
		rules = append(rules, schema.ValidationRule{Type: schema.RuleMin, Value: *src.Min})
	}
	if src.Max != nil {
		rules = append(rules, schema.ValidationRule{Type: schema.RuleMax, Value: *src.Max})
	}
	if src.Pattern != "" {
		rules = append(rules, schema.ValidationRule{Type: schema.RulePattern, Value: src.Pattern})
	}
	switch strings.ToLower(src.Format) {
	case "uri", "url", "iri":
		rules = append(rules, schema.ValidationRule{Type: schema.RuleURL})
	}
	return rules
}

func subFields(p *Parser, src *openapi3.Schema) map[string]schema.SubField {
	out := make(map[string]schema.SubField, len(src.Properties))
	for name, prop := range src.Properties {
		if prop == nil || prop.Value == nil {
			continue
		}
		field := p.fieldFromProperty(name, prop.Value, false)
		out[name] = schema.SubField{
			FieldType:   field.Type,
			Label:       field.Label,
			Default:     field.Default,
			Options:     field.Options,
			VisibleWhen: field.VisibleWhen,
			Order:       field.UI.Order,
			Source:      content.String(content.Map(prop.Value.Extensions[ExtensionKey])["source"]),
		}
	}
	return out
}

func applyEndpoint(field *schema.Field, raw any) {
	switch value := raw.(type) {
	case nil:
		return
	case string:
		if endpoint := strings.TrimSpace(value); endpoint != "" {
			field.OptionsSource = &schema.OptionsSource{Endpoint: endpoint}
		}
	default:
		cfg := content.Map(value)
		endpoint := strings.TrimSpace(content.String(cfg["url"]))
		if endpoint == "" {
			endpoint = strings.TrimSpace(content.String(cfg["endpoint"]))
		}
		if endpoint == "" {
			return
		}
		field.OptionsSource = &schema.OptionsSource{Endpoint: endpoint, Path: content.String(cfg["path"])}
	}
	if field.Type == schema.FieldTypeText {
		field.Type = schema.FieldTypeSelect
	}
}

func applyOverrides(field *schema.Field, ext map[string]any) {
	if len(ext) == 0 {
		return
	}
	if typ := schema.FieldType(content.String(ext["type"])); typ.Known() {
		field.Type = typ
	}
	if widget := content.String(ext["widget"]); widget != "" {
		field.UI.Widget = widget
	}
	if order, ok := content.Number(ext["order"]); ok {
		field.UI.Order = int(order)
	}
	if width := content.String(ext["width"]); width != "" {
		field.UI.Width = width
	}
	if _, ok := ext["hidden"]; ok {
		field.UI.Hidden = content.Bool(ext["hidden"])
	}
	if _, ok := ext["disabled"]; ok {
		field.UI.Disabled = content.Bool(ext["disabled"])
	}
	if placeholder := content.String(ext["placeholder"]); placeholder != "" {
		field.Placeholder = placeholder
	}
	if action := content.String(ext["action"]); action != "" {
		field.Action = action
	}
	if when := content.Map(ext["visibleWhen"]); when != nil {
		if target := content.String(when["field"]); target != "" {
			field.VisibleWhen = &schema.VisibleWhen{Field: target, Value: when["value"]}
		}
	}
	if endpoints := content.Map(ext["dataEndpoints"]); len(endpoints) > 0 {
		field.DataEndpoints = make(map[string]string, len(endpoints))
		for key, value := range endpoints {
			field.DataEndpoints[key] = content.String(value)
		}
	}
}

// Package render turns schema fields into control descriptors. Rendering is a
// pure function of its inputs: the Renderer keeps no per-field state, so the
// same field, value and context always produce the same descriptor.
package render

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mohae/deepcopy"

	"github.com/goliatone/go-postgen/pkg/content"
	"github.com/goliatone/go-postgen/pkg/options"
	"github.com/goliatone/go-postgen/pkg/schema"
	"github.com/goliatone/go-postgen/pkg/visibility"
	"github.com/goliatone/go-postgen/pkg/widgets"
)

// Translation keys for renderer generated text.
const (
	KeyNoOptions          = "render.options.empty"
	KeyMissingPlatform    = "render.targetList.missingPlatform"
	KeyUnsupportedType    = "render.field.unsupported"
	KeyMissingButtonEvent = "render.button.missingAction"
)

type builder func(r *Renderer, d *ControlDescriptor, field schema.Field, value any, ctx Context)

// builders is keyed by the closed field type set. Supports reports coverage.
var builders = map[schema.FieldType]builder{
	schema.FieldTypeText:        scalarControl(KindText),
	schema.FieldTypeTextarea:    scalarControl(KindTextarea),
	schema.FieldTypePassword:    scalarControl(KindPassword),
	schema.FieldTypeNumber:      buildNumber,
	schema.FieldTypeBoolean:     buildBoolean,
	schema.FieldTypeSelect:      buildSelect,
	schema.FieldTypeMultiselect: buildSelect,
	schema.FieldTypeDate:        temporalControl(KindDate, DateLayout),
	schema.FieldTypeTime:        temporalControl(KindTime, TimeLayout),
	schema.FieldTypeDatetime:    temporalControl(KindDatetime, DatetimeLayout),
	schema.FieldTypeTargetList:  buildTargetList,
	schema.FieldTypeButton:      buildButton,
}

// Composite builders recurse through Render, which reads builders.
func init() {
	builders[schema.FieldTypeComposite] = buildComposite
	builders[schema.FieldTypeTargets] = buildComposite
}

// Supports reports whether the renderer has a control builder for t.
func Supports(t schema.FieldType) bool {
	_, ok := builders[t]
	return ok
}

// Renderer builds control descriptors.
type Renderer struct {
	localizer  Localizer
	widgets    *widgets.Registry
	visibility visibility.Evaluator
	logger     *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTranslator resolves label, description and placeholder keys.
func WithTranslator(t Translator) Option {
	return func(r *Renderer) {
		r.localizer.Translator = t
	}
}

// WithLocale sets the locale passed to the Translator.
func WithLocale(locale string) Option {
	return func(r *Renderer) {
		r.localizer.Locale = strings.TrimSpace(locale)
	}
}

// WithMissingTranslation overrides the fallback for missing keys.
func WithMissingTranslation(handler MissingTranslationHandler) Option {
	return func(r *Renderer) {
		r.localizer.OnMissing = handler
	}
}

// WithWidgets overrides the widget registry.
func WithWidgets(reg *widgets.Registry) Option {
	return func(r *Renderer) {
		if reg != nil {
			r.widgets = reg
		}
	}
}

// WithVisibility overrides the evaluator used by RenderSection.
func WithVisibility(evaluator visibility.Evaluator) Option {
	return func(r *Renderer) {
		if evaluator != nil {
			r.visibility = evaluator
		}
	}
}

// WithLogger sets the logger used for configuration warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New constructs a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.widgets == nil {
		r.widgets = widgets.NewRegistry()
	}
	if r.visibility == nil {
		r.visibility = visibility.Default
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Localizer exposes the renderer's translation settings.
func (r *Renderer) Localizer() Localizer {
	return r.localizer
}

// Render describes the control for field holding value. onChange receives
// parsed edits; errMsg is the validation message to display, if any.
func (r *Renderer) Render(field schema.Field, value any, onChange ChangeFunc, errMsg string, ctx Context) ControlDescriptor {
	d := ControlDescriptor{
		Name:        field.Name,
		Type:        field.Type,
		Label:       r.localizer.Text(field.Label),
		Description: r.localizer.Text(field.Description),
		Placeholder: r.localizer.Text(field.Placeholder),
		Required:    field.Required,
		Disabled:    field.UI.Disabled,
		Hidden:      field.UI.Hidden || !visibility.Matches(field.VisibleWhen, ctx.Values),
		Error:       strings.TrimSpace(errMsg),
		Width:       field.UI.Width,
		Order:       field.UI.Order,
	}
	if d.Label == "" {
		d.Label = field.Name
	}
	if widget, ok := r.widgets.Resolve(field); ok {
		d.Widget = widget
	}

	build, ok := builders[field.Type]
	if !ok {
		r.buildUnsupported(&d, field)
		return d
	}

	if value == nil && field.Default != nil {
		value = field.Default
	}
	if onChange != nil {
		d.Input = func(raw any) {
			onChange(field.Name, Parse(field, raw))
		}
	}
	build(r, &d, field, value, ctx)
	if d.Disabled {
		d.Input = nil
	}
	return d
}

func (r *Renderer) buildUnsupported(d *ControlDescriptor, field schema.Field) {
	name := string(field.Type)
	if name == "" {
		name = "(empty)"
	}
	d.Kind = KindUnsupported
	d.Label = name
	d.Disabled = true
	d.Warning = r.localizer.TextOr(KeyUnsupportedType, fmt.Sprintf("unsupported field type %q", name), name)
	r.logger.Warn("unsupported field type", slog.String("field", field.Name), slog.String("type", name))
}

func scalarControl(kind Kind) builder {
	return func(_ *Renderer, d *ControlDescriptor, _ schema.Field, value any, _ Context) {
		d.Kind = kind
		d.Value = content.String(value)
	}
}

func temporalControl(kind Kind, layout string) builder {
	return func(_ *Renderer, d *ControlDescriptor, _ schema.Field, value any, _ Context) {
		d.Kind = kind
		if parsed := parseTemporal(value, layout); parsed != nil {
			d.Value = parsed
		}
	}
}

func buildNumber(_ *Renderer, d *ControlDescriptor, _ schema.Field, value any, _ Context) {
	d.Kind = KindNumber
	if n, ok := content.Number(value); ok {
		d.Value = n
	}
}

func buildBoolean(_ *Renderer, d *ControlDescriptor, _ schema.Field, value any, _ Context) {
	d.Kind = KindToggle
	d.Value = content.Bool(value)
}

func buildSelect(r *Renderer, d *ControlDescriptor, field schema.Field, value any, ctx Context) {
	opts := fieldOptions(field, ctx)
	if len(opts) == 0 {
		d.Kind = KindPlaceholder
		d.Disabled = true
		d.Placeholder = r.localizer.TextOr(KeyNoOptions, "No options available")
		return
	}
	d.Options = opts
	if field.Type == schema.FieldTypeMultiselect {
		d.Kind = KindMultiselect
		selected := content.Strings(value)
		if selected == nil {
			selected = []string{}
		}
		d.Value = selected
		return
	}
	d.Kind = KindSelect
	d.Value = content.String(value)
}

func buildTargetList(r *Renderer, d *ControlDescriptor, field schema.Field, value any, ctx Context) {
	d.Kind = KindListTable
	rows := content.Strings(value)
	if rows == nil {
		rows = []string{}
	}
	d.Value = rows
	d.Options = fieldOptions(field, ctx)

	platform := strings.TrimSpace(ctx.PlatformID)
	if platform == "" {
		d.Disabled = true
		d.Warning = r.localizer.TextOr(KeyMissingPlatform, fmt.Sprintf("%s requires a platform", field.Name), field.Name)
		r.logger.Warn("target list rendered without platform id", slog.String("field", field.Name))
		return
	}
	if field.OptionsSource != nil {
		d.Endpoint = options.ExpandEndpoint(field.OptionsSource.Endpoint, platform)
	}
}

func buildButton(r *Renderer, d *ControlDescriptor, field schema.Field, _ any, ctx Context) {
	d.Kind = KindButton
	d.Action = field.Action
	d.Input = nil
	if strings.TrimSpace(field.Action) == "" {
		d.Disabled = true
		d.Warning = r.localizer.TextOr(KeyMissingButtonEvent, fmt.Sprintf("%s has no action", field.Name), field.Name)
		return
	}
	if ctx.OnAction == nil || d.Disabled {
		return
	}
	onAction := ctx.OnAction
	values := ctx.Values
	d.Press = func() {
		snapshot, _ := deepcopy.Copy(values).(map[string]any)
		if snapshot == nil {
			snapshot = map[string]any{}
		}
		onAction(field.Action, field, snapshot)
	}
}

// buildComposite renders sub-fields as children. Every child edit emits the
// whole composite object.
func buildComposite(r *Renderer, d *ControlDescriptor, field schema.Field, value any, ctx Context) {
	d.Kind = KindComposite
	current := content.Map(value)
	if current == nil {
		current = map[string]any{}
	}
	current, _ = deepcopy.Copy(current).(map[string]any)
	d.Value = current

	parentInput := d.Input
	d.Input = nil

	childCtx := Context{
		PlatformID: ctx.PlatformID,
		Values:     current,
		Options:    subOptions(field, ctx),
		OnAction:   ctx.OnAction,
	}
	for _, key := range field.SubFieldKeys() {
		sub := field.Schema[key]
		child := schema.Field{
			Name:        key,
			Type:        sub.FieldType,
			Label:       sub.Label,
			Default:     sub.Default,
			Options:     sub.Options,
			VisibleWhen: sub.VisibleWhen,
			UI:          schema.UIHints{Order: sub.Order, Disabled: field.UI.Disabled},
		}
		var onChild ChangeFunc
		if parentInput != nil {
			onChild = func(name string, v any) {
				next, _ := deepcopy.Copy(current).(map[string]any)
				if next == nil {
					next = map[string]any{}
				}
				next[name] = v
				parentInput(next)
			}
		}
		d.Children = append(d.Children, r.Render(child, current[key], onChild, "", childCtx))
	}
}

func fieldOptions(field schema.Field, ctx Context) []schema.Option {
	if remote, ok := ctx.Options[field.Name]; ok && len(remote) > 0 {
		return append([]schema.Option(nil), remote...)
	}
	return append([]schema.Option(nil), field.Options...)
}

func subOptions(field schema.Field, ctx Context) map[string][]schema.Option {
	out := make(map[string][]schema.Option, len(field.Schema))
	for key, sub := range field.Schema {
		if opts, ok := ctx.Options[field.Name+"."+key]; ok {
			out[key] = opts
			continue
		}
		if sub.Source != "" {
			if opts, ok := ctx.Options[sub.Source]; ok {
				out[key] = opts
			}
		}
	}
	return out
}

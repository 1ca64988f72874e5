// Package tui edits a schema section interactively in a terminal. Every
// field is drawn from the control descriptor the renderer produces, so the
// terminal editor and a graphical host share dispatch, visibility and
// parsing rules.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/goliatone/go-postgen/pkg/composite"
	"github.com/goliatone/go-postgen/pkg/content"
	"github.com/goliatone/go-postgen/pkg/failure"
	"github.com/goliatone/go-postgen/pkg/render"
	"github.com/goliatone/go-postgen/pkg/schema"
	"github.com/goliatone/go-postgen/pkg/validation"
)

// DefaultMaxAttempts bounds re-prompting of an invalid answer.
const DefaultMaxAttempts = 3

// Editor walks a section field by field.
type Editor struct {
	driver      PromptDriver
	renderer    *render.Renderer
	validator   *validation.Validator
	logger      *slog.Logger
	maxAttempts int
}

// Option configures an Editor.
type Option func(*Editor)

// WithPromptDriver overrides the prompt driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(e *Editor) {
		if driver != nil {
			e.driver = driver
		}
	}
}

// WithRenderer overrides the renderer producing control descriptors.
func WithRenderer(r *render.Renderer) Option {
	return func(e *Editor) {
		if r != nil {
			e.renderer = r
		}
	}
}

// WithValidator overrides the validator.
func WithValidator(v *validation.Validator) Option {
	return func(e *Editor) {
		if v != nil {
			e.validator = v
		}
	}
}

// WithMaxAttempts sets how often an invalid answer is re-prompted.
func WithMaxAttempts(n int) Option {
	return func(e *Editor) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New constructs an Editor backed by survey/v2 unless a driver is supplied.
func New(options ...Option) *Editor {
	e := &Editor{maxAttempts: DefaultMaxAttempts}
	for _, opt := range options {
		if opt != nil {
			opt(e)
		}
	}
	if e.driver == nil {
		e.driver = NewSurveyDriver(nil)
	}
	if e.renderer == nil {
		e.renderer = render.New()
	}
	if e.validator == nil {
		e.validator = validation.New(validation.WithLabeler(e.renderer.Localizer().FieldLabel))
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// EditSection prompts for every visible field of section in display order
// and returns the edited copy of state. Visibility is re-evaluated after
// each answer, so a field revealed by an earlier answer is asked too.
// Composite fields with a loaded controller in controllers are edited
// through it.
func (e *Editor) EditSection(ctx context.Context, section schema.Section, state content.State, rctx render.Context, controllers map[string]*composite.Controller) (content.State, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.driver == nil {
		return nil, ErrNoDriver
	}
	values := state.Clone()
	for _, field := range schema.SortFields(section.Fields) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if ctrl, ok := controllers[field.Name]; ok && field.Type.IsComposite() {
			if err := e.editComposite(ctx, field, ctrl, values, rctx); err != nil {
				return nil, err
			}
			continue
		}
		if err := e.editField(ctx, field, values, rctx); err != nil {
			return nil, err
		}
	}
	return values, nil
}

func (e *Editor) editField(ctx context.Context, field schema.Field, values content.State, rctx render.Context) error {
	onChange := func(name string, value any) {
		values[name] = value
	}
	describe := func() render.ControlDescriptor {
		rctx.Values = values
		return e.renderer.Render(field, values[field.Name], onChange, "", rctx)
	}

	d := describe()
	if d.Hidden {
		return nil
	}
	switch d.Kind {
	case render.KindButton:
		return e.pressButton(ctx, d)
	case render.KindComposite:
		for _, key := range field.SubFieldKeys() {
			child, ok := describe().Child(key)
			if !ok || child.Hidden {
				continue
			}
			if _, err := e.prompt(ctx, child); err != nil {
				return err
			}
		}
		return nil
	}

	for attempt := 1; ; attempt++ {
		answered, err := e.prompt(ctx, d)
		if err != nil || !answered {
			return err
		}
		msg := e.validator.Validate(field, values[field.Name])
		if msg == "" {
			return nil
		}
		if attempt >= e.maxAttempts {
			return &failure.Error{Kind: failure.KindValidation, Op: "tui.edit", Message: msg}
		}
		if err := e.driver.Info(ctx, fmt.Sprintf("Invalid %s: %s", d.Label, msg)); err != nil {
			return err
		}
		d = describe()
	}
}

func (e *Editor) pressButton(ctx context.Context, d render.ControlDescriptor) error {
	if d.Press == nil {
		if d.Warning != "" {
			return e.driver.Info(ctx, d.Warning)
		}
		return nil
	}
	ok, err := e.driver.Confirm(ctx, ConfirmConfig{Message: "Run " + d.Label + "?", Help: d.Description})
	if err != nil || !ok {
		return err
	}
	d.Press()
	return nil
}

// editComposite walks the sub-fields of a composite block. Every answer goes
// through ctrl, so each edit emits the whole value. Free-text entries of a
// sourced multiselect are registered before they are selected; a failed
// registration leaves the selection unchanged and shows the server text.
func (e *Editor) editComposite(ctx context.Context, field schema.Field, ctrl *composite.Controller, values content.State, rctx render.Context) error {
	if current, ok := values[field.Name]; ok {
		ctrl.Sync(content.Map(current))
	}
	ignore := func(string, any) {}
	describe := func() render.ControlDescriptor {
		rctx.Values = values
		rctx.Options = controllerOptions(rctx.Options, field, ctrl)
		return e.renderer.Render(field, ctrl.Value(), ignore, "", rctx)
	}
	if describe().Hidden {
		return nil
	}

	for _, key := range field.SubFieldKeys() {
		child, ok := describe().Child(key)
		if !ok || child.Hidden {
			continue
		}
		if editable, err := e.editable(ctx, child); !editable {
			if err != nil {
				return err
			}
			continue
		}

		raw, err := e.ask(ctx, child)
		if err != nil {
			return err
		}
		sub := field.Schema[key]
		if sub.FieldType == schema.FieldTypeMultiselect && sub.Source != "" {
			if err := e.addTargets(ctx, ctrl, key, child, content.Strings(raw)); err != nil {
				return err
			}
		} else {
			ctrl.Set(key, render.Parse(schema.Field{Name: key, Type: sub.FieldType, Default: sub.Default}, raw))
		}
		values[field.Name] = ctrl.Value()
	}
	values[field.Name] = ctrl.Value()
	return nil
}

// addTargets replaces the selection of key with picked. When the control
// offered options, picked are known values and further entries are asked
// as free text.
func (e *Editor) addTargets(ctx context.Context, ctrl *composite.Controller, key string, d render.ControlDescriptor, picked []string) error {
	entries := picked
	if len(d.Options) > 0 {
		ctrl.Set(key, append([]string{}, picked...))
		text, err := e.driver.Input(ctx, InputConfig{Message: d.Label + ": add others (comma separated)", Help: d.Description})
		if err != nil {
			return err
		}
		entries = splitList(text)
	} else {
		ctrl.Set(key, []string{})
	}

	for _, entry := range entries {
		if _, err := ctrl.AddTarget(ctx, key, entry); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			e.logger.Warn("target registration failed", slog.String("field", key), slog.String("value", entry), slog.String("error", err.Error()))
			msg := failure.UserMessage(err, "registration failed")
			if err := e.driver.Info(ctx, fmt.Sprintf("Could not add %s: %s", entry, msg)); err != nil {
				return err
			}
		}
	}
	return nil
}

func controllerOptions(base map[string][]schema.Option, field schema.Field, ctrl *composite.Controller) map[string][]schema.Option {
	out := make(map[string][]schema.Option, len(base)+len(field.Schema))
	for name, opts := range base {
		out[name] = opts
	}
	for _, key := range field.SubFieldKeys() {
		if opts := ctrl.OptionsFor(key); len(opts) > 0 {
			out[field.Name+"."+key] = opts
		}
	}
	return out
}

// editable reports whether d accepts input. Read-only controls with a
// notice show it instead.
func (e *Editor) editable(ctx context.Context, d render.ControlDescriptor) (bool, error) {
	if d.Input != nil && !d.Disabled {
		return true, nil
	}
	notice := d.Warning
	if notice == "" && d.Kind == render.KindPlaceholder {
		notice = d.Placeholder
	}
	if notice != "" {
		return false, e.driver.Info(ctx, d.Label+": "+notice)
	}
	return false, nil
}

// prompt asks for one control and feeds the answer to its Input. It reports
// false when the control cannot be edited.
func (e *Editor) prompt(ctx context.Context, d render.ControlDescriptor) (bool, error) {
	if editable, err := e.editable(ctx, d); !editable {
		return false, err
	}

	raw, err := e.ask(ctx, d)
	if err != nil {
		if errors.Is(err, ErrAborted) {
			e.logger.Debug("editing aborted", slog.String("field", d.Name))
		}
		return false, err
	}
	d.Input(raw)
	return true, nil
}

func (e *Editor) ask(ctx context.Context, d render.ControlDescriptor) (any, error) {
	help := d.Description
	switch d.Kind {
	case render.KindToggle:
		return e.driver.Confirm(ctx, ConfirmConfig{Message: d.Label, Default: content.Bool(d.Value), Help: help})
	case render.KindSelect:
		labels, values := optionLists(d.Options)
		idx, err := e.driver.Select(ctx, SelectConfig{
			Message:      d.Label,
			Options:      labels,
			DefaultIndex: slices.Index(values, content.String(d.Value)),
			Help:         help,
		})
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(values) {
			return "", nil
		}
		return values[idx], nil
	case render.KindMultiselect, render.KindListTable:
		labels, values := optionLists(d.Options)
		if len(values) == 0 {
			text, err := e.driver.Input(ctx, InputConfig{Message: d.Label + " (comma separated)", Default: strings.Join(content.Strings(d.Value), ", "), Help: help})
			if err != nil {
				return nil, err
			}
			return splitList(text), nil
		}
		picked, err := e.driver.MultiSelect(ctx, SelectConfig{
			Message:  d.Label,
			Options:  labels,
			Defaults: positions(values, content.Strings(d.Value)),
			Help:     help,
		})
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(picked))
		for _, idx := range picked {
			if idx >= 0 && idx < len(values) {
				out = append(out, values[idx])
			}
		}
		return out, nil
	case render.KindTextarea:
		return e.driver.TextArea(ctx, TextAreaConfig{Message: d.Label, Default: content.String(d.Value), Help: help})
	case render.KindPassword:
		return e.driver.Password(ctx, InputConfig{Message: d.Label, Default: content.String(d.Value), Help: help})
	case render.KindNumber:
		return e.driver.Input(ctx, InputConfig{
			Message:   d.Label,
			Default:   content.String(d.Value),
			Help:      help,
			Validator: numberAnswer,
		})
	default:
		return e.driver.Input(ctx, InputConfig{Message: d.Label, Default: content.String(d.Value), Help: firstNonEmpty(help, d.Placeholder)})
	}
}

func numberAnswer(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(text, 64); err != nil {
		return errors.New("enter a number or leave blank")
	}
	return nil
}

func optionLists(opts []schema.Option) (labels, values []string) {
	labels = make([]string, 0, len(opts))
	values = make([]string, 0, len(opts))
	for _, opt := range opts {
		label := opt.Label
		if label == "" {
			label = opt.Value
		}
		labels = append(labels, label)
		values = append(values, opt.Value)
	}
	return labels, values
}

func splitList(text string) []string {
	var out []string
	for _, part := range strings.Split(text, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

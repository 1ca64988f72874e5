package postgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-postgen/internal/store"
	"github.com/goliatone/go-postgen/pkg/apply"
	"github.com/goliatone/go-postgen/pkg/client"
	"github.com/goliatone/go-postgen/pkg/composite"
	"github.com/goliatone/go-postgen/pkg/content"
	"github.com/goliatone/go-postgen/pkg/failure"
	"github.com/goliatone/go-postgen/pkg/host"
	"github.com/goliatone/go-postgen/pkg/options"
	"github.com/goliatone/go-postgen/pkg/render"
	"github.com/goliatone/go-postgen/pkg/schema"
	"github.com/goliatone/go-postgen/pkg/schemastore"
	"github.com/goliatone/go-postgen/pkg/validation"
	"github.com/goliatone/go-postgen/pkg/variables"
	"github.com/goliatone/go-postgen/pkg/visibility"
)

// ErrTemplateNotFound is returned when a template id is not in the catalog.
var ErrTemplateNotFound = errors.New("postgen: template not found")

// Engine is the host facade. It is safe for concurrent use as long as
// callers do not edit the same platform concurrently.
type Engine struct {
	client       *client.Client
	schemas      *schemastore.Store
	renderer     *render.Renderer
	validator    *validation.Validator
	resolver     *variables.Resolver
	orchestrator *apply.Orchestrator
	store        host.PlatformStore
	provider     host.DataProvider
	metrics      *apply.Metrics
	logger       *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClient sets the collaborator client.
func WithClient(c *client.Client) Option {
	return func(e *Engine) {
		e.client = c
	}
}

// WithSchemaStore sets the schema cache.
func WithSchemaStore(s *schemastore.Store) Option {
	return func(e *Engine) {
		e.schemas = s
	}
}

// WithRenderer sets the field renderer.
func WithRenderer(r *render.Renderer) Option {
	return func(e *Engine) {
		e.renderer = r
	}
}

// WithValidator sets the validator.
func WithValidator(v *validation.Validator) Option {
	return func(e *Engine) {
		e.validator = v
	}
}

// WithResolver sets the variable resolver.
func WithResolver(r *variables.Resolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithOrchestrator sets the template orchestrator.
func WithOrchestrator(o *apply.Orchestrator) Option {
	return func(e *Engine) {
		e.orchestrator = o
	}
}

// WithPlatformStore sets the content store. Defaults to an in-memory store.
func WithPlatformStore(s host.PlatformStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithProvider sets the host data provider.
func WithProvider(p host.DataProvider) Option {
	return func(e *Engine) {
		e.provider = p
	}
}

// WithMetrics sets the apply counters used by the default orchestrator.
func WithMetrics(m *apply.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets the logger handed to every default component.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New constructs an Engine. Components not supplied are built from the
// client, the provider and the logger.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.provider == nil {
		e.provider = host.StaticProvider{}
	}
	if e.client == nil {
		e.client = client.New(client.WithLogger(e.logger))
	}
	if e.schemas == nil {
		e.schemas = schemastore.New(schemastore.WithFetcher(e.client), schemastore.WithLogger(e.logger))
	}
	if e.renderer == nil {
		e.renderer = render.New(render.WithLocale(host.LocaleOf(e.provider)), render.WithLogger(e.logger))
	}
	if e.validator == nil {
		e.validator = validation.New(
			validation.WithLabeler(e.renderer.Localizer().FieldLabel),
			validation.WithLogger(e.logger),
		)
	}
	if e.resolver == nil {
		e.resolver = variables.New(variables.WithProvider(e.provider), variables.WithLogger(e.logger))
	}
	if e.orchestrator == nil {
		e.orchestrator = apply.New(
			apply.WithMapper(e.client),
			apply.WithNameSource(e.client),
			apply.WithProvider(e.provider),
			apply.WithLogger(e.logger),
			apply.WithMetrics(e.metrics),
		)
	}
	if e.store == nil {
		e.store = store.NewMemory()
	}
	return e
}

// Client returns the collaborator client.
func (e *Engine) Client() *client.Client { return e.client }

// Schemas returns the schema store.
func (e *Engine) Schemas() *schemastore.Store { return e.schemas }

// Renderer returns the field renderer.
func (e *Engine) Renderer() *render.Renderer { return e.renderer }

// Validator returns the validator.
func (e *Engine) Validator() *validation.Validator { return e.validator }

// Provider returns the host data provider.
func (e *Engine) Provider() host.DataProvider { return e.provider }

// Schema returns the cached platform schema.
func (e *Engine) Schema(ctx context.Context, platform string) (schema.PlatformSchema, error) {
	return e.schemas.Get(ctx, platform)
}

// Lint reports configuration issues of every section, keyed by section name.
// Sections without issues are absent.
func (e *Engine) Lint(ctx context.Context, platform string) (map[string][]schema.Issue, error) {
	ps, err := e.Schema(ctx, platform)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]schema.Issue)
	for name, section := range ps.Sections() {
		if issues := schema.Lint(section); len(issues) > 0 {
			out[name] = issues
		}
	}
	return out, nil
}

// Content reads the stored platform content.
func (e *Engine) Content(ctx context.Context, platform string) (content.State, error) {
	return e.store.ReadPlatformData(ctx, platform)
}

// Save writes platform content.
func (e *Engine) Save(ctx context.Context, platform string, state content.State) error {
	return e.store.WritePlatformData(ctx, platform, state)
}

// Validate checks the stored content against the editor section.
func (e *Engine) Validate(ctx context.Context, platform string) (map[string]string, error) {
	ps, err := e.Schema(ctx, platform)
	if err != nil {
		return nil, err
	}
	state, err := e.Content(ctx, platform)
	if err != nil {
		return nil, err
	}
	return e.validator.ValidateFields(ps.Editor.Fields, state), nil
}

// Composites builds and loads a controller for every composite field of
// section. Loads run concurrently; a failed source degrades inside its
// controller and never fails the call.
func (e *Engine) Composites(ctx context.Context, platform string, section schema.Section, state content.State) (map[string]*composite.Controller, error) {
	controllers := make(map[string]*composite.Controller)
	for _, field := range section.Fields {
		if !field.Type.IsComposite() {
			continue
		}
		ctrl, err := composite.New(field,
			composite.WithFetcher(e.client),
			composite.WithProvider(e.provider),
			composite.WithPlatform(platform),
			composite.WithInitialValue(content.Map(state[field.Name])),
			composite.WithLogger(e.logger),
		)
		if err != nil {
			return nil, err
		}
		controllers[field.Name] = ctrl
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, ctrl := range controllers {
		g.Go(func() error {
			return ctrl.Load(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return controllers, nil
}

// ServerErrors maps the field messages carried by a collaborator failure onto
// section. Errors without a field payload yield an empty mapping.
func ServerErrors(section schema.Section, err error) render.ServerErrors {
	var status client.StatusError
	if !errors.As(err, &status) {
		return render.ServerErrors{}
	}
	return render.MapServerErrors(section, status.Fields)
}

// FieldOptions loads the remote option list of every non-composite field in
// fields that declares an optionsSource. Loads run concurrently; a failed
// load degrades to no entry for that field and is logged.
func (e *Engine) FieldOptions(ctx context.Context, platform string, fields []schema.Field) map[string][]schema.Option {
	var sourced []schema.Field
	for _, field := range fields {
		if field.OptionsSource == nil || field.Type.IsComposite() {
			continue
		}
		endpoint := field.OptionsSource.Endpoint
		if strings.TrimSpace(endpoint) == "" {
			continue
		}
		if options.NeedsPlatform(endpoint) && strings.TrimSpace(platform) == "" {
			e.logger.Warn("options source needs a platform id", slog.String("field", field.Name))
			continue
		}
		sourced = append(sourced, field)
	}

	loaded := make([][]schema.Option, len(sourced))
	g, gctx := errgroup.WithContext(ctx)
	for i, field := range sourced {
		g.Go(func() error {
			source := field.OptionsSource
			opts, err := e.client.FetchOptions(gctx, options.ExpandEndpoint(source.Endpoint, platform), field.Name, source.Path)
			if err != nil {
				e.logger.Warn("options load failed",
					slog.String("field", field.Name),
					slog.String("endpoint", source.Endpoint),
					slog.String("error", err.Error()),
				)
				return nil
			}
			loaded[i] = opts
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string][]schema.Option, len(sourced))
	for i, field := range sourced {
		if len(loaded[i]) > 0 {
			out[field.Name] = loaded[i]
		}
	}
	return out
}

// RenderContext builds the render context for section from remote field
// options and composite options keyed "<field>.<subkey>".
func RenderContext(platform string, values map[string]any, remote map[string][]schema.Option, controllers map[string]*composite.Controller) render.Context {
	ctx := render.Context{PlatformID: platform, Values: values, Options: map[string][]schema.Option{}}
	for name, opts := range remote {
		ctx.Options[name] = opts
	}
	for name, ctrl := range controllers {
		for _, key := range ctrl.Field().SubFieldKeys() {
			if opts := ctrl.OptionsFor(key); len(opts) > 0 {
				ctx.Options[name+"."+key] = opts
			}
		}
	}
	return ctx
}

// visibleFields returns the fields of section shown for values.
func visibleFields(section schema.Section, values map[string]any) []schema.Field {
	var out []schema.Field
	for _, field := range section.Fields {
		if field.UI.Hidden || !visibility.Matches(field.VisibleWhen, values) {
			continue
		}
		out = append(out, field)
	}
	return out
}

// Render loads composite and remote field options and renders the editor
// section of the stored content. Composite defaults computed during load are
// part of the returned state; callers persist it when they want to keep them.
func (e *Engine) Render(ctx context.Context, platform string, onChange render.ChangeFunc) (render.SectionView, content.State, error) {
	ps, err := e.Schema(ctx, platform)
	if err != nil {
		return render.SectionView{}, nil, err
	}
	state, err := e.Content(ctx, platform)
	if err != nil {
		return render.SectionView{}, nil, err
	}
	controllers, err := e.Composites(ctx, platform, ps.Editor, state)
	if err != nil {
		return render.SectionView{}, nil, err
	}
	for name, ctrl := range controllers {
		state = state.With(name, ctrl.Value())
	}
	remote := e.FieldOptions(ctx, platform, visibleFields(ps.Editor, state))
	errs := e.validator.ValidateFields(ps.Editor.Fields, state)
	view := e.renderer.RenderSection(ps.Editor, state, errs, onChange, RenderContext(platform, state, remote, controllers))
	return view, state, nil
}

// Templates lists the platform catalog.
func (e *Engine) Templates(ctx context.Context, platform string) ([]schema.Template, error) {
	return e.client.ListTemplates(ctx, platform)
}

// Template finds one catalog template by id.
func (e *Engine) Template(ctx context.Context, platform, id string) (schema.Template, error) {
	templates, err := e.Templates(ctx, platform)
	if err != nil {
		return schema.Template{}, err
	}
	for _, tpl := range templates {
		if tpl.ID == id {
			return tpl, nil
		}
	}
	return schema.Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
}

// Variables resolves the placeholder variables of tpl against the stored
// content and the provider's parsed data.
func (e *Engine) Variables(ctx context.Context, platform string, tpl schema.Template) (variables.Resolution, error) {
	state, err := e.Content(ctx, platform)
	if err != nil {
		return variables.Resolution{}, err
	}
	defs := tpl.VariableDefinitions
	return e.resolver.Resolve(defs, state, variables.FallbackFromParsed(defs, e.provider)), nil
}

// SetVariable writes value to every alias of name and saves the content.
func (e *Engine) SetVariable(ctx context.Context, platform string, tpl schema.Template, name, value string) (content.State, error) {
	const op = "postgen.set_variable"
	state, err := e.Content(ctx, platform)
	if err != nil {
		return nil, err
	}
	defs := tpl.VariableDefinitions
	resolution := e.resolver.Resolve(defs, state, variables.FallbackFromParsed(defs, e.provider))
	variable, ok := resolution.Lookup(name)
	if !ok {
		return nil, failure.Configuration(op, fmt.Sprintf("unknown variable %q", name))
	}
	if !variable.Editable {
		return nil, &failure.Error{Kind: failure.KindValidation, Op: op, Message: fmt.Sprintf("variable %q is not editable", name)}
	}
	next := variables.Write(state, defs, name, value)
	if err := e.Save(ctx, platform, next); err != nil {
		return nil, err
	}
	return next, nil
}

// DisableVariable toggles the disabled marker on every alias of name and
// saves the content.
func (e *Engine) DisableVariable(ctx context.Context, platform string, tpl schema.Template, name string, disabled bool) (content.State, error) {
	state, err := e.Content(ctx, platform)
	if err != nil {
		return nil, err
	}
	resolution := e.resolver.Resolve(tpl.VariableDefinitions, state, nil)
	if _, ok := resolution.Lookup(name); !ok {
		return nil, failure.Configuration("postgen.disable_variable", fmt.Sprintf("unknown variable %q", name))
	}
	next := variables.SetDisabled(state, tpl.VariableDefinitions, name, disabled)
	if err := e.Save(ctx, platform, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Preview interpolates the template body with the resolved variable values.
func (e *Engine) Preview(ctx context.Context, platform string, tpl schema.Template) (map[string]string, error) {
	resolution, err := e.Variables(ctx, platform, tpl)
	if err != nil {
		return nil, err
	}
	return variables.InterpolateContent(tpl.Content, resolution.Values()), nil
}

// ApplyRequest selects what ApplyTemplate applies.
type ApplyRequest struct {
	Platform      string
	TemplateID    string
	Targets       *content.TargetsConfig
	SpecificFiles []string
}

// ApplyTemplate applies a catalog template to the stored content and saves
// the result. A failed application leaves the stored content untouched.
func (e *Engine) ApplyTemplate(ctx context.Context, req ApplyRequest) (apply.Result, error) {
	platform := strings.TrimSpace(req.Platform)
	ps, err := e.Schema(ctx, platform)
	if err != nil {
		return apply.Result{}, err
	}
	tpl, err := e.Template(ctx, platform, req.TemplateID)
	if err != nil {
		if !errors.Is(err, ErrTemplateNotFound) {
			return apply.Result{}, err
		}
		// The mapping service stays the authority on ids the catalog omits.
		tpl = schema.Template{ID: req.TemplateID}
	}
	state, err := e.Content(ctx, platform)
	if err != nil {
		return apply.Result{}, err
	}
	result, err := e.orchestrator.Apply(ctx, apply.Request{
		Platform:      platform,
		Template:      tpl,
		Section:       ps.Editor,
		State:         state,
		Targets:       req.Targets,
		SpecificFiles: req.SpecificFiles,
	})
	if err != nil {
		return apply.Result{}, err
	}
	if err := e.Save(ctx, platform, result.State); err != nil {
		return apply.Result{}, err
	}
	return result, nil
}

// RemoveTemplate drops an audit entry and saves the content.
func (e *Engine) RemoveTemplate(ctx context.Context, platform, entryID string) (content.State, error) {
	state, err := e.Content(ctx, platform)
	if err != nil {
		return nil, err
	}
	next := apply.Remove(state, entryID)
	if err := e.Save(ctx, platform, next); err != nil {
		return nil, err
	}
	return next, nil
}

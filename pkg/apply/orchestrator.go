// Package apply drives template application: it calls the external mapping
// service, merges the mapped content over the current state, writes the
// targets selection, resolves display names for recipients and groups and
// appends an audit entry. The result is a single new content state; nothing
// is committed when the mapping service fails.
package apply

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-postgen/pkg/client"
	"github.com/goliatone/go-postgen/pkg/content"
	"github.com/goliatone/go-postgen/pkg/failure"
	"github.com/goliatone/go-postgen/pkg/host"
	"github.com/goliatone/go-postgen/pkg/schema"
)

// Mapper is the template mapping service. *client.Client satisfies it.
type Mapper interface {
	ApplyTemplate(ctx context.Context, platform string, req client.ApplyRequest) (map[string]any, error)
}

// NameSource loads recipient and group option lists for name resolution.
// *client.Client satisfies it.
type NameSource interface {
	FetchOptions(ctx context.Context, endpoint, sourceKey, path string) ([]schema.Option, error)
}

// Request describes one application of a template to a platform's content.
type Request struct {
	Platform string
	Template schema.Template
	// Section is the schema section holding the targets block, usually the
	// editor section. A section without one skips the targets steps.
	Section schema.Section
	State   content.State
	// Targets is the caller's selection; nil means {mode: all}.
	Targets       *content.TargetsConfig
	SpecificFiles []string
}

// Result is the committed outcome of an application.
type Result struct {
	State content.State
	Entry content.AppliedTemplateEntry
}

// Orchestrator applies templates.
type Orchestrator struct {
	mapper   Mapper
	names    NameSource
	provider host.DataProvider
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger
	metrics  *Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMapper sets the mapping service.
func WithMapper(m Mapper) Option {
	return func(o *Orchestrator) {
		o.mapper = m
	}
}

// WithNameSource sets the collaborator used to resolve display names.
func WithNameSource(n NameSource) Option {
	return func(o *Orchestrator) {
		o.names = n
	}
}

// WithProvider sets the host provider of parsed data and uploaded files.
func WithProvider(p host.DataProvider) Option {
	return func(o *Orchestrator) {
		o.provider = p
	}
}

// WithClock overrides the time source stamped on audit entries.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator overrides the audit entry id generator.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// New constructs an Orchestrator. A mapper is required at Apply time.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.metrics == nil {
		o.metrics = NewMetrics(nil)
	}
	return o
}

// Apply runs a template application. On any error the input state is left
// untouched and the zero Result is returned.
func (o *Orchestrator) Apply(ctx context.Context, req Request) (Result, error) {
	const op = "apply.template"
	if ctx == nil {
		ctx = context.Background()
	}

	templateID := strings.TrimSpace(req.Template.ID)
	if templateID == "" {
		o.metrics.observe(OutcomeInvalid)
		return Result{}, failure.Apply(op, "template id is required")
	}
	if o.mapper == nil {
		o.metrics.observe(OutcomeInvalid)
		return Result{}, failure.Configuration(op, "mapping service is not configured")
	}

	current := req.State.Clone()
	files := o.uploadedFiles(req.SpecificFiles)
	mapped, err := o.mapper.ApplyTemplate(ctx, req.Platform, client.ApplyRequest{
		TemplateID:       templateID,
		ParsedData:       o.parsedData(),
		UploadedFileRefs: files,
		ExistingContent:  map[string]any(current.Clone()),
	})
	if err != nil {
		o.metrics.observe(OutcomeFailure)
		o.logger.Warn("template apply failed",
			slog.String("platform", req.Platform),
			slog.String("template", templateID),
			slog.String("error", err.Error()),
		)
		if failure.KindOf(err) == "" {
			err = failure.Wrap(failure.KindApply, op, err)
		}
		return Result{}, err
	}

	next := current.Merge(withoutReserved(mapped, current))

	targets := content.DefaultTargets()
	if req.Targets != nil {
		targets = *req.Targets
		if targets.Mode == "" {
			targets.Mode = content.TargetModeAll
		}
	}

	if field, ok := req.Section.TargetsField(); ok {
		if targets.TemplateLocale == "" {
			if previous, ok := content.TargetsFromValue(req.State[field.Name]); ok {
				targets.TemplateLocale = previous.TemplateLocale
			}
		}
		next = next.With(field.Name, targets.ContentValue())
		targets = o.resolveNames(ctx, req.Platform, field, targets)
	}

	entry := content.AppliedTemplateEntry{
		ID:            o.newID(),
		TemplateID:    templateID,
		TemplateName:  templateName(req.Template),
		Targets:       targets,
		SpecificFiles: append([]string(nil), req.SpecificFiles...),
		AppliedAt:     o.now().UTC(),
	}
	next = next.WithTemplate(entry)

	o.metrics.observe(OutcomeSuccess)
	o.logger.Debug("template applied",
		slog.String("platform", req.Platform),
		slog.String("template", templateID),
		slog.String("entry", entry.ID),
	)
	return Result{State: next, Entry: entry}, nil
}

// Remove drops the audit entry id. Merged content fields stay as they are.
func Remove(state content.State, id string) content.State {
	return state.WithoutTemplate(id)
}

func (o *Orchestrator) parsedData() map[string]any {
	if o.provider == nil {
		return map[string]any{}
	}
	parsed := o.provider.ParsedData()
	if parsed == nil {
		return map[string]any{}
	}
	return parsed
}

// uploadedFiles returns the provider's files, restricted to ids when given.
func (o *Orchestrator) uploadedFiles(ids []string) []host.FileRef {
	if o.provider == nil {
		return []host.FileRef{}
	}
	files := o.provider.UploadedFiles()
	if len(ids) == 0 {
		return append([]host.FileRef{}, files...)
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	out := []host.FileRef{}
	for _, file := range files {
		if _, ok := wanted[file.ID]; ok {
			out = append(out, file)
		}
	}
	return out
}

// withoutReserved drops history keys from mapped content so the service can
// never replace the audit trail. Override keys the user already set in
// current are dropped too: a non-empty _var_ value and any _disabled_ flag
// survive a re-applied template.
func withoutReserved(mapped map[string]any, current content.State) map[string]any {
	out := make(map[string]any, len(mapped))
	for key, value := range mapped {
		switch {
		case key == content.TemplatesKey:
			continue
		case strings.HasPrefix(key, content.VarPrefix):
			if content.String(current[key]) != "" {
				continue
			}
		case strings.HasPrefix(key, content.DisabledPrefix):
			if _, ok := current[key]; ok {
				continue
			}
		}
		out[key] = value
	}
	return out
}

func templateName(t schema.Template) string {
	if name := strings.TrimSpace(t.Name); name != "" {
		return name
	}
	return t.ID
}

// Package composite manages multi-part fields whose value is an object, such
// as the targets block ({mode, individual, groups, templateLocale}). A
// Controller loads the option sources a block declares, fills in defaults,
// reconciles externally pushed values and emits a whole new value object on
// every edit.
package composite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/mohae/deepcopy"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-postgen/pkg/content"
	"github.com/goliatone/go-postgen/pkg/host"
	"github.com/goliatone/go-postgen/pkg/options"
	"github.com/goliatone/go-postgen/pkg/schema"
)

// Sub-field keys with dedicated default handling.
const (
	KeyMode            = content.TargetsModeKey
	KeyIndividual      = content.TargetsIndividualKey
	KeyGroups          = content.TargetsGroupsKey
	KeyTemplateLocale  = content.TargetsTemplateLocaleKey
	KeyTemplateMapping = "templateMapping"
)

// ErrNotComposite is returned when a controller is built for a plain field.
var ErrNotComposite = errors.New("composite: field is not a composite block")

// Fetcher loads option lists and registers new selectable targets.
// *client.Client satisfies it.
type Fetcher interface {
	FetchOptions(ctx context.Context, endpoint, sourceKey, path string) ([]schema.Option, error)
	RegisterTarget(ctx context.Context, endpoint, fieldName, value string) error
}

// ChangeFunc receives the whole new composite value.
type ChangeFunc func(value map[string]any)

// Status reports the controller lifecycle.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
)

// Controller is safe for concurrent use.
type Controller struct {
	field    schema.Field
	fetcher  Fetcher
	provider host.DataProvider
	onChange ChangeFunc
	logger   *slog.Logger

	mu         sync.Mutex
	platformID string
	status     Status
	generation uint64
	options    map[string][]schema.Option
	local      map[string]any
	edited     bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithFetcher sets the option source collaborator.
func WithFetcher(f Fetcher) Option {
	return func(c *Controller) {
		c.fetcher = f
	}
}

// WithProvider sets the host data provider used for the ambient locale.
func WithProvider(p host.DataProvider) Option {
	return func(c *Controller) {
		c.provider = p
	}
}

// WithPlatform sets the platform id substituted into endpoint templates.
func WithPlatform(id string) Option {
	return func(c *Controller) {
		c.platformID = strings.TrimSpace(id)
	}
}

// WithOnChange registers the callback receiving every emitted value.
func WithOnChange(fn ChangeFunc) Option {
	return func(c *Controller) {
		c.onChange = fn
	}
}

// WithInitialValue seeds the mirrored value, as if synced before loading.
func WithInitialValue(value map[string]any) Option {
	return func(c *Controller) {
		c.local = clone(value)
	}
}

// WithLogger sets the logger used for degraded fetches.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a controller for a composite or targets field.
func New(field schema.Field, opts ...Option) (*Controller, error) {
	if !field.Type.IsComposite() {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotComposite, field.Name, field.Type)
	}
	c := &Controller{
		field:   field,
		status:  StatusIdle,
		options: make(map[string][]schema.Option),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.local == nil {
		c.local = map[string]any{}
	}
	c.logger = c.logger.With(slog.String("field", field.Name))
	return c, nil
}

// Field returns the schema the controller was built for.
func (c *Controller) Field() schema.Field { return c.field }

// Status reports whether option sources are loaded.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Value returns a copy of the mirrored value.
func (c *Controller) Value() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clone(c.local)
}

// Targets decodes the mirrored value as a targets object.
func (c *Controller) Targets() content.TargetsConfig {
	cfg, _ := content.TargetsFromValue(c.Value())
	return cfg
}

// Options returns the loaded options for a data source key.
func (c *Controller) Options(source string) []schema.Option {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]schema.Option(nil), c.options[source]...)
}

// OptionsFor returns the options of a sub-field: static options when
// declared, otherwise the loaded options of its source.
func (c *Controller) OptionsFor(key string) []schema.Option {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subOptionsLocked(key)
}

// Identity keys async effects: the platform plus the sorted endpoint set.
func (c *Controller) Identity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identityLocked()
}

func (c *Controller) identityLocked() string {
	keys := make([]string, 0, len(c.field.DataEndpoints))
	for key, endpoint := range c.field.DataEndpoints {
		keys = append(keys, key+"="+endpoint)
	}
	sort.Strings(keys)
	return c.platformID + "|" + strings.Join(keys, ",")
}

// SetPlatform switches the platform. Loaded options are cleared and any
// in-flight load is invalidated.
func (c *Controller) SetPlatform(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id = strings.TrimSpace(id)
	if id == c.platformID {
		return
	}
	c.platformID = id
	c.generation++
	c.options = make(map[string][]schema.Option)
	c.status = StatusIdle
}

type loadResult struct {
	source string
	opts   []schema.Option
}

// Load fetches every declared data source concurrently and then initializes
// defaults. Source failures degrade to empty lists and are logged; only
// context cancellation is returned. Results of a load superseded by
// SetPlatform or a newer Load are dropped.
func (c *Controller) Load(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	c.generation++
	generation := c.generation
	identity := c.identityLocked()
	platform := c.platformID
	c.status = StatusLoading
	c.mu.Unlock()

	sources := make([]string, 0, len(c.field.DataEndpoints))
	for source := range c.field.DataEndpoints {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	results := make([]loadResult, len(sources))
	group, groupCtx := errgroup.WithContext(ctx)
	for idx, source := range sources {
		group.Go(func() error {
			opts, err := c.fetch(groupCtx, platform, source)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				c.logger.Warn("composite source degraded to empty options",
					slog.String("source", source),
					slog.String("error", err.Error()),
				)
				opts = nil
			}
			results[idx] = loadResult{source: source, opts: opts}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		c.mu.Lock()
		if c.generation == generation {
			c.status = StatusIdle
		}
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	if c.generation != generation || c.identityLocked() != identity {
		c.mu.Unlock()
		c.logger.Debug("dropping stale composite load", slog.String("identity", identity))
		return nil
	}
	loaded := make(map[string][]schema.Option, len(results))
	for _, result := range results {
		loaded[result.source] = result.opts
	}
	c.options = loaded
	c.status = StatusReady
	emit, changed := c.initializeDefaultsLocked()
	c.mu.Unlock()

	if changed {
		c.emit(emit)
	}
	return nil
}

func (c *Controller) fetch(ctx context.Context, platform, source string) ([]schema.Option, error) {
	template := c.field.DataEndpoints[source]
	if options.NeedsPlatform(template) && platform == "" {
		return nil, fmt.Errorf("composite: endpoint %q needs a platform id", template)
	}
	if c.fetcher == nil {
		return nil, errors.New("composite: fetcher is not configured")
	}
	return c.fetcher.FetchOptions(ctx, options.ExpandEndpoint(template, platform), source, "")
}

// InitializeDefaults runs the default pass explicitly. It is a no-op until
// sources have loaded. It reports whether a new value was emitted.
func (c *Controller) InitializeDefaults() bool {
	c.mu.Lock()
	emit, changed := c.initializeDefaultsLocked()
	c.mu.Unlock()
	if changed {
		c.emit(emit)
	}
	return changed
}

// initializeDefaultsLocked fills mode and template mapping while the value is
// empty and nobody has edited it, and always self-heals templateLocale.
func (c *Controller) initializeDefaultsLocked() (map[string]any, bool) {
	if c.status != StatusReady {
		return nil, false
	}
	next := clone(c.local)
	changed := false

	if !c.edited && isEmptyValue(c.local) {
		if _, ok := c.field.Schema[KeyMode]; ok || c.field.Type == schema.FieldTypeTargets {
			if mode := c.defaultModeLocked(); mode != "" {
				next[KeyMode] = mode
				changed = true
			}
		}
		if _, ok := c.field.Schema[KeyTemplateMapping]; ok {
			if opts := c.subOptionsLocked(KeyTemplateMapping); len(opts) == 1 {
				next[KeyTemplateMapping] = opts[0].Value
				changed = true
			}
		}
	}

	if c.tracksLocale() && content.IsEmpty(next[KeyTemplateLocale]) {
		if locale := c.ambientLocaleLocked(); locale != "" {
			next[KeyTemplateLocale] = locale
			changed = true
		}
	}

	if !changed {
		return nil, false
	}
	c.local = next
	return clone(next), true
}

func (c *Controller) tracksLocale() bool {
	if c.field.Type == schema.FieldTypeTargets {
		return true
	}
	_, ok := c.field.Schema[KeyTemplateLocale]
	return ok
}

// DefaultModes are offered when a targets block declares no mode options.
var DefaultModes = []schema.Option{
	{Label: "All", Value: string(content.TargetModeAll)},
	{Label: "Groups", Value: string(content.TargetModeGroups)},
	{Label: "Individual", Value: string(content.TargetModeIndividual)},
}

func (c *Controller) defaultModeLocked() string {
	if sub, ok := c.field.Schema[KeyMode]; ok {
		if def := strings.TrimSpace(content.String(sub.Default)); def != "" {
			return def
		}
	}
	if def := content.Map(c.field.Default); def != nil {
		if mode := strings.TrimSpace(content.String(def[KeyMode])); mode != "" {
			return mode
		}
	}
	modes := c.subOptionsLocked(KeyMode)
	if len(modes) == 0 && c.field.Type == schema.FieldTypeTargets {
		modes = DefaultModes
	}
	for _, mode := range modes {
		if mode.Value == string(content.TargetModeAll) {
			return mode.Value
		}
	}
	if len(modes) > 0 {
		return modes[0].Value
	}
	return ""
}

// ambientLocaleLocked picks the provider locale, matched against the locale
// sub-field options when it offers any ("de-AT" falls back to "de").
func (c *Controller) ambientLocaleLocked() string {
	locale := host.LocaleOf(c.provider)
	opts := c.subOptionsLocked(KeyTemplateLocale)
	if len(opts) == 0 {
		return locale
	}
	if match, ok := options.Find(opts, locale); ok {
		return match.Value
	}
	if base, _, found := strings.Cut(locale, "-"); found {
		if match, ok := options.Find(opts, base); ok {
			return match.Value
		}
	}
	return locale
}

func (c *Controller) subOptionsLocked(key string) []schema.Option {
	sub, ok := c.field.Schema[key]
	if !ok {
		return nil
	}
	if len(sub.Options) > 0 {
		return append([]schema.Option(nil), sub.Options...)
	}
	if sub.Source == "" {
		return nil
	}
	return append([]schema.Option(nil), c.options[sub.Source]...)
}

// Sync reconciles an externally supplied value. When it differs from the
// mirrored value it is adopted, except templateLocale, which keeps the local
// value when that is non-empty. The preserved value is emitted only when it
// differs from what came in. Sync reports whether the mirror changed.
func (c *Controller) Sync(external map[string]any) bool {
	c.mu.Lock()
	if reflect.DeepEqual(normalize(external), normalize(c.local)) {
		c.mu.Unlock()
		return false
	}

	next := clone(external)
	if c.tracksLocale() {
		if locale := c.local[KeyTemplateLocale]; !content.IsEmpty(locale) {
			next[KeyTemplateLocale] = locale
		}
	}
	c.local = next

	var emit map[string]any
	if healed, changed := c.initializeDefaultsLocked(); changed {
		emit = healed
	} else if !reflect.DeepEqual(normalize(next), normalize(external)) {
		emit = clone(next)
	}
	c.mu.Unlock()

	if emit != nil {
		c.emit(emit)
	}
	return true
}

// Set changes one sub-field and emits the whole new value immediately.
func (c *Controller) Set(key string, value any) map[string]any {
	c.mu.Lock()
	next := clone(c.local)
	if value == nil {
		delete(next, key)
	} else {
		next[key] = deepcopy.Copy(value)
	}
	c.local = next
	c.edited = true
	emit := clone(next)
	c.mu.Unlock()

	c.emit(emit)
	return emit
}

func (c *Controller) emit(value map[string]any) {
	if c.onChange != nil {
		c.onChange(value)
	}
}

func clone(value map[string]any) map[string]any {
	if len(value) == 0 {
		return map[string]any{}
	}
	copied, ok := deepcopy.Copy(value).(map[string]any)
	if !ok || copied == nil {
		return map[string]any{}
	}
	return copied
}

func normalize(value map[string]any) map[string]any {
	if len(value) == 0 {
		return nil
	}
	return value
}

func isEmptyValue(value map[string]any) bool {
	for _, v := range value {
		if !content.IsEmpty(v) {
			return false
		}
	}
	return true
}

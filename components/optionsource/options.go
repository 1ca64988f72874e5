package optionsource

import "net/http"

type EmptySearchMode string

const (
	EmptySearchNone EmptySearchMode = "none"
	EmptySearchTop  EmptySearchMode = "top"
)

const (
	// PlatformParam is the path wildcard holding the platform id.
	PlatformParam = "platformId"
	// SourceParam is the path wildcard holding the source key.
	SourceParam = "source"
)

type GuardFunc func(r *http.Request) error

// ValidateFunc checks a value posted for registration. A returned error text
// is sent back as the failure message.
type ValidateFunc func(platform, source, value string) error

type Options struct {
	RoutePath       string
	SearchParam     string
	LimitParam      string
	DefaultLimit    int
	MaxLimit        int
	EmptySearchMode EmptySearchMode
	Guard           GuardFunc
	Validate        ValidateFunc
	ReadOnly        bool

	Catalog *Catalog
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		RoutePath:       "/platforms/{" + PlatformParam + "}/{" + SourceParam + "}",
		SearchParam:     "q",
		LimitParam:      "limit",
		DefaultLimit:    50,
		MaxLimit:        200,
		EmptySearchMode: EmptySearchTop,
	}
}

func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 50
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 200
	}
	if opts.EmptySearchMode == "" {
		opts.EmptySearchMode = EmptySearchTop
	}
	if opts.RoutePath == "" {
		opts.RoutePath = DefaultOptions().RoutePath
	}
	if opts.SearchParam == "" {
		opts.SearchParam = "q"
	}
	if opts.LimitParam == "" {
		opts.LimitParam = "limit"
	}
	if opts.Catalog == nil {
		opts.Catalog = NewCatalog()
	}
	return opts
}

func WithRoutePath(path string) OptionFn {
	return func(o *Options) {
		o.RoutePath = path
	}
}

func WithSearchParam(name string) OptionFn {
	return func(o *Options) {
		o.SearchParam = name
	}
}

func WithLimitParam(name string) OptionFn {
	return func(o *Options) {
		o.LimitParam = name
	}
}

func WithDefaultLimit(limit int) OptionFn {
	return func(o *Options) {
		o.DefaultLimit = limit
	}
}

func WithMaxLimit(limit int) OptionFn {
	return func(o *Options) {
		o.MaxLimit = limit
	}
}

func WithEmptySearchMode(mode EmptySearchMode) OptionFn {
	return func(o *Options) {
		o.EmptySearchMode = mode
	}
}

func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) {
		o.Guard = guard
	}
}

// WithValidate sets the registration check. Empty values are always
// rejected.
func WithValidate(fn ValidateFunc) OptionFn {
	return func(o *Options) {
		o.Validate = fn
	}
}

// WithReadOnly rejects POST registration with 405.
func WithReadOnly(readOnly bool) OptionFn {
	return func(o *Options) {
		o.ReadOnly = readOnly
	}
}

// WithCatalog shares a catalog between handlers.
func WithCatalog(catalog *Catalog) OptionFn {
	return func(o *Options) {
		if catalog != nil {
			o.Catalog = catalog
		}
	}
}

func clampLimit(limit int, opts Options) int {
	if limit < 0 {
		return 0
	}
	if limit == 0 {
		limit = opts.DefaultLimit
	}
	if opts.MaxLimit > 0 && limit > opts.MaxLimit {
		return opts.MaxLimit
	}
	return limit
}

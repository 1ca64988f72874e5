package optionsource

import "net/http"

// Component wraps a catalog with its handler configuration and routing
// helpers.
type Component struct {
	opts Options
}

// New constructs a new component with default options plus any overrides.
func New(fns ...OptionFn) *Component {
	return &Component{opts: NewOptions(fns...)}
}

// Options returns a copy of the component configuration.
func (c *Component) Options() Options {
	if c == nil {
		return DefaultOptions()
	}
	return NewOptions(func(o *Options) { *o = c.opts })
}

// Catalog returns the backing catalog.
func (c *Component) Catalog() *Catalog {
	return c.opts.Catalog
}

// Handler returns a net/http handler for option queries and registration.
func (c *Component) Handler() http.Handler {
	if c == nil {
		return Handler()
	}
	return HandlerWithOptions(c.opts)
}

// RegisterRoutes registers the platform route plus one route per shared
// source under basePath on mux.
func (c *Component) RegisterRoutes(mux Mux, basePath string, shared ...string) ([]string, error) {
	if c == nil {
		c = New()
	}
	pattern, err := RegisterRoutesWithOptions(mux, basePath, c.opts)
	if err != nil {
		return nil, err
	}
	patterns := []string{pattern}
	for _, source := range shared {
		pattern, err := RegisterShared(mux, basePath, source, c.opts)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, pattern)
	}
	return patterns, nil
}

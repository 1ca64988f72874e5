package optionsource

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-postgen/pkg/schema"
)

// Catalog holds option lists keyed by platform and source. It is safe for
// concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	entries map[catalogKey][]schema.Option
}

type catalogKey struct {
	platform string
	source   string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[catalogKey][]schema.Option)}
}

func keyOf(platform, source string) catalogKey {
	return catalogKey{platform: strings.TrimSpace(platform), source: strings.TrimSpace(source)}
}

// Set replaces the options of source. An empty platform makes the list
// shared.
func (c *Catalog) Set(platform, source string, opts []schema.Option) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[keyOf(platform, source)] = dedupe(opts)
}

// List returns the options of source for platform, falling back to the
// shared list.
func (c *Catalog) List(platform, source string) []schema.Option {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if opts, ok := c.entries[keyOf(platform, source)]; ok {
		return append([]schema.Option(nil), opts...)
	}
	return append([]schema.Option(nil), c.entries[keyOf("", source)]...)
}

// Add appends opt unless an option with the same value exists. It reports
// whether the catalog changed.
func (c *Catalog) Add(platform, source string, opt schema.Option) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := keyOf(platform, source)
	current, ok := c.entries[key]
	if !ok {
		current = append([]schema.Option(nil), c.entries[keyOf("", source)]...)
	}
	for _, existing := range current {
		if existing.Value == opt.Value {
			return false
		}
	}
	c.entries[key] = append(current, opt)
	return true
}

// Sources lists the source keys known for platform, shared ones included.
func (c *Catalog) Sources(platform string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := map[string]struct{}{}
	for key := range c.entries {
		if key.platform == "" || key.platform == platform {
			seen[key.source] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for source := range seen {
		out = append(out, source)
	}
	sort.Strings(out)
	return out
}

func dedupe(opts []schema.Option) []schema.Option {
	out := make([]schema.Option, 0, len(opts))
	seen := make(map[string]struct{}, len(opts))
	for _, opt := range opts {
		if opt.Value == "" {
			continue
		}
		if _, ok := seen[opt.Value]; ok {
			continue
		}
		seen[opt.Value] = struct{}{}
		if opt.Label == "" {
			opt.Label = opt.Value
		}
		out = append(out, opt)
	}
	return out
}

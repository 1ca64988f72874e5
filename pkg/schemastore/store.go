// Package schemastore caches platform schemas for the lifetime of an editing
// session. Schemas are looked up by platform id, read from a local directory
// when one is configured and fetched from the backend otherwise. Concurrent
// lookups of the same platform share one fetch.
package schemastore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-postgen/internal/schema/loader"
	"github.com/goliatone/go-postgen/pkg/schema"
)

// ErrNoSource is returned when neither a directory nor a fetcher can serve a
// platform.
var ErrNoSource = errors.New("schemastore: no schema source configured")

// Fetcher retrieves a platform schema from the backend. *client.Client
// satisfies it.
type Fetcher interface {
	FetchSchema(ctx context.Context, platformID string) (schema.PlatformSchema, error)
}

// Extensions tried, in order, when resolving a platform file in the
// directory.
var Extensions = []string{".json", ".jsonc", ".yaml", ".yml"}

// Store is safe for concurrent use.
type Store struct {
	fetcher Fetcher
	loader  schema.Loader
	dir     string
	logger  *slog.Logger

	group singleflight.Group

	mu     sync.RWMutex
	cache  map[string]schema.PlatformSchema
	hits   int
	misses int
}

// Option configures a Store.
type Option func(*Store)

// WithFetcher sets the backend collaborator.
func WithFetcher(f Fetcher) Option {
	return func(s *Store) {
		s.fetcher = f
	}
}

// WithDirectory serves schemas from <dir>/<platform>.<ext> before falling
// back to the fetcher.
func WithDirectory(dir string) Option {
	return func(s *Store) {
		s.dir = strings.TrimSpace(dir)
	}
}

// WithLoader overrides the document loader used for directory schemas.
func WithLoader(l schema.Loader) Option {
	return func(s *Store) {
		s.loader = l
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Store.
func New(opts ...Option) *Store {
	s := &Store{cache: make(map[string]schema.PlatformSchema)}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.loader == nil {
		s.loader = loader.New(schema.NewLoaderOptions())
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Get returns the schema for platform, loading it on first use.
func (s *Store) Get(ctx context.Context, platform string) (schema.PlatformSchema, error) {
	platform = strings.TrimSpace(platform)
	if platform == "" {
		return schema.PlatformSchema{}, errors.New("schemastore: platform id is required")
	}

	s.mu.Lock()
	if cached, ok := s.cache[platform]; ok {
		s.hits++
		s.mu.Unlock()
		return cached, nil
	}
	s.misses++
	s.mu.Unlock()

	value, err, shared := s.group.Do(platform, func() (any, error) {
		loaded, err := s.load(ctx, platform)
		if err != nil {
			return schema.PlatformSchema{}, err
		}
		s.mu.Lock()
		s.cache[platform] = loaded
		s.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return schema.PlatformSchema{}, err
	}
	if shared {
		s.logger.Debug("schema fetch shared", slog.String("platform", platform))
	}
	return value.(schema.PlatformSchema), nil
}

func (s *Store) load(ctx context.Context, platform string) (schema.PlatformSchema, error) {
	if path, ok := s.localPath(platform); ok {
		doc, err := s.loader.Load(ctx, schema.SourceFromFile(path))
		if err != nil {
			return schema.PlatformSchema{}, fmt.Errorf("schemastore: load %s: %w", path, err)
		}
		decoded, err := doc.Platform()
		if err != nil {
			return schema.PlatformSchema{}, fmt.Errorf("schemastore: decode %s: %w", path, err)
		}
		if decoded.Platform == "" {
			decoded.Platform = platform
		}
		return decoded, nil
	}
	if s.fetcher == nil {
		return schema.PlatformSchema{}, fmt.Errorf("%w: %s", ErrNoSource, platform)
	}
	fetched, err := s.fetcher.FetchSchema(ctx, platform)
	if err != nil {
		return schema.PlatformSchema{}, err
	}
	if fetched.Platform == "" {
		fetched.Platform = platform
	}
	return fetched, nil
}

func (s *Store) localPath(platform string) (string, bool) {
	if s.dir == "" {
		return "", false
	}
	for _, ext := range Extensions {
		candidate := filepath.Join(s.dir, platform+ext)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// Invalidate evicts platform from the cache.
func (s *Store) Invalidate(platform string) {
	s.mu.Lock()
	delete(s.cache, platform)
	s.mu.Unlock()
	s.group.Forget(platform)
}

// Reset evicts every cached schema.
func (s *Store) Reset() {
	s.mu.Lock()
	platforms := make([]string, 0, len(s.cache))
	for platform := range s.cache {
		platforms = append(platforms, platform)
	}
	s.cache = make(map[string]schema.PlatformSchema)
	s.mu.Unlock()
	for _, platform := range platforms {
		s.group.Forget(platform)
	}
}

// Cached reports whether platform is currently cached.
func (s *Store) Cached(platform string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cache[platform]
	return ok
}

// Stats reports cache hits and misses.
func (s *Store) Stats() (hits, misses int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hits, s.misses
}

// Directory returns the configured schema directory.
func (s *Store) Directory() string { return s.dir }

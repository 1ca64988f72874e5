// Package store implements host.PlatformStore for the CLI host: a sqlite
// database holding one JSON content document per platform.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/goliatone/go-postgen/pkg/content"
	"github.com/goliatone/go-postgen/pkg/host"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// ErrPlatformRequired is returned for an empty platform id.
var ErrPlatformRequired = errors.New("store: platform is required")

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS platform_data (
		platform   TEXT PRIMARY KEY,
		content    TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);`,
}

// SQLite stores content in a sqlite database.
type SQLite struct {
	db     *sql.DB
	now    func() time.Time
	logger *slog.Logger
}

var _ host.PlatformStore = (*SQLite)(nil)

// Option customises SQLite.
type Option func(*SQLite)

// WithClock overrides the updated_at clock.
func WithClock(now func() time.Time) Option {
	return func(s *SQLite) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *SQLite) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens (and migrates) the database at path. ":memory:" keeps the data
// in process.
func Open(ctx context.Context, path string, options ...Option) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("store: database path is required")
	}
	dsn := path
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		dsn = "file:" + path
	}
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// A second connection would see a different in-memory database.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, now: time.Now, logger: slog.Default()}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Debug("platform store opened", slog.String("path", path))
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// ReadPlatformData returns the stored content for platform, or an empty
// State when nothing was written yet.
func (s *SQLite) ReadPlatformData(ctx context.Context, platform string) (content.State, error) {
	platform = strings.TrimSpace(platform)
	if platform == "" {
		return nil, ErrPlatformRequired
	}
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM platform_data WHERE platform = ?`, platform).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return content.State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", platform, err)
	}
	state := content.State{}
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", platform, err)
	}
	return state, nil
}

// WritePlatformData replaces the stored content for platform.
func (s *SQLite) WritePlatformData(ctx context.Context, platform string, state content.State) error {
	platform = strings.TrimSpace(platform)
	if platform == "" {
		return ErrPlatformRequired
	}
	if state == nil {
		state = content.State{}
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", platform, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO platform_data(platform, content, updated_at) VALUES(?,?,?)
		ON CONFLICT(platform) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		platform, string(payload), s.now().UTC())
	if err != nil {
		return fmt.Errorf("store: write %s: %w", platform, err)
	}
	s.logger.Debug("platform data written", slog.String("platform", platform), slog.Int("bytes", len(payload)))
	return nil
}

// Platforms lists the platforms with stored content, in name order.
func (s *SQLite) Platforms(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT platform FROM platform_data ORDER BY platform`)
	if err != nil {
		return nil, fmt.Errorf("store: list platforms: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var platform string
		if err := rows.Scan(&platform); err != nil {
			return nil, fmt.Errorf("store: list platforms: %w", err)
		}
		out = append(out, platform)
	}
	return out, rows.Err()
}

// Delete removes the content of platform. Deleting an unknown platform is a
// no-op.
func (s *SQLite) Delete(ctx context.Context, platform string) error {
	if strings.TrimSpace(platform) == "" {
		return ErrPlatformRequired
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM platform_data WHERE platform = ?`, platform); err != nil {
		return fmt.Errorf("store: delete %s: %w", platform, err)
	}
	return nil
}

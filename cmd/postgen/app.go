package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	postgen "github.com/goliatone/go-postgen"
	"github.com/goliatone/go-postgen/internal/config"
	"github.com/goliatone/go-postgen/internal/store"
	"github.com/goliatone/go-postgen/pkg/apply"
	"github.com/goliatone/go-postgen/pkg/client"
	"github.com/goliatone/go-postgen/pkg/host"
	"github.com/goliatone/go-postgen/pkg/schemastore"
	"github.com/goliatone/go-postgen/pkg/variables"
)

// app holds the state shared by every subcommand once open has run.
type app struct {
	configPath string
	logLevel   string
	parsedPath string
	files      []string

	cfg      *config.Config
	logger   *slog.Logger
	store    *store.SQLite
	engine   *postgen.Engine
	registry *prometheus.Registry
	out      io.Writer
}

func (a *app) open(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.out = out

	bootstrap := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cfg, err := config.NewLoader(bootstrap).Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}
	a.cfg = cfg

	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	a.logger = logger
	slog.SetDefault(logger)

	provider, err := a.provider()
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, cfg.Store.Path, store.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.store = st

	c := client.New(
		client.WithBaseURL(cfg.API.BaseURL),
		client.WithTimeout(cfg.API.Timeout),
		client.WithLogger(logger),
	)
	schemas := schemastore.New(
		schemastore.WithFetcher(c),
		schemastore.WithDirectory(cfg.Schemas.Dir),
		schemastore.WithLogger(logger),
	)
	a.registry = prometheus.NewRegistry()
	a.engine = postgen.New(
		postgen.WithClient(c),
		postgen.WithSchemaStore(schemas),
		postgen.WithPlatformStore(st),
		postgen.WithProvider(provider),
		postgen.WithResolver(variables.New(
			variables.WithProvider(provider),
			variables.WithHideAutoFilled(cfg.Variables.HideAutoFilled),
			variables.WithLogger(logger),
		)),
		postgen.WithMetrics(apply.NewMetrics(a.registry)),
		postgen.WithLogger(logger),
	)
	logger.Debug("postgen ready",
		slog.String("api", cfg.API.BaseURL),
		slog.String("store", cfg.Store.Path),
	)
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// provider builds the host data provider from the --parsed and --file flags.
func (a *app) provider() (host.StaticProvider, error) {
	p := host.StaticProvider{Language: a.cfg.Locale}
	if a.parsedPath != "" {
		parsed, err := readParsed(a.parsedPath)
		if err != nil {
			return p, err
		}
		p.Parsed = parsed
	}
	for _, raw := range a.files {
		id, name, _ := strings.Cut(raw, "=")
		id = strings.TrimSpace(id)
		if id == "" {
			return p, fmt.Errorf("invalid --file %q: expected id=name", raw)
		}
		p.Files = append(p.Files, host.FileRef{ID: id, Name: strings.TrimSpace(name)})
	}
	return p, nil
}

func readParsed(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read parsed data: %w", err)
	}
	var out map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &out)
	default:
		err = json.Unmarshal(data, &out)
	}
	if err != nil {
		return nil, fmt.Errorf("decode parsed data %s: %w", path, err)
	}
	if out == nil {
		return nil, errors.New("parsed data must be an object")
	}
	return out, nil
}

func (a *app) printJSON(value any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

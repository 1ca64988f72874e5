package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-postgen/components/optionsource"
	"github.com/goliatone/go-postgen/internal/schema/loader"
	"github.com/goliatone/go-postgen/pkg/schema"
	"github.com/goliatone/go-postgen/pkg/schemastore"
)

// optionsFile seeds the option catalog served by `postgen serve`.
type optionsFile struct {
	Shared    map[string][]schema.Option            `yaml:"shared"`
	Platforms map[string]map[string][]schema.Option `yaml:"platforms"`
}

func loadOptionsFile(path string, catalog *optionsource.Catalog) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read options: %w", err)
	}
	var file optionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode options %s: %w", path, err)
	}
	shared := make([]string, 0, len(file.Shared))
	for source, opts := range file.Shared {
		catalog.Set("", source, opts)
		shared = append(shared, source)
	}
	sort.Strings(shared)
	for platform, sources := range file.Platforms {
		for source, opts := range sources {
			catalog.Set(platform, source, opts)
		}
	}
	return shared, nil
}

func serveCmd(a *app) *cobra.Command {
	var (
		addr          string
		basePath      string
		optionsPath   string
		templatesPath string
		readOnly      bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve schemas, option lists and templates for local development",
		Long: `serve exposes the collaborator endpoints the engine reads:

  GET  <base>/platforms/{platformId}/schema   schemas from the schemas directory
  GET  <base>/platforms/{platformId}/{source} option lists, ?q= and ?limit=
  POST <base>/platforms/{platformId}/{source} option registration
  GET  <base>/templates/{platform}            catalog templates
  GET  /metrics                               prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			catalog := optionsource.NewCatalog()
			var shared []string
			if optionsPath != "" {
				var err error
				if shared, err = loadOptionsFile(optionsPath, catalog); err != nil {
					return err
				}
			}

			schemas := schemastore.New(
				schemastore.WithDirectory(a.cfg.Schemas.Dir),
				schemastore.WithLogger(a.logger),
			)
			if a.cfg.Schemas.Watch {
				watcher, err := schemas.Watch(ctx)
				if err != nil {
					return fmt.Errorf("watch schemas: %w", err)
				}
				defer watcher.Close()
				go func() {
					for platform := range watcher.Events() {
						a.logger.Info("schema reloaded", slog.String("platform", platform))
					}
				}()
			}

			var templates []schema.Template
			if templatesPath != "" {
				doc, err := loader.New(schema.NewLoaderOptions()).Load(ctx, schema.SourceFromFile(templatesPath))
				if err != nil {
					return err
				}
				if templates, err = doc.Templates(); err != nil {
					return err
				}
			}

			a.registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			requests := prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "postgen",
				Name:      "http_requests_total",
				Help:      "Served collaborator requests by status code and method.",
			}, []string{"code", "method"})
			a.registry.MustRegister(requests)

			mux := http.NewServeMux()
			component := optionsource.New(
				optionsource.WithCatalog(catalog),
				optionsource.WithReadOnly(readOnly),
			)
			patterns, err := component.RegisterRoutes(mux, basePath, shared...)
			if err != nil {
				return err
			}
			mux.Handle(joinPath(basePath, "/platforms/{platformId}/schema"), schemaHandler(schemas, a.logger))
			mux.Handle(joinPath(basePath, "/templates/{platform}"), templatesHandler(templates))
			mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

			server := &http.Server{
				Addr:              addr,
				Handler:           promhttp.InstrumentHandlerCounter(requests, mux),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				errCh <- server.ListenAndServe()
			}()
			a.logger.Info("serving collaborator endpoints",
				slog.String("addr", addr),
				slog.Any("option_routes", patterns),
			)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&addr, "addr", ":8080", "Listen address")
	flags.StringVar(&basePath, "base-path", "/api", "Path prefix of the collaborator endpoints")
	flags.StringVar(&optionsPath, "options", "", "YAML file seeding option lists")
	flags.StringVar(&templatesPath, "templates", "", "JSON or YAML template catalog")
	flags.BoolVar(&readOnly, "read-only", false, "Reject option registration")
	return cmd
}

func joinPath(base, path string) string {
	return optionsource.MountPath(base, optionsource.WithRoutePath(path))
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func schemaHandler(schemas *schemastore.Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"success": false, "message": "method not allowed"})
			return
		}
		platform := r.PathValue("platformId")
		ps, err := schemas.Get(r.Context(), platform)
		if err != nil {
			logger.Warn("schema lookup failed", slog.String("platform", platform), slog.String("error", err.Error()))
			writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "schema not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"platform": map[string]any{"id": platform, "schema": ps},
		})
	})
}

func templatesHandler(templates []schema.Template) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		platform := r.PathValue("platform")
		out := make([]schema.Template, 0, len(templates))
		for _, tpl := range templates {
			if tpl.Platform == "" || tpl.Platform == platform {
				out = append(out, tpl)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "templates": out})
	})
}

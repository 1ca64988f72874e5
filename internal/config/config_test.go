package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func noEnv(string) (string, bool) { return "", false }

func TestLoadLayersUserProjectAndEnv(t *testing.T) {
	root := t.TempDir()
	home := filepath.Join(root, "home")
	project := filepath.Join(root, "project")
	work := filepath.Join(project, "posts", "drafts")

	writeFile(t, filepath.Join(home, UserConfigDir, UserConfigFile), `
api:
  baseURL: https://user.example.com/api
  timeout: 30s
locale: de
log:
  level: debug
`)
	writeFile(t, filepath.Join(project, ProjectConfigFile), `
api:
  baseURL: https://project.example.com/api
schemas:
  dir: ./schemas
  watch: true
`)
	if err := os.MkdirAll(work, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	env := map[string]string{
		"POSTGEN_STORE_PATH":                 ":memory:",
		"POSTGEN_VARIABLES_HIDE_AUTO_FILLED": "true",
	}
	loader := NewLoader(quietLogger(),
		WithHomeDir(home),
		WithWorkDir(work),
		WithLookupEnv(func(key string) (string, bool) {
			value, ok := env[key]
			return value, ok
		}),
	)

	got, err := loader.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := &Config{
		API:       APIConfig{BaseURL: "https://project.example.com/api", Timeout: 30 * time.Second},
		Locale:    "de",
		Variables: VariablesConfig{HideAutoFilled: true},
		Store:     StoreConfig{Path: ":memory:"},
		Schemas:   SchemasConfig{Dir: "./schemas", Watch: true},
		Log:       LogConfig{Level: "debug", Format: "text"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDefaultsWithoutFiles(t *testing.T) {
	root := t.TempDir()
	loader := NewLoader(quietLogger(), WithHomeDir(root), WithWorkDir(root), WithLookupEnv(noEnv))

	got, err := loader.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), got); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestExplicitFileWinsOverEnv(t *testing.T) {
	root := t.TempDir()
	explicit := filepath.Join(root, "custom.yaml")
	writeFile(t, explicit, "locale: fr\n")

	loader := NewLoader(quietLogger(), WithHomeDir(root), WithWorkDir(root), WithLookupEnv(func(key string) (string, bool) {
		if key == "POSTGEN_LOCALE" {
			return "it", true
		}
		return "", false
	}))
	got, err := loader.Load(explicit)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Locale != "fr" {
		t.Fatalf("expected explicit locale, got %q", got.Locale)
	}

	if _, err := loader.Load(filepath.Join(root, "missing.yaml")); err == nil {
		t.Fatalf("expected error for a missing explicit file")
	}
}

func TestInvalidEnvOverride(t *testing.T) {
	root := t.TempDir()
	loader := NewLoader(quietLogger(), WithHomeDir(root), WithWorkDir(root), WithLookupEnv(func(key string) (string, bool) {
		if key == "POSTGEN_API_TIMEOUT" {
			return "soon", true
		}
		return "", false
	}))
	_, err := loader.Load("")
	if err == nil || !strings.Contains(err.Error(), "POSTGEN_API_TIMEOUT") {
		t.Fatalf("expected timeout parse error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"relative base url": func(c *Config) { c.API.BaseURL = "/api" },
		"empty store":       func(c *Config) { c.Store.Path = "" },
		"watch without dir": func(c *Config) { c.Schemas.Watch = true },
		"bad level":         func(c *Config) { c.Log.Level = "loud" },
		"bad format":        func(c *Config) { c.Log.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Locale = "es"
	cfg.API.Timeout = 5 * time.Second
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEnsureUserConfig(t *testing.T) {
	home := t.TempDir()
	loader := NewLoader(quietLogger(), WithHomeDir(home))
	path, err := loader.EnsureUserConfig()
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if want := filepath.Join(home, UserConfigDir, UserConfigFile); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not created: %v", err)
	}
}

func TestSlogLevel(t *testing.T) {
	level, err := LogConfig{Level: "warn"}.SlogLevel()
	if err != nil || level != slog.LevelWarn {
		t.Fatalf("SlogLevel = %v, %v", level, err)
	}
}

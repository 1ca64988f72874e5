// Package config provides configuration loading for the postgen CLI host.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete host configuration.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Locale    string          `yaml:"locale"`
	Variables VariablesConfig `yaml:"variables"`
	Store     StoreConfig     `yaml:"store"`
	Schemas   SchemasConfig   `yaml:"schemas"`
	Log       LogConfig       `yaml:"log"`
}

// APIConfig points at the backend serving schemas, options and the apply
// endpoint.
type APIConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

// VariablesConfig configures the variable panel.
type VariablesConfig struct {
	// HideAutoFilled hides variables whose value came from parsed data.
	HideAutoFilled bool `yaml:"hideAutoFilled"`
}

// StoreConfig configures the local platform data store.
type StoreConfig struct {
	// Path is the sqlite database file; ":memory:" keeps data in process.
	Path string `yaml:"path"`
}

// SchemasConfig configures local schema overrides.
type SchemasConfig struct {
	// Dir holds <platform>.json|.jsonc|.yaml files that win over the backend.
	Dir string `yaml:"dir"`
	// Watch evicts cached schemas when files in Dir change.
	Watch bool `yaml:"watch"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080/api",
			Timeout: 15 * time.Second,
		},
		Locale: "en",
		Store: StoreConfig{
			Path: "postgen.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("api.baseURL is required")
	}
	parsed, err := url.Parse(c.API.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("api.baseURL %q must be an absolute URL", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return errors.New("api.timeout must not be negative")
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		return errors.New("store.path is required")
	}
	if c.Schemas.Watch && c.Schemas.Dir == "" {
		return errors.New("schemas.watch requires schemas.dir")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}
	return nil
}

// SlogLevel parses Level ("debug", "info", "warn", "error").
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(l.Level) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q: %w", l.Level, err)
	}
	return level, nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// readOverlay decodes a file without defaults so Merge only sees the keys
// the file sets.
func readOverlay(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &overlay, nil
}

// SaveToFile writes the configuration as YAML, creating parent directories.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Merge merges other into c; non-zero values in other win. Booleans can only
// be switched on by a file, environment overrides can switch them off.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.API.BaseURL != "" {
		c.API.BaseURL = other.API.BaseURL
	}
	if other.API.Timeout != 0 {
		c.API.Timeout = other.API.Timeout
	}
	if other.Locale != "" {
		c.Locale = other.Locale
	}
	if other.Variables.HideAutoFilled {
		c.Variables.HideAutoFilled = true
	}
	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}
	if other.Schemas.Dir != "" {
		c.Schemas.Dir = other.Schemas.Dir
	}
	if other.Schemas.Watch {
		c.Schemas.Watch = true
	}
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
}

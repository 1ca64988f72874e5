package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "postgen.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/postgen"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. POSTGEN_API_BASE_URL.
	EnvPrefix = "POSTGEN_"
)

// LookupEnv matches os.LookupEnv.
type LookupEnv func(key string) (string, bool)

// Loader handles configuration loading with layered precedence.
type Loader struct {
	logger  *slog.Logger
	homeDir string
	workDir string
	lookup  LookupEnv
}

// LoaderOption customises a Loader.
type LoaderOption func(*Loader)

// WithHomeDir overrides the directory holding the user config.
func WithHomeDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.homeDir = dir
	}
}

// WithWorkDir overrides the directory the project config search starts in.
func WithWorkDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.workDir = dir
	}
}

// WithLookupEnv overrides environment lookup.
func WithLookupEnv(fn LookupEnv) LoaderOption {
	return func(l *Loader) {
		if fn != nil {
			l.lookup = fn
		}
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *slog.Logger, options ...LoaderOption) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{logger: logger, lookup: os.LookupEnv}
	for _, opt := range options {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/postgen/config.yaml)
// 3. Project config (postgen.yaml in the working or a parent directory)
// 4. POSTGEN_* environment variables
// 5. explicit, when non-empty (the --config flag)
func (l *Loader) Load(explicit string) (*Config, error) {
	config := DefaultConfig()

	if userConfigPath := l.userConfigPath(); userConfigPath != "" {
		if userConfig, err := readOverlay(userConfigPath); err == nil {
			l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
			config.Merge(userConfig)
		} else if !os.IsNotExist(err) {
			l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
		}
	}

	if projectConfigPath := l.findProjectConfig(); projectConfigPath != "" {
		if projectConfig, err := readOverlay(projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
			config.Merge(projectConfig)
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	if err := l.applyEnv(config); err != nil {
		return nil, err
	}

	if explicit != "" {
		overlay, err := readOverlay(explicit)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		l.logger.Debug("Loaded explicit config", slog.String("path", explicit))
		config.Merge(overlay)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// EnsureUserConfig creates the user config file with defaults if it doesn't exist.
func (l *Loader) EnsureUserConfig() (string, error) {
	userConfigPath := l.userConfigPath()
	if userConfigPath == "" {
		return "", fmt.Errorf("config: home directory unavailable")
	}
	if _, err := os.Stat(userConfigPath); err == nil {
		return userConfigPath, nil
	}

	if err := DefaultConfig().SaveToFile(userConfigPath); err != nil {
		return "", err
	}
	l.logger.Info("Created default user config", slog.String("path", userConfigPath))
	return userConfigPath, nil
}

func (l *Loader) applyEnv(config *Config) error {
	str := func(name string, target *string) {
		if value, ok := l.lookup(EnvPrefix + name); ok && strings.TrimSpace(value) != "" {
			*target = strings.TrimSpace(value)
		}
	}
	flag := func(name string, target *bool) error {
		value, ok := l.lookup(EnvPrefix + name)
		if !ok || strings.TrimSpace(value) == "" {
			return nil
		}
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err)
		}
		*target = parsed
		return nil
	}

	str("API_BASE_URL", &config.API.BaseURL)
	str("LOCALE", &config.Locale)
	str("STORE_PATH", &config.Store.Path)
	str("SCHEMAS_DIR", &config.Schemas.Dir)
	str("LOG_LEVEL", &config.Log.Level)
	str("LOG_FORMAT", &config.Log.Format)

	if value, ok := l.lookup(EnvPrefix + "API_TIMEOUT"); ok && strings.TrimSpace(value) != "" {
		timeout, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: %sAPI_TIMEOUT: %w", EnvPrefix, err)
		}
		config.API.Timeout = timeout
	}
	if err := flag("VARIABLES_HIDE_AUTO_FILLED", &config.Variables.HideAutoFilled); err != nil {
		return err
	}
	return flag("SCHEMAS_WATCH", &config.Schemas.Watch)
}

func (l *Loader) userConfigPath() string {
	home := l.homeDir
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return ""
		}
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for postgen.yaml in the working and parent directories
func (l *Loader) findProjectConfig() string {
	dir := l.workDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = cwd
	}

	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

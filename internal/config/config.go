// Package config provides configuration loading and structs for the bookrec server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Logging   LoggingConfig   `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
	Model     ModelConfig     `yaml:"model"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Recommend RecommendConfig `yaml:"recommend"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by debug)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host               string   `yaml:"host"`
	Port               int      `yaml:"port"`
	ReadTimeoutSec     int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec    int      `yaml:"write_timeout_sec"`
	ShutdownTimeoutSec int      `yaml:"shutdown_timeout_sec"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// ModelConfig locates the trained model artifact. URL, when set, takes precedence over Path.
type ModelConfig struct {
	Path            string `yaml:"path"`
	URL             string `yaml:"url"`
	FetchTimeoutSec int    `yaml:"fetch_timeout_sec"`
	Watch           *bool  `yaml:"watch"`
}

// WatchOrDefault returns whether to reload the artifact when it changes on disk; defaults to true when unset.
func (m *ModelConfig) WatchOrDefault() bool {
	if m.Watch != nil {
		return *m.Watch
	}
	return true
}

// CatalogConfig holds the path of the SQLite book catalog.
type CatalogConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// RecommendConfig holds query limits.
type RecommendConfig struct {
	MaxLimit     int `yaml:"max_limit"`
	DefaultLimit int `yaml:"default_limit"`
}

// Load reads and parses the config file at path, expands ${VAR} references and paths,
// applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Model.Path = expandPath(cfg.Model.Path, configDir)
	cfg.Catalog.DatabasePath = expandPath(cfg.Catalog.DatabasePath, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Recommend.MaxLimit < 1 {
		return fmt.Errorf("recommend.max_limit must be at least 1, got %d", c.Recommend.MaxLimit)
	}
	if c.Recommend.DefaultLimit < 1 || c.Recommend.DefaultLimit > c.Recommend.MaxLimit {
		return fmt.Errorf("recommend.default_limit must be between 1 and %d, got %d",
			c.Recommend.MaxLimit, c.Recommend.DefaultLimit)
	}
	if c.Model.URL != "" && !strings.HasPrefix(c.Model.URL, "http://") && !strings.HasPrefix(c.Model.URL, "https://") {
		return fmt.Errorf("model.url must be an http or https URL, got %q", c.Model.URL)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		name, def, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(name)
		if val == "" && hasDefault {
			val = def
		}
		return []byte(val)
	})
}

// ABOUTME: Configuration for marknote loaded from YAML and environment variables.
// ABOUTME: Handles XDG config paths, defaults, env overrides, and persistence.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultUser owns notes when no user is configured.
const DefaultUser = "local"

// Config holds marknote settings.
type Config struct {
	// DBPath is the sqlite file (default: $XDG_DATA_HOME/marknote/marknote.db)
	DBPath string `yaml:"db_path,omitempty"`

	// UserID scopes every read and write from the CLI and MCP server.
	UserID string `yaml:"user_id"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Addr is the HTTP API listen address.
	Addr string `yaml:"addr"`

	Metadata MetadataConfig `yaml:"metadata"`
}

// MetadataConfig controls URL metadata fetching.
type MetadataConfig struct {
	Timeout time.Duration `yaml:"timeout"`

	// RequestsPerSecond throttles outbound fetches across the process.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// CachePath is the badger directory. Empty disables caching.
	CachePath string        `yaml:"cache_path,omitempty"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		UserID:    DefaultUser,
		LogLevel:  "warn",
		LogFormat: "console",
		Addr:      "127.0.0.1:8080",
		Metadata: MetadataConfig{
			Timeout:           10 * time.Second,
			RequestsPerSecond: 2,
			CachePath:         filepath.Join(cacheHome(), "marknote", "metadata"),
			CacheTTL:          24 * time.Hour,
		},
	}
}

// Dir returns the configuration directory path.
func Dir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "marknote")
}

// Path returns the path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

func cacheHome() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache")
}

// Load reads the config at path (Path() when empty), falling back to defaults
// when the file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from MARKNOTE_* environment variables.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv("MARKNOTE_DB"); ok {
		c.DBPath = v
	}
	if v, ok := os.LookupEnv("MARKNOTE_USER"); ok && v != "" {
		c.UserID = v
	}
	if v, ok := os.LookupEnv("MARKNOTE_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv("MARKNOTE_ADDR"); ok {
		c.Addr = v
	}
	if v, ok := os.LookupEnv("MARKNOTE_CACHE_TTL"); ok {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MARKNOTE_CACHE_TTL: %w", err)
		}
		c.Metadata.CacheTTL = ttl
	}
	if v, ok := os.LookupEnv("MARKNOTE_FETCH_RPS"); ok {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("MARKNOTE_FETCH_RPS: %w", err)
		}
		c.Metadata.RequestsPerSecond = rps
	}
	return nil
}

// Save writes the config to path (Path() when empty).
func Save(cfg *Config, path string) error {
	if path == "" {
		path = Path()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

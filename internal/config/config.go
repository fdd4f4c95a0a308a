// Package config loads tasktree's YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvConfig   = "TASKTREE_CONFIG"
	EnvDB       = "TASKTREE_DB"
	EnvActor    = "TASKTREE_ACTOR"
	EnvLogLevel = "TASKTREE_LOG_LEVEL"
	EnvLogFile  = "TASKTREE_LOG_FILE"
	EnvBusy     = "TASKTREE_BUSY_TIMEOUT"
)

// Config is the full configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Actor    string         `yaml:"actor"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig controls how the SQLite store is opened.
type DatabaseConfig struct {
	Path         string `yaml:"path"`
	BusyTimeout  int    `yaml:"busy_timeout"` // milliseconds
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // empty = stderr
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			Path:         DefaultDBPath(),
			BusyTimeout:  5000,
			MaxOpenConns: 1,
		},
		Actor: "",
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/tasktree/config.yaml, falling back to
// ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "tasktree", "config.yaml")
}

// DefaultDBPath returns $XDG_DATA_HOME/tasktree/tasktree.db, falling back to
// ~/.local/share when XDG_DATA_HOME is unset.
func DefaultDBPath() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")), "tasktree", "tasktree.db")
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fallback
	}
	return filepath.Join(home, fallback)
}

// Load reads configuration from path. A missing file yields defaults.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := decode(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides values from TASKTREE_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvDB); v != "" {
		c.Database.Path = v
	}
	if v := getenv(EnvActor); v != "" {
		c.Actor = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := getenv(EnvLogFile); v != "" {
		c.Log.File = v
	}
	if v := getenv(EnvBusy); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvBusy, err)
		}
		c.Database.BusyTimeout = ms
	}
	return c.Validate()
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Database.Path == "" {
		c.Database.Path = defaults.Database.Path
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = defaults.Database.BusyTimeout
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path cannot be empty")
	}
	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("database.busy_timeout must not be negative")
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be at least 1")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level %q is not a valid level", c.Log.Level)
	}
	return nil
}

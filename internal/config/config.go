// Package config loads arbor settings: defaults, then an optional YAML
// file, then ARBOR_* environment variables. Command-line flags are applied
// last by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

type RemoteConfig struct {
	// DSN is a Postgres connection string, or "memory" for an in-process
	// backend that lives as long as the command.
	DSN         string        `yaml:"dsn"`
	AccessToken string        `yaml:"access_token"`
	OwnerID     string        `yaml:"owner_id"`
	MaxConns    int32         `yaml:"max_conns"`
	SlowQuery   time.Duration `yaml:"slow_query"`
}

type SyncConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Offline        bool          `yaml:"offline"`
	DrainInterval  time.Duration `yaml:"drain_interval"`
	RetryBase      time.Duration `yaml:"retry_base"`
	RetryMax       time.Duration `yaml:"retry_max"`
	MaxAttempts    int           `yaml:"max_attempts"`
	CacheSnapshots bool          `yaml:"cache_snapshots"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type Config struct {
	DBPath  string        `yaml:"db_path"`
	Remote  RemoteConfig  `yaml:"remote"`
	Sync    SyncConfig    `yaml:"sync"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// Default returns the built-in settings. The store lives under ~/.arbor and
// sync is off until a remote is configured.
func Default() Config {
	return Config{
		DBPath: filepath.Join(homeDir(), ".arbor", "arbor.db"),
		Remote: RemoteConfig{MaxConns: 4, SlowQuery: 250 * time.Millisecond},
		Sync: SyncConfig{
			Enabled:        true,
			DrainInterval:  5 * time.Second,
			RetryBase:      2 * time.Second,
			RetryMax:       5 * time.Minute,
			MaxAttempts:    8,
			CacheSnapshots: true,
		},
		Log: LogConfig{Level: "warn", Format: "text", MaxSizeMB: 10, MaxBackups: 3},
	}
}

// DefaultPath is where Load looks when no file is given.
func DefaultPath() string {
	return filepath.Join(homeDir(), ".arbor", "config.yaml")
}

// Load applies the YAML file at path over the defaults, then the
// environment. A missing file is not an error unless path was given
// explicitly.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("ARBOR_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

// RemoteEnabled reports whether writes should be queued for a remote.
func (c Config) RemoteEnabled() bool {
	return c.Sync.Enabled && c.Remote.DSN != ""
}

func (c Config) Validate() error {
	var errs []error
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is empty"))
	}
	if c.Sync.DrainInterval <= 0 {
		errs = append(errs, errors.New("sync.drain_interval must be positive"))
	}
	if c.Sync.RetryBase <= 0 || c.Sync.RetryMax < c.Sync.RetryBase {
		errs = append(errs, errors.New("sync.retry_base must be positive and not above sync.retry_max"))
	}
	if c.Sync.MaxAttempts < 1 {
		errs = append(errs, errors.New("sync.max_attempts must be at least 1"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format %q is not text or json", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func applyEnv(cfg *Config) {
	envString("ARBOR_DB", &cfg.DBPath)
	envString("ARBOR_REMOTE_DSN", &cfg.Remote.DSN)
	envString("ARBOR_ACCESS_TOKEN", &cfg.Remote.AccessToken)
	envString("ARBOR_OWNER_ID", &cfg.Remote.OwnerID)
	envBool("ARBOR_SYNC_ENABLED", &cfg.Sync.Enabled)
	envBool("ARBOR_OFFLINE", &cfg.Sync.Offline)
	envDuration("ARBOR_DRAIN_INTERVAL", &cfg.Sync.DrainInterval)
	envDuration("ARBOR_RETRY_BASE", &cfg.Sync.RetryBase)
	envDuration("ARBOR_RETRY_MAX", &cfg.Sync.RetryMax)
	if v := os.Getenv("ARBOR_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Sync.MaxAttempts = n
		}
	}
	envBool("ARBOR_CACHE_SNAPSHOTS", &cfg.Sync.CacheSnapshots)
	envString("ARBOR_LOG_LEVEL", &cfg.Log.Level)
	envString("ARBOR_LOG_FORMAT", &cfg.Log.Format)
	envString("ARBOR_LOG_FILE", &cfg.Log.File)
	envString("ARBOR_METRICS_ADDR", &cfg.Metrics.Addr)
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

// envBool ignores values strconv.ParseBool rejects.
func envBool(name string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil && d > 0 {
			*dst = d
		}
	}
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

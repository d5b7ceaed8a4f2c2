// Package config loads session settings from an optional YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SCENEWEAVER_"

// Save backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config is the settings of one session.
type Config struct {
	Backend     string `yaml:"backend"      env:"SAVE_BACKEND"`
	SaveDir     string `yaml:"save_dir"     env:"SAVE_DIR"`
	SQLitePath  string `yaml:"sqlite_path"  env:"SQLITE_PATH"`
	PostgresDSN string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`

	AssetRoot    string `yaml:"asset_root"   env:"ASSET_ROOT"`
	Translations string `yaml:"translations" env:"TRANSLATIONS"`
	Start        string `yaml:"start"        env:"START"`
	Seed         int64  `yaml:"seed"         env:"SEED"`

	TransitionDelay time.Duration `yaml:"transition_delay" env:"TRANSITION_DELAY"`
	MinDwell        time.Duration `yaml:"min_dwell"        env:"MIN_DWELL"`
	VideoTimeout    time.Duration `yaml:"video_timeout"    env:"VIDEO_TIMEOUT"`
}

// Default returns the settings used when nothing is configured. Saves go
// to ~/.sceneweaver.
func Default() Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".sceneweaver")
	return Config{
		Backend:         BackendFile,
		SaveDir:         filepath.Join(base, "saves"),
		SQLitePath:      filepath.Join(base, "saves.db"),
		TransitionDelay: 300 * time.Millisecond,
		MinDwell:        time.Second,
		VideoTimeout:    5 * time.Second,
	}
}

// Load builds a Config from defaults, then the YAML file at path (skipped
// when path is empty), then SCENEWEAVER_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("loading config: parse env: %w", err)
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendFile:
		if strings.TrimSpace(c.SaveDir) == "" {
			return fmt.Errorf("save_dir is required for the file backend")
		}
	case BackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("sqlite_path is required for the sqlite backend")
		}
	case BackendPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown save backend: %q", c.Backend)
	}

	if c.TransitionDelay < 0 || c.MinDwell < 0 || c.VideoTimeout < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	return nil
}

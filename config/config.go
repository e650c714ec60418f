// Package config loads and validates archivegraph configuration from YAML,
// with defaults suitable for a single in-process store.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/archivegraph/errors"
)

// Config is the complete configuration for one store instance and its
// trash and persistence companions.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Trash   TrashConfig   `yaml:"trash"`
	Persist PersistConfig `yaml:"persist"`
}

// StoreConfig bounds the entity store.
type StoreConfig struct {
	// MaxRefDepth bounds the reference graph depth. It bounds recursive
	// traversal cost; it is not a domain rule.
	MaxRefDepth int `yaml:"max_ref_depth"`
	// MaxTraversalDepth bounds hierarchy traversals over nested documents.
	MaxTraversalDepth int `yaml:"max_traversal_depth"`
}

// TrashConfig bounds the trash subsystem.
type TrashConfig struct {
	MaxItems           int           `yaml:"max_items"`
	Retention          time.Duration `yaml:"retention"`
	ExpiringSoonWindow time.Duration `yaml:"expiring_soon_window"`
	// CleanupSchedule is a standard cron expression; empty disables the
	// background cleaner.
	CleanupSchedule string `yaml:"cleanup_schedule"`
}

// PersistConfig configures the asynchronous KV mirror.
type PersistConfig struct {
	Enabled      bool          `yaml:"enabled"`
	URL          string        `yaml:"url"`    // NATS server URL
	Bucket       string        `yaml:"bucket"` // KV bucket name
	QueueSize    int           `yaml:"queue_size"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			MaxRefDepth:       20,
			MaxTraversalDepth: 100,
		},
		Trash: TrashConfig{
			MaxItems:           200,
			Retention:          30 * 24 * time.Hour,
			ExpiringSoonWindow: 3 * 24 * time.Hour,
			CleanupSchedule:    "@hourly",
		},
		Persist: PersistConfig{
			Enabled:      false,
			URL:          "nats://127.0.0.1:4222",
			Bucket:       "archivegraph-entities",
			QueueSize:    64,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "Config", "Load", "read file")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "Config", "Load", "parse yaml")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the engines cannot run with.
func (c *Config) Validate() error {
	if c.Store.MaxRefDepth <= 0 {
		return invalid("store.max_ref_depth must be positive")
	}
	if c.Store.MaxTraversalDepth <= 0 {
		return invalid("store.max_traversal_depth must be positive")
	}
	if c.Trash.MaxItems <= 0 {
		return invalid("trash.max_items must be positive")
	}
	if c.Trash.Retention <= 0 {
		return invalid("trash.retention must be positive")
	}
	if c.Trash.ExpiringSoonWindow < 0 {
		return invalid("trash.expiring_soon_window cannot be negative")
	}
	if c.Trash.ExpiringSoonWindow > c.Trash.Retention {
		return invalid("trash.expiring_soon_window cannot exceed retention")
	}
	if c.Persist.Enabled {
		if c.Persist.URL == "" {
			return invalid("persist.url required when persistence is enabled")
		}
		if c.Persist.Bucket == "" {
			return invalid("persist.bucket required when persistence is enabled")
		}
		if c.Persist.QueueSize <= 0 {
			return invalid("persist.queue_size must be positive")
		}
		if c.Persist.WriteTimeout <= 0 {
			return invalid("persist.write_timeout must be positive")
		}
	}
	return nil
}

func invalid(msg string) error {
	return errors.WrapStructural(errors.ErrInvalidConfig, "Config", "Validate", fmt.Sprintf("check %s", msg))
}

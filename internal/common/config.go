// Package common provides shared utilities for the Vire ledger
package common

import (
	"fmt"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the ledger
type Config struct {
	Environment string          `toml:"environment"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Returns     ReturnsConfig   `toml:"returns"`
	Reconcile   ReconcileConfig `toml:"reconcile"`
}

// StorageConfig selects and configures the ledger store backend.
type StorageConfig struct {
	Backend   string `toml:"backend"` // "surrealdb" (default) or "memory"
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// ReturnsConfig holds defaults for the returns engine.
type ReturnsConfig struct {
	// DefaultPeriods is used when a request names no periods.
	DefaultPeriods []string `toml:"default_periods"`
	// Timezone determines the calendar day "yesterday" is computed in.
	Timezone string `toml:"timezone"`
}

// Location resolves the configured timezone, falling back to UTC.
func (c *ReturnsConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ReconcileConfig holds reconciliation engine switches.
type ReconcileConfig struct {
	LogShortfalls bool `toml:"log_shortfalls"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Backend:   "surrealdb",
			Address:   "ws://localhost:8000/rpc",
			Namespace: "vire",
			Database:  "ledger",
			Username:  "root",
			Password:  "root",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Returns: ReturnsConfig{
			DefaultPeriods: []string{"1D", "1M", "3M", "QTD", "YTD", "1Y", "3Y", "LQ", "LY"},
			Timezone:       "UTC",
		},
		Reconcile: ReconcileConfig{
			LogShortfalls: true,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	normalizeStorageBackend(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("VIRE_LEDGER_ENV"); env != "" {
		config.Environment = env
	}

	if level := os.Getenv("VIRE_LEDGER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("VIRE_LEDGER_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}

	if v := os.Getenv("VIRE_LEDGER_STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = v
	}
	if v := os.Getenv("VIRE_LEDGER_STORAGE_ADDRESS"); v != "" {
		config.Storage.Address = v
	}
	if v := os.Getenv("VIRE_LEDGER_STORAGE_NAMESPACE"); v != "" {
		config.Storage.Namespace = v
	}
	if v := os.Getenv("VIRE_LEDGER_STORAGE_DATABASE"); v != "" {
		config.Storage.Database = v
	}
	if v := os.Getenv("VIRE_LEDGER_STORAGE_USERNAME"); v != "" {
		config.Storage.Username = v
	}
	if v := os.Getenv("VIRE_LEDGER_STORAGE_PASSWORD"); v != "" {
		config.Storage.Password = v
	}

	if tz := os.Getenv("VIRE_LEDGER_RETURNS_TIMEZONE"); tz != "" {
		config.Returns.Timezone = tz
	}
}

// normalizeStorageBackend lower-cases the backend name, defaulting to surrealdb.
func normalizeStorageBackend(config *Config) {
	backend := strings.ToLower(strings.TrimSpace(config.Storage.Backend))
	if backend != "memory" {
		backend = "surrealdb"
	}
	config.Storage.Backend = backend
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

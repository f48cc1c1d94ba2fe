package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Storage.Backend != "surrealdb" {
		t.Errorf("Storage.Backend default = %q, want %q", cfg.Storage.Backend, "surrealdb")
	}
	if len(cfg.Returns.DefaultPeriods) != 9 {
		t.Errorf("Returns.DefaultPeriods = %v, want 9 periods", cfg.Returns.DefaultPeriods)
	}
	if !cfg.Reconcile.LogShortfalls {
		t.Error("Reconcile.LogShortfalls default should be true")
	}
}

func TestConfig_StorageEnvOverride(t *testing.T) {
	t.Setenv("VIRE_LEDGER_STORAGE_BACKEND", "memory")
	t.Setenv("VIRE_LEDGER_STORAGE_ADDRESS", "ws://db:8000/rpc")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Storage.Backend != "memory" {
		t.Errorf("Storage.Backend = %q after env override, want %q", cfg.Storage.Backend, "memory")
	}
	if cfg.Storage.Address != "ws://db:8000/rpc" {
		t.Errorf("Storage.Address = %q after env override", cfg.Storage.Address)
	}
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.toml")
	content := `
environment = "production"

[storage]
backend = "Memory"

[logging]
level = "debug"

[returns]
default_periods = ["1M", "YTD"]
timezone = "Australia/Sydney"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("VIRE_LEDGER_LOG_LEVEL", "warn")

	cfg, err := LoadConfig(path, filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("expected production environment from file")
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Storage.Backend = %q, want normalized %q", cfg.Storage.Backend, "memory")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, env should win over file", cfg.Logging.Level)
	}
	if len(cfg.Returns.DefaultPeriods) != 2 {
		t.Errorf("Returns.DefaultPeriods = %v, want [1M YTD]", cfg.Returns.DefaultPeriods)
	}
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(path, []byte("[storage\nbackend ="), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error for malformed TOML")
	}
}

func TestReturnsConfig_Location(t *testing.T) {
	cfg := ReturnsConfig{Timezone: "Not/AZone"}
	if cfg.Location() != time.UTC {
		t.Errorf("invalid timezone should fall back to UTC, got %v", cfg.Location())
	}
	cfg.Timezone = ""
	if cfg.Location() != time.UTC {
		t.Errorf("empty timezone should be UTC, got %v", cfg.Location())
	}
}

func TestLoadConfig_ExampleFile(t *testing.T) {
	t.Setenv("VIRE_LEDGER_RETURNS_TIMEZONE", "")
	t.Setenv("VIRE_LEDGER_STORAGE_BACKEND", "")

	cfg, err := LoadConfig(filepath.Join("..", "..", "config", "vire-ledger.toml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Storage.Backend != "surrealdb" {
		t.Errorf("backend = %q, want surrealdb", cfg.Storage.Backend)
	}
	if got := cfg.Returns.Timezone; got != "Australia/Sydney" {
		t.Errorf("timezone = %q, want Australia/Sydney", got)
	}
	if len(cfg.Returns.DefaultPeriods) != 9 {
		t.Errorf("default periods = %v, want all 9", cfg.Returns.DefaultPeriods)
	}
}

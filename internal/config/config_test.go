package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ReadsFileByPath(t *testing.T) {
	path := writeConfigFile(t, `
Postgres:
  Account: engine_user
  DBName: smart_wallet
  Password: secret
Differ:
  USDFloor: 250
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error = %v", path, err)
	}

	if cfg.Postgres.Account != "engine_user" {
		t.Errorf("Postgres.Account = %q, want engine_user", cfg.Postgres.Account)
	}
	if cfg.Postgres.DBName != "smart_wallet" {
		t.Errorf("Postgres.DBName = %q, want smart_wallet", cfg.Postgres.DBName)
	}
	if cfg.Differ.USDFloor != 250 {
		t.Errorf("Differ.USDFloor = %v, want 250 from file", cfg.Differ.USDFloor)
	}

	// Keys absent from the file keep their defaults.
	if cfg.Engine.BatchSize != 5 {
		t.Errorf("Engine.BatchSize = %d, want default 5", cfg.Engine.BatchSize)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
Postgres:
  Account: engine_user
  DBName: smart_wallet
`)
	t.Setenv("SWE_POSTGRES_DBNAME", "smart_wallet_env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error = %v", path, err)
	}
	if cfg.Postgres.DBName != "smart_wallet_env" {
		t.Errorf("Postgres.DBName = %q, want env override", cfg.Postgres.DBName)
	}
}

func TestLoad_MissingFileFailsValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.yaml")

	if _, err := Load(path); err == nil {
		t.Fatal("Load() with no file and no credentials should fail validation")
	}
}

func TestLoad_MalformedFileIsAnError(t *testing.T) {
	path := writeConfigFile(t, "Postgres: [not: a: mapping")

	if _, err := Load(path); err == nil {
		t.Fatal("Load() with malformed yaml should fail")
	}
}

func TestValidate_SubWindowBound(t *testing.T) {
	cfg := &Config{}
	cfg.Postgres.Account = "a"
	cfg.Postgres.DBName = "b"
	cfg.Migration.LookbackDays = 2
	cfg.Migration.SubWindowDays = 7

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() should reject sub-window larger than lookback")
	}
}

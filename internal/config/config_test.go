package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
store:
  path: /tmp/funds-test.db
source:
  cvm_base_url: https://example.test/dados
  legacy_until: 2017
loader:
  start_year: 2010
  target_funds:
    - "11.222.333/0001-81"
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Store.Path != "/tmp/funds-test.db" {
		t.Errorf("Store.Path = %q, want %q", cfg.Store.Path, "/tmp/funds-test.db")
	}
	if cfg.Source.CVMBaseURL != "https://example.test/dados" {
		t.Errorf("Source.CVMBaseURL = %q, want %q", cfg.Source.CVMBaseURL, "https://example.test/dados")
	}
	if cfg.Loader.StartYear != 2010 {
		t.Errorf("Loader.StartYear = %d, want 2010", cfg.Loader.StartYear)
	}
	if len(cfg.Loader.TargetFunds) != 1 {
		t.Errorf("Loader.TargetFunds = %v, want one entry", cfg.Loader.TargetFunds)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_STORE_PATH", "/tmp/env-funds.db")

	yaml := `
store:
  path: ${TEST_STORE_PATH}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Store.Path != "/tmp/env-funds.db" {
		t.Errorf("Store.Path = %q, want %q", cfg.Store.Path, "/tmp/env-funds.db")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
store:
  path: /tmp/funds-test.db
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Source.CVMBaseURL != DefaultCVMBaseURL {
		t.Errorf("Source.CVMBaseURL = %q, want default %q", cfg.Source.CVMBaseURL, DefaultCVMBaseURL)
	}
	if cfg.Source.Timeout != DefaultTimeout {
		t.Errorf("Source.Timeout = %v, want default %v", cfg.Source.Timeout, DefaultTimeout)
	}
	if cfg.Source.LegacyUntil != DefaultLegacyUntil {
		t.Errorf("Source.LegacyUntil = %d, want default %d", cfg.Source.LegacyUntil, DefaultLegacyUntil)
	}
	if cfg.Loader.StartYear != DefaultStartYear {
		t.Errorf("Loader.StartYear = %d, want default %d", cfg.Loader.StartYear, DefaultStartYear)
	}
	if cfg.Loader.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("Loader.MaxAttempts = %d, want default %d", cfg.Loader.MaxAttempts, DefaultMaxAttempts)
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	valid := Default()
	valid.Store.Path = filepath.Join(dir, "funds.db")
	if err := valid.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	badDir := Default()
	badDir.Store.Path = filepath.Join(dir, "no-such-dir", "funds.db")
	if err := badDir.Validate(); err == nil {
		t.Error("config with unreachable store directory accepted")
	}

	badYear := Default()
	badYear.Store.Path = filepath.Join(dir, "funds.db")
	badYear.Loader.StartYear = 1800
	if err := badYear.Validate(); err == nil {
		t.Error("config with out-of-range start year accepted")
	}

	badTarget := Default()
	badTarget.Store.Path = filepath.Join(dir, "funds.db")
	badTarget.Loader.TargetFunds = []string{"12345"}
	if err := badTarget.Validate(); err == nil {
		t.Error("config with malformed target CNPJ accepted")
	}
	if err := badTarget.Validate(); err != nil && !strings.Contains(err.Error(), "target_funds") {
		t.Errorf("error should name the bad field, got %v", err)
	}
}

func TestValidateNormalizesTargets(t *testing.T) {
	dir := t.TempDir()

	cfg := Default()
	cfg.Store.Path = filepath.Join(dir, "funds.db")
	cfg.Loader.TargetFunds = []string{"11222333000181"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if cfg.Loader.TargetFunds[0] != "11.222.333/0001-81" {
		t.Errorf("target not normalized: %q", cfg.Loader.TargetFunds[0])
	}
}

func TestDefaultTimeouts(t *testing.T) {
	cfg := Default()
	if cfg.Source.Timeout < 10*time.Second {
		t.Errorf("default timeout %v suspiciously low for bulk files", cfg.Source.Timeout)
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

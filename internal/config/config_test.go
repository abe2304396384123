package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected defaults to load, got error: %v", err)
	}

	if cfg.Server.Port != "8000" {
		t.Errorf("expected port 8000, got '%s'", cfg.Server.Port)
	}
	if cfg.Provider.BaseURL != "https://query1.finance.yahoo.com" {
		t.Errorf("expected default base URL, got '%s'", cfg.Provider.BaseURL)
	}
	if cfg.Scan.Workers != 5 || cfg.Scan.BatchSize != 5 {
		t.Errorf("expected 5 workers in batches of 5, got %d/%d", cfg.Scan.Workers, cfg.Scan.BatchSize)
	}
	if cfg.Engine.RiskFreeRate != 0.045 || cfg.Engine.ATMBand != 0.10 {
		t.Errorf("unexpected engine defaults %+v", cfg.Engine)
	}
	if cfg.Provider.Breaker.MaxRequests != 3 {
		t.Errorf("expected breaker max requests 3, got %d", cfg.Provider.Breaker.MaxRequests)
	}
	if cfg.Notify.Enabled {
		t.Error("expected notifications disabled by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("QUANTDESK_SCAN_WORKERS", "8")
	t.Setenv("QUANTDESK_ENGINE_RISK_FREE_RATE", "0.05")
	t.Setenv("PORT", "9090")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Scan.Workers != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.Scan.Workers)
	}
	if cfg.Engine.RiskFreeRate != 0.05 {
		t.Errorf("expected rate 0.05, got %v", cfg.Engine.RiskFreeRate)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected PORT override, got %s", cfg.Server.Port)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quantdesk.yaml")
	yaml := `
scan:
  workers: 3
  max_tickers: 100
universe:
  url: ./constituents.csv
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Scan.Workers != 3 || cfg.Scan.MaxTickers != 100 {
		t.Errorf("file values not applied: %+v", cfg.Scan)
	}
	if cfg.Scan.BatchSize != 5 {
		t.Errorf("expected unset keys to keep defaults, got batch size %d", cfg.Scan.BatchSize)
	}
	if cfg.Universe.URL != "./constituents.csv" {
		t.Errorf("unexpected universe url %q", cfg.Universe.URL)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("QUANTDESK_SCAN_WORKERS", "0")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error when workers is 0")
	}
}

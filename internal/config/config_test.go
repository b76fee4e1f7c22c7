package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Analysis.WindowDays != 31 {
		t.Fatalf("expected 31-day window, got %d", cfg.Analysis.WindowDays)
	}
	if cfg.Analysis.Buckets != 24 {
		t.Fatalf("expected 24 buckets, got %d", cfg.Analysis.Buckets)
	}
	if cfg.Analysis.GlobalThreshold != 0.5 || cfg.Analysis.PointThreshold != 0.25 {
		t.Fatalf("unexpected default thresholds: %+v", cfg.Analysis)
	}
	if len(cfg.Categories) != 3 {
		t.Fatalf("expected 3 default categories, got %d", len(cfg.Categories))
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	payload := `
server:
  address: ":9090"
analysis:
  windowDays: 14
  timezone: America/New_York
categories:
  - name: ossec
    keyField: rule_number
storage:
  backend: sqlite
  path: /tmp/reports.db
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Fatalf("expected override address, got %s", cfg.Server.Address)
	}
	if cfg.Analysis.WindowDays != 14 {
		t.Fatalf("expected 14-day window, got %d", cfg.Analysis.WindowDays)
	}
	if cfg.Analysis.Buckets != 24 {
		t.Fatalf("expected default buckets to survive partial override, got %d", cfg.Analysis.Buckets)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Fatalf("expected sqlite backend, got %s", cfg.Storage.Backend)
	}
	if len(cfg.Categories) != 1 {
		t.Fatalf("expected category table replaced, got %d entries", len(cfg.Categories))
	}
	if cfg.Analysis.Location().String() != "America/New_York" {
		t.Fatalf("unexpected location: %s", cfg.Analysis.Location())
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"bad-window":     "analysis:\n  windowDays: 0\n",
		"bad-percentile": "analysis:\n  lowPercentile: 50\n  highPercentile: 10\n",
		"bad-backend":    "storage:\n  backend: postgres\n",
		"bad-category":   "categories:\n  - name: ossec\n",
		"bad-depth":      "analysis:\n  fftDepth: 99\n",
	}
	for name, payload := range cases {
		path := filepath.Join(dir, name+".yaml")
		if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LOG_OUTLIER_STORE_BASE_URL", "http://logstore:9200")
	t.Setenv("LOG_OUTLIER_WINDOW_DAYS", "7")
	t.Setenv("LOG_OUTLIER_CACHE_ENABLED", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogStore.BaseURL != "http://logstore:9200" {
		t.Fatalf("base URL override missing, got %q", cfg.LogStore.BaseURL)
	}
	if cfg.Analysis.WindowDays != 7 {
		t.Fatalf("window override missing, got %d", cfg.Analysis.WindowDays)
	}
	if !cfg.Cache.Enabled {
		t.Fatalf("cache enable override missing")
	}
}

func TestGracefulTimeoutDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.GracefulTimeout != 10*time.Second {
		t.Fatalf("unexpected graceful timeout: %v", cfg.Server.GracefulTimeout)
	}
}

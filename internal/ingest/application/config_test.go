package application

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("REPORTING_CONFIG", "")
	t.Setenv("REPORTING_INBOX_DIR", "")
	t.Setenv("REPORTING_PATTERNS", "")
	t.Setenv("REPORTING_DEBOUNCE_MS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.InboxDir != filepath.FromSlash("var/inbox") {
		t.Errorf("expected default inbox dir, got %q", cfg.InboxDir)
	}
	if len(cfg.Patterns) != 2 || cfg.Patterns[0] != "*.xlsx" || cfg.Patterns[1] != "*.xlsm" {
		t.Errorf("expected default patterns, got %v", cfg.Patterns)
	}
	if cfg.DebounceMS != 1500 {
		t.Errorf("expected default debounce, got %d", cfg.DebounceMS)
	}
	if cfg.UploadMaxMB != 32 {
		t.Errorf("expected default upload limit, got %d", cfg.UploadMaxMB)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("REPORTING_CONFIG", "")
	t.Setenv("REPORTING_INBOX_DIR", "/data/in")
	t.Setenv("REPORTING_PATTERNS", "*.xlsx, *.csv")
	t.Setenv("REPORTING_DEBOUNCE_MS", "250")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.InboxDir != "/data/in" {
		t.Errorf("expected env inbox dir, got %q", cfg.InboxDir)
	}
	if len(cfg.Patterns) != 2 || cfg.Patterns[1] != "*.csv" {
		t.Errorf("expected env patterns, got %v", cfg.Patterns)
	}
	if cfg.DebounceMS != 250 {
		t.Errorf("expected env debounce, got %d", cfg.DebounceMS)
	}
}

func TestLoadConfigYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reporting.yaml")
	body := "inbox_dir: /srv/inbox\npatterns:\n  - \"*.xlsm\"\ndebounce_ms: 500\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("REPORTING_CONFIG", path)
	t.Setenv("REPORTING_INBOX_DIR", "")
	t.Setenv("REPORTING_PATTERNS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.InboxDir != "/srv/inbox" {
		t.Errorf("expected yaml inbox dir, got %q", cfg.InboxDir)
	}
	if len(cfg.Patterns) != 1 || cfg.Patterns[0] != "*.xlsm" {
		t.Errorf("expected yaml patterns, got %v", cfg.Patterns)
	}
	if cfg.DebounceMS != 500 {
		t.Errorf("expected yaml debounce, got %d", cfg.DebounceMS)
	}
}

package application

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config defines ingestion pipeline configuration.
type Config struct {
	InboxDir    string   `yaml:"inbox_dir"`
	Patterns    []string `yaml:"patterns"`
	DebounceMS  int      `yaml:"debounce_ms"`
	UploadMaxMB int      `yaml:"upload_max_mb"`
}

// LoadConfig loads config from yaml or env.
func LoadConfig() (Config, error) {
	cfg := Config{
		InboxDir:    getenvDefault("REPORTING_INBOX_DIR", filepath.FromSlash("var/inbox")),
		DebounceMS:  getenvIntDefault("REPORTING_DEBOUNCE_MS", 1500),
		UploadMaxMB: getenvIntDefault("REPORTING_UPLOAD_MAX_MB", 32),
	}

	if path := os.Getenv("REPORTING_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if len(cfg.Patterns) == 0 {
		cfg.Patterns = splitCSV(getenvDefault("REPORTING_PATTERNS", "*.xlsx,*.xlsm"))
	}
	if cfg.DebounceMS <= 0 {
		cfg.DebounceMS = 1500
	}
	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 32
	}
	if cfg.InboxDir == "" {
		return cfg, errors.New("ingest: inbox dir required")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}

// Package config handles configuration loading for the Legalis client.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	// Backend connection
	APIURL   string `yaml:"api_url"`
	APIToken string `yaml:"api_token"`

	// Default session framing
	Jurisdiction string `yaml:"jurisdiction"`
	Category     string `yaml:"category"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

// Load reads configuration from the config file (if present), then lets
// environment variables override. File location: $LEGALIS_CONFIG or
// ~/.config/legalis/config.yaml.
func Load() Config {
	cfg := Config{
		APIURL:       "http://localhost:4000",
		Jurisdiction: "national",
		LogFile:      "/tmp/legalis.log",
		LogLevel:     slog.LevelInfo,
	}

	if path := ConfigPath(); path != "" {
		if raw, err := os.ReadFile(path); err == nil {
			// A broken file falls back to defaults; the env can still
			// override everything.
			_ = yaml.Unmarshal(raw, &cfg)
		}
	}

	cfg.APIURL = getEnv("LEGALIS_API_URL", cfg.APIURL)
	cfg.APIToken = getEnv("LEGALIS_API_TOKEN", cfg.APIToken)
	cfg.Jurisdiction = getEnv("LEGALIS_JURISDICTION", cfg.Jurisdiction)
	cfg.Category = getEnv("LEGALIS_CATEGORY", cfg.Category)
	cfg.LogFile = getEnv("LEGALIS_LOG_FILE", cfg.LogFile)
	cfg.LogLevel = parseLogLevel(getEnv("LEGALIS_LOG_LEVEL", "INFO"))

	return cfg
}

// Save writes the config file, creating its directory if needed. Used by
// `legalis login` to persist the endpoint and token.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	// The file carries the API token; keep it user-only.
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ConfigPath returns the config file location, or "" if no home
// directory is available.
func ConfigPath() string {
	if p := os.Getenv("LEGALIS_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "legalis", "config.yaml")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Package config loads service configuration from environment
// variables, with an optional JSON file overriding the source list.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every setting the daemons need.
type Config struct {
	// DatabaseURL is the Postgres connection string for the catalog.
	DatabaseURL string

	// APIPort is the HTTP listen port of the query service.
	APIPort int

	// SketchHost and SketchPort locate the external sketch server.
	// Empty host disables sketching.
	SketchHost string
	SketchPort int

	// SourcesFile optionally points at a JSON file overriding the
	// built-in source list.
	SourcesFile string

	// DefaultCheckInterval is the discovery reconciliation period.
	DefaultCheckInterval time.Duration
}

// SourceConfig is one entry of the sources file.
type SourceConfig struct {
	// Type is "socrata" or "bulk".
	Type string `json:"type"`
	// URL is the source domain (socrata) or dump URL (bulk).
	URL string `json:"url"`
	// ListURL is the metadata listing URL for bulk sources.
	ListURL string `json:"list_url,omitempty"`
	// Auth is an app token or credential, when the source needs one.
	Auth string `json:"auth,omitempty"`
	// CheckInterval overrides the default period, e.g. "6h".
	CheckInterval string `json:"check_interval,omitempty"`
}

// Interval returns the parsed check interval, or fallback
func (s SourceConfig) Interval(fallback time.Duration) time.Duration {
	if s.CheckInterval == "" {
		return fallback
	}
	d, err := time.ParseDuration(s.CheckInterval)
	if err != nil {
		return fallback
	}
	return d
}

// Load reads the configuration from the environment
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		APIPort:              getEnvIntOrDefault("API_PORT", 8002),
		SketchHost:           os.Getenv("SKETCH_HOST"),
		SketchPort:           getEnvIntOrDefault("SKETCH_PORT", 50051),
		SourcesFile:          os.Getenv("SOURCES_FILE"),
		DefaultCheckInterval: getEnvDurationOrDefault("CHECK_INTERVAL", 24*time.Hour),
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

// LoadSources parses the sources file; a missing path returns nil
func (c *Config) LoadSources() ([]SourceConfig, error) {
	if c.SourcesFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.SourcesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}
	var sources []SourceConfig
	if err := json.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}
	return sources, nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDurationOrDefault(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

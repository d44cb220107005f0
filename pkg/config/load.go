package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention THEMIS_SECTION_FIELD (e.g., THEMIS_SERVER_LISTEN_ADDRESS) and
// always take precedence over file-based configuration.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Variables use the format THEMIS_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("THEMIS_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if d, ok := envDuration("THEMIS_SERVER_READ_TIMEOUT"); ok {
		cfg.Server.ReadTimeout = d
	}
	if d, ok := envDuration("THEMIS_SERVER_WRITE_TIMEOUT"); ok {
		cfg.Server.WriteTimeout = d
	}
	if d, ok := envDuration("THEMIS_SERVER_SHUTDOWN_TIMEOUT"); ok {
		cfg.Server.ShutdownTimeout = d
	}

	// Catalog overrides
	if val := os.Getenv("THEMIS_CATALOG_FILE_PATH"); val != "" {
		cfg.Catalog.FilePath = val
	}
	if b, ok := envBool("THEMIS_CATALOG_WATCH"); ok {
		cfg.Catalog.Watch = b
	}

	// Jurisdiction overrides
	if val := os.Getenv("THEMIS_JURISDICTION_RULE_SET_PATH"); val != "" {
		cfg.Jurisdiction.RuleSetPath = val
	}

	// Decision overrides
	if d, ok := envDuration("THEMIS_DECISIONS_DEDUP_WINDOW"); ok {
		cfg.Decisions.DedupWindow = d
	}
	if val := os.Getenv("THEMIS_DECISIONS_REVIEW_SCHEDULE"); val != "" {
		cfg.Decisions.ReviewSchedule = val
	}

	// Readiness overrides
	if d, ok := envDuration("THEMIS_READINESS_CATEGORY_TIMEOUT"); ok {
		cfg.Readiness.CategoryTimeout = d
	}
	if val := os.Getenv("THEMIS_READINESS_TIMEOUT_CRITICAL"); val != "" {
		cfg.Readiness.TimeoutCritical = splitList(val)
	}

	// Storage overrides
	if val := os.Getenv("THEMIS_STORAGE_BACKEND"); val != "" {
		cfg.Storage.Backend = val
	}
	if val := os.Getenv("THEMIS_STORAGE_DECISIONS_PATH"); val != "" {
		cfg.Storage.DecisionsPath = val
	}
	if val := os.Getenv("THEMIS_STORAGE_READINESS_PATH"); val != "" {
		cfg.Storage.ReadinessPath = val
	}

	// Telemetry overrides
	if val := os.Getenv("THEMIS_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("THEMIS_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if b, ok := envBool("THEMIS_METRICS_ENABLED"); ok {
		cfg.Telemetry.Metrics.Enabled = b
	}
}

// envDuration parses a duration environment variable. Invalid values are
// ignored so a typo cannot silently zero a timeout.
func envDuration(name string) (time.Duration, bool) {
	val := os.Getenv(name)
	if val == "" {
		return 0, false
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, false
	}
	return d, true
}

func envBool(name string) (bool, bool) {
	val := os.Getenv(name)
	if val == "" {
		return false, false
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, false
	}
	return b, true
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

package config

import "time"

// Config is the root configuration structure for the engine. It contains
// configuration sections for the HTTP server, the policy rule catalog,
// jurisdiction rule sets, the decision lifecycle, the readiness aggregator,
// persistence, and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address
	// and connection timeouts.
	Server ServerConfig `yaml:"server"`

	// Catalog contains configuration for the policy rule catalog including
	// the rule file location and watch mode.
	Catalog CatalogConfig `yaml:"catalog"`

	// Jurisdiction contains configuration for jurisdiction rule sets.
	Jurisdiction JurisdictionConfig `yaml:"jurisdiction"`

	// Decisions contains configuration for the decision lifecycle including
	// the idempotency window, expiration policy, and review sweep schedule.
	Decisions DecisionsConfig `yaml:"decisions"`

	// Readiness contains configuration for the readiness aggregator
	// including the per-category evaluation timeout.
	Readiness ReadinessConfig `yaml:"readiness"`

	// Storage contains configuration for persistence backend selection.
	Storage StorageConfig `yaml:"storage"`

	// Telemetry contains configuration for observability including logging
	// and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// ListenAddress is the address the server listens on (host:port).
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum time to wait for the next request on a
	// keep-alive connection.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// CatalogConfig contains policy rule catalog configuration.
type CatalogConfig struct {
	// FilePath is the YAML rule file holding published policy versions.
	FilePath string `yaml:"file_path"`

	// Watch enables automatic reload when the rule file changes.
	Watch bool `yaml:"watch"`

	// DebounceInterval is how long the watcher coalesces change events
	// before reloading.
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// JurisdictionConfig contains jurisdiction rule set configuration.
type JurisdictionConfig struct {
	// RuleSetPath is the YAML file holding jurisdiction rule sets. Empty
	// disables jurisdiction evaluation.
	RuleSetPath string `yaml:"rule_set_path"`
}

// DecisionsConfig contains decision lifecycle configuration.
type DecisionsConfig struct {
	// DedupWindow is the window within which identical create requests
	// return the existing decision instead of creating a new one.
	DedupWindow time.Duration `yaml:"dedup_window"`

	// DefaultExpirationDays maps verification step names to decision
	// lifetimes in days.
	DefaultExpirationDays map[string]int `yaml:"default_expiration_days"`

	// FallbackExpirationDays applies to steps with no entry in
	// DefaultExpirationDays.
	FallbackExpirationDays int `yaml:"fallback_expiration_days"`

	// ReviewSchedule is the cron expression for the periodic review sweep.
	// An empty string disables the sweep.
	ReviewSchedule string `yaml:"review_schedule"`
}

// ReadinessConfig contains readiness aggregator configuration.
type ReadinessConfig struct {
	// CategoryTimeout bounds each category evaluator before it is treated
	// as a degraded source.
	CategoryTimeout time.Duration `yaml:"category_timeout"`

	// TimeoutCritical lists categories whose timeout fails the category
	// outright instead of degrading it.
	TimeoutCritical []string `yaml:"timeout_critical"`
}

// StorageConfig contains persistence backend configuration.
type StorageConfig struct {
	// Backend selects the storage implementation: "sqlite" or "memory".
	Backend string `yaml:"backend"`

	// DecisionsPath is the decision database file path (sqlite backend).
	DecisionsPath string `yaml:"decisions_path"`

	// ReadinessPath is the readiness database file path (sqlite backend).
	ReadinessPath string `yaml:"readiness_path"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, or error.
	Level string `yaml:"level"`

	// Format is the log output format: "json" or "text".
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled turns the metrics endpoint on.
	Enabled bool `yaml:"enabled"`

	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace"`

	// Subsystem is the second component of every metric name.
	Subsystem string `yaml:"subsystem"`

	// Path is the metrics endpoint path.
	Path string `yaml:"path"`
}

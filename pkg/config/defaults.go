package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8086"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Catalog defaults
	DefaultCatalogFilePath = "./policy-rules.yaml"
	DefaultCatalogWatch    = false
	DefaultCatalogDebounce = 500 * time.Millisecond

	// Decision defaults
	DefaultDedupWindow            = time.Hour
	DefaultFallbackExpirationDays = 365
	DefaultReviewSchedule         = "0 6 * * *"

	// Readiness defaults
	DefaultCategoryTimeout = 3 * time.Second

	// Storage defaults
	DefaultStorageBackend = "sqlite"
	DefaultDecisionsPath  = "data/decisions.db"
	DefaultReadinessPath  = "data/readiness.db"

	// Telemetry defaults
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultMetricsEnabled   = true
	DefaultMetricsNamespace = "themis"
	DefaultMetricsSubsystem = "engine"
	DefaultMetricsPath      = "/metrics"
)

// DefaultExpirationDays returns the default per-step decision lifetimes.
func DefaultExpirationDays() map[string]int {
	return map[string]int{
		"kyc_verification":    365,
		"kyb_verification":    365,
		"compliance_approval": 180,
		"token_launch":        90,
	}
}

// ApplyDefaults fills in default values for any configuration fields that
// are unset (zero-valued). It modifies the configuration in place.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Catalog.FilePath == "" {
		cfg.Catalog.FilePath = DefaultCatalogFilePath
	}
	if cfg.Catalog.DebounceInterval == 0 {
		cfg.Catalog.DebounceInterval = DefaultCatalogDebounce
	}

	if cfg.Decisions.DedupWindow == 0 {
		cfg.Decisions.DedupWindow = DefaultDedupWindow
	}
	if cfg.Decisions.DefaultExpirationDays == nil {
		cfg.Decisions.DefaultExpirationDays = DefaultExpirationDays()
	}
	if cfg.Decisions.FallbackExpirationDays == 0 {
		cfg.Decisions.FallbackExpirationDays = DefaultFallbackExpirationDays
	}
	if cfg.Decisions.ReviewSchedule == "" {
		cfg.Decisions.ReviewSchedule = DefaultReviewSchedule
	}

	if cfg.Readiness.CategoryTimeout == 0 {
		cfg.Readiness.CategoryTimeout = DefaultCategoryTimeout
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.DecisionsPath == "" {
		cfg.Storage.DecisionsPath = DefaultDecisionsPath
	}
	if cfg.Storage.ReadinessPath == "" {
		cfg.Storage.ReadinessPath = DefaultReadinessPath
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}

// NewDefaultConfig returns a Config populated entirely with default values.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	ApplyDefaults(cfg)
	return cfg
}

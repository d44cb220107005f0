package config

import (
	"fmt"
	"net"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field
	// (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a
// configuration. It implements the error interface and provides access to
// all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateCatalog(&cfg.Catalog)...)
	errs = append(errs, validateDecisions(&cfg.Decisions)...)
	errs = append(errs, validateReadiness(&cfg.Readiness)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: %v", cfg.ListenAddress, err),
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "timeout must not be negative",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "timeout must not be negative",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "timeout must not be negative",
		})
	}

	return errs
}

func validateCatalog(cfg *CatalogConfig) []FieldError {
	var errs []FieldError

	if cfg.FilePath == "" {
		errs = append(errs, FieldError{
			Field:   "catalog.file_path",
			Message: "rule file path is required",
		})
	}
	if cfg.DebounceInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "catalog.debounce_interval",
			Message: "debounce interval must not be negative",
		})
	}

	return errs
}

func validateDecisions(cfg *DecisionsConfig) []FieldError {
	var errs []FieldError

	if cfg.DedupWindow <= 0 {
		errs = append(errs, FieldError{
			Field:   "decisions.dedup_window",
			Message: "dedup window must be positive",
		})
	}
	if cfg.FallbackExpirationDays <= 0 {
		errs = append(errs, FieldError{
			Field:   "decisions.fallback_expiration_days",
			Message: "fallback expiration must be positive",
		})
	}
	for step, days := range cfg.DefaultExpirationDays {
		if days <= 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("decisions.default_expiration_days.%s", step),
				Message: "expiration must be positive",
			})
		}
	}

	return errs
}

// knownReadinessCategories mirrors the category names understood by the
// readiness aggregator. Kept as plain strings so the config package stays
// free of domain imports.
var knownReadinessCategories = map[string]bool{
	"entitlement":           true,
	"account_readiness":     true,
	"identity_verification": true,
	"compliance_decision":   true,
	"jurisdiction":          true,
	"transfer_eligibility":  true,
	"integration_health":    true,
}

func validateReadiness(cfg *ReadinessConfig) []FieldError {
	var errs []FieldError

	if cfg.CategoryTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "readiness.category_timeout",
			Message: "category timeout must be positive",
		})
	}
	for _, cat := range cfg.TimeoutCritical {
		if !knownReadinessCategories[cat] {
			errs = append(errs, FieldError{
				Field:   "readiness.timeout_critical",
				Message: fmt.Sprintf("unknown category %q", cat),
			})
		}
	}

	return errs
}

func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "sqlite":
		if cfg.DecisionsPath == "" {
			errs = append(errs, FieldError{
				Field:   "storage.decisions_path",
				Message: "decisions database path is required for sqlite backend",
			})
		}
		if cfg.ReadinessPath == "" {
			errs = append(errs, FieldError{
				Field:   "storage.readiness_path",
				Message: "readiness database path is required for sqlite backend",
			})
		}
	case "memory":
		// No further settings.
	default:
		errs = append(errs, FieldError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("unknown backend %q (expected sqlite or memory)", cfg.Backend),
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown log level %q", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown log format %q (expected json or text)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Path == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path is required when metrics are enabled",
		})
	}

	return errs
}

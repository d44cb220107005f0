// Package config loads, defaults, and validates engine configuration from
// YAML files, with THEMIS_* environment variable overrides.
package config

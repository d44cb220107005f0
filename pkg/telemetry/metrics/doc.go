// Package metrics exposes Prometheus instrumentation for the engine: the
// Collector owns a registry and the per-subsystem metric groups for decision
// lifecycle, review sweeps, and readiness aggregation.
package metrics

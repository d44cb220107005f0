package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/themis/pkg/config"
)

// Collector is the orchestrator for all Prometheus metrics in the engine.
// It owns the registry and the per-subsystem metric groups, and implements
// the Metrics interfaces the domain packages accept.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	decisionMetrics  *DecisionMetrics
	readinessMetrics *ReadinessMetrics
}

// NewCollector creates a new metrics collector with the specified
// configuration and Prometheus registry. If registry is nil, a fresh
// registry is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
	}

	c.decisionMetrics = NewDecisionMetrics(cfg, registry)
	c.readinessMetrics = NewReadinessMetrics(cfg, registry)

	return c
}

// Registry returns the Prometheus registry backing this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Decisions returns the decision lifecycle metric group.
func (c *Collector) Decisions() *DecisionMetrics {
	return c.decisionMetrics
}

// Readiness returns the readiness aggregation metric group.
func (c *Collector) Readiness() *ReadinessMetrics {
	return c.readinessMetrics
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/themis/pkg/config"
)

// DecisionMetrics tracks metrics for the decision lifecycle. It satisfies
// both the decision service's Metrics interface and the review scheduler's.
//
// Metrics:
//   - themis_engine_decisions_created_total: creates by step, outcome, and dedup
//   - themis_engine_decision_create_duration_seconds: create latency
//   - themis_engine_decisions_superseded_total: supersessions by step
//   - themis_engine_review_sweep_due_total: decisions flagged due for review
//   - themis_engine_review_sweep_expired_total: expired decisions seen by sweep
type DecisionMetrics struct {
	createdTotal    *prometheus.CounterVec
	createDuration  *prometheus.HistogramVec
	supersededTotal *prometheus.CounterVec
	sweepDueTotal   prometheus.Counter
	sweepExpired    prometheus.Counter
}

// NewDecisionMetrics creates and registers decision metrics with the
// provided registry.
func NewDecisionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *DecisionMetrics {
	dm := &DecisionMetrics{
		createdTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decisions_created_total",
				Help:      "Total number of decision create calls",
			},
			[]string{"step", "outcome", "deduplicated"},
		),

		createDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decision_create_duration_seconds",
				Help:      "Duration of decision create calls in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8), // 100µs to ~1.6s
			},
			[]string{"step"},
		),

		supersededTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decisions_superseded_total",
				Help:      "Total number of decisions superseded by updates",
			},
			[]string{"step"},
		),

		sweepDueTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "review_sweep_due_total",
				Help:      "Total decisions flagged as due for review by sweeps",
			},
		),

		sweepExpired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "review_sweep_expired_total",
				Help:      "Total expired decisions observed by sweeps",
			},
		),
	}

	registry.MustRegister(
		dm.createdTotal,
		dm.createDuration,
		dm.supersededTotal,
		dm.sweepDueTotal,
		dm.sweepExpired,
	)

	return dm
}

// RecordCreate records a decision create call.
func (dm *DecisionMetrics) RecordCreate(step, outcome string, deduplicated bool, seconds float64) {
	dedup := "false"
	if deduplicated {
		dedup = "true"
	}
	dm.createdTotal.WithLabelValues(step, outcome, dedup).Inc()
	dm.createDuration.WithLabelValues(step).Observe(seconds)
}

// RecordSupersession records a successful supersession.
func (dm *DecisionMetrics) RecordSupersession(step string) {
	dm.supersededTotal.WithLabelValues(step).Inc()
}

// RecordSweep records one review sweep's counts.
func (dm *DecisionMetrics) RecordSweep(dueForReview, expired int) {
	dm.sweepDueTotal.Add(float64(dueForReview))
	dm.sweepExpired.Add(float64(expired))
}

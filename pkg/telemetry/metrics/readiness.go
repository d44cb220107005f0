package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/themis/pkg/config"
)

// ReadinessMetrics tracks metrics for readiness aggregation.
//
// Metrics:
//   - themis_engine_readiness_evaluations_total: evaluations by overall status
//   - themis_engine_readiness_evaluation_duration_seconds: aggregation latency
//   - themis_engine_readiness_categories_total: category results by outcome
//   - themis_engine_readiness_category_duration_seconds: per-category latency
type ReadinessMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	categoriesTotal    *prometheus.CounterVec
	categoryDuration   *prometheus.HistogramVec
}

// NewReadinessMetrics creates and registers readiness metrics with the
// provided registry.
func NewReadinessMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ReadinessMetrics {
	rm := &ReadinessMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "readiness_evaluations_total",
				Help:      "Total number of readiness evaluations",
			},
			[]string{"status"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "readiness_evaluation_duration_seconds",
				Help:      "Duration of readiness aggregation in seconds",
				// Bounded by the category timeout, so a few seconds at most.
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 3.0, 5.0},
			},
			[]string{"status"},
		),

		categoriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "readiness_categories_total",
				Help:      "Total category evaluations by result",
			},
			[]string{"category", "result"},
		),

		categoryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "readiness_category_duration_seconds",
				Help:      "Duration of a single category evaluation in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 3.0},
			},
			[]string{"category"},
		),
	}

	registry.MustRegister(
		rm.evaluationsTotal,
		rm.evaluationDuration,
		rm.categoriesTotal,
		rm.categoryDuration,
	)

	return rm
}

// RecordEvaluation records one aggregated readiness evaluation.
func (rm *ReadinessMetrics) RecordEvaluation(status string, seconds float64) {
	rm.evaluationsTotal.WithLabelValues(status).Inc()
	rm.evaluationDuration.WithLabelValues(status).Observe(seconds)
}

// RecordCategory records one category's result.
func (rm *ReadinessMetrics) RecordCategory(category string, passed, degraded bool, seconds float64) {
	result := "failed"
	switch {
	case degraded:
		result = "degraded"
	case passed:
		result = "passed"
	}
	rm.categoriesTotal.WithLabelValues(category, result).Inc()
	rm.categoryDuration.WithLabelValues(category).Observe(seconds)
}

// Package review runs the periodic sweep over decisions that are due for
// review or have naturally expired. The sweep is read-only: expiry never
// mutates a decision row, it only surfaces in logs and metrics so
// compliance staff can act on it.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/themis/pkg/decision"
)

// Config contains configuration for the review scheduler.
type Config struct {
	// Schedule is a standard cron expression (e.g. "0 6 * * *" for daily
	// at 6 AM). An empty schedule disables the sweep.
	Schedule string

	// SweepTimeout bounds a single sweep. Default: 30 seconds.
	SweepTimeout time.Duration
}

// DefaultConfig returns the default review scheduler configuration.
func DefaultConfig() *Config {
	return &Config{
		Schedule:     "0 6 * * *",
		SweepTimeout: 30 * time.Second,
	}
}

// Metrics receives sweep results. A nil Metrics disables recording.
type Metrics interface {
	// RecordSweep records one sweep's counts.
	RecordSweep(dueForReview, expired int)
}

// Scheduler runs review sweeps on a cron schedule.
type Scheduler struct {
	service *decision.Service
	config  *Config
	cron    *cron.Cron
	metrics Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a review scheduler. Metrics may be nil.
func NewScheduler(service *decision.Service, config *Config, metrics Metrics) *Scheduler {
	if config == nil {
		config = DefaultConfig()
	}
	if config.SweepTimeout <= 0 {
		config.SweepTimeout = 30 * time.Second
	}

	return &Scheduler{
		service: service,
		config:  config,
		cron:    cron.New(),
		metrics: metrics,
		logger:  slog.Default().With("component", "decision.review"),
	}
}

// Start begins scheduled sweeping. It returns immediately; sweeps run in
// the cron goroutine until the context is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.Schedule == "" {
		s.logger.Info("review schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.config.Schedule, err)
	}

	if _, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.runSweep(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule review sweep: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("review scheduler started", "schedule", s.config.Schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the scheduler and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()

	s.logger.Info("review scheduler stopped")
}

// RunOnce executes a single sweep immediately, outside the schedule.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.sweep(ctx)
}

func (s *Scheduler) runSweep(ctx context.Context) {
	if err := s.sweep(ctx); err != nil {
		s.logger.Error("review sweep failed", "error", err)
	}
}

// sweep reports decisions due for review and decisions that have expired.
func (s *Scheduler) sweep(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.SweepTimeout)
	defer cancel()

	due, err := s.service.RequiringReview(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("listing decisions requiring review: %w", err)
	}

	expired, err := s.service.Expired(ctx)
	if err != nil {
		return fmt.Errorf("listing expired decisions: %w", err)
	}

	for _, d := range due {
		s.logger.Warn("decision due for review",
			"decision_id", d.ID,
			"organization_id", d.OrganizationID,
			"step", string(d.Step),
			"review_due_at", d.ReviewDueAt(),
		)
	}
	for _, d := range expired {
		s.logger.Info("decision expired",
			"decision_id", d.ID,
			"organization_id", d.OrganizationID,
			"step", string(d.Step),
			"expired_at", d.ExpiresAt,
		)
	}

	if s.metrics != nil {
		s.metrics.RecordSweep(len(due), len(expired))
	}

	s.logger.Info("review sweep complete",
		"due_for_review", len(due),
		"expired", len(expired),
	)

	return nil
}

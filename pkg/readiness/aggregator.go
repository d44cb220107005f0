package readiness

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/themis/pkg/catalog"
)

// Config contains configuration for the readiness aggregator.
type Config struct {
	// CategoryTimeout bounds each category evaluator. Default: 3 seconds.
	CategoryTimeout time.Duration

	// TimeoutCritical lists categories whose timeout blocks readiness
	// instead of degrading to an unknown result.
	TimeoutCritical map[Category]bool
}

// DefaultConfig returns the default aggregator configuration: 3 second
// category timeout, no category critical on timeout.
func DefaultConfig() *Config {
	return &Config{
		CategoryTimeout: 3 * time.Second,
		TimeoutCritical: map[Category]bool{},
	}
}

// Metrics receives aggregation events. A nil Metrics disables recording.
type Metrics interface {
	// RecordEvaluation records one aggregation with its verdict.
	RecordEvaluation(status string, seconds float64)

	// RecordCategory records one category's result.
	RecordCategory(category string, passed, degraded bool, seconds float64)
}

// Aggregator fans a readiness request out to every category evaluator and
// merges the results into one immutable evaluation record.
type Aggregator struct {
	evaluators []CategoryEvaluator
	storage    Storage
	catalog    *catalog.Catalog
	config     *Config
	metrics    Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewAggregator creates an aggregator. The catalog supplies the policy
// version stamped on evaluations; metrics may be nil.
func NewAggregator(evaluators []CategoryEvaluator, storage Storage, cat *catalog.Catalog, config *Config, metrics Metrics) *Aggregator {
	if config == nil {
		config = DefaultConfig()
	}
	if config.CategoryTimeout <= 0 {
		config.CategoryTimeout = 3 * time.Second
	}
	if config.TimeoutCritical == nil {
		config.TimeoutCritical = map[Category]bool{}
	}

	return &Aggregator{
		evaluators: evaluators,
		storage:    storage,
		catalog:    cat,
		config:     config,
		metrics:    metrics,
		logger:     slog.Default().With("component", "readiness.aggregator"),
		now:        time.Now,
	}
}

// categoryOutcome pairs an evaluator's result with its position for
// deterministic collection.
type categoryOutcome struct {
	index  int
	result *CategoryResult
}

// Evaluate runs every category concurrently, merges the results, persists
// the evaluation, and returns it. A degraded category never aborts the
// aggregation; the caller always gets best-effort intelligence.
func (a *Aggregator) Evaluate(ctx context.Context, req *Request) (*Evaluation, error) {
	if req == nil {
		return nil, NewValidationError("request", "must not be nil")
	}
	if req.UserID == "" {
		return nil, NewValidationError("user_id", "must not be empty")
	}

	start := a.now()

	outcomes := make(chan categoryOutcome, len(a.evaluators))
	var wg sync.WaitGroup

	for i, evaluator := range a.evaluators {
		wg.Add(1)
		go func(index int, ev CategoryEvaluator) {
			defer wg.Done()
			outcomes <- categoryOutcome{index: index, result: a.evaluateCategory(ctx, ev, req)}
		}(i, evaluator)
	}

	wg.Wait()
	close(outcomes)

	results := make(map[Category]*CategoryResult, len(a.evaluators))
	for outcome := range outcomes {
		results[outcome.result.Category] = outcome.result
	}

	eval := a.merge(req, results, start)

	if err := a.storage.Insert(ctx, eval); err != nil {
		return nil, fmt.Errorf("persisting readiness evaluation: %w", err)
	}

	a.logger.Info("readiness evaluated",
		"evaluation_id", eval.ID,
		"user_id", req.UserID,
		"token_type", req.TokenType,
		"status", string(eval.Status),
		"can_proceed", eval.CanProceed,
		"degraded", eval.Degraded,
		"duration_ms", eval.EvaluationTimeMs,
	)
	if a.metrics != nil {
		a.metrics.RecordEvaluation(string(eval.Status), a.now().Sub(start).Seconds())
	}

	return eval, nil
}

// Get returns a persisted evaluation by ID.
func (a *Aggregator) Get(ctx context.Context, id string) (*Evaluation, error) {
	if id == "" {
		return nil, NewValidationError("evaluation_id", "must not be empty")
	}
	return a.storage.Get(ctx, id)
}

// History returns a user's evaluations, newest first, capped at
// MaxHistoryLimit.
func (a *Aggregator) History(ctx context.Context, q *HistoryQuery) ([]*Evaluation, error) {
	if q == nil || q.UserID == "" {
		return nil, NewValidationError("user_id", "must not be empty")
	}
	if q.Limit <= 0 || q.Limit > MaxHistoryLimit {
		q.Limit = MaxHistoryLimit
	}
	return a.storage.History(ctx, q)
}

// evaluateCategory runs one evaluator under the category timeout and
// folds failures and timeouts into a degraded result.
func (a *Aggregator) evaluateCategory(ctx context.Context, ev CategoryEvaluator, req *Request) *CategoryResult {
	cat := ev.Category()
	start := a.now()

	ctx, cancel := context.WithTimeout(ctx, a.config.CategoryTimeout)
	defer cancel()

	type evalResult struct {
		result *CategoryResult
		err    error
	}
	done := make(chan evalResult, 1)

	// The evaluator may outlive the timeout; its late result is simply
	// discarded.
	go func() {
		result, err := ev.Evaluate(ctx, req)
		done <- evalResult{result: result, err: err}
	}()

	var result *CategoryResult
	select {
	case r := <-done:
		switch {
		case r.err != nil:
			result = a.degradedResult(cat, fmt.Sprintf("evaluator failed: %v", r.err))
		case r.result == nil:
			result = a.degradedResult(cat, "evaluator returned no result")
		default:
			result = r.result
			result.Category = cat
		}
	case <-ctx.Done():
		result = a.degradedResult(cat, fmt.Sprintf("evaluator timed out after %s", a.config.CategoryTimeout))
	}

	if a.metrics != nil {
		a.metrics.RecordCategory(string(cat), result.Passed, result.Degraded, a.now().Sub(start).Seconds())
	}
	return result
}

// degradedResult synthesizes the result for a failed or timed-out
// category. Unless configured critical, it is unknown and non-blocking.
func (a *Aggregator) degradedResult(cat Category, message string) *CategoryResult {
	result := &CategoryResult{
		Category:  cat,
		Passed:    false,
		Degraded:  true,
		Message:   message,
		Severity:  catalog.SeverityInfo,
		ErrorCode: "UPSTREAM_DEGRADED",
	}
	if a.config.TimeoutCritical[cat] {
		result.Degraded = false
		result.Severity = catalog.SeverityCritical
		result.ErrorCode = "UPSTREAM_UNAVAILABLE"
	}
	return result
}

// merge applies the readiness merge law and builds the evaluation record.
func (a *Aggregator) merge(req *Request, results map[Category]*CategoryResult, start time.Time) *Evaluation {
	mandatory := make(map[Category]bool, len(a.evaluators))
	for _, ev := range a.evaluators {
		mandatory[ev.Category()] = ev.Mandatory()
	}

	var (
		blocked     bool
		needsReview bool
		anyFailure  bool
		degraded    []Category
	)

	for cat, result := range results {
		if result.Degraded {
			degraded = append(degraded, cat)
			continue
		}
		if result.RequiresReview {
			needsReview = true
		}
		if result.Passed {
			continue
		}
		anyFailure = true
		if mandatory[cat] && result.Severity == catalog.SeverityCritical {
			blocked = true
		}
	}
	sort.Slice(degraded, func(i, j int) bool { return degraded[i] < degraded[j] })

	status := StatusReady
	switch {
	case blocked:
		status = StatusBlocked
	case needsReview:
		status = StatusNeedsReview
	case anyFailure:
		status = StatusWarning
	}

	eval := &Evaluation{
		ID:               uuid.New().String(),
		UserID:           req.UserID,
		OrganizationID:   req.OrganizationID,
		TokenType:        req.TokenType,
		Network:          req.Network,
		Status:           status,
		CanProceed:       status != StatusBlocked,
		CategoryResults:  results,
		RemediationTasks: buildRemediationTasks(results),
		Degraded:         len(degraded) > 0,
		DegradedSources:  degraded,
		EvaluatedAt:      start.UTC(),
		EvaluationTimeMs: a.now().Sub(start).Milliseconds(),
	}
	eval.Summary = summarize(eval)

	if snap := a.catalog.Active(); snap != nil {
		eval.PolicyVersion = snap.Version()
	}

	return eval
}

// summarize produces the one-line verdict.
func summarize(e *Evaluation) string {
	var failed []string
	for _, cat := range Categories {
		result, ok := e.CategoryResults[cat]
		if ok && !result.Passed && !result.Degraded {
			failed = append(failed, string(cat))
		}
	}

	switch e.Status {
	case StatusReady:
		if e.Degraded {
			return "ready (degraded: partial intelligence from upstream sources)"
		}
		return "all readiness categories passed"
	case StatusBlocked:
		return "blocked by: " + strings.Join(failed, ", ")
	case StatusNeedsReview:
		return "manual review required before proceeding"
	default:
		return "warnings in: " + strings.Join(failed, ", ")
	}
}

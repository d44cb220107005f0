package decision

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mercator-hq/themis/pkg/catalog"
	"mercator-hq/themis/pkg/policy"
)

// Config contains configuration for the decision lifecycle service.
type Config struct {
	// DedupWindow is how long an identical create request returns the
	// existing decision instead of creating a new one.
	// Default: 1 hour
	DedupWindow time.Duration

	// DefaultExpirationDays is the per-step decision lifetime applied
	// when the caller does not supply one.
	DefaultExpirationDays map[catalog.Step]int

	// FallbackExpirationDays applies to steps missing from
	// DefaultExpirationDays. Default: 365
	FallbackExpirationDays int
}

// DefaultConfig returns the default lifecycle configuration.
func DefaultConfig() *Config {
	return &Config{
		DedupWindow: time.Hour,
		DefaultExpirationDays: map[catalog.Step]int{
			catalog.StepKYCVerification:    365,
			catalog.StepKYBVerification:    365,
			catalog.StepComplianceApproval: 180,
			catalog.StepTokenLaunch:        90,
		},
		FallbackExpirationDays: 365,
	}
}

// Metrics receives lifecycle events. Implementations must be safe for
// concurrent use. A nil Metrics disables recording.
type Metrics interface {
	// RecordCreate records a create call with its outcome and duration.
	RecordCreate(step, outcome string, deduplicated bool, seconds float64)

	// RecordSupersession records a successful supersession.
	RecordSupersession(step string)
}

// Service implements the decision lifecycle: idempotent creation,
// supersession, and the read-side audit queries.
type Service struct {
	storage   Storage
	catalog   *catalog.Catalog
	evaluator *policy.Evaluator
	config    *Config
	metrics   Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a lifecycle service. Metrics may be nil.
func NewService(storage Storage, cat *catalog.Catalog, evaluator *policy.Evaluator, config *Config, metrics Metrics) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	if config.DedupWindow <= 0 {
		config.DedupWindow = time.Hour
	}
	if config.FallbackExpirationDays <= 0 {
		config.FallbackExpirationDays = 365
	}

	return &Service{
		storage:   storage,
		catalog:   cat,
		evaluator: evaluator,
		config:    config,
		metrics:   metrics,
		logger:    slog.Default().With("component", "decision.service"),
		now:       time.Now,
	}
}

// Create evaluates the request and persists a decision, or returns the
// existing decision when an identical request already produced one inside
// the dedup window. The dedup hit path performs no policy evaluation.
func (s *Service) Create(ctx context.Context, req *CreateRequest, actor string) (*CreateResult, error) {
	start := s.now()

	if err := validateCreate(req, actor); err != nil {
		return nil, err
	}

	snap := s.catalog.Active()
	if snap == nil {
		return nil, &policy.UnknownStepError{Step: req.Step}
	}

	key := DedupKey(req.OrganizationID, req.Step, snap.Version(), req.Evidence)
	windowStart := start.Add(-s.config.DedupWindow)

	if existing, err := s.storage.FindByDedupKey(ctx, key, windowStart); err != nil {
		return nil, err
	} else if existing != nil {
		s.logger.Info("create deduplicated",
			"decision_id", existing.ID,
			"organization_id", req.OrganizationID,
			"step", string(req.Step),
		)
		s.recordCreate(req.Step, existing.Outcome, true, start)
		return &CreateResult{Decision: existing, Deduplicated: true}, nil
	}

	eval, err := s.evaluator.EvaluateAgainst(snap, req.Step, req.Evidence)
	if err != nil {
		return nil, err
	}

	d := s.buildDecision(req, actor, eval, key, start)

	existing, created, err := s.storage.InsertIdempotent(ctx, d, windowStart)
	if err != nil {
		return nil, err
	}
	if !created {
		// Lost the race to a concurrent identical request.
		s.recordCreate(req.Step, existing.Outcome, true, start)
		return &CreateResult{Decision: existing, Deduplicated: true}, nil
	}

	s.logger.Info("decision created",
		"decision_id", d.ID,
		"organization_id", d.OrganizationID,
		"step", string(d.Step),
		"outcome", string(d.Outcome),
		"policy_version", d.PolicyVersion,
	)
	s.recordCreate(req.Step, d.Outcome, false, start)

	return &CreateResult{Decision: d, Evaluation: eval}, nil
}

// Update supersedes an existing decision with a freshly evaluated one.
// The previous decision must exist and must not already be superseded.
func (s *Service) Update(ctx context.Context, previousID string, req *CreateRequest, actor string) (*CreateResult, error) {
	if previousID == "" {
		return nil, NewValidationError("previous_decision_id", "must not be empty")
	}
	if err := validateCreate(req, actor); err != nil {
		return nil, err
	}

	old, err := s.storage.Get(ctx, previousID)
	if err != nil {
		return nil, err
	}
	if old.IsSuperseded {
		return nil, &SupersededError{DecisionID: old.ID, SupersededBy: old.SupersededByDecisionID}
	}

	snap := s.catalog.Active()
	if snap == nil {
		return nil, &policy.UnknownStepError{Step: req.Step}
	}

	eval, err := s.evaluator.EvaluateAgainst(snap, req.Step, req.Evidence)
	if err != nil {
		return nil, err
	}

	now := s.now()
	replacement := s.buildDecision(req, actor, eval, DedupKey(req.OrganizationID, req.Step, snap.Version(), req.Evidence), now)
	replacement.PreviousDecisionID = old.ID

	if err := s.storage.Supersede(ctx, old.ID, replacement); err != nil {
		return nil, err
	}

	s.logger.Info("decision superseded",
		"old_decision_id", old.ID,
		"new_decision_id", replacement.ID,
		"organization_id", replacement.OrganizationID,
		"step", string(replacement.Step),
		"outcome", string(replacement.Outcome),
	)
	if s.metrics != nil {
		s.metrics.RecordSupersession(string(replacement.Step))
	}

	return &CreateResult{Decision: replacement, Evaluation: eval}, nil
}

// Get returns a decision by ID.
func (s *Service) Get(ctx context.Context, id string) (*Decision, error) {
	if id == "" {
		return nil, NewValidationError("decision_id", "must not be empty")
	}
	return s.storage.Get(ctx, id)
}

// GetActive returns the most recent non-superseded, non-expired decision
// for the organization and step.
func (s *Service) GetActive(ctx context.Context, organizationID string, step catalog.Step) (*Decision, error) {
	if organizationID == "" {
		return nil, NewValidationError("organization_id", "must not be empty")
	}
	if !catalog.ValidStep(step) {
		return nil, NewValidationError("step", "unknown lifecycle step")
	}
	return s.storage.GetActive(ctx, organizationID, step, s.now())
}

// Query returns a page of decisions plus a summary computed over the full
// filtered set, so the summary stays correct under pagination.
func (s *Service) Query(ctx context.Context, q *Query) (*QueryResult, error) {
	if q == nil {
		q = &Query{}
	}
	if q.PageSize < 0 || q.Page < 0 {
		return nil, NewValidationError("page", "pagination values must not be negative")
	}
	if q.PageSize == 0 {
		q.PageSize = 50
	}
	if q.PageSize > 200 {
		q.PageSize = 200
	}
	if q.Page == 0 {
		q.Page = 1
	}

	now := s.now()

	page, total, err := s.storage.Query(ctx, q, now)
	if err != nil {
		return nil, err
	}

	// Summary runs over the unpaginated filtered set.
	full := *q
	full.Page = 0
	full.PageSize = 0
	all, _, err := s.storage.Query(ctx, &full, now)
	if err != nil {
		return nil, err
	}

	return &QueryResult{
		Decisions: page,
		Total:     total,
		Summary:   Summarize(all),
	}, nil
}

// RequiringReview returns non-superseded decisions due for review before
// the given time.
func (s *Service) RequiringReview(ctx context.Context, before time.Time) ([]*Decision, error) {
	return s.storage.RequiringReview(ctx, before)
}

// Expired returns non-superseded decisions that have naturally retired.
func (s *Service) Expired(ctx context.Context) ([]*Decision, error) {
	return s.storage.Expired(ctx, s.now())
}

// buildDecision assembles a write-once decision record from an evaluation.
func (s *Service) buildDecision(req *CreateRequest, actor string, eval *policy.Evaluation, key string, now time.Time) *Decision {
	d := &Decision{
		ID:                  uuid.New().String(),
		OrganizationID:      req.OrganizationID,
		OnboardingSessionID: req.OnboardingSessionID,
		Step:                req.Step,
		Outcome:             eval.Outcome,
		PolicyRuleIDs:       eval.PolicyRuleIDs,
		DecisionMaker:       actor,
		DecisionTimestamp:   now.UTC(),
		EvidenceReferences:  req.Evidence,
		RuleResults:         eval.RuleResults,
		Reason:              req.Reason,
		PolicyVersion:       eval.PolicyVersion,
		ReviewIntervalDays:  req.ReviewIntervalDays,
		DedupKey:            key,
	}

	days := s.expirationDays(req)
	if days > 0 {
		expires := d.DecisionTimestamp.Add(time.Duration(days) * 24 * time.Hour)
		d.ExpiresAt = &expires
	}

	return d
}

// expirationDays resolves the decision lifetime: caller override, then the
// per-step default, then the fallback.
func (s *Service) expirationDays(req *CreateRequest) int {
	if req.ExpirationDays != nil {
		return *req.ExpirationDays
	}
	if days, ok := s.config.DefaultExpirationDays[req.Step]; ok {
		return days
	}
	return s.config.FallbackExpirationDays
}

func (s *Service) recordCreate(step catalog.Step, outcome policy.Outcome, dedup bool, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordCreate(string(step), string(outcome), dedup, s.now().Sub(start).Seconds())
}

func validateCreate(req *CreateRequest, actor string) error {
	if req == nil {
		return NewValidationError("request", "must not be nil")
	}
	if req.OrganizationID == "" {
		return NewValidationError("organization_id", "must not be empty")
	}
	if !catalog.ValidStep(req.Step) {
		return NewValidationError("step", "unknown lifecycle step")
	}
	if actor == "" {
		return NewValidationError("actor", "actor identity could not be resolved")
	}
	if req.ExpirationDays != nil && *req.ExpirationDays <= 0 {
		return NewValidationError("expiration_days", "must be positive")
	}
	if req.ReviewIntervalDays != nil && *req.ReviewIntervalDays <= 0 {
		return NewValidationError("review_interval_days", "must be positive")
	}
	return nil
}

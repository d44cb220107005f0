package decision

import (
	"context"
	"time"

	"mercator-hq/themis/pkg/catalog"
	"mercator-hq/themis/pkg/policy"
)

// Decision is an immutable compliance decision record. Apart from the two
// supersession fields, every field is write-once at creation.
type Decision struct {
	// ID is the generated decision identifier (UUID v4).
	ID string `json:"id"`

	// OrganizationID identifies the regulated entity the decision covers.
	OrganizationID string `json:"organization_id"`

	// OnboardingSessionID ties the decision to an onboarding session, if any.
	OnboardingSessionID string `json:"onboarding_session_id,omitempty"`

	// Step is the lifecycle step the decision gates.
	Step catalog.Step `json:"step"`

	// Outcome is the aggregate policy outcome.
	Outcome policy.Outcome `json:"outcome"`

	// PolicyRuleIDs lists the rules evaluated, ordered by rule ID.
	PolicyRuleIDs []string `json:"policy_rule_ids"`

	// DecisionMaker is the resolved actor identity that requested the
	// decision.
	DecisionMaker string `json:"decision_maker"`

	// DecisionTimestamp is when the decision was taken.
	DecisionTimestamp time.Time `json:"decision_timestamp"`

	// EvidenceReferences is the evidence snapshot the decision was taken
	// against, including items of unknown type retained for audit.
	EvidenceReferences []policy.EvidenceReference `json:"evidence_references"`

	// RuleResults is the rule-by-rule evaluation snapshot.
	RuleResults []policy.RuleEvaluationResult `json:"rule_results"`

	// Reason is free-form context supplied by the caller.
	Reason string `json:"reason,omitempty"`

	// PolicyVersion is the catalog version evaluated against.
	PolicyVersion string `json:"policy_version"`

	// ExpiresAt is when the decision naturally retires. Expiry is
	// computed at read time; the row is never mutated for it.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// ReviewIntervalDays schedules a periodic review when set.
	ReviewIntervalDays *int `json:"review_interval_days,omitempty"`

	// IsSuperseded marks the record as replaced by a newer decision.
	IsSuperseded bool `json:"is_superseded"`

	// PreviousDecisionID back-references the decision this one replaced.
	PreviousDecisionID string `json:"previous_decision_id,omitempty"`

	// SupersededByDecisionID forward-references the replacement, set only
	// when IsSuperseded is true.
	SupersededByDecisionID string `json:"superseded_by_decision_id,omitempty"`

	// DedupKey is the canonical hash used for idempotent creation.
	DedupKey string `json:"-"`
}

// Expired reports whether the decision has naturally retired as of now.
func (d *Decision) Expired(now time.Time) bool {
	return d.ExpiresAt != nil && !d.ExpiresAt.After(now)
}

// ReviewDueAt returns when the decision is due for review, if a review
// interval was scheduled.
func (d *Decision) ReviewDueAt() *time.Time {
	if d.ReviewIntervalDays == nil {
		return nil
	}
	due := d.DecisionTimestamp.Add(time.Duration(*d.ReviewIntervalDays) * 24 * time.Hour)
	return &due
}

// CreateRequest carries the inputs for creating a decision.
type CreateRequest struct {
	// OrganizationID identifies the regulated entity. Required.
	OrganizationID string `json:"organization_id"`

	// OnboardingSessionID ties the decision to a session. Optional.
	OnboardingSessionID string `json:"onboarding_session_id,omitempty"`

	// Step is the lifecycle step to evaluate. Required.
	Step catalog.Step `json:"step"`

	// Evidence is the evidence set to score.
	Evidence []policy.EvidenceReference `json:"evidence"`

	// ExpirationDays overrides the per-step default decision lifetime.
	ExpirationDays *int `json:"expiration_days,omitempty"`

	// ReviewIntervalDays schedules periodic review when set.
	ReviewIntervalDays *int `json:"review_interval_days,omitempty"`

	// Reason is free-form caller context recorded on the decision.
	Reason string `json:"reason,omitempty"`
}

// CreateResult pairs the persisted decision with the raw evaluation so
// callers see the rule-by-rule detail that produced it.
type CreateResult struct {
	// Decision is the persisted (or deduplicated) decision record.
	Decision *Decision `json:"decision"`

	// Evaluation is the raw policy evaluation. Nil when the call was
	// served from the dedup window without re-evaluating.
	Evaluation *policy.Evaluation `json:"evaluation,omitempty"`

	// Deduplicated is true when an existing decision was returned.
	Deduplicated bool `json:"deduplicated"`
}

// Query filters decision queries. Filters combine with AND semantics.
type Query struct {
	OrganizationID string         `json:"organization_id,omitempty"`
	Step           catalog.Step   `json:"step,omitempty"`
	Outcome        policy.Outcome `json:"outcome,omitempty"`
	DecisionMaker  string         `json:"decision_maker,omitempty"`

	// From/To bound DecisionTimestamp, inclusive.
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`

	// IncludeSuperseded includes superseded records (default: excluded).
	IncludeSuperseded bool `json:"include_superseded,omitempty"`

	// IncludeExpired includes naturally retired records (default: excluded).
	IncludeExpired bool `json:"include_expired,omitempty"`

	// Page is 1-based; PageSize caps the page (default 50, max 200).
	Page     int `json:"page,omitempty"`
	PageSize int `json:"page_size,omitempty"`
}

// Summary aggregates the full filtered set of a query, independent of
// pagination.
type Summary struct {
	// Total is the filtered record count.
	Total int64 `json:"total"`

	// CountsByOutcome breaks the filtered set down per outcome.
	CountsByOutcome map[policy.Outcome]int64 `json:"counts_by_outcome"`

	// AverageDecisionTimeHours is the mean hours between the earliest
	// collected evidence and the decision, over decisions that carry
	// collection timestamps.
	AverageDecisionTimeHours float64 `json:"average_decision_time_hours"`

	// TopRejectionReasons are the most frequent failing rule messages,
	// capped at five, ties broken alphabetically.
	TopRejectionReasons []string `json:"top_rejection_reasons"`
}

// QueryResult is a page of decisions plus the filtered-set summary.
type QueryResult struct {
	Decisions []*Decision `json:"decisions"`
	Total     int64       `json:"total"`
	Summary   *Summary    `json:"summary"`
}

// Storage is the persistence contract for decisions. Implementations must
// be safe for concurrent use and must guard the idempotent insert and the
// supersession swap against races.
type Storage interface {
	// FindByDedupKey returns the most recent non-superseded decision with
	// the given dedup key and a timestamp at or after windowStart, or nil
	// when none exists.
	FindByDedupKey(ctx context.Context, key string, windowStart time.Time) (*Decision, error)

	// InsertIdempotent persists the decision unless a non-superseded
	// decision with the same dedup key and a timestamp at or after
	// windowStart already exists, in which case the existing decision is
	// returned and created is false.
	InsertIdempotent(ctx context.Context, d *Decision, windowStart time.Time) (existing *Decision, created bool, err error)

	// Get returns the decision by ID, or a NotFoundError.
	Get(ctx context.Context, id string) (*Decision, error)

	// GetActive returns the most recent non-superseded, non-expired
	// decision for the organization and step, or a NotFoundError.
	GetActive(ctx context.Context, organizationID string, step catalog.Step, now time.Time) (*Decision, error)

	// Query returns the requested page and the total filtered count.
	// A PageSize of zero disables pagination.
	Query(ctx context.Context, q *Query, now time.Time) ([]*Decision, int64, error)

	// Supersede atomically inserts the replacement decision and flips the
	// old record's supersession fields. It fails with NotFoundError when
	// the old decision does not exist and SupersededError when it has
	// already been superseded.
	Supersede(ctx context.Context, oldID string, replacement *Decision) error

	// RequiringReview returns non-superseded decisions whose review date
	// falls before the given time, ordered by review date.
	RequiringReview(ctx context.Context, before time.Time) ([]*Decision, error)

	// Expired returns non-superseded decisions whose expiry has passed,
	// ordered by expiry.
	Expired(ctx context.Context, now time.Time) ([]*Decision, error)

	// Close releases resources held by the backend.
	Close() error
}

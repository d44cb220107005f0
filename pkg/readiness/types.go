package readiness

import (
	"context"
	"time"

	"mercator-hq/themis/pkg/catalog"
)

// Category is one independent dimension of launch readiness.
type Category string

const (
	CategoryEntitlement          Category = "entitlement"
	CategoryAccountReadiness     Category = "account_readiness"
	CategoryComplianceDecision   Category = "compliance_decision"
	CategoryIdentityVerification Category = "identity_verification"
	CategoryJurisdiction         Category = "jurisdiction"
	CategoryTransferEligibility  Category = "transfer_eligibility"
	CategoryIntegrationHealth    Category = "integration_health"
)

// Categories lists every readiness category in evaluation order.
var Categories = []Category{
	CategoryEntitlement,
	CategoryAccountReadiness,
	CategoryComplianceDecision,
	CategoryIdentityVerification,
	CategoryJurisdiction,
	CategoryTransferEligibility,
	CategoryIntegrationHealth,
}

// CategoryResult is what one evaluator reports for its category. Results
// are never persisted on their own, only embedded in an Evaluation.
type CategoryResult struct {
	// Category the result belongs to.
	Category Category `json:"category"`

	// Passed reports whether the category is satisfied.
	Passed bool `json:"passed"`

	// Severity classifies a failure's impact. Ignored when Passed.
	Severity catalog.Severity `json:"severity,omitempty"`

	// RequiresReview asks for manual review without blocking outright.
	RequiresReview bool `json:"requires_review,omitempty"`

	// Degraded marks a result synthesized because the evaluator failed
	// or timed out; the underlying state is unknown.
	Degraded bool `json:"degraded,omitempty"`

	// Message explains the result.
	Message string `json:"message"`

	// EvidenceRefs point at the artifacts consulted.
	EvidenceRefs []string `json:"evidence_refs,omitempty"`

	// ErrorCode is a stable machine-readable failure code.
	ErrorCode string `json:"error_code,omitempty"`

	// OwnerHint names who typically resolves this failure.
	OwnerHint string `json:"owner_hint,omitempty"`

	// Actions are ordered remediation steps for the failure.
	Actions []string `json:"actions,omitempty"`

	// EstimatedResolutionHours is the expected effort to resolve.
	EstimatedResolutionHours float64 `json:"estimated_resolution_hours,omitempty"`
}

// CategoryEvaluator is the uniform contract every category implements.
type CategoryEvaluator interface {
	// Category returns the category this evaluator covers.
	Category() Category

	// Mandatory reports whether failures here can block readiness.
	Mandatory() bool

	// Evaluate checks the category for the request. Implementations must
	// honor context cancellation; the aggregator enforces a per-category
	// timeout through the context.
	Evaluate(ctx context.Context, req *Request) (*CategoryResult, error)
}

// Request identifies what readiness is being evaluated for. The caller's
// identity is trusted as resolved by the authorization boundary; the
// aggregator does not re-derive it.
type Request struct {
	// UserID is the requesting user.
	UserID string `json:"user_id"`

	// OrganizationID is the user's organization.
	OrganizationID string `json:"organization_id"`

	// TokenType is the proposed token.
	TokenType string `json:"token_type"`

	// Network is the target network.
	Network string `json:"network"`

	// Context carries optional evaluator-specific hints.
	Context map[string]string `json:"context,omitempty"`
}

// Status is the overall readiness verdict.
type Status string

const (
	StatusReady       Status = "ready"
	StatusBlocked     Status = "blocked"
	StatusWarning     Status = "warning"
	StatusNeedsReview Status = "needs_review"
)

// RemediationTask is one ordered unit of remediation guidance.
type RemediationTask struct {
	// Category the task remediates.
	Category Category `json:"category"`

	// ErrorCode is the failure code the task addresses.
	ErrorCode string `json:"error_code,omitempty"`

	// Description explains what to fix.
	Description string `json:"description"`

	// Severity of the underlying failure.
	Severity catalog.Severity `json:"severity"`

	// OwnerHint names who typically resolves it.
	OwnerHint string `json:"owner_hint,omitempty"`

	// Actions are ordered remediation steps.
	Actions []string `json:"actions,omitempty"`

	// EstimatedResolutionHours is the expected effort.
	EstimatedResolutionHours float64 `json:"estimated_resolution_hours"`

	// DependsOn lists categories whose tasks are documented
	// prerequisites of this one.
	DependsOn []Category `json:"depends_on,omitempty"`
}

// Evaluation is an immutable readiness evaluation record.
type Evaluation struct {
	// ID is the generated evaluation identifier (UUID v4).
	ID string `json:"id"`

	// UserID is the user the evaluation covers.
	UserID string `json:"user_id"`

	// OrganizationID is the user's organization.
	OrganizationID string `json:"organization_id"`

	// TokenType and Network identify the proposed launch.
	TokenType string `json:"token_type"`
	Network   string `json:"network"`

	// Status is the overall verdict.
	Status Status `json:"status"`

	// CanProceed reports whether the lifecycle step may proceed.
	CanProceed bool `json:"can_proceed"`

	// Summary is a one-line human-readable verdict.
	Summary string `json:"summary"`

	// CategoryResults maps each evaluated category to its result.
	CategoryResults map[Category]*CategoryResult `json:"category_results"`

	// RemediationTasks are ordered remediation guidance.
	RemediationTasks []*RemediationTask `json:"remediation_tasks,omitempty"`

	// Degraded reports whether any category was degraded.
	Degraded bool `json:"degraded,omitempty"`

	// DegradedSources lists the degraded categories.
	DegradedSources []Category `json:"degraded_sources,omitempty"`

	// PolicyVersion is the active catalog version at evaluation time.
	PolicyVersion string `json:"policy_version,omitempty"`

	// EvaluatedAt is when the evaluation ran.
	EvaluatedAt time.Time `json:"evaluated_at"`

	// EvaluationTimeMs is the wall time the fan-out took.
	EvaluationTimeMs int64 `json:"evaluation_time_ms"`
}

// HistoryQuery filters a user's evaluation history.
type HistoryQuery struct {
	// UserID is required.
	UserID string

	// Limit caps results; values above MaxHistoryLimit are clamped.
	Limit int

	// FromDate excludes evaluations before it when set.
	FromDate *time.Time
}

// MaxHistoryLimit caps history query sizes.
const MaxHistoryLimit = 100

// Storage persists readiness evaluations. Evaluations are append-only.
type Storage interface {
	// Insert persists an evaluation.
	Insert(ctx context.Context, e *Evaluation) error

	// Get returns an evaluation by ID, or a NotFoundError.
	Get(ctx context.Context, id string) (*Evaluation, error)

	// History returns a user's evaluations, newest first.
	History(ctx context.Context, q *HistoryQuery) ([]*Evaluation, error)

	// Close releases resources held by the backend.
	Close() error
}

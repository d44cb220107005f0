package policy

import "time"

// VerificationStatus describes the verification state of an evidence
// reference as reported by the upstream verification provider.
type VerificationStatus string

const (
	// StatusVerified means the evidence was checked and accepted.
	StatusVerified VerificationStatus = "verified"

	// StatusPending means verification is still in progress.
	StatusPending VerificationStatus = "pending"

	// StatusRejected means the evidence was checked and refused.
	StatusRejected VerificationStatus = "rejected"

	// StatusExpired means a previously verified artifact has lapsed.
	StatusExpired VerificationStatus = "expired"

	// StatusUnverified means no verification has been attempted.
	StatusUnverified VerificationStatus = "unverified"
)

// EvidenceReference points at a verification artifact supplied by the
// caller. Evidence is never inferred by the engine; unknown evidence types
// are ignored for rule matching but retained in the audit snapshot.
type EvidenceReference struct {
	// EvidenceType names the kind of artifact (e.g. "KYC_REPORT").
	EvidenceType string `json:"evidence_type"`

	// ReferenceID identifies the artifact in the system that holds it.
	ReferenceID string `json:"reference_id"`

	// VerificationStatus is the upstream verification state.
	VerificationStatus VerificationStatus `json:"verification_status"`

	// DataHash is the integrity digest of the underlying evidence.
	// Required for evidence satisfying a mandatory rule.
	DataHash string `json:"data_hash"`

	// CollectedAt is when the artifact was collected, if known.
	CollectedAt *time.Time `json:"collected_at,omitempty"`
}

// Outcome is the aggregate result of evaluating a step's rules.
type Outcome string

const (
	OutcomeApproved             Outcome = "approved"
	OutcomeRejected             Outcome = "rejected"
	OutcomeRequiresManualReview Outcome = "requires_manual_review"
	OutcomeConditionalApproval  Outcome = "conditional_approval"
)

// RuleEvaluationResult records how a single rule scored.
type RuleEvaluationResult struct {
	// RuleID is the stable rule identifier.
	RuleID string `json:"rule_id"`

	// RuleName is the rule's human-readable name.
	RuleName string `json:"rule_name"`

	// Passed reports whether the rule was satisfied.
	Passed bool `json:"passed"`

	// Message explains the result.
	Message string `json:"message"`
}

// Evaluation is the full result of scoring evidence against a step.
type Evaluation struct {
	// Outcome is the aggregate outcome.
	Outcome Outcome `json:"outcome"`

	// RuleResults holds one entry per applicable rule, ordered by rule ID.
	RuleResults []RuleEvaluationResult `json:"rule_results"`

	// RequiredActions are the remediation actions of every unmet rule,
	// in rule order, deduplicated.
	RequiredActions []string `json:"required_actions"`

	// PolicyRuleIDs lists the rules that were evaluated, ordered by rule ID.
	PolicyRuleIDs []string `json:"policy_rule_ids"`

	// PolicyVersion is the catalog version the evaluation ran against.
	PolicyVersion string `json:"policy_version"`
}

package catalog

import "time"

// Step identifies a stage in the onboarding/launch lifecycle. Each step
// selects the set of policy rules that apply to it.
type Step string

const (
	// StepKYCVerification covers identity verification of the individuals
	// behind an organization.
	StepKYCVerification Step = "kyc_verification"

	// StepKYBVerification covers verification of the organization itself.
	StepKYBVerification Step = "kyb_verification"

	// StepComplianceApproval is the final compliance sign-off before a
	// token launch may proceed.
	StepComplianceApproval Step = "compliance_approval"

	// StepTokenLaunch gates the actual token launch operation.
	StepTokenLaunch Step = "token_launch"
)

// KnownSteps lists every lifecycle step the engine understands, in
// lifecycle order.
var KnownSteps = []Step{
	StepKYCVerification,
	StepKYBVerification,
	StepComplianceApproval,
	StepTokenLaunch,
}

// ValidStep reports whether s is a known lifecycle step.
func ValidStep(s Step) bool {
	for _, known := range KnownSteps {
		if s == known {
			return true
		}
	}
	return false
}

// Severity classifies how serious an unmet rule or failing category is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Rank returns a numeric weight for ordering, highest severity first.
// Unknown severities rank below info.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// PolicyRule is a single policy requirement evaluated against submitted
// evidence. Rules are immutable once published under a policy version.
type PolicyRule struct {
	// RuleID is the stable, unique rule identifier (e.g. "KYC_DOC_001").
	RuleID string `yaml:"rule_id" json:"rule_id"`

	// Name is a short human-readable rule name.
	Name string `yaml:"name" json:"name"`

	// Step is the lifecycle step this rule applies to.
	Step Step `yaml:"step" json:"step"`

	// Category groups related rules (e.g. "identity", "jurisdiction").
	Category string `yaml:"category" json:"category"`

	// RequiredEvidenceTypes lists evidence types that can satisfy the rule.
	RequiredEvidenceTypes []string `yaml:"required_evidence_types" json:"required_evidence_types"`

	// Severity classifies the impact of the rule being unmet.
	Severity Severity `yaml:"severity" json:"severity"`

	// Mandatory rules block approval when unmet. Non-mandatory rules
	// degrade the outcome to a warning only.
	Mandatory bool `yaml:"mandatory" json:"mandatory"`

	// AllowConditional permits a conditional approval instead of a
	// rejection when this mandatory rule is unmet.
	AllowConditional bool `yaml:"allow_conditional" json:"allow_conditional"`

	// Description explains what the rule checks.
	Description string `yaml:"description" json:"description"`

	// RemediationActions are ordered steps a caller can take to satisfy
	// the rule.
	RemediationActions []string `yaml:"remediation_actions" json:"remediation_actions"`

	// EstimatedRemediationHours is the expected effort to remediate.
	EstimatedRemediationHours float64 `yaml:"estimated_remediation_hours" json:"estimated_remediation_hours"`
}

// Snapshot is an immutable set of policy rules published under one policy
// version. All lookup methods are safe for concurrent use.
type Snapshot struct {
	version     string
	publishedAt time.Time
	byStep      map[Step][]PolicyRule
	byID        map[string]PolicyRule
	ruleCount   int
}

// Version returns the policy version of the snapshot.
func (s *Snapshot) Version() string { return s.version }

// PublishedAt returns when the snapshot was published.
func (s *Snapshot) PublishedAt() time.Time { return s.publishedAt }

// RuleCount returns the total number of rules in the snapshot.
func (s *Snapshot) RuleCount() int { return s.ruleCount }

// RulesForStep returns the rules applicable to a lifecycle step, ordered by
// rule ID. The returned slice must not be modified.
func (s *Snapshot) RulesForStep(step Step) []PolicyRule {
	return s.byStep[step]
}

// Rule returns the rule with the given ID.
func (s *Snapshot) Rule(ruleID string) (PolicyRule, bool) {
	r, ok := s.byID[ruleID]
	return r, ok
}

// Steps returns every step that has at least one rule, in lifecycle order.
func (s *Snapshot) Steps() []Step {
	var steps []Step
	for _, step := range KnownSteps {
		if len(s.byStep[step]) > 0 {
			steps = append(steps, step)
		}
	}
	return steps
}

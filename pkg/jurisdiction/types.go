package jurisdiction

import (
	"context"
	"time"
)

// GlobalJurisdiction is the baseline rule set applied when a token has no
// explicit jurisdiction assignment.
const GlobalJurisdiction = "GLOBAL"

// Requirement is a single regulatory requirement within a jurisdiction's
// rule set.
type Requirement struct {
	// Code is the stable requirement identifier (e.g. "MICA_WP_001").
	Code string `yaml:"code" json:"code"`

	// Description explains what the requirement demands.
	Description string `yaml:"description" json:"description"`

	// Mandatory requirements drive the compliance level; optional ones
	// only annotate the result.
	Mandatory bool `yaml:"mandatory" json:"mandatory"`

	// RequiredEvidenceTypes lists evidence types that satisfy the
	// requirement.
	RequiredEvidenceTypes []string `yaml:"required_evidence_types" json:"required_evidence_types"`
}

// RuleSet is the complete requirement set of one jurisdiction.
type RuleSet struct {
	// Jurisdiction is the jurisdiction code (e.g. "EU", "US", "GLOBAL").
	Jurisdiction string `yaml:"jurisdiction" json:"jurisdiction"`

	// Name is a human-readable name for the regime.
	Name string `yaml:"name" json:"name"`

	// Requirements are the regime's requirements, evaluated in order.
	Requirements []Requirement `yaml:"requirements" json:"requirements"`
}

// Assignment maps a token on a network to a jurisdiction. Assignments are
// the one mutable mapping in the engine.
type Assignment struct {
	// TokenType identifies the proposed token.
	TokenType string `json:"token_type"`

	// Network is the target network.
	Network string `json:"network"`

	// Jurisdiction is the assigned jurisdiction code.
	Jurisdiction string `json:"jurisdiction"`

	// AssignedAt is when the assignment was made.
	AssignedAt time.Time `json:"assigned_at"`
}

// AssignmentStore persists the token → jurisdiction mapping.
type AssignmentStore interface {
	// Assign records an assignment, replacing an existing one for the
	// same token, network, and jurisdiction.
	Assign(ctx context.Context, a Assignment) error

	// ListForToken returns the assignments for a token on a network,
	// ordered by jurisdiction code.
	ListForToken(ctx context.Context, tokenType, network string) ([]Assignment, error)

	// Remove deletes an assignment.
	Remove(ctx context.Context, tokenType, network, jurisdiction string) error
}

// CheckStatus is the result vocabulary for one requirement check.
type CheckStatus string

const (
	CheckPass          CheckStatus = "pass"
	CheckFail          CheckStatus = "fail"
	CheckPartial       CheckStatus = "partial"
	CheckNotApplicable CheckStatus = "not_applicable"
)

// RequirementCheck records how one requirement scored.
type RequirementCheck struct {
	// Jurisdiction the requirement belongs to.
	Jurisdiction string `json:"jurisdiction"`

	// Code is the requirement code.
	Code string `json:"code"`

	// Status is the check result.
	Status CheckStatus `json:"status"`

	// Message explains the result.
	Message string `json:"message"`
}

// ComplianceLevel aggregates the mandatory requirement checks.
type ComplianceLevel string

const (
	LevelCompliant          ComplianceLevel = "compliant"
	LevelPartiallyCompliant ComplianceLevel = "partially_compliant"
	LevelNonCompliant       ComplianceLevel = "non_compliant"
	LevelUnknown            ComplianceLevel = "unknown"
)

// Result is the outcome of evaluating a token's jurisdictions.
type Result struct {
	// Level is the aggregate compliance level.
	Level ComplianceLevel `json:"level"`

	// Jurisdictions lists the jurisdiction codes evaluated.
	Jurisdictions []string `json:"jurisdictions"`

	// Checks holds every requirement check, in jurisdiction then
	// requirement order.
	Checks []RequirementCheck `json:"checks"`

	// Rationale is a human-readable summary of the result.
	Rationale string `json:"rationale"`
}

package policy

import (
	"fmt"

	"mercator-hq/themis/pkg/catalog"
)

// UnknownStepError reports an evaluation request for a step that has no
// rules in the active catalog version.
type UnknownStepError struct {
	Step catalog.Step
}

// Error implements the error interface.
func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("no policy rules for step %q", e.Step)
}

// EvidenceValidationError reports evidence that is structurally unusable
// for a mandatory rule, such as a missing integrity digest.
type EvidenceValidationError struct {
	RuleID       string // Rule whose evidence failed validation
	EvidenceType string // Evidence type involved
	Field        string // Missing or invalid field
}

// Error implements the error interface.
func (e *EvidenceValidationError) Error() string {
	return fmt.Sprintf("evidence validation failed [rule=%s, evidence_type=%s]: missing %s",
		e.RuleID, e.EvidenceType, e.Field)
}

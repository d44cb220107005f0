package evaluators

import (
	"context"
	"errors"
	"fmt"

	"mercator-hq/themis/pkg/catalog"
	"mercator-hq/themis/pkg/decision"
	"mercator-hq/themis/pkg/policy"
	"mercator-hq/themis/pkg/readiness"
)

// ComplianceDecision evaluates the compliance category from the latest
// active decision for the organization. It is the one category backed by
// the engine's own decision lifecycle rather than an external collaborator.
type ComplianceDecision struct {
	Decisions *decision.Service
	Step      catalog.Step
}

// Category implements readiness.CategoryEvaluator.
func (e *ComplianceDecision) Category() readiness.Category {
	return readiness.CategoryComplianceDecision
}

// Mandatory implements readiness.CategoryEvaluator.
func (e *ComplianceDecision) Mandatory() bool { return true }

// Evaluate maps the active decision's outcome onto the category result.
// A missing or expired decision is a critical failure: launches may not
// proceed without standing compliance approval.
func (e *ComplianceDecision) Evaluate(ctx context.Context, req *readiness.Request) (*readiness.CategoryResult, error) {
	d, err := e.Decisions.GetActive(ctx, req.OrganizationID, e.Step)
	if err != nil {
		var notFound *decision.NotFoundError
		if errors.As(err, &notFound) {
			return &readiness.CategoryResult{
				Category:                 e.Category(),
				Passed:                   false,
				Severity:                 catalog.SeverityCritical,
				Message:                  fmt.Sprintf("no active compliance decision for step %s", e.Step),
				ErrorCode:                "COMPLIANCE_DECISION_MISSING",
				OwnerHint:                "compliance team",
				Actions:                  []string{"submit evidence for compliance evaluation", "await decision outcome"},
				EstimatedResolutionHours: 48,
			}, nil
		}
		return nil, err
	}

	result := &readiness.CategoryResult{
		Category:     e.Category(),
		EvidenceRefs: []string{d.ID},
	}

	switch d.Outcome {
	case policy.OutcomeApproved:
		result.Passed = true
		result.Message = fmt.Sprintf("compliance decision %s approved under policy %s", d.ID, d.PolicyVersion)

	case policy.OutcomeConditionalApproval:
		result.Passed = true
		result.RequiresReview = true
		result.Message = fmt.Sprintf("compliance decision %s is a conditional approval", d.ID)

	case policy.OutcomeRequiresManualReview:
		result.Passed = false
		result.RequiresReview = true
		result.Severity = catalog.SeverityMedium
		result.Message = fmt.Sprintf("compliance decision %s requires manual review", d.ID)
		result.ErrorCode = "COMPLIANCE_REVIEW_PENDING"
		result.OwnerHint = "compliance team"
		result.Actions = []string{"await manual compliance review"}
		result.EstimatedResolutionHours = 24

	default: // rejected
		result.Passed = false
		result.Severity = catalog.SeverityCritical
		result.Message = fmt.Sprintf("compliance decision %s rejected: %s", d.ID, d.Reason)
		result.ErrorCode = "COMPLIANCE_REJECTED"
		result.OwnerHint = "compliance team"
		result.Actions = append([]string{}, rejectionActions(d)...)
		result.EstimatedResolutionHours = 72
	}

	return result, nil
}

// rejectionActions lifts the failing rules' remediation guidance off the
// decision's evaluation snapshot.
func rejectionActions(d *decision.Decision) []string {
	var actions []string
	for _, r := range d.RuleResults {
		if !r.Passed {
			actions = append(actions, fmt.Sprintf("resolve rule %s: %s", r.RuleID, r.Message))
		}
	}
	if len(actions) == 0 {
		actions = []string{"resubmit evidence for compliance evaluation"}
	}
	return actions
}

package evaluators

import (
	"context"
	"errors"

	"mercator-hq/themis/pkg/catalog"
	"mercator-hq/themis/pkg/decision"
	"mercator-hq/themis/pkg/jurisdiction"
	"mercator-hq/themis/pkg/policy"
	"mercator-hq/themis/pkg/readiness"
)

// Jurisdiction evaluates the jurisdiction category using the jurisdiction
// rule evaluator. The evidence to check requirements against is taken from
// the organization's latest active compliance decision; when none exists
// the requirements are checked against an empty evidence set.
type Jurisdiction struct {
	Evaluator *jurisdiction.Evaluator
	Decisions *decision.Service
	Step      catalog.Step
}

// Category implements readiness.CategoryEvaluator.
func (e *Jurisdiction) Category() readiness.Category { return readiness.CategoryJurisdiction }

// Mandatory implements readiness.CategoryEvaluator.
func (e *Jurisdiction) Mandatory() bool { return true }

// Evaluate implements readiness.CategoryEvaluator.
func (e *Jurisdiction) Evaluate(ctx context.Context, req *readiness.Request) (*readiness.CategoryResult, error) {
	var evidence []policy.EvidenceReference
	if d, err := e.Decisions.GetActive(ctx, req.OrganizationID, e.Step); err == nil {
		evidence = d.EvidenceReferences
	} else {
		var notFound *decision.NotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	result, err := e.Evaluator.Evaluate(ctx, req.TokenType, req.Network, evidence)
	if err != nil {
		return nil, err
	}

	cr := &readiness.CategoryResult{
		Category:     e.Category(),
		Message:      result.Rationale,
		EvidenceRefs: result.Jurisdictions,
	}

	switch result.Level {
	case jurisdiction.LevelCompliant:
		cr.Passed = true

	case jurisdiction.LevelUnknown:
		cr.Passed = false
		cr.RequiresReview = true
		cr.Severity = catalog.SeverityMedium
		cr.ErrorCode = "JURISDICTION_UNKNOWN"
		cr.OwnerHint = "legal team"
		cr.Actions = []string{"assign a jurisdiction to the token", "supply jurisdiction evidence"}
		cr.EstimatedResolutionHours = 24

	case jurisdiction.LevelPartiallyCompliant:
		cr.Passed = false
		cr.Severity = catalog.SeverityHigh
		cr.ErrorCode = "JURISDICTION_PARTIAL"
		cr.OwnerHint = "legal team"
		cr.Actions = failingActions(result)
		cr.EstimatedResolutionHours = 40

	default: // non-compliant
		cr.Passed = false
		cr.Severity = catalog.SeverityCritical
		cr.ErrorCode = "JURISDICTION_NON_COMPLIANT"
		cr.OwnerHint = "legal team"
		cr.Actions = failingActions(result)
		cr.EstimatedResolutionHours = 80
	}

	return cr, nil
}

// failingActions turns failing requirement checks into remediation steps.
func failingActions(r *jurisdiction.Result) []string {
	var actions []string
	for _, check := range r.Checks {
		if check.Status == jurisdiction.CheckFail || check.Status == jurisdiction.CheckPartial {
			actions = append(actions, "satisfy requirement "+check.Code+" ("+check.Jurisdiction+")")
		}
	}
	return actions
}

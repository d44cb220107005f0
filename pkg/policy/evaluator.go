package policy

import (
	"fmt"
	"log/slog"
	"strings"

	"mercator-hq/themis/pkg/catalog"
)

// ruleState is the tri-state result of checking one rule.
type ruleState int

const (
	ruleSatisfied ruleState = iota
	rulePending
	ruleUnmet
)

// Evaluator scores evidence against the active catalog snapshot. It holds
// no mutable state of its own and is safe for concurrent use.
type Evaluator struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// NewEvaluator creates an evaluator backed by the given catalog.
func NewEvaluator(c *catalog.Catalog) *Evaluator {
	return &Evaluator{
		catalog: c,
		logger:  slog.Default().With("component", "policy.evaluator"),
	}
}

// Evaluate scores the evidence set against every rule for the step in the
// active catalog version. It is pure: repeated calls with identical inputs
// produce identical evaluations.
func (e *Evaluator) Evaluate(step catalog.Step, evidence []EvidenceReference) (*Evaluation, error) {
	snap := e.catalog.Active()
	if snap == nil {
		return nil, &UnknownStepError{Step: step}
	}
	return e.EvaluateAgainst(snap, step, evidence)
}

// EvaluateAgainst scores evidence against an explicit snapshot. Historical
// re-evaluation uses this to replay a decision under the version it was
// originally taken against.
func (e *Evaluator) EvaluateAgainst(snap *catalog.Snapshot, step catalog.Step, evidence []EvidenceReference) (*Evaluation, error) {
	rules := snap.RulesForStep(step)
	if len(rules) == 0 {
		return nil, &UnknownStepError{Step: step}
	}

	eval := &Evaluation{
		PolicyVersion: snap.Version(),
		RuleResults:   make([]RuleEvaluationResult, 0, len(rules)),
		PolicyRuleIDs: make([]string, 0, len(rules)),
	}

	var anyPending bool
	var unmetMandatory []catalog.PolicyRule
	actionsSeen := make(map[string]struct{})

	for _, rule := range rules {
		eval.PolicyRuleIDs = append(eval.PolicyRuleIDs, rule.RuleID)

		state, message, err := checkRule(rule, evidence)
		if err != nil {
			return nil, err
		}

		eval.RuleResults = append(eval.RuleResults, RuleEvaluationResult{
			RuleID:   rule.RuleID,
			RuleName: rule.Name,
			Passed:   state == ruleSatisfied,
			Message:  message,
		})

		switch state {
		case rulePending:
			anyPending = true
		case ruleUnmet:
			if rule.Mandatory {
				unmetMandatory = append(unmetMandatory, rule)
			}
			for _, action := range rule.RemediationActions {
				if _, seen := actionsSeen[action]; seen {
					continue
				}
				actionsSeen[action] = struct{}{}
				eval.RequiredActions = append(eval.RequiredActions, action)
			}
		}
	}

	eval.Outcome = deriveOutcome(unmetMandatory, anyPending)

	e.logger.Debug("policy evaluation complete",
		"step", string(step),
		"policy_version", snap.Version(),
		"outcome", string(eval.Outcome),
		"rules", len(rules),
		"unmet_mandatory", len(unmetMandatory),
	)

	return eval, nil
}

// deriveOutcome applies the outcome priority order: unmet mandatory rules
// dominate, then pending evidence, then approval.
func deriveOutcome(unmetMandatory []catalog.PolicyRule, anyPending bool) Outcome {
	if len(unmetMandatory) > 0 {
		for _, rule := range unmetMandatory {
			if !rule.AllowConditional {
				return OutcomeRejected
			}
		}
		return OutcomeConditionalApproval
	}
	if anyPending {
		return OutcomeRequiresManualReview
	}
	return OutcomeApproved
}

// checkRule determines whether the evidence set satisfies a single rule.
// A rule is satisfied by at least one verified evidence item of a required
// type. Evidence of a required type whose verification is still pending
// puts the rule into the pending state instead of failing it outright.
func checkRule(rule catalog.PolicyRule, evidence []EvidenceReference) (ruleState, string, error) {
	var (
		matched bool
		pending bool
	)

	for _, item := range evidence {
		if !requiresType(rule, item.EvidenceType) {
			continue
		}
		matched = true

		if rule.Mandatory && item.DataHash == "" {
			return ruleUnmet, "", &EvidenceValidationError{
				RuleID:       rule.RuleID,
				EvidenceType: item.EvidenceType,
				Field:        "data_hash",
			}
		}

		switch item.VerificationStatus {
		case StatusVerified:
			return ruleSatisfied, fmt.Sprintf("satisfied by %s %s", item.EvidenceType, item.ReferenceID), nil
		case StatusPending:
			pending = true
		}
	}

	if pending {
		return rulePending, "evidence verification pending", nil
	}
	if matched {
		return ruleUnmet, "matching evidence present but not verified", nil
	}
	return ruleUnmet, fmt.Sprintf("no evidence of type %s provided", strings.Join(rule.RequiredEvidenceTypes, " or ")), nil
}

// requiresType reports whether the rule accepts evidence of this type.
func requiresType(rule catalog.PolicyRule, evidenceType string) bool {
	for _, t := range rule.RequiredEvidenceTypes {
		if t == evidenceType {
			return true
		}
	}
	return false
}

package jurisdiction

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"mercator-hq/themis/pkg/policy"
)

// Evaluator scores a token's assigned jurisdictions against their rule
// sets. The rule set registry is immutable after construction; the
// assignment store is the only mutable collaborator.
type Evaluator struct {
	store    AssignmentStore
	ruleSets map[string]RuleSet
	logger   *slog.Logger
}

// NewEvaluator creates an evaluator over the given rule sets. A GLOBAL
// rule set should be included as the fallback baseline.
func NewEvaluator(store AssignmentStore, ruleSets []RuleSet) *Evaluator {
	byCode := make(map[string]RuleSet, len(ruleSets))
	for _, rs := range ruleSets {
		byCode[rs.Jurisdiction] = rs
	}

	return &Evaluator{
		store:    store,
		ruleSets: byCode,
		logger:   slog.Default().With("component", "jurisdiction.evaluator"),
	}
}

// LoadRuleSets reads jurisdiction rule sets from a YAML file.
func LoadRuleSets(path string) ([]RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule sets %q: %w", path, err)
	}

	var file struct {
		RuleSets []RuleSet `yaml:"rule_sets"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rule sets %q: %w", path, err)
	}
	if len(file.RuleSets) == 0 {
		return nil, fmt.Errorf("rule set file %q defines no rule sets", path)
	}
	return file.RuleSets, nil
}

// Evaluate resolves the token's jurisdiction assignments (falling back to
// GLOBAL when none exist) and checks every requirement against the
// supplied evidence.
func (e *Evaluator) Evaluate(ctx context.Context, tokenType, network string, evidence []policy.EvidenceReference) (*Result, error) {
	assignments, err := e.store.ListForToken(ctx, tokenType, network)
	if err != nil {
		return nil, fmt.Errorf("resolving jurisdiction assignments: %w", err)
	}

	jurisdictions := make([]string, 0, len(assignments))
	for _, a := range assignments {
		jurisdictions = append(jurisdictions, a.Jurisdiction)
	}
	if len(jurisdictions) == 0 {
		jurisdictions = []string{GlobalJurisdiction}
	}
	sort.Strings(jurisdictions)

	result := &Result{Jurisdictions: jurisdictions}

	for _, code := range jurisdictions {
		ruleSet, ok := e.ruleSets[code]
		if !ok {
			e.logger.Warn("no rule set for jurisdiction", "jurisdiction", code)
			continue
		}
		for _, req := range ruleSet.Requirements {
			result.Checks = append(result.Checks, checkRequirement(code, req, evidence))
		}
	}

	result.Level = aggregateLevel(result.Checks, e.mandatory(jurisdictions))
	result.Rationale = rationale(result)

	e.logger.Debug("jurisdiction evaluation complete",
		"token_type", tokenType,
		"network", network,
		"jurisdictions", strings.Join(jurisdictions, ","),
		"level", string(result.Level),
	)

	return result, nil
}

// mandatory returns the codes of mandatory requirements across the
// evaluated jurisdictions.
func (e *Evaluator) mandatory(jurisdictions []string) map[string]bool {
	mandatory := make(map[string]bool)
	for _, code := range jurisdictions {
		ruleSet, ok := e.ruleSets[code]
		if !ok {
			continue
		}
		for _, req := range ruleSet.Requirements {
			if req.Mandatory {
				mandatory[code+"/"+req.Code] = true
			}
		}
	}
	return mandatory
}

// checkRequirement scores one requirement against the evidence set.
func checkRequirement(jurisdiction string, req Requirement, evidence []policy.EvidenceReference) RequirementCheck {
	check := RequirementCheck{
		Jurisdiction: jurisdiction,
		Code:         req.Code,
	}

	if len(req.RequiredEvidenceTypes) == 0 {
		check.Status = CheckNotApplicable
		check.Message = "requirement has no evidence-based check"
		return check
	}

	var matched, pending bool
	for _, item := range evidence {
		if !acceptsType(req, item.EvidenceType) {
			continue
		}
		matched = true
		switch item.VerificationStatus {
		case policy.StatusVerified:
			check.Status = CheckPass
			check.Message = fmt.Sprintf("satisfied by %s %s", item.EvidenceType, item.ReferenceID)
			return check
		case policy.StatusPending:
			pending = true
		}
	}

	switch {
	case pending:
		check.Status = CheckPartial
		check.Message = "evidence verification pending"
	case matched:
		check.Status = CheckFail
		check.Message = "matching evidence present but not verified"
	default:
		check.Status = CheckFail
		check.Message = fmt.Sprintf("no evidence of type %s provided", strings.Join(req.RequiredEvidenceTypes, " or "))
	}
	return check
}

func acceptsType(req Requirement, evidenceType string) bool {
	for _, t := range req.RequiredEvidenceTypes {
		if t == evidenceType {
			return true
		}
	}
	return false
}

// aggregateLevel derives the compliance level from the mandatory checks.
func aggregateLevel(checks []RequirementCheck, mandatory map[string]bool) ComplianceLevel {
	var passed, failed, partial int
	for _, check := range checks {
		if !mandatory[check.Jurisdiction+"/"+check.Code] {
			continue
		}
		switch check.Status {
		case CheckPass:
			passed++
		case CheckFail:
			failed++
		case CheckPartial:
			partial++
		}
	}

	evaluated := passed + failed + partial
	switch {
	case evaluated == 0:
		return LevelUnknown
	case failed == 0 && partial == 0:
		return LevelCompliant
	case passed == 0 && partial == 0:
		return LevelNonCompliant
	default:
		return LevelPartiallyCompliant
	}
}

// rationale builds the human-readable summary: counts plus the first few
// failing requirement codes.
func rationale(r *Result) string {
	var passed, total int
	var failing []string
	for _, check := range r.Checks {
		if check.Status == CheckNotApplicable {
			continue
		}
		total++
		if check.Status == CheckPass {
			passed++
		} else {
			failing = append(failing, check.Code)
		}
	}

	summary := fmt.Sprintf("%s: %d/%d requirements satisfied across %s",
		r.Level, passed, total, strings.Join(r.Jurisdictions, ", "))

	if len(failing) > 0 {
		const maxListed = 3
		if len(failing) > maxListed {
			summary += fmt.Sprintf("; failing: %s and %d more",
				strings.Join(failing[:maxListed], ", "), len(failing)-maxListed)
		} else {
			summary += "; failing: " + strings.Join(failing, ", ")
		}
	}
	return summary
}

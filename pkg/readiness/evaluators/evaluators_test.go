package evaluators

import (
	"context"
	"strings"
	"testing"
	"time"

	"mercator-hq/themis/pkg/catalog"
	"mercator-hq/themis/pkg/decision"
	"mercator-hq/themis/pkg/decision/storage"
	"mercator-hq/themis/pkg/jurisdiction"
	"mercator-hq/themis/pkg/policy"
	"mercator-hq/themis/pkg/readiness"
)

func complianceCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	rules := []catalog.PolicyRule{
		{
			RuleID:                "CA_SANCTIONS_001",
			Name:                  "Sanctions Screening",
			Step:                  catalog.StepComplianceApproval,
			Mandatory:             true,
			Severity:              catalog.SeverityCritical,
			RequiredEvidenceTypes: []string{"sanctions_screening"},
			RemediationActions:    []string{"Run a sanctions screening check"},
		},
		{
			RuleID:                "CA_LEGAL_002",
			Name:                  "Legal Opinion",
			Step:                  catalog.StepComplianceApproval,
			Mandatory:             true,
			Severity:              catalog.SeverityHigh,
			RequiredEvidenceTypes: []string{"legal_opinion"},
			RemediationActions:    []string{"Obtain a legal opinion"},
		},
	}

	cat := catalog.New()
	snap, err := catalog.NewSnapshot("2026-03", time.Now().UTC(), rules)
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}
	if err := cat.Publish(snap); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	return cat
}

func complianceService(t *testing.T) *decision.Service {
	t.Helper()
	cat := complianceCatalog(t)
	return decision.NewService(storage.NewMemoryStorage(), cat, policy.NewEvaluator(cat), nil, nil)
}

func evidenceSet(statuses map[string]policy.VerificationStatus) []policy.EvidenceReference {
	var refs []policy.EvidenceReference
	for evidenceType, status := range statuses {
		refs = append(refs, policy.EvidenceReference{
			EvidenceType:       evidenceType,
			ReferenceID:        "ref-" + evidenceType,
			VerificationStatus: status,
			DataHash:           "deadbeef",
		})
	}
	return refs
}

func createDecision(t *testing.T, svc *decision.Service, org string, statuses map[string]policy.VerificationStatus) *decision.Decision {
	t.Helper()
	result, err := svc.Create(context.Background(), &decision.CreateRequest{
		OrganizationID: org,
		Step:           catalog.StepComplianceApproval,
		Evidence:       evidenceSet(statuses),
	}, "test-actor")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return result.Decision
}

func complianceEvaluator(svc *decision.Service) *ComplianceDecision {
	return &ComplianceDecision{Decisions: svc, Step: catalog.StepComplianceApproval}
}

func readinessRequest(org string) *readiness.Request {
	return &readiness.Request{
		UserID:         "user-1",
		OrganizationID: org,
		TokenType:      "utility",
		Network:        "mainnet",
	}
}

func TestComplianceDecision_Approved(t *testing.T) {
	svc := complianceService(t)
	d := createDecision(t, svc, "org-1", map[string]policy.VerificationStatus{
		"sanctions_screening": policy.StatusVerified,
		"legal_opinion":       policy.StatusVerified,
	})

	result, err := complianceEvaluator(svc).Evaluate(context.Background(), readinessRequest("org-1"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if !result.Passed {
		t.Errorf("expected passed, got %+v", result)
	}
	if result.RequiresReview {
		t.Error("approved decision must not require review")
	}
	if len(result.EvidenceRefs) != 1 || result.EvidenceRefs[0] != d.ID {
		t.Errorf("evidence refs = %v, want the decision ID", result.EvidenceRefs)
	}
}

func TestComplianceDecision_Missing(t *testing.T) {
	svc := complianceService(t)

	result, err := complianceEvaluator(svc).Evaluate(context.Background(), readinessRequest("org-unknown"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if result.Passed {
		t.Error("missing decision must fail the category")
	}
	if result.Severity != catalog.SeverityCritical {
		t.Errorf("severity = %s, want critical", result.Severity)
	}
	if result.ErrorCode != "COMPLIANCE_DECISION_MISSING" {
		t.Errorf("error code = %s", result.ErrorCode)
	}
	if len(result.Actions) == 0 {
		t.Error("expected remediation actions")
	}
}

func TestComplianceDecision_Rejected(t *testing.T) {
	svc := complianceService(t)
	createDecision(t, svc, "org-1", map[string]policy.VerificationStatus{
		"legal_opinion": policy.StatusVerified,
	})

	result, err := complianceEvaluator(svc).Evaluate(context.Background(), readinessRequest("org-1"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if result.Passed {
		t.Error("rejected decision must fail the category")
	}
	if result.Severity != catalog.SeverityCritical || result.ErrorCode != "COMPLIANCE_REJECTED" {
		t.Errorf("unexpected result: severity %s code %s", result.Severity, result.ErrorCode)
	}

	// Actions come from the failing rules on the decision snapshot.
	found := false
	for _, action := range result.Actions {
		if strings.Contains(action, "CA_SANCTIONS_001") {
			found = true
		}
	}
	if !found {
		t.Errorf("actions %v should reference the failing rule", result.Actions)
	}
}

func TestComplianceDecision_ManualReview(t *testing.T) {
	svc := complianceService(t)
	createDecision(t, svc, "org-1", map[string]policy.VerificationStatus{
		"sanctions_screening": policy.StatusVerified,
		"legal_opinion":       policy.StatusPending,
	})

	result, err := complianceEvaluator(svc).Evaluate(context.Background(), readinessRequest("org-1"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if result.Passed {
		t.Error("pending review must fail the category")
	}
	if !result.RequiresReview {
		t.Error("expected RequiresReview")
	}
	if result.ErrorCode != "COMPLIANCE_REVIEW_PENDING" || result.Severity != catalog.SeverityMedium {
		t.Errorf("unexpected result: code %s severity %s", result.ErrorCode, result.Severity)
	}
}

func jurisdictionEvaluator(svc *decision.Service, store jurisdiction.AssignmentStore) *Jurisdiction {
	ruleSets := []jurisdiction.RuleSet{{
		Jurisdiction: jurisdiction.GlobalJurisdiction,
		Name:         "Global Baseline",
		Requirements: []jurisdiction.Requirement{{
			Code:                  "GLB_LEGAL_001",
			Description:           "Legal opinion on token classification",
			Mandatory:             true,
			RequiredEvidenceTypes: []string{"legal_opinion"},
		}},
	}}
	return &Jurisdiction{
		Evaluator: jurisdiction.NewEvaluator(store, ruleSets),
		Decisions: svc,
		Step:      catalog.StepComplianceApproval,
	}
}

func TestJurisdiction_CompliantFromDecisionEvidence(t *testing.T) {
	svc := complianceService(t)
	createDecision(t, svc, "org-1", map[string]policy.VerificationStatus{
		"sanctions_screening": policy.StatusVerified,
		"legal_opinion":       policy.StatusVerified,
	})

	ev := jurisdictionEvaluator(svc, jurisdiction.NewMemoryAssignmentStore())
	result, err := ev.Evaluate(context.Background(), readinessRequest("org-1"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if !result.Passed {
		t.Errorf("expected passed, got %+v", result)
	}
	if len(result.EvidenceRefs) != 1 || result.EvidenceRefs[0] != jurisdiction.GlobalJurisdiction {
		t.Errorf("evidence refs = %v, want the evaluated jurisdictions", result.EvidenceRefs)
	}
}

func TestJurisdiction_NonCompliantWithoutDecision(t *testing.T) {
	svc := complianceService(t)

	ev := jurisdictionEvaluator(svc, jurisdiction.NewMemoryAssignmentStore())
	result, err := ev.Evaluate(context.Background(), readinessRequest("org-unknown"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	// No decision means an empty evidence set: the mandatory GLOBAL
	// requirement fails outright.
	if result.Passed {
		t.Error("expected failure with empty evidence")
	}
	if result.ErrorCode != "JURISDICTION_NON_COMPLIANT" || result.Severity != catalog.SeverityCritical {
		t.Errorf("unexpected result: code %s severity %s", result.ErrorCode, result.Severity)
	}
	if len(result.Actions) != 1 || !strings.Contains(result.Actions[0], "GLB_LEGAL_001") {
		t.Errorf("actions = %v, want the failing requirement", result.Actions)
	}
}

// stubChecker drives the collaborator wrapper tests.
type stubChecker struct {
	result *readiness.CategoryResult
}

func (s *stubChecker) Check(ctx context.Context, userID, operation string) (*readiness.CategoryResult, error) {
	return s.result, nil
}

func TestEntitlement_NormalizesCollaboratorResult(t *testing.T) {
	ev := &Entitlement{
		Checker:   &stubChecker{result: &readiness.CategoryResult{Passed: false, Message: "not entitled"}},
		Operation: "token_launch",
	}

	result, err := ev.Evaluate(context.Background(), readinessRequest("org-1"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if result.Category != readiness.CategoryEntitlement {
		t.Errorf("category = %s, want entitlement", result.Category)
	}
	// Failures arriving without a severity get a default.
	if result.Severity != catalog.SeverityHigh {
		t.Errorf("severity = %s, want high", result.Severity)
	}
}

func TestEntitlement_KeepsExplicitSeverity(t *testing.T) {
	ev := &Entitlement{
		Checker: &stubChecker{result: &readiness.CategoryResult{
			Passed:   false,
			Severity: catalog.SeverityCritical,
			Message:  "entitlement revoked",
		}},
		Operation: "token_launch",
	}

	result, err := ev.Evaluate(context.Background(), readinessRequest("org-1"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Severity != catalog.SeverityCritical {
		t.Errorf("severity = %s, want the collaborator's explicit critical", result.Severity)
	}
}

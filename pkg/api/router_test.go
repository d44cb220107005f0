package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/themis/pkg/catalog"
	"mercator-hq/themis/pkg/decision"
	decstorage "mercator-hq/themis/pkg/decision/storage"
	"mercator-hq/themis/pkg/policy"
	"mercator-hq/themis/pkg/readiness"
	readystorage "mercator-hq/themis/pkg/readiness/storage"
)

// passingEvaluator satisfies every request so readiness endpoints can be
// exercised without external collaborators.
type passingEvaluator struct {
	category readiness.Category
}

func (p *passingEvaluator) Category() readiness.Category { return p.category }
func (p *passingEvaluator) Mandatory() bool              { return true }

func (p *passingEvaluator) Evaluate(ctx context.Context, req *readiness.Request) (*readiness.CategoryResult, error) {
	return &readiness.CategoryResult{Passed: true, Message: "ok"}, nil
}

func apiCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	rules := []catalog.PolicyRule{{
		RuleID:                "KYC_DOC_001",
		Name:                  "Government ID",
		Step:                  catalog.StepKYCVerification,
		Mandatory:             true,
		Severity:              catalog.SeverityCritical,
		RequiredEvidenceTypes: []string{"government_id"},
		RemediationActions:    []string{"Provide a government-issued ID"},
	}}

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

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	cat := apiCatalog(t)
	svc := decision.NewService(decstorage.NewMemoryStorage(), cat, policy.NewEvaluator(cat), nil, nil)
	agg := readiness.NewAggregator(
		[]readiness.CategoryEvaluator{&passingEvaluator{category: readiness.CategoryEntitlement}},
		readystorage.NewMemoryStorage(), cat, nil, nil,
	)

	return NewRouter(svc, agg, &HeaderIdentityResolver{}).Handler()
}

func createBody() []byte {
	body, _ := json.Marshal(map[string]any{
		"organization_id": "org-1",
		"step":            "kyc_verification",
		"evidence": []map[string]any{{
			"evidence_type":       "government_id",
			"reference_id":        "doc-1",
			"verification_status": "verified",
			"data_hash":           "deadbeef",
		}},
	})
	return body
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-Actor-ID", "analyst-1")
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeCreateResult(t *testing.T, rec *httptest.ResponseRecorder) *decision.CreateResult {
	t.Helper()
	var result decision.CreateResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v (body %s)", err, rec.Body.String())
	}
	return &result
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error response: %v (body %s)", err, rec.Body.String())
	}
	return resp.Error.Code
}

func TestCreateDecision(t *testing.T) {
	handler := newTestHandler(t)

	rec := doRequest(t, handler, http.MethodPost, "/v1/decisions", createBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}

	result := decodeCreateResult(t, rec)
	if result.Decision == nil || result.Decision.Outcome != policy.OutcomeApproved {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Deduplicated {
		t.Error("first create must not be deduplicated")
	}
	if result.Evaluation == nil {
		t.Error("create response should carry the raw evaluation")
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("response missing request ID header")
	}
}

func TestCreateDecision_DeduplicatedReturns200(t *testing.T) {
	handler := newTestHandler(t)

	first := doRequest(t, handler, http.MethodPost, "/v1/decisions", createBody())
	if first.Code != http.StatusCreated {
		t.Fatalf("first create status = %d", first.Code)
	}
	second := doRequest(t, handler, http.MethodPost, "/v1/decisions", createBody())
	if second.Code != http.StatusOK {
		t.Fatalf("deduplicated create status = %d, want 200", second.Code)
	}

	result := decodeCreateResult(t, second)
	if !result.Deduplicated {
		t.Error("expected deduplicated result")
	}
	if result.Decision.ID != decodeCreateResult(t, first).Decision.ID {
		t.Error("deduplicated create must return the original decision")
	}
}

func TestCreateDecision_Unauthorized(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/decisions", bytes.NewReader(createBody()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if code := errorCode(t, rec); code != "unauthorized" {
		t.Errorf("error code = %s", code)
	}
}

func TestCreateDecision_BadRequests(t *testing.T) {
	handler := newTestHandler(t)

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"malformed json", "{not json", "invalid_request"},
		{"missing organization", `{"step":"kyc_verification"}`, "validation_failed"},
		{"unknown step", `{"organization_id":"org-1","step":"interplanetary","evidence":[{"evidence_type":"government_id","reference_id":"doc-1","verification_status":"verified","data_hash":"d"}]}`, "unknown_step"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, handler, http.MethodPost, "/v1/decisions", []byte(tt.body))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
			if code := errorCode(t, rec); code != tt.wantCode {
				t.Errorf("error code = %s, want %s", code, tt.wantCode)
			}
		})
	}
}

func TestGetDecision(t *testing.T) {
	handler := newTestHandler(t)

	created := decodeCreateResult(t, doRequest(t, handler, http.MethodPost, "/v1/decisions", createBody()))

	rec := doRequest(t, handler, http.MethodGet, "/v1/decisions/"+created.Decision.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var d decision.Decision
	if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
		t.Fatalf("decoding decision: %v", err)
	}
	if d.ID != created.Decision.ID {
		t.Errorf("got decision %s, want %s", d.ID, created.Decision.ID)
	}

	missing := doRequest(t, handler, http.MethodGet, "/v1/decisions/does-not-exist", nil)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", missing.Code)
	}
	if code := errorCode(t, missing); code != "not_found" {
		t.Errorf("error code = %s", code)
	}
}

func TestGetActiveDecision(t *testing.T) {
	handler := newTestHandler(t)
	doRequest(t, handler, http.MethodPost, "/v1/decisions", createBody())

	rec := doRequest(t, handler, http.MethodGet, "/v1/decisions/active?organization_id=org-1&step=kyc_verification", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	missingParams := doRequest(t, handler, http.MethodGet, "/v1/decisions/active", nil)
	if missingParams.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", missingParams.Code)
	}

	noDecision := doRequest(t, handler, http.MethodGet, "/v1/decisions/active?organization_id=org-2&step=kyc_verification", nil)
	if noDecision.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", noDecision.Code)
	}
}

func TestSupersedeDecision(t *testing.T) {
	handler := newTestHandler(t)

	created := decodeCreateResult(t, doRequest(t, handler, http.MethodPost, "/v1/decisions", createBody()))
	path := fmt.Sprintf("/v1/decisions/%s/supersede", created.Decision.ID)

	rec := doRequest(t, handler, http.MethodPost, path, createBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	replacement := decodeCreateResult(t, rec)
	if replacement.Decision.PreviousDecisionID != created.Decision.ID {
		t.Errorf("replacement supersedes %s, want %s", replacement.Decision.PreviousDecisionID, created.Decision.ID)
	}

	// Superseding an already-superseded decision is a conflict.
	conflict := doRequest(t, handler, http.MethodPost, path, createBody())
	if conflict.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (body %s)", conflict.Code, conflict.Body.String())
	}
	if code := errorCode(t, conflict); code != "superseded" {
		t.Errorf("error code = %s", code)
	}
}

func TestQueryDecisions(t *testing.T) {
	handler := newTestHandler(t)
	doRequest(t, handler, http.MethodPost, "/v1/decisions", createBody())

	rec := doRequest(t, handler, http.MethodGet, "/v1/decisions?organization_id=org-1&outcome=approved", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var result decision.QueryResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding query result: %v", err)
	}
	if result.Total != 1 || len(result.Decisions) != 1 {
		t.Errorf("total = %d, decisions = %d, want 1 each", result.Total, len(result.Decisions))
	}
	if result.Summary == nil || result.Summary.CountsByOutcome[policy.OutcomeApproved] != 1 {
		t.Errorf("unexpected summary: %+v", result.Summary)
	}

	badParam := doRequest(t, handler, http.MethodGet, "/v1/decisions?page=minus-one", nil)
	if badParam.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", badParam.Code)
	}

	badTime := doRequest(t, handler, http.MethodGet, "/v1/decisions?from=yesterday", nil)
	if badTime.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", badTime.Code)
	}
}

func TestEvaluateReadiness(t *testing.T) {
	handler := newTestHandler(t)

	body, _ := json.Marshal(map[string]any{
		"organization_id": "org-1",
		"token_type":      "utility",
		"network":         "mainnet",
	})
	rec := doRequest(t, handler, http.MethodPost, "/v1/readiness/evaluations", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}

	var eval readiness.Evaluation
	if err := json.Unmarshal(rec.Body.Bytes(), &eval); err != nil {
		t.Fatalf("decoding evaluation: %v", err)
	}
	if eval.Status != readiness.StatusReady || !eval.CanProceed {
		t.Errorf("unexpected evaluation: status %s can_proceed %v", eval.Status, eval.CanProceed)
	}
	// The evaluated user is the resolved actor, never the body.
	if eval.UserID != "analyst-1" {
		t.Errorf("user = %s, want the actor identity", eval.UserID)
	}

	got := doRequest(t, handler, http.MethodGet, "/v1/readiness/evaluations/"+eval.ID, nil)
	if got.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", got.Code)
	}

	missing := doRequest(t, handler, http.MethodGet, "/v1/readiness/evaluations/does-not-exist", nil)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("get status = %d, want 404", missing.Code)
	}
}

func TestReadinessHistory(t *testing.T) {
	handler := newTestHandler(t)

	body, _ := json.Marshal(map[string]any{
		"organization_id": "org-1",
		"token_type":      "utility",
		"network":         "mainnet",
	})
	for i := 0; i < 3; i++ {
		rec := doRequest(t, handler, http.MethodPost, "/v1/readiness/evaluations", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("evaluate status = %d", rec.Code)
		}
	}

	rec := doRequest(t, handler, http.MethodGet, "/v1/readiness/evaluations?limit=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d (body %s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Evaluations []*readiness.Evaluation `json:"evaluations"`
		Count       int                     `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding history: %v", err)
	}
	if resp.Count != 2 || len(resp.Evaluations) != 2 {
		t.Errorf("count = %d, evaluations = %d, want 2 each", resp.Count, len(resp.Evaluations))
	}
}

func TestHealth(t *testing.T) {
	handler := newTestHandler(t)

	rec := doRequest(t, handler, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected health body: %s", rec.Body.String())
	}
}

func TestRequestIDPropagation(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "req-abc-123" {
		t.Errorf("request ID = %q, want the client-supplied value echoed", got)
	}
}

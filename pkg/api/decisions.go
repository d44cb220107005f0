package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"mercator-hq/themis/pkg/catalog"
	"mercator-hq/themis/pkg/decision"
	"mercator-hq/themis/pkg/policy"
)

// DecisionHandler serves the decision lifecycle endpoints.
type DecisionHandler struct {
	decisions *decision.Service
	identity  ActorIdentityResolver
}

// NewDecisionHandler creates a decision handler backed by the service.
func NewDecisionHandler(svc *decision.Service, identity ActorIdentityResolver) *DecisionHandler {
	return &DecisionHandler{decisions: svc, identity: identity}
}

// Create handles POST /v1/decisions.
func (h *DecisionHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := h.identity.Resolve(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req decision.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed request body: "+err.Error())
		return
	}

	result, err := h.decisions.Create(r.Context(), &req, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// A deduplicated create returns the existing record, not a new one.
	status := http.StatusCreated
	if result.Deduplicated {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// Update handles POST /v1/decisions/{id}/supersede.
func (h *DecisionHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, err := h.identity.Resolve(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	previousID := r.PathValue("id")

	var req decision.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed request body: "+err.Error())
		return
	}

	result, err := h.decisions.Update(r.Context(), previousID, &req, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// Get handles GET /v1/decisions/{id}.
func (h *DecisionHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.decisions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// GetActive handles GET /v1/decisions/active. It requires organization_id
// and step query parameters.
func (h *DecisionHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	org := r.URL.Query().Get("organization_id")
	step := r.URL.Query().Get("step")
	if org == "" || step == "" {
		writeBadRequest(w, "organization_id and step query parameters are required")
		return
	}

	d, err := h.decisions.GetActive(r.Context(), org, catalog.Step(step))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Query handles GET /v1/decisions.
func (h *DecisionHandler) Query(w http.ResponseWriter, r *http.Request) {
	q, err := parseDecisionQuery(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	result, err := h.decisions.Query(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func parseDecisionQuery(r *http.Request) (*decision.Query, error) {
	params := r.URL.Query()
	q := &decision.Query{
		OrganizationID: params.Get("organization_id"),
		Step:           catalog.Step(params.Get("step")),
		Outcome:        policy.Outcome(params.Get("outcome")),
		DecisionMaker:  params.Get("decision_maker"),
	}

	var err error
	if q.From, err = parseTimeParam(params.Get("from")); err != nil {
		return nil, err
	}
	if q.To, err = parseTimeParam(params.Get("to")); err != nil {
		return nil, err
	}
	if q.IncludeSuperseded, err = parseBoolParam(params.Get("include_superseded")); err != nil {
		return nil, err
	}
	if q.IncludeExpired, err = parseBoolParam(params.Get("include_expired")); err != nil {
		return nil, err
	}
	if q.Page, err = parseIntParam(params.Get("page")); err != nil {
		return nil, err
	}
	if q.PageSize, err = parseIntParam(params.Get("page_size")); err != nil {
		return nil, err
	}

	return q, nil
}

func parseTimeParam(val string) (*time.Time, error) {
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, &paramError{param: val, expected: "RFC 3339 timestamp"}
	}
	return &t, nil
}

func parseBoolParam(val string) (bool, error) {
	if val == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, &paramError{param: val, expected: "boolean"}
	}
	return b, nil
}

func parseIntParam(val string) (int, error) {
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return 0, &paramError{param: val, expected: "non-negative integer"}
	}
	return n, nil
}

type paramError struct {
	param    string
	expected string
}

func (e *paramError) Error() string {
	return "invalid query parameter " + strconv.Quote(e.param) + ": expected " + e.expected
}

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"mercator-hq/themis/pkg/readiness"
)

// ReadinessHandler serves the readiness evaluation endpoints.
type ReadinessHandler struct {
	aggregator *readiness.Aggregator
	identity   ActorIdentityResolver
}

// NewReadinessHandler creates a readiness handler backed by the aggregator.
func NewReadinessHandler(agg *readiness.Aggregator, identity ActorIdentityResolver) *ReadinessHandler {
	return &ReadinessHandler{aggregator: agg, identity: identity}
}

// Evaluate handles POST /v1/readiness/evaluations. The evaluated user is the
// resolved actor; the body carries the launch parameters.
func (h *ReadinessHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	actor, err := h.identity.Resolve(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req readiness.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed request body: "+err.Error())
		return
	}
	req.UserID = actor

	eval, err := h.aggregator.Evaluate(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, eval)
}

// Get handles GET /v1/readiness/evaluations/{id}.
func (h *ReadinessHandler) Get(w http.ResponseWriter, r *http.Request) {
	eval, err := h.aggregator.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eval)
}

// History handles GET /v1/readiness/evaluations. Callers see their own
// history; the user is the resolved actor, not a query parameter.
func (h *ReadinessHandler) History(w http.ResponseWriter, r *http.Request) {
	actor, err := h.identity.Resolve(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	params := r.URL.Query()
	q := &readiness.HistoryQuery{UserID: actor}

	if q.Limit, err = parseIntParam(params.Get("limit")); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if q.FromDate, err = parseTimeParam(params.Get("from")); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	evals, err := h.aggregator.History(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{
		Evaluations: evals,
		Count:       len(evals),
		FetchedAt:   time.Now().UTC(),
	})
}

type historyResponse struct {
	Evaluations []*readiness.Evaluation `json:"evaluations"`
	Count       int                     `json:"count"`
	FetchedAt   time.Time               `json:"fetched_at"`
}

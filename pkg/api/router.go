package api

import (
	"encoding/json"
	"net/http"
	"time"

	"mercator-hq/themis/pkg/decision"
	"mercator-hq/themis/pkg/readiness"
)

// Router builds the engine's HTTP handler tree.
type Router struct {
	decisions *DecisionHandler
	readiness *ReadinessHandler

	// Metrics, when set, is mounted at MetricsPath.
	Metrics     http.Handler
	MetricsPath string
}

// NewRouter wires handlers for the decision service and readiness
// aggregator using the given identity resolver.
func NewRouter(svc *decision.Service, agg *readiness.Aggregator, identity ActorIdentityResolver) *Router {
	return &Router{
		decisions: NewDecisionHandler(svc, identity),
		readiness: NewReadinessHandler(agg, identity),
	}
}

// Handler returns the complete HTTP handler with the middleware chain
// applied.
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()

	// Decision lifecycle
	mux.HandleFunc("POST /v1/decisions", rt.decisions.Create)
	mux.HandleFunc("GET /v1/decisions", rt.decisions.Query)
	mux.HandleFunc("GET /v1/decisions/active", rt.decisions.GetActive)
	mux.HandleFunc("GET /v1/decisions/{id}", rt.decisions.Get)
	mux.HandleFunc("POST /v1/decisions/{id}/supersede", rt.decisions.Update)

	// Readiness
	mux.HandleFunc("POST /v1/readiness/evaluations", rt.readiness.Evaluate)
	mux.HandleFunc("GET /v1/readiness/evaluations", rt.readiness.History)
	mux.HandleFunc("GET /v1/readiness/evaluations/{id}", rt.readiness.Get)

	// Operational
	mux.HandleFunc("GET /health", handleHealth)
	if rt.Metrics != nil {
		path := rt.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, rt.Metrics)
	}

	var handler http.Handler = mux
	handler = LoggingMiddleware(handler)
	handler = RequestIDMiddleware(handler)
	handler = RecoveryMiddleware(handler)
	return handler
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

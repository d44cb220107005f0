package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"mercator-hq/themis/pkg/decision"
	"mercator-hq/themis/pkg/policy"
	"mercator-hq/themis/pkg/readiness"
)

// errorResponse is the JSON error envelope for all failed requests.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	// Code is a stable machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable explanation.
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError maps the domain error taxonomy to HTTP status codes. Internal
// failures are logged with detail but reported to clients generically.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		unauthorized  *UnauthorizedError
		decValidation *decision.ValidationError
		decNotFound   *decision.NotFoundError
		superseded    *decision.SupersededError
		unknownStep   *policy.UnknownStepError
		badEvidence   *policy.EvidenceValidationError
		readyValid    *readiness.ValidationError
		readyNotFound *readiness.NotFoundError
	)

	switch {
	case errors.As(err, &unauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: errorBody{
			Code:    "unauthorized",
			Message: unauthorized.Error(),
		}})
	case errors.As(err, &decValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
			Code:    "validation_failed",
			Message: decValidation.Error(),
		}})
	case errors.As(err, &unknownStep):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
			Code:    "unknown_step",
			Message: unknownStep.Error(),
		}})
	case errors.As(err, &badEvidence):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
			Code:    "invalid_evidence",
			Message: badEvidence.Error(),
		}})
	case errors.As(err, &readyValid):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
			Code:    "validation_failed",
			Message: readyValid.Error(),
		}})
	case errors.As(err, &decNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: errorBody{
			Code:    "not_found",
			Message: decNotFound.Error(),
		}})
	case errors.As(err, &readyNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: errorBody{
			Code:    "not_found",
			Message: readyNotFound.Error(),
		}})
	case errors.As(err, &superseded):
		writeJSON(w, http.StatusConflict, errorResponse{Error: errorBody{
			Code:    "superseded",
			Message: superseded.Error(),
		}})
	default:
		slog.ErrorContext(r.Context(), "internal error",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errorBody{
			Code:    "internal",
			Message: "an internal error occurred",
		}})
	}
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
		Code:    "invalid_request",
		Message: message,
	}})
}

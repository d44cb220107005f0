package api

import (
	"fmt"
	"net/http"
)

// ActorIdentityResolver resolves the acting identity from a request. The
// domain layers below receive the resolved actor as a plain string and never
// consult transport state themselves.
type ActorIdentityResolver interface {
	// Resolve returns the actor identity for the request, or an
	// UnauthorizedError when none can be established.
	Resolve(r *http.Request) (string, error)
}

// UnauthorizedError indicates a request with no resolvable actor identity.
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized: %s", e.Reason)
}

// HeaderIdentityResolver resolves the actor from a trusted request header,
// the deployment mode where an upstream gateway has already authenticated
// the caller.
type HeaderIdentityResolver struct {
	// Header is the header carrying the actor identity. Defaults to
	// X-Actor-ID when empty.
	Header string
}

// Resolve implements ActorIdentityResolver.
func (h *HeaderIdentityResolver) Resolve(r *http.Request) (string, error) {
	header := h.Header
	if header == "" {
		header = "X-Actor-ID"
	}
	actor := r.Header.Get(header)
	if actor == "" {
		return "", &UnauthorizedError{Reason: fmt.Sprintf("missing %s header", header)}
	}
	return actor, nil
}

// StaticIdentityResolver always resolves to a fixed actor. Used for local
// development and tests.
type StaticIdentityResolver struct {
	Actor string
}

// Resolve implements ActorIdentityResolver.
func (s *StaticIdentityResolver) Resolve(*http.Request) (string, error) {
	if s.Actor == "" {
		return "", &UnauthorizedError{Reason: "no static actor configured"}
	}
	return s.Actor, nil
}

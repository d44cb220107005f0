package evaluators

import (
	"context"

	"mercator-hq/themis/pkg/readiness"
)

// EntitlementChecker reports whether a user is entitled to an operation.
// It is an external collaborator; the engine consumes it as-is.
type EntitlementChecker interface {
	Check(ctx context.Context, userID, operation string) (*readiness.CategoryResult, error)
}

// AccountReadinessChecker reports whether a user's account state allows
// proceeding (funded, not suspended, required setup complete).
type AccountReadinessChecker interface {
	Check(ctx context.Context, userID string) (*readiness.CategoryResult, error)
}

// IdentityVerificationReader reports the user's identity verification
// status. The engine never performs verification itself.
type IdentityVerificationReader interface {
	GetStatus(ctx context.Context, userID string) (*readiness.CategoryResult, error)
}

// WhitelistEligibilityChecker reports whether the user may transfer the
// proposed token.
type WhitelistEligibilityChecker interface {
	Check(ctx context.Context, userID, tokenType, network string) (*readiness.CategoryResult, error)
}

// IntegrationHealthProbe reports the health of the network integration a
// launch would depend on.
type IntegrationHealthProbe interface {
	Check(ctx context.Context, network string) (*readiness.CategoryResult, error)
}

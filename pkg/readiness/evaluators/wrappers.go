package evaluators

import (
	"context"

	"mercator-hq/themis/pkg/catalog"
	"mercator-hq/themis/pkg/readiness"
)

// normalize stamps the category onto a collaborator's result and fills a
// default severity for failures that arrive without one.
func normalize(result *readiness.CategoryResult, cat readiness.Category) *readiness.CategoryResult {
	result.Category = cat
	if !result.Passed && result.Severity == "" {
		result.Severity = catalog.SeverityHigh
	}
	return result
}

// Entitlement evaluates the entitlement category through an external
// checker.
type Entitlement struct {
	Checker   EntitlementChecker
	Operation string
}

// Category implements readiness.CategoryEvaluator.
func (e *Entitlement) Category() readiness.Category { return readiness.CategoryEntitlement }

// Mandatory implements readiness.CategoryEvaluator.
func (e *Entitlement) Mandatory() bool { return true }

// Evaluate implements readiness.CategoryEvaluator.
func (e *Entitlement) Evaluate(ctx context.Context, req *readiness.Request) (*readiness.CategoryResult, error) {
	result, err := e.Checker.Check(ctx, req.UserID, e.Operation)
	if err != nil {
		return nil, err
	}
	return normalize(result, e.Category()), nil
}

// AccountReadiness evaluates the account state category.
type AccountReadiness struct {
	Checker AccountReadinessChecker
}

// Category implements readiness.CategoryEvaluator.
func (e *AccountReadiness) Category() readiness.Category { return readiness.CategoryAccountReadiness }

// Mandatory implements readiness.CategoryEvaluator.
func (e *AccountReadiness) Mandatory() bool { return true }

// Evaluate implements readiness.CategoryEvaluator.
func (e *AccountReadiness) Evaluate(ctx context.Context, req *readiness.Request) (*readiness.CategoryResult, error) {
	result, err := e.Checker.Check(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	return normalize(result, e.Category()), nil
}

// IdentityVerification evaluates the identity category by reading the
// upstream verification status.
type IdentityVerification struct {
	Reader IdentityVerificationReader
}

// Category implements readiness.CategoryEvaluator.
func (e *IdentityVerification) Category() readiness.Category {
	return readiness.CategoryIdentityVerification
}

// Mandatory implements readiness.CategoryEvaluator.
func (e *IdentityVerification) Mandatory() bool { return true }

// Evaluate implements readiness.CategoryEvaluator.
func (e *IdentityVerification) Evaluate(ctx context.Context, req *readiness.Request) (*readiness.CategoryResult, error) {
	result, err := e.Reader.GetStatus(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	return normalize(result, e.Category()), nil
}

// TransferEligibility evaluates the whitelist/transfer category.
type TransferEligibility struct {
	Checker WhitelistEligibilityChecker
}

// Category implements readiness.CategoryEvaluator.
func (e *TransferEligibility) Category() readiness.Category {
	return readiness.CategoryTransferEligibility
}

// Mandatory implements readiness.CategoryEvaluator.
func (e *TransferEligibility) Mandatory() bool { return false }

// Evaluate implements readiness.CategoryEvaluator.
func (e *TransferEligibility) Evaluate(ctx context.Context, req *readiness.Request) (*readiness.CategoryResult, error) {
	result, err := e.Checker.Check(ctx, req.UserID, req.TokenType, req.Network)
	if err != nil {
		return nil, err
	}
	return normalize(result, e.Category()), nil
}

// IntegrationHealth evaluates the network integration category.
type IntegrationHealth struct {
	Probe IntegrationHealthProbe
}

// Category implements readiness.CategoryEvaluator.
func (e *IntegrationHealth) Category() readiness.Category {
	return readiness.CategoryIntegrationHealth
}

// Mandatory implements readiness.CategoryEvaluator.
func (e *IntegrationHealth) Mandatory() bool { return false }

// Evaluate implements readiness.CategoryEvaluator.
func (e *IntegrationHealth) Evaluate(ctx context.Context, req *readiness.Request) (*readiness.CategoryResult, error) {
	result, err := e.Probe.Check(ctx, req.Network)
	if err != nil {
		return nil, err
	}
	return normalize(result, e.Category()), nil
}

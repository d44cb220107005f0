// Themis is a decision and readiness evaluation engine for regulated
// onboarding and token launch workflows.
//
// It evaluates evidence against published policy rule versions, records
// immutable compliance decisions with idempotent creation and supersession,
// aggregates multi-category launch readiness, and checks jurisdiction
// rule sets.
//
// Usage:
//
//	# Start the engine with default configuration
//	themis run
//
//	# Start with a custom configuration file
//	themis run --config /path/to/config.yaml
//
//	# Show version information
//	themis version
//
//	# Validate a policy rule file
//	themis rules lint --file policy-rules.yaml
//
//	# Query the decision database
//	themis decisions query --org org-123 --step kyc_verification
package main

func main() {
	Execute()
}

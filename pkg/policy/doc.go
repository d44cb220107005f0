// Package policy evaluates submitted evidence against the versioned rule
// catalog for a lifecycle step.
//
// Evaluation is a pure function of (catalog snapshot, evidence set): it has
// no side effects and returns byte-identical results for identical inputs,
// which is what makes decision records reproducible and the idempotent
// create path safe to retry.
//
// # Outcome derivation
//
// Outcomes are derived in strict priority order:
//
//  1. Any unmet mandatory rule without conditional allowance → Rejected
//  2. Unmet mandatory rules, all allowing conditional pass → ConditionalApproval
//  3. Mandatory rules met but evidence still pending → RequiresManualReview
//  4. Everything met → Approved
//
// Non-mandatory unmet rules never block; they surface as failed rule
// results and remediation actions only.
package policy

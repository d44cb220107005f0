// Package jurisdiction evaluates a token's jurisdiction assignments
// against per-jurisdiction regulatory requirement sets.
//
// A token is assigned to zero or more jurisdictions per network. When no
// assignment exists, evaluation falls back to the GLOBAL baseline rule set
// so a token is never evaluated against nothing.
//
// Requirement checks reuse the pass/fail/partial/not-applicable vocabulary
// of the policy evaluator and aggregate to a compliance level:
//
//   - Compliant: every mandatory requirement passed
//   - PartiallyCompliant: mandatory results are mixed
//   - NonCompliant: every mandatory requirement failed
//   - Unknown: nothing was evaluable
package jurisdiction

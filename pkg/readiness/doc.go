// Package readiness aggregates independent category evaluators into one
// launch-readiness verdict with ordered remediation guidance.
//
// # Fan-out
//
// Each enabled category evaluator runs in its own goroutine under a
// per-category timeout. A slow or failing evaluator degrades its own
// category to an unknown, non-blocking result; it never stalls or aborts
// the aggregation. Categories whose timeouts are configured as critical
// block instead.
//
// # Merge law
//
// Status is derived in strict priority order:
//
//  1. Any mandatory category failing with critical severity → Blocked
//  2. Any category requesting manual review → NeedsReview
//  3. Any other failure → Warning (can still proceed)
//  4. Otherwise → Ready
//
// The merge uses only the declared sort keys; rerunning with identical
// category results yields an identical evaluation apart from its ID and
// timestamps.
//
// # Remediation
//
// Every failing category contributes one remediation task built from its
// own guidance. Tasks are ordered by severity descending, then estimated
// resolution hours ascending, then category. Dependency edges between
// tasks come from a fixed policy table, not inference.
package readiness

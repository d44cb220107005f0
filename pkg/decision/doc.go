// Package decision manages the immutable compliance decision lifecycle:
// idempotent creation, supersession, review scheduling, and audit queries.
//
// # Immutability
//
// A decision is write-once. The only fields ever mutated after creation are
// the two supersession fields, flipped atomically when a newer decision
// replaces the record. Expiry is computed at read time from expires_at and
// never mutates the row.
//
// # Idempotency
//
// Create computes a dedup key from the canonical form of
// (organization, step, policy version, evidence set). A retry carrying the
// same key within the dedup window returns the original decision without
// re-evaluating policy or writing a new row. The storage backend guards the
// check-then-insert so that two concurrent identical requests yield exactly
// one persisted decision.
//
// # Supersession
//
// Update creates a replacement decision through the same evaluation path as
// Create, then flips the old record's supersession fields in the same
// transaction as the insert. Readers never observe one half of the swap.
// Updating a decision that is already superseded is rejected to keep audit
// chains unambiguous.
package decision

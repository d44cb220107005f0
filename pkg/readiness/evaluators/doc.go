// Package evaluators contains the category evaluators consulted by the
// readiness aggregator.
//
// Most categories wrap an external collaborator behind a narrow interface
// (entitlement, account state, identity verification, whitelist
// eligibility, integration health); the engine trusts what the
// collaborator reports and only normalizes it into a category result. The
// compliance and jurisdiction categories are evaluated in-process: one
// against the latest active compliance decision, the other against the
// jurisdiction rule sets.
package evaluators

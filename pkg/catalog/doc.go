// Package catalog provides the versioned policy rule catalog used by the
// decision engine. Rules are grouped into immutable snapshots, each published
// under a unique policy version. A snapshot is never mutated after publish;
// rule changes are rolled out by publishing a new snapshot and flipping the
// active version pointer.
//
// # Snapshots
//
// A snapshot contains every rule that applies under one policy version,
// indexed by lifecycle step. Lookups at request time are read-only and
// require no locking beyond the catalog's version pointer.
//
// # Publishing
//
//	Rule file (YAML) → Loader → Snapshot → Catalog.Publish
//
// Publishing is additive: a version that already exists is rejected rather
// than replaced, preserving the audit meaning of a policy version recorded
// on a historical decision.
//
// # Watching
//
// The Watcher observes a catalog directory with fsnotify and re-publishes
// changed rule files as new snapshots after a debounce interval.
package catalog

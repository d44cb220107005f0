// Package storage provides persistence backends for decision records.
//
// Two backends are available:
//
//   - MemoryStorage: in-memory map, for tests and ephemeral runs
//   - SQLiteStorage: durable backend with WAL mode and a unique dedup index
//
// Both guard the idempotent insert and the supersession swap so that
// concurrent identical creates yield exactly one row and readers never see
// a half-superseded pair.
package storage

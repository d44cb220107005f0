// Package storage provides persistence backends for readiness
// evaluations. Evaluations are append-only: there is no update or delete
// path, only insert, point lookup, and per-user history.
package storage

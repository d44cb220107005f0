// Package api exposes the engine's HTTP surface: decision lifecycle
// operations under /v1/decisions and readiness operations under
// /v1/readiness. Handlers translate the domain error taxonomy to HTTP
// status codes; actor identity is resolved at this boundary and passed down
// as plain strings.
package api

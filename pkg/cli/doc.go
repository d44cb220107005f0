// Package cli provides shared helpers for the themis command-line
// interface, currently output formatting for commands that support both
// human-readable and machine-readable output.
package cli

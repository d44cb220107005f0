package catalog

import "fmt"

// LoadError reports a rule file that could not be parsed or validated.
type LoadError struct {
	Path  string // File that failed to load
	Cause error  // Underlying error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("catalog load error [path=%s]: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// NewLoadError creates a new LoadError.
func NewLoadError(path string, cause error) *LoadError {
	return &LoadError{Path: path, Cause: cause}
}

// DuplicateVersionError reports an attempt to publish a snapshot under a
// version that already exists.
type DuplicateVersionError struct {
	Version string
}

// Error implements the error interface.
func (e *DuplicateVersionError) Error() string {
	return fmt.Sprintf("policy version %q is already published", e.Version)
}

// UnknownVersionError reports a lookup for a version that was never
// published.
type UnknownVersionError struct {
	Version string
}

// Error implements the error interface.
func (e *UnknownVersionError) Error() string {
	return fmt.Sprintf("unknown policy version %q", e.Version)
}

package decision

import "fmt"

// ValidationError reports a create or update request the caller can fix.
type ValidationError struct {
	Field   string // Offending field
	Message string // What is wrong with it
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request [field=%s]: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports a decision ID or active-decision lookup that
// resolved to nothing.
type NotFoundError struct {
	Resource string // "decision" or "active decision"
	Key      string // Lookup key that missed
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, key string) *NotFoundError {
	return &NotFoundError{Resource: resource, Key: key}
}

// SupersededError reports an update attempt against a decision that has
// already been replaced. Chained supersession is rejected to keep the
// audit history a single linear chain.
type SupersededError struct {
	DecisionID   string // Decision the caller tried to update
	SupersededBy string // Decision that already replaced it
}

// Error implements the error interface.
func (e *SupersededError) Error() string {
	return fmt.Sprintf("decision %s is already superseded by %s and cannot be updated again",
		e.DecisionID, e.SupersededBy)
}

// StorageError wraps a failure in the persistence backend.
type StorageError struct {
	Backend   string // Storage backend ("sqlite", "memory")
	Operation string // Operation that failed
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("decision storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

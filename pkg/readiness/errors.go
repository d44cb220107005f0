package readiness

import "fmt"

// ValidationError reports a readiness request the caller can fix.
type ValidationError struct {
	Field   string // Offending field
	Message string // What is wrong with it
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid readiness request [field=%s]: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports an evaluation ID that resolved to nothing.
type NotFoundError struct {
	EvaluationID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("readiness evaluation not found: %s", e.EvaluationID)
}

// StorageError wraps a failure in the persistence backend.
type StorageError struct {
	Backend   string // Storage backend ("sqlite", "memory")
	Operation string // Operation that failed
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("readiness storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

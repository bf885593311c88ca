package domain

import "fmt"

// ValidationError reports malformed or missing input. It is always returned
// before anything is persisted.
type ValidationError struct {
	Field string
	msg   string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, msg: msg}
}

// DependencyError wraps a failure of an external collaborator (storage,
// notifier) so callers can tell it apart from caller mistakes.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

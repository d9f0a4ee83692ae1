package mastery

import (
	"errors"
	"fmt"
)

var (
	// ErrStructureMissing means the lesson has no atomic decomposition. The
	// orchestrator reports it as an outcome, not a failure.
	ErrStructureMissing = errors.New("lesson structure missing")

	// ErrInvalidInput means the request was rejected before any state was
	// touched.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransientFailure means concurrent writers kept winning and the
	// retry budget ran out. Safe to retry from scratch.
	ErrTransientFailure = errors.New("transient failure")

	// ErrPersistence means the store could not be read or written. The
	// update was not applied.
	ErrPersistence = errors.New("persistence failure")
)

// InputError describes a rejected field.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field, format string, args ...any) error {
	return &InputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// PersistenceError wraps a store failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both the sentinel and the cause.
func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the root of every "no record for this key" error.
	ErrNotFound = errors.New("not found")
	// ErrRunningLogNotFound is returned when a user has no running log yet.
	ErrRunningLogNotFound = fmt.Errorf("running log %w", ErrNotFound)
	// ErrMarathonNotFound is returned when a marathon cannot be located.
	ErrMarathonNotFound = fmt.Errorf("marathon %w", ErrNotFound)
)

// ValidationError reports missing or malformed caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StoreError wraps a persistence failure with the operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

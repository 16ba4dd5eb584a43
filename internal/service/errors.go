package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when input validation fails (e.g. a blank question).
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrConfiguration is returned for invalid configuration detected at startup
	// or on first use (e.g. chunker overlap >= max size).
	ErrConfiguration = errors.New("configuration error")
	// ErrDependencyUnavailable is returned when the embedding or generation
	// backend cannot be reached. The failed operation is safe to retry.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	// ErrDimensionMismatch is returned when a vector's length disagrees with
	// the store's configured dimension. The write is rejected, never truncated.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrExternalService is returned when an external service call fails
	// in a way that is not a reachability problem.
	ErrExternalService = errors.New("external service error")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Unwrap makes ValidationError match ErrInvalidInput under errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

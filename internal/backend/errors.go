package backend

import (
	"errors"
	"fmt"
)

// PersistenceErrorCode categorizes persistence failures.
type PersistenceErrorCode string

const (
	// ErrCodeConstraintViolation indicates a write broke a schema constraint.
	ErrCodeConstraintViolation PersistenceErrorCode = "CONSTRAINT_VIOLATION"

	// ErrCodeIOFailure indicates the underlying storage failed.
	ErrCodeIOFailure PersistenceErrorCode = "IO_FAILURE"

	// ErrCodeBackendClosed indicates an operation on a closed backend.
	ErrCodeBackendClosed PersistenceErrorCode = "BACKEND_CLOSED"
)

// PersistenceError represents a failed write, delete, or read against a
// backend. It propagates to the direct caller as a value; nothing at this
// layer swallows it.
type PersistenceError struct {
	// Code identifies the error category.
	Code PersistenceErrorCode

	// Op names the failing operation ("write", "delete", "read all").
	Op string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Op)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewConstraintError creates a PersistenceError for a constraint violation.
func NewConstraintError(op string, err error) *PersistenceError {
	return &PersistenceError{Code: ErrCodeConstraintViolation, Op: op, Err: err}
}

// NewIOError creates a PersistenceError for an I/O failure.
func NewIOError(op string, err error) *PersistenceError {
	return &PersistenceError{Code: ErrCodeIOFailure, Op: op, Err: err}
}

// NewClosedError creates a PersistenceError for use of a closed backend.
func NewClosedError(op string) *PersistenceError {
	return &PersistenceError{Code: ErrCodeBackendClosed, Op: op}
}

// IsConstraintViolation reports whether err is a constraint violation.
// Uses errors.As to handle wrapped errors.
func IsConstraintViolation(err error) bool {
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeConstraintViolation
	}
	return false
}

// IsBackendClosed reports whether err indicates a closed backend.
func IsBackendClosed(err error) bool {
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeBackendClosed
	}
	return false
}

// ObservationError represents a failed evaluation of a live query. It is
// surfaced to the subscription's error handler exactly once per failed
// evaluation; the stream itself keeps running. Consumers substitute an
// empty result rather than tearing down the view.
type ObservationError struct {
	// Query is the live query that failed to evaluate.
	Query Query

	// Err is the underlying evaluation failure.
	Err error
}

// Error implements the error interface.
func (e *ObservationError) Error() string {
	return fmt.Sprintf("observation failed (ordering=%s): %v", e.Query.Ordering, e.Err)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *ObservationError) Unwrap() error {
	return e.Err
}

// IsObservationError reports whether err wraps a failed live-query
// evaluation.
func IsObservationError(err error) bool {
	var oe *ObservationError
	return errors.As(err, &oe)
}

// Package apperr defines the error taxonomy shared by the service layer
// and the HTTP edge. Handlers match with errors.As and map each class to
// a distinct status code so the front end can tell "not eligible" apart
// from "bad input".
package apperr

import "fmt"

// ValidationError: malformed answers, missing required fields. Rejected
// synchronously, never partially applied.
type ValidationError struct {
	msg string
}

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string { return e.msg }

// ConflictError: attempt quota exhausted, test locked, or a concurrent
// submission won the race. Callers must not retry automatically.
type ConflictError struct {
	msg string
}

func NewConflictError(format string, args ...interface{}) *ConflictError {
	return &ConflictError{msg: fmt.Sprintf(format, args...)}
}

func (e *ConflictError) Error() string { return e.msg }

// NotFoundError: unknown test, course, enrollment or attempt.
type NotFoundError struct {
	msg string
}

func NewNotFoundError(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{msg: fmt.Sprintf(format, args...)}
}

func (e *NotFoundError) Error() string { return e.msg }

// UpstreamTimeoutError: the course-structure fetch ran out of budget.
// Recovered locally by failing closed (total = 0); never surfaced as a
// hard failure to progress callers.
type UpstreamTimeoutError struct {
	Op  string
	Err error
}

func NewUpstreamTimeoutError(op string, err error) *UpstreamTimeoutError {
	return &UpstreamTimeoutError{Op: op, Err: err}
}

func (e *UpstreamTimeoutError) Error() string {
	return fmt.Sprintf("upstream timeout: %s: %v", e.Op, e.Err)
}

func (e *UpstreamTimeoutError) Unwrap() error { return e.Err }

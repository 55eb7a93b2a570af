package domain

import (
	"fmt"
	"strings"
)

// ValidationError rejects a batch or field update before any mutation.
type ValidationError struct {
	Message string
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Message
}

// NotFoundError reports an unknown task id.
type NotFoundError struct {
	ID string
}

func NewNotFoundError(id string) *NotFoundError {
	return &NotFoundError{ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %s not found", e.ID)
}

// StateConflictError reports an illegal status transition, a restricted
// field write on a completed task, or a blocked deletion. Blocking carries
// the ids or names responsible for the rejection.
type StateConflictError struct {
	Reason   string
	Blocking []string
}

func NewStateConflictError(reason string, blocking ...string) *StateConflictError {
	return &StateConflictError{Reason: reason, Blocking: blocking}
}

func (e *StateConflictError) Error() string {
	if len(e.Blocking) == 0 {
		return "state conflict: " + e.Reason
	}
	return fmt.Sprintf("state conflict: %s (%s)", e.Reason, strings.Join(e.Blocking, ", "))
}

// StoreIOError wraps a snapshot read or write failure. A missing snapshot is
// not an error; everything else is.
type StoreIOError struct {
	Op  string
	Err error
}

func NewStoreIOError(op string, err error) *StoreIOError {
	return &StoreIOError{Op: op, Err: err}
}

func (e *StoreIOError) Error() string {
	return fmt.Sprintf("task store %s: %v", e.Op, e.Err)
}

func (e *StoreIOError) Unwrap() error {
	return e.Err
}

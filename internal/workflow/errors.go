package workflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for lifecycle operations.
var (
	// ErrInvalidTransition is returned when the action is not legal from the
	// request's current status.
	ErrInvalidTransition = errors.New("workflow: invalid transition")

	// ErrValidation is returned when a transition payload is missing a required
	// field or violates an item invariant. Raised before any mutation.
	ErrValidation = errors.New("workflow: validation failed")

	// ErrConflict is returned when another actor changed the request between
	// read and write. The caller must refresh and re-decide.
	ErrConflict = errors.New("workflow: request was modified concurrently")

	// ErrNotFound is returned for unknown request ids.
	ErrNotFound = errors.New("workflow: request not found")
)

// Error wraps a sentinel with the action/status context surfaced to the actor.
type Error struct {
	Err     error  // underlying sentinel
	Action  string // action attempted
	Status  string // request status at the time
	Message string // human-readable detail
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func invalidTransition(action, status string) *Error {
	return &Error{
		Err:     ErrInvalidTransition,
		Action:  action,
		Status:  status,
		Message: fmt.Sprintf("cannot %s a request in status %s", action, status),
	}
}

// Validation builds a payload/invariant failure for an action
func Validation(action, format string, args ...interface{}) *Error {
	return &Error{
		Err:     ErrValidation,
		Action:  action,
		Message: fmt.Sprintf(format, args...),
	}
}

// Conflict builds the error returned to the loser of a concurrent update race
func Conflict(action, status string) *Error {
	return &Error{
		Err:     ErrConflict,
		Action:  action,
		Status:  status,
		Message: fmt.Sprintf("request is now %s; refresh and try again", status),
	}
}

package sagactx

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNilSagaContext indicates a root saga was started without a context
// object. Every step and compensation receives the context object, so
// running without one is a usage error, not a recoverable condition.
var ErrNilSagaContext = errors.New("saga requires a non-nil context object")

// ErrNilRollback indicates a step was wrapped with a nil compensation
// function. The whole point of wrapping a step is to pair it with its
// undo, so this is surfaced immediately rather than degraded to a no-op.
var ErrNilRollback = errors.New("step requires a non-nil rollback function")

// ErrRollbackNotFound indicates a named rollback function was never
// registered in the RollbackRegistry.
var ErrRollbackNotFound = errors.New("rollback function not registered")

// CompensationError aggregates the individual compensation failures
// observed during one rollback pass. Rollback itself always runs to
// completion; this error is diagnostic, carried by the RollbackReport.
type CompensationError struct {
	Errors []error
}

func (e *CompensationError) addError(err error) {
	e.Errors = append(e.Errors, err)
}

func (e *CompensationError) hasErrors() bool {
	return len(e.Errors) > 0
}

// Error implements the error interface for CompensationError.
func (e *CompensationError) Error() string {
	if !e.hasErrors() {
		return ""
	}

	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("error(s) in saga compensation: %s", strings.Join(msgs, "; "))
}

// Unwrap exposes the individual failures to errors.Is / errors.As.
func (e *CompensationError) Unwrap() []error {
	return e.Errors
}

package workflow

import "errors"

// Domain errors for the workflow package.
var (
	// ErrTimeout marks a unit that did not finish within its timeout.
	ErrTimeout = errors.New("workflow: unit timed out")

	// ErrPanic marks a unit whose body panicked.
	ErrPanic = errors.New("workflow: unit panicked")

	// ErrDuplicateEntry is returned when a schedule name is registered twice.
	ErrDuplicateEntry = errors.New("workflow: schedule entry already registered")

	// ErrEntryNotFound is returned for an unknown schedule name.
	ErrEntryNotFound = errors.New("workflow: schedule entry not found")
)

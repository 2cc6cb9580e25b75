package schedule

import "errors"

// Domain errors for the schedule package.
var (
	// ErrInvalidAnchor is returned when an anchor name is not sunrise or sunset.
	ErrInvalidAnchor = errors.New("schedule: invalid anchor")

	// ErrInvalidDirection is returned when an offset direction is not after or before.
	ErrInvalidDirection = errors.New("schedule: invalid offset direction")

	// ErrInvalidLocation is returned when site coordinates are out of range.
	ErrInvalidLocation = errors.New("schedule: invalid location")
)

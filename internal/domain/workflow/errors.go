package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a trigger is not permitted from the current state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when every transition for a trigger is rejected by its guard
	ErrGuardFailed = errors.New("guard condition failed")
)

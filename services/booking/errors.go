package booking

import (
	"errors"
	"fmt"
)

// ValidationError flags one malformed qualification field. Handled inside
// the state machine by re-prompting the same field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// EmptyAvailabilityError means the requested window holds no bookable
// slots; the caller widens the window or asks for a new preference.
type EmptyAvailabilityError struct {
	Window string
}

func (e *EmptyAvailabilityError) Error() string {
	return fmt.Sprintf("no available slots in window %s", e.Window)
}

// StaleSelectionError means the user referenced a slot that is not in the
// current proposal; the caller re-prompts from the current list.
type StaleSelectionError struct {
	Message string
}

func (e *StaleSelectionError) Error() string {
	return e.Message
}

// SlotConflictError means the slot was taken between proposal and commit.
// Recoverable: the caller regenerates the proposal.
type SlotConflictError struct {
	Slot string
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("slot %s is no longer available", e.Slot)
}

func IsSlotConflict(err error) bool {
	var conflict *SlotConflictError
	return errors.As(err, &conflict)
}

func IsEmptyAvailability(err error) bool {
	var empty *EmptyAvailabilityError
	return errors.As(err, &empty)
}

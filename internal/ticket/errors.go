package ticket

import "errors"

// ErrTicketNotFound is returned when no record exists for the given ID.
var ErrTicketNotFound = errors.New("ticket: not found")

// ErrIllegalTransition is returned for a state change the lifecycle does
// not permit, including any transition out of a terminal state.
var ErrIllegalTransition = errors.New("ticket: illegal state transition")

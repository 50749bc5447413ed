package booking

import "errors"

// Domain errors raised by the availability and booking engines. The
// HTTP layer maps these to client-correctable responses; everything
// else is a server fault.
var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidTime     = errors.New("invalid time")
	ErrUnknownType     = errors.New("unknown appointment type")
	ErrPastDate        = errors.New("cannot book appointments in the past")
	ErrClosedDay       = errors.New("clinic is closed on this date")
	ErrSlotUnavailable = errors.New("time slot is not available")
	ErrOutsideHours    = errors.New("time slot is outside working hours")
	ErrValidation      = errors.New("validation failed")
	ErrDateBeingBooked = errors.New("another booking for this date is in progress, please retry")
)

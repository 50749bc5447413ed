package booking

import (
	"context"
	"errors"
	"time"
)

var ErrBookingNotFound = errors.New("booking not found")

// Repository contains all ledger interactions needed by the service.
// The ledger is append-only: Cancel mutates status, nothing is removed.
type Repository interface {
	Insert(ctx context.Context, appt *Appointment) error
	GetByID(ctx context.Context, bookingID string) (*Appointment, error)
	ListConfirmedByDate(ctx context.Context, date string) ([]Appointment, error)

	// HasOverlap is the indexed conflict probe: any confirmed
	// appointment on date intersecting [startMin, endMin).
	HasOverlap(ctx context.Context, date string, startMin, endMin int) (bool, error)

	// Cancel flips a booking to cancelled. Returns false when the
	// booking id is unknown.
	Cancel(ctx context.Context, bookingID string, at time.Time) (bool, error)

	// BookingIDExists supports collision-checked id generation.
	BookingIDExists(ctx context.Context, bookingID string) (bool, error)
}

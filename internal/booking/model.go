package booking

import (
	"fmt"
	"time"

	"github.com/healthcareplus/scheduling-agent/internal/schedule"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

type Patient struct {
	Name  string
	Email string
	Phone string
}

// Appointment is one ledger entry. Records are never deleted;
// cancellation flips the status and stamps CancelledAt.
type Appointment struct {
	BookingID        string
	ConfirmationCode string
	Status           Status
	AppointmentType  string
	Date             string // YYYY-MM-DD
	StartMinute      int    // minutes since midnight, half-open [start, end)
	EndMinute        int
	Patient          Patient
	Reason           string
	CreatedAt        time.Time
	CancelledAt      *time.Time
}

func (a *Appointment) StartTime() string {
	return schedule.FormatClock(a.StartMinute)
}

func (a *Appointment) EndTime() string {
	return schedule.FormatClock(a.EndMinute)
}

// ConfirmationMessage is the human-readable confirmation handed back to
// the patient after a successful booking.
func (a *Appointment) ConfirmationMessage() string {
	return fmt.Sprintf("Your appointment has been confirmed for %s at %s. Confirmation code: %s",
		a.Date, a.StartTime(), a.ConfirmationCode)
}

// TimeSlot is an ephemeral availability candidate; it is computed per
// query and never persisted.
type TimeSlot struct {
	StartMinute int
	EndMinute   int
	Available   bool
}

func (s TimeSlot) StartTime() string {
	return schedule.FormatClock(s.StartMinute)
}

func (s TimeSlot) EndTime() string {
	return schedule.FormatClock(s.EndMinute)
}

// DayAvailability is the result of one availability query.
type DayAvailability struct {
	Date           string
	DayOfWeek      string
	Slots          []TimeSlot
	TotalSlots     int
	AvailableCount int
}

// Request carries everything needed to book a slot.
type Request struct {
	Date            string
	StartTime       string // HH:MM
	AppointmentType string
	Patient         Patient
	Reason          string
}

// overlaps reports whether two half-open minute intervals intersect.
func overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/healthcareplus/scheduling-agent/internal/redisclient"
	"github.com/healthcareplus/scheduling-agent/internal/schedule"
	"github.com/healthcareplus/scheduling-agent/pkg/logging"
)

// Service implements the availability and booking engines over the
// ledger repository and the weekly schedule template.
type Service struct {
	repo   Repository
	sched  *schedule.Template
	locker redisclient.Locker
	logger *logging.Logger
	now    func() time.Time
}

func NewService(repo Repository, sched *schedule.Template, locker redisclient.Locker, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:   repo,
		sched:  sched,
		locker: locker,
		logger: logger,
		now:    time.Now,
	}
}

// Availability computes the ordered candidate slots for a date and
// appointment type, each flagged against the confirmed ledger entries.
// It never mutates the ledger and is safe to call concurrently.
//
// Past dates, holidays, blocked dates, and sessionless weekdays yield
// an empty slot list, not an error.
func (s *Service) Availability(ctx context.Context, date, appointmentType string) (*DayAvailability, error) {
	day, err := schedule.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDate, date)
	}

	apptType, ok := s.sched.Type(appointmentType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, appointmentType)
	}

	result := &DayAvailability{
		Date:      date,
		DayOfWeek: schedule.DayName(day),
	}

	if day.Before(schedule.Today(s.now())) {
		return result, nil
	}

	sessions := s.sched.SessionsOn(day)
	if len(sessions) == 0 {
		return result, nil
	}

	confirmed, err := s.repo.ListConfirmedByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list confirmed bookings: %w", err)
	}

	duration := apptType.DurationMinutes
	step := duration + s.sched.BufferMinutes()

	for _, session := range sessions {
		for cur := session.Start; cur+duration <= session.End; cur += step {
			slot := TimeSlot{
				StartMinute: cur,
				EndMinute:   cur + duration,
				Available:   true,
			}
			for _, appt := range confirmed {
				if overlaps(slot.StartMinute, slot.EndMinute, appt.StartMinute, appt.EndMinute) {
					slot.Available = false
					break
				}
			}
			result.Slots = append(result.Slots, slot)
		}
	}

	result.TotalSlots = len(result.Slots)
	for _, slot := range result.Slots {
		if slot.Available {
			result.AvailableCount++
		}
	}

	return result, nil
}

// Book validates a requested slot and appends a confirmed appointment
// to the ledger. The conflict check and the append run inside a
// per-date lock so concurrent requests for intersecting slots cannot
// both succeed.
func (s *Service) Book(ctx context.Context, req Request) (*Appointment, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	day, err := schedule.ParseDate(req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDate, req.Date)
	}
	if day.Before(schedule.Today(s.now())) {
		return nil, ErrPastDate
	}

	apptType, ok := s.sched.Type(req.AppointmentType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, req.AppointmentType)
	}

	if !s.sched.IsWorkingDay(day) {
		return nil, fmt.Errorf("%w: %s", ErrClosedDay, req.Date)
	}

	startMin, err := schedule.ParseClock(req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTime, req.StartTime)
	}
	endMin := startMin + apptType.DurationMinutes

	var created *Appointment

	err = s.locker.WithDateLock(ctx, req.Date, func(lockCtx context.Context) error {
		conflict, err := s.repo.HasOverlap(lockCtx, req.Date, startMin, endMin)
		if err != nil {
			return fmt.Errorf("check slot overlap: %w", err)
		}
		if conflict {
			return fmt.Errorf("%w: %s", ErrSlotUnavailable, req.StartTime)
		}

		inSession := false
		for _, session := range s.sched.SessionsOn(day) {
			if session.Start <= startMin && endMin <= session.End {
				inSession = true
				break
			}
		}
		if !inSession {
			return fmt.Errorf("%w: %s", ErrOutsideHours, req.StartTime)
		}

		now := s.now()
		bookingID, err := newBookingID(lockCtx, s.repo, now)
		if err != nil {
			return err
		}

		appt := &Appointment{
			BookingID:        bookingID,
			ConfirmationCode: randomConfirmationCode(),
			Status:           StatusConfirmed,
			AppointmentType:  req.AppointmentType,
			Date:             req.Date,
			StartMinute:      startMin,
			EndMinute:        endMin,
			Patient:          req.Patient,
			Reason:           req.Reason,
			CreatedAt:        now,
		}

		if err := s.repo.Insert(lockCtx, appt); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}

		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrDateBeingBooked
		}
		return nil, err
	}

	s.logger.Info("booking confirmed",
		"booking_id", created.BookingID,
		"date", created.Date,
		"start", created.StartTime(),
		"type", created.AppointmentType,
	)

	return created, nil
}

// Cancel flips a booking to cancelled. It reports false for unknown
// ids rather than raising an error.
func (s *Service) Cancel(ctx context.Context, bookingID string) (bool, error) {
	ok, err := s.repo.Cancel(ctx, bookingID, s.now())
	if err != nil {
		return false, fmt.Errorf("cancel booking: %w", err)
	}
	if ok {
		s.logger.Info("booking cancelled", "booking_id", bookingID)
	}
	return ok, nil
}

// Get retrieves a booking by id; ErrBookingNotFound for unknown ids.
func (s *Service) Get(ctx context.Context, bookingID string) (*Appointment, error) {
	return s.repo.GetByID(ctx, bookingID)
}

// TypeInfo exposes the configured duration and display name for an
// appointment type, for confirmation payloads.
func (s *Service) TypeInfo(tag string) (schedule.AppointmentType, bool) {
	return s.sched.Type(tag)
}

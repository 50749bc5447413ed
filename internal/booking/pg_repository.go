package booking

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxQuerier is the subset of pgxpool.Pool the repository uses; tests
// substitute a pgxmock pool.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	db pgxQuerier
}

func NewPgRepository(db pgxQuerier) *PgRepository {
	return &PgRepository{db: db}
}

const bookingColumns = `booking_id, confirmation_code, status, appointment_type,
		to_char(day, 'YYYY-MM-DD'), start_min, end_min,
		patient_name, patient_email, patient_phone, reason, created_at, cancelled_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var cancelledAt *time.Time

	err := row.Scan(
		&a.BookingID,
		&a.ConfirmationCode,
		&a.Status,
		&a.AppointmentType,
		&a.Date,
		&a.StartMinute,
		&a.EndMinute,
		&a.Patient.Name,
		&a.Patient.Email,
		&a.Patient.Phone,
		&a.Reason,
		&a.CreatedAt,
		&cancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	a.CancelledAt = cancelledAt
	return &a, nil
}

func (r *PgRepository) Insert(ctx context.Context, appt *Appointment) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO bookings (
			booking_id, confirmation_code, status, appointment_type,
			day, start_min, end_min,
			patient_name, patient_email, patient_phone, reason, created_at
		) VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9, $10, $11, $12)
	`,
		appt.BookingID,
		appt.ConfirmationCode,
		appt.Status,
		appt.AppointmentType,
		appt.Date,
		appt.StartMinute,
		appt.EndMinute,
		appt.Patient.Name,
		appt.Patient.Email,
		appt.Patient.Phone,
		appt.Reason,
		appt.CreatedAt,
	)
	return err
}

func (r *PgRepository) GetByID(ctx context.Context, bookingID string) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE booking_id = $1
	`, bookingID)

	return scanAppointment(row)
}

func (r *PgRepository) ListConfirmedByDate(ctx context.Context, date string) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE day = $1::date
		  AND status = 'confirmed'
		ORDER BY start_min
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) HasOverlap(ctx context.Context, date string, startMin, endMin int) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM bookings
			WHERE day = $1::date
			  AND status = 'confirmed'
			  AND start_min < $3
			  AND $2 < end_min
		)
	`, date, startMin, endMin).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PgRepository) Cancel(ctx context.Context, bookingID string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE bookings
		SET status = $2, cancelled_at = $3
		WHERE booking_id = $1
	`, bookingID, StatusCancelled, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgRepository) BookingIDExists(ctx context.Context, bookingID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM bookings WHERE booking_id = $1)
	`, bookingID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

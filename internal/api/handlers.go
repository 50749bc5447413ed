package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/healthcareplus/scheduling-agent/internal/agent"
	"github.com/healthcareplus/scheduling-agent/internal/booking"
	"github.com/healthcareplus/scheduling-agent/internal/config"
	"github.com/healthcareplus/scheduling-agent/internal/faq"
	"github.com/healthcareplus/scheduling-agent/internal/schedule"
)

// AgentService is the conversational surface consumed by the chat and
// session endpoints.
type AgentService interface {
	Chat(ctx context.Context, message, sessionID string) *agent.ChatResult
	ResetSession(ctx context.Context, sessionID string) error
	SessionInfo(ctx context.Context, sessionID string) (*agent.SessionInfo, error)
}

// FAQService answers direct knowledge-base questions.
type FAQService interface {
	Answer(ctx context.Context, question string, includeChunks bool) *faq.Answer
}

// BookingService is the direct availability/booking surface.
type BookingService interface {
	Availability(ctx context.Context, date, appointmentType string) (*booking.DayAvailability, error)
	Book(ctx context.Context, req booking.Request) (*booking.Appointment, error)
	Cancel(ctx context.Context, bookingID string) (bool, error)
	Get(ctx context.Context, bookingID string) (*booking.Appointment, error)
	TypeInfo(tag string) (schedule.AppointmentType, bool)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func chatHandler(svc AgentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if len(req.Message) < 1 || len(req.Message) > 1000 {
			writeError(w, http.StatusBadRequest, "invalid_message", "message must be 1-1000 characters")
			return
		}
		if len(req.SessionID) < 1 || len(req.SessionID) > 100 {
			writeError(w, http.StatusBadRequest, "invalid_session_id", "session_id must be 1-100 characters")
			return
		}

		result := svc.Chat(r.Context(), req.Message, req.SessionID)

		writeJSON(w, http.StatusOK, ChatResponse{
			Response:  result.Response,
			SessionID: result.SessionID,
			Timestamp: time.Now(),
			Context:   ChatContext{ToolCalls: result.ToolCalls},
		})
	}
}

func askFAQHandler(svc FAQService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FAQRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if len(req.Question) < 3 || len(req.Question) > 500 {
			writeError(w, http.StatusBadRequest, "invalid_question", "question must be 3-500 characters")
			return
		}

		answer := svc.Answer(r.Context(), req.Question, true)
		writeJSON(w, http.StatusOK, answer)
	}
}

func resetSessionHandler(svc AgentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")

		if err := svc.ResetSession(r.Context(), sessionID); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, ResetSessionResponse{
			Message:   fmt.Sprintf("Session %s has been reset", sessionID),
			SessionID: sessionID,
		})
	}
}

func sessionInfoHandler(svc AgentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")

		info, err := svc.SessionInfo(r.Context(), sessionID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, info)
	}
}

func availabilityHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		apptType := r.URL.Query().Get("appointment_type")
		if date == "" || apptType == "" {
			writeError(w, http.StatusBadRequest, "missing_parameters", "date and appointment_type are required")
			return
		}

		day, err := svc.Availability(r.Context(), date, apptType)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		slots := make([]SlotPayload, 0, len(day.Slots))
		for _, s := range day.Slots {
			slots = append(slots, SlotPayload{
				StartTime: s.StartTime(),
				EndTime:   s.EndTime(),
				Available: s.Available,
			})
		}

		writeJSON(w, http.StatusOK, AvailabilityResponse{
			Date:           day.Date,
			DayOfWeek:      day.DayOfWeek,
			AvailableSlots: slots,
			TotalSlots:     day.TotalSlots,
			AvailableCount: day.AvailableCount,
		})
	}
}

func bookHandler(svc BookingService, clinic config.ClinicInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Book(r.Context(), booking.Request{
			Date:            req.Date,
			StartTime:       req.StartTime,
			AppointmentType: req.AppointmentType,
			Patient: booking.Patient{
				Name:  req.Patient.Name,
				Email: req.Patient.Email,
				Phone: req.Patient.Phone,
			},
			Reason: req.Reason,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		day, _ := schedule.ParseDate(appt.Date)
		details := map[string]any{
			"date":             appt.Date,
			"day":              schedule.DayName(day),
			"time":             appt.StartTime(),
			"appointment_type": appt.AppointmentType,
			"patient_name":     appt.Patient.Name,
			"patient_email":    appt.Patient.Email,
			"patient_phone":    appt.Patient.Phone,
			"reason":           appt.Reason,
			"doctor":           clinic.Doctor,
			"clinic":           clinic.Name,
			"address":          clinic.Address,
			"clinic_phone":     clinic.Phone,
		}
		if info, ok := svc.TypeInfo(appt.AppointmentType); ok {
			details["appointment_type"] = info.Name
			details["duration"] = fmt.Sprintf("%d minutes", info.DurationMinutes)
		}

		writeJSON(w, http.StatusCreated, BookingResponse{
			BookingID:        appt.BookingID,
			Status:           string(appt.Status),
			ConfirmationCode: appt.ConfirmationCode,
			Details:          details,
			Message:          appt.ConfirmationMessage(),
		})
	}
}

func getBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID := chi.URLParam(r, "bookingID")

		appt, err := svc.Get(r.Context(), bookingID)
		if err != nil {
			if errors.Is(err, booking.ErrBookingNotFound) {
				writeError(w, http.StatusNotFound, "booking_not_found", fmt.Sprintf("no booking with id %s", bookingID))
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, bookingRecord(appt))
	}
}

func cancelBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID := chi.URLParam(r, "bookingID")

		ok, err := svc.Cancel(r.Context(), bookingID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "booking_not_found", fmt.Sprintf("no booking with id %s", bookingID))
			return
		}

		writeJSON(w, http.StatusOK, CancelResponse{
			Message:   fmt.Sprintf("Booking %s has been cancelled", bookingID),
			BookingID: bookingID,
			Status:    string(booking.StatusCancelled),
		})
	}
}

func bookingRecord(appt *booking.Appointment) BookingRecordResponse {
	return BookingRecordResponse{
		BookingID:        appt.BookingID,
		ConfirmationCode: appt.ConfirmationCode,
		Status:           string(appt.Status),
		AppointmentType:  appt.AppointmentType,
		Date:             appt.Date,
		StartTime:        appt.StartTime(),
		EndTime:          appt.EndTime(),
		Patient: PatientPayload{
			Name:  appt.Patient.Name,
			Email: appt.Patient.Email,
			Phone: appt.Patient.Phone,
		},
		Reason:      appt.Reason,
		CreatedAt:   appt.CreatedAt,
		CancelledAt: appt.CancelledAt,
	}
}

// handleBookingError maps domain errors to client-correctable
// responses. Lock contention is the only conflict: the client should
// simply retry.
func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
	case errors.Is(err, booking.ErrInvalidTime):
		writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
	case errors.Is(err, booking.ErrUnknownType):
		writeError(w, http.StatusBadRequest, "unknown_appointment_type", err.Error())
	case errors.Is(err, booking.ErrPastDate):
		writeError(w, http.StatusBadRequest, "past_date", err.Error())
	case errors.Is(err, booking.ErrClosedDay):
		writeError(w, http.StatusBadRequest, "clinic_closed", err.Error())
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusBadRequest, "slot_unavailable", err.Error())
	case errors.Is(err, booking.ErrOutsideHours):
		writeError(w, http.StatusBadRequest, "outside_working_hours", err.Error())
	case errors.Is(err, booking.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, booking.ErrDateBeingBooked):
		writeError(w, http.StatusConflict, "date_being_booked", "another booking for this date is in progress, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

package agent

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/healthcareplus/scheduling-agent/internal/booking"
)

// The assistant's tool set is closed: exactly these three operations.
const (
	toolSearchFAQ         = "search_faq"
	toolCheckAvailability = "check_availability"
	toolBookAppointment   = "book_appointment"
)

type searchFAQArgs struct {
	Question string `json:"question"`
}

type checkAvailabilityArgs struct {
	Date            string `json:"date"`
	AppointmentType string `json:"appointment_type"`
}

type bookAppointmentArgs struct {
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	AppointmentType string `json:"appointment_type"`
	PatientName     string `json:"patient_name"`
	PatientEmail    string `json:"patient_email"`
	PatientPhone    string `json:"patient_phone"`
	Reason          string `json:"reason"`
}

func toolDefinitions() []openai.Tool {
	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolSearchFAQ,
				Description: "Search the clinic's knowledge base for information about policies, services, insurance, hours, location, etc. Use this whenever the patient asks a question about the clinic.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"question": {
							"type": "string",
							"description": "The patient's question about the clinic"
						}
					},
					"required": ["question"]
				}`),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolCheckAvailability,
				Description: "Check available appointment slots for a specific date and appointment type. Use this when the patient wants to schedule an appointment and you need to show them available times.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"date": {
							"type": "string",
							"description": "Date in YYYY-MM-DD format (e.g., '2026-01-15')"
						},
						"appointment_type": {
							"type": "string",
							"enum": ["consultation", "followup", "physical", "specialist"],
							"description": "Type of appointment: consultation (30min), followup (15min), physical (45min), specialist (60min)"
						}
					},
					"required": ["date", "appointment_type"]
				}`),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolBookAppointment,
				Description: "Book an appointment after collecting all required information and getting patient confirmation. Only use this when you have: date, time, appointment type, patient name, phone, email, and reason.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"date": {
							"type": "string",
							"description": "Date in YYYY-MM-DD format"
						},
						"start_time": {
							"type": "string",
							"description": "Start time in HH:MM format (24-hour, e.g., '14:00' for 2 PM)"
						},
						"appointment_type": {
							"type": "string",
							"enum": ["consultation", "followup", "physical", "specialist"],
							"description": "Type of appointment"
						},
						"patient_name": {
							"type": "string",
							"description": "Patient's full name"
						},
						"patient_email": {
							"type": "string",
							"description": "Patient's email address"
						},
						"patient_phone": {
							"type": "string",
							"description": "Patient's phone number"
						},
						"reason": {
							"type": "string",
							"description": "Brief reason for visit"
						}
					},
					"required": ["date", "start_time", "appointment_type", "patient_name", "patient_email", "patient_phone", "reason"]
				}`),
			},
		},
	}
}

// executeToolCall dispatches one requested tool call. Failures are
// folded into the returned payload so the model can phrase a graceful
// explanation; they never abort the surrounding turn.
func (s *Service) executeToolCall(ctx context.Context, call openai.ToolCall) map[string]any {
	switch call.Function.Name {
	case toolSearchFAQ:
		var args searchFAQArgs
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return toolArgsError(call.Function.Name, err)
		}
		answer := s.faq.Answer(ctx, args.Question, false)
		return map[string]any{
			"answer":     answer.Answer,
			"confidence": answer.Confidence,
			"sources":    answer.Sources,
		}

	case toolCheckAvailability:
		var args checkAvailabilityArgs
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return toolArgsError(call.Function.Name, err)
		}
		return s.checkAvailability(ctx, args)

	case toolBookAppointment:
		var args bookAppointmentArgs
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return toolArgsError(call.Function.Name, err)
		}
		return s.bookAppointment(ctx, args)

	default:
		return map[string]any{"error": fmt.Sprintf("Unknown tool: %s", call.Function.Name)}
	}
}

func toolArgsError(tool string, err error) map[string]any {
	return map[string]any{"error": fmt.Sprintf("invalid arguments for %s: %v", tool, err)}
}

func (s *Service) checkAvailability(ctx context.Context, args checkAvailabilityArgs) map[string]any {
	day, err := s.scheduler.Availability(ctx, args.Date, args.AppointmentType)
	if err != nil {
		return map[string]any{
			"error":           err.Error(),
			"date":            args.Date,
			"available_slots": []any{},
			"available_count": 0,
		}
	}

	available := make([]map[string]any, 0, len(day.Slots))
	for _, slot := range day.Slots {
		if !slot.Available {
			continue
		}
		available = append(available, map[string]any{
			"start_time":   slot.StartTime(),
			"end_time":     slot.EndTime(),
			"display_time": displayTime(slot.StartMinute),
		})
	}

	result := map[string]any{
		"date":            day.Date,
		"day_of_week":     day.DayOfWeek,
		"total_slots":     day.TotalSlots,
		"available_count": len(available),
		"available_slots": available,
	}

	if len(available) == 0 {
		result["message"] = fmt.Sprintf("No available slots on %s, %s", day.DayOfWeek, day.Date)
	} else {
		result["message"] = fmt.Sprintf("Found %d available slots on %s, %s", len(available), day.DayOfWeek, day.Date)
	}

	return result
}

func (s *Service) bookAppointment(ctx context.Context, args bookAppointmentArgs) map[string]any {
	appt, err := s.scheduler.Book(ctx, booking.Request{
		Date:            args.Date,
		StartTime:       args.StartTime,
		AppointmentType: args.AppointmentType,
		Patient: booking.Patient{
			Name:  args.PatientName,
			Email: args.PatientEmail,
			Phone: args.PatientPhone,
		},
		Reason: args.Reason,
	})
	if err != nil {
		return map[string]any{
			"success": false,
			"error":   err.Error(),
			"message": fmt.Sprintf("Booking failed: %v", err),
		}
	}

	details := map[string]any{
		"date":             appt.Date,
		"time":             appt.StartTime(),
		"appointment_type": appt.AppointmentType,
		"patient_name":     appt.Patient.Name,
		"patient_email":    appt.Patient.Email,
		"patient_phone":    appt.Patient.Phone,
		"reason":           appt.Reason,
		"doctor":           s.clinic.Doctor,
		"clinic":           s.clinic.Name,
		"address":          s.clinic.Address,
		"clinic_phone":     s.clinic.Phone,
	}
	if info, ok := s.scheduler.TypeInfo(appt.AppointmentType); ok {
		details["appointment_type"] = info.Name
		details["duration"] = fmt.Sprintf("%d minutes", info.DurationMinutes)
	}

	return map[string]any{
		"success":           true,
		"booking_id":        appt.BookingID,
		"confirmation_code": appt.ConfirmationCode,
		"status":            string(appt.Status),
		"details":           details,
		"message":           appt.ConfirmationMessage(),
	}
}

package api

import (
	"time"
)

type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type ChatContext struct {
	ToolCalls []string `json:"tool_calls"`
}

type ChatResponse struct {
	Response  string      `json:"response"`
	SessionID string      `json:"session_id"`
	Timestamp time.Time   `json:"timestamp"`
	Context   ChatContext `json:"context"`
}

type FAQRequest struct {
	Question string `json:"question"`
}

type ResetSessionResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type SlotPayload struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
}

type AvailabilityResponse struct {
	Date           string        `json:"date"`
	DayOfWeek      string        `json:"day_of_week"`
	AvailableSlots []SlotPayload `json:"available_slots"`
	TotalSlots     int           `json:"total_slots"`
	AvailableCount int           `json:"available_count"`
}

type PatientPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type BookingRequest struct {
	AppointmentType string         `json:"appointment_type"`
	Date            string         `json:"date"`
	StartTime       string         `json:"start_time"`
	Patient         PatientPayload `json:"patient"`
	Reason          string         `json:"reason"`
}

type BookingResponse struct {
	BookingID        string         `json:"booking_id"`
	Status           string         `json:"status"`
	ConfirmationCode string         `json:"confirmation_code"`
	Details          map[string]any `json:"details"`
	Message          string         `json:"message"`
}

type BookingRecordResponse struct {
	BookingID        string         `json:"booking_id"`
	ConfirmationCode string         `json:"confirmation_code"`
	Status           string         `json:"status"`
	AppointmentType  string         `json:"appointment_type"`
	Date             string         `json:"date"`
	StartTime        string         `json:"start_time"`
	EndTime          string         `json:"end_time"`
	Patient          PatientPayload `json:"patient"`
	Reason           string         `json:"reason"`
	CreatedAt        time.Time      `json:"created_at"`
	CancelledAt      *time.Time     `json:"cancelled_at,omitempty"`
}

type CancelResponse struct {
	Message   string `json:"message"`
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

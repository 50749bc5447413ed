package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthcareplus/scheduling-agent/internal/agent"
	"github.com/healthcareplus/scheduling-agent/internal/booking"
	"github.com/healthcareplus/scheduling-agent/internal/config"
	"github.com/healthcareplus/scheduling-agent/internal/faq"
	"github.com/healthcareplus/scheduling-agent/internal/schedule"
)

type fakeAgent struct {
	result     *agent.ChatResult
	resetErr   error
	resetCalls []string
	info       *agent.SessionInfo
}

func (f *fakeAgent) Chat(ctx context.Context, message, sessionID string) *agent.ChatResult {
	if f.result != nil {
		return f.result
	}
	return &agent.ChatResult{Response: "ok", SessionID: sessionID, ToolCalls: []string{}}
}

func (f *fakeAgent) ResetSession(ctx context.Context, sessionID string) error {
	f.resetCalls = append(f.resetCalls, sessionID)
	return f.resetErr
}

func (f *fakeAgent) SessionInfo(ctx context.Context, sessionID string) (*agent.SessionInfo, error) {
	if f.info != nil {
		return f.info, nil
	}
	return &agent.SessionInfo{SessionID: sessionID, LastMessages: []agent.Message{}}, nil
}

type fakeFAQSvc struct {
	answer *faq.Answer
}

func (f *fakeFAQSvc) Answer(ctx context.Context, question string, includeChunks bool) *faq.Answer {
	return f.answer
}

type fakeBookingSvc struct {
	availability *booking.DayAvailability
	availErr     error
	appt         *booking.Appointment
	bookErr      error
	getErr       error
	cancelOK     bool
	cancelErr    error
}

func (f *fakeBookingSvc) Availability(ctx context.Context, date, appointmentType string) (*booking.DayAvailability, error) {
	if f.availErr != nil {
		return nil, f.availErr
	}
	return f.availability, nil
}

func (f *fakeBookingSvc) Book(ctx context.Context, req booking.Request) (*booking.Appointment, error) {
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	return f.appt, nil
}

func (f *fakeBookingSvc) Cancel(ctx context.Context, bookingID string) (bool, error) {
	return f.cancelOK, f.cancelErr
}

func (f *fakeBookingSvc) Get(ctx context.Context, bookingID string) (*booking.Appointment, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.appt, nil
}

func (f *fakeBookingSvc) TypeInfo(tag string) (schedule.AppointmentType, bool) {
	if tag == "consultation" {
		return schedule.AppointmentType{Name: "General Consultation", DurationMinutes: 30}, true
	}
	return schedule.AppointmentType{}, false
}

type healthyPg struct{}

func (healthyPg) Ping(ctx context.Context) error { return nil }

type healthyRedis struct{}

func (healthyRedis) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func testRouter(t *testing.T, agentSvc *fakeAgent, faqSvc *fakeFAQSvc, bookingSvc *fakeBookingSvc) http.Handler {
	t.Helper()
	return NewRouter(RouterConfig{
		Agent:   agentSvc,
		FAQ:     faqSvc,
		Booking: bookingSvc,
		Health:  NewHealthHandler(healthyPg{}, healthyRedis{}, true, 9),
		Clinic: config.ClinicInfo{
			Name:    "HealthCare Plus Clinic",
			Doctor:  "Dr. Rajendra Kumar Gupta",
			Address: "302 Old Palasia, Indore, MP 452001",
			Phone:   "+91-731-555-0100",
		},
	})
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestChatEndpoint(t *testing.T) {
	agentSvc := &fakeAgent{result: &agent.ChatResult{
		Response:  "Hello!",
		SessionID: "s1",
		ToolCalls: []string{"search_faq"},
	}}
	router := testRouter(t, agentSvc, &fakeFAQSvc{}, &fakeBookingSvc{})

	rec := doJSON(t, router, http.MethodPost, "/api/chat", ChatRequest{Message: "hi", SessionID: "s1"})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[ChatResponse](t, rec)
	assert.Equal(t, "Hello!", resp.Response)
	assert.Equal(t, "s1", resp.SessionID)
	assert.Equal(t, []string{"search_faq"}, resp.Context.ToolCalls)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestChatEndpointValidation(t *testing.T) {
	router := testRouter(t, &fakeAgent{}, &fakeFAQSvc{}, &fakeBookingSvc{})

	rec := doJSON(t, router, http.MethodPost, "/api/chat", ChatRequest{Message: "", SessionID: "s1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/chat", ChatRequest{Message: strings.Repeat("x", 1001), SessionID: "s1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/chat", ChatRequest{Message: "hi", SessionID: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{broken"))
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestAskFAQEndpoint(t *testing.T) {
	faqSvc := &fakeFAQSvc{answer: &faq.Answer{
		Answer:          "We are open 9 to 6 on weekdays.",
		Sources:         []string{"hours_of_operation"},
		Confidence:      0.9,
		RetrievedChunks: []string{"hours text"},
	}}
	router := testRouter(t, &fakeAgent{}, faqSvc, &fakeBookingSvc{})

	rec := doJSON(t, router, http.MethodPost, "/api/ask-faq", FAQRequest{Question: "when are you open?"})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[faq.Answer](t, rec)
	assert.Equal(t, faqSvc.answer.Answer, resp.Answer)
	assert.Equal(t, faqSvc.answer.Sources, resp.Sources)

	rec = doJSON(t, router, http.MethodPost, "/api/ask-faq", FAQRequest{Question: "hi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetSessionEndpoint(t *testing.T) {
	agentSvc := &fakeAgent{}
	router := testRouter(t, agentSvc, &fakeFAQSvc{}, &fakeBookingSvc{})

	rec := doJSON(t, router, http.MethodPost, "/api/reset-session/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[ResetSessionResponse](t, rec)
	assert.Equal(t, "s1", resp.SessionID)
	assert.Equal(t, []string{"s1"}, agentSvc.resetCalls)
}

func TestSessionInfoEndpoint(t *testing.T) {
	agentSvc := &fakeAgent{info: &agent.SessionInfo{
		SessionID:    "s1",
		MessageCount: 4,
		LastMessages: []agent.Message{{Role: "user", Content: "hi"}},
	}}
	router := testRouter(t, agentSvc, &fakeFAQSvc{}, &fakeBookingSvc{})

	rec := doJSON(t, router, http.MethodGet, "/api/session/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[agent.SessionInfo](t, rec)
	assert.Equal(t, 4, resp.MessageCount)
}

func TestAvailabilityEndpoint(t *testing.T) {
	bookingSvc := &fakeBookingSvc{availability: &booking.DayAvailability{
		Date:      "2026-09-07",
		DayOfWeek: "Monday",
		Slots: []booking.TimeSlot{
			{StartMinute: 540, EndMinute: 570, Available: true},
			{StartMinute: 580, EndMinute: 610, Available: false},
		},
		TotalSlots:     2,
		AvailableCount: 1,
	}}
	router := testRouter(t, &fakeAgent{}, &fakeFAQSvc{}, bookingSvc)

	rec := doJSON(t, router, http.MethodGet, "/api/calendly/availability?date=2026-09-07&appointment_type=consultation", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[AvailabilityResponse](t, rec)
	assert.Equal(t, "Monday", resp.DayOfWeek)
	require.Len(t, resp.AvailableSlots, 2)
	assert.Equal(t, "09:00", resp.AvailableSlots[0].StartTime)
	assert.True(t, resp.AvailableSlots[0].Available)
	assert.False(t, resp.AvailableSlots[1].Available)
	assert.Equal(t, 1, resp.AvailableCount)
}

func TestAvailabilityEndpointMissingParams(t *testing.T) {
	router := testRouter(t, &fakeAgent{}, &fakeFAQSvc{}, &fakeBookingSvc{})

	rec := doJSON(t, router, http.MethodGet, "/api/calendly/availability?date=2026-09-07", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "missing_parameters", resp.Error)
}

func sampleAppointment() *booking.Appointment {
	return &booking.Appointment{
		BookingID:        "APPT-20260905-0042",
		ConfirmationCode: "X9Y8Z7",
		Status:           booking.StatusConfirmed,
		AppointmentType:  "consultation",
		Date:             "2026-09-07",
		StartMinute:      600,
		EndMinute:        630,
		Patient: booking.Patient{
			Name:  "Asha Verma",
			Email: "asha@example.com",
			Phone: "9876543210",
		},
		Reason:    "headaches for two weeks",
		CreatedAt: time.Date(2026, 9, 5, 10, 0, 0, 0, time.UTC),
	}
}

func TestBookEndpoint(t *testing.T) {
	bookingSvc := &fakeBookingSvc{appt: sampleAppointment()}
	router := testRouter(t, &fakeAgent{}, &fakeFAQSvc{}, bookingSvc)

	rec := doJSON(t, router, http.MethodPost, "/api/calendly/book", BookingRequest{
		AppointmentType: "consultation",
		Date:            "2026-09-07",
		StartTime:       "10:00",
		Patient:         PatientPayload{Name: "Asha Verma", Email: "asha@example.com", Phone: "9876543210"},
		Reason:          "headaches for two weeks",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decode[BookingResponse](t, rec)
	assert.Equal(t, "APPT-20260905-0042", resp.BookingID)
	assert.Equal(t, "confirmed", resp.Status)
	assert.Equal(t, "X9Y8Z7", resp.ConfirmationCode)
	assert.Equal(t, "General Consultation", resp.Details["appointment_type"])
	assert.Equal(t, "30 minutes", resp.Details["duration"])
	assert.Equal(t, "Monday", resp.Details["day"])
	assert.Contains(t, resp.Message, "X9Y8Z7")
}

func TestBookEndpointErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{booking.ErrPastDate, http.StatusBadRequest, "past_date"},
		{booking.ErrClosedDay, http.StatusBadRequest, "clinic_closed"},
		{booking.ErrSlotUnavailable, http.StatusBadRequest, "slot_unavailable"},
		{booking.ErrOutsideHours, http.StatusBadRequest, "outside_working_hours"},
		{booking.ErrInvalidDate, http.StatusBadRequest, "invalid_date"},
		{booking.ErrInvalidTime, http.StatusBadRequest, "invalid_time"},
		{booking.ErrUnknownType, http.StatusBadRequest, "unknown_appointment_type"},
		{booking.ErrValidation, http.StatusBadRequest, "validation_error"},
		{booking.ErrDateBeingBooked, http.StatusConflict, "date_being_booked"},
		{errors.New("pg down"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			bookingSvc := &fakeBookingSvc{bookErr: fmt.Errorf("wrapped: %w", tt.err)}
			router := testRouter(t, &fakeAgent{}, &fakeFAQSvc{}, bookingSvc)

			rec := doJSON(t, router, http.MethodPost, "/api/calendly/book", BookingRequest{
				AppointmentType: "consultation",
				Date:            "2026-09-07",
				StartTime:       "10:00",
			})
			assert.Equal(t, tt.wantStatus, rec.Code)

			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.wantCode, resp.Error)
		})
	}
}

func TestGetBookingEndpoint(t *testing.T) {
	bookingSvc := &fakeBookingSvc{appt: sampleAppointment()}
	router := testRouter(t, &fakeAgent{}, &fakeFAQSvc{}, bookingSvc)

	rec := doJSON(t, router, http.MethodGet, "/api/calendly/booking/APPT-20260905-0042", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[BookingRecordResponse](t, rec)
	assert.Equal(t, "APPT-20260905-0042", resp.BookingID)
	assert.Equal(t, "10:00", resp.StartTime)
	assert.Equal(t, "10:30", resp.EndTime)
	assert.Equal(t, "Asha Verma", resp.Patient.Name)
	assert.Nil(t, resp.CancelledAt)
}

func TestGetBookingEndpointNotFound(t *testing.T) {
	bookingSvc := &fakeBookingSvc{getErr: booking.ErrBookingNotFound}
	router := testRouter(t, &fakeAgent{}, &fakeFAQSvc{}, bookingSvc)

	rec := doJSON(t, router, http.MethodGet, "/api/calendly/booking/APPT-20260905-9999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelBookingEndpoint(t *testing.T) {
	router := testRouter(t, &fakeAgent{}, &fakeFAQSvc{}, &fakeBookingSvc{cancelOK: true})

	rec := doJSON(t, router, http.MethodDelete, "/api/calendly/booking/APPT-20260905-0042", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[CancelResponse](t, rec)
	assert.Equal(t, "APPT-20260905-0042", resp.BookingID)
	assert.Equal(t, "cancelled", resp.Status)
}

func TestCancelBookingEndpointNotFound(t *testing.T) {
	router := testRouter(t, &fakeAgent{}, &fakeFAQSvc{}, &fakeBookingSvc{cancelOK: false})

	rec := doJSON(t, router, http.MethodDelete, "/api/calendly/booking/APPT-20260905-9999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter(t, &fakeAgent{}, &fakeFAQSvc{}, &fakeBookingSvc{})

	rec := doJSON(t, router, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "healthy", resp.Services["postgres"])
	assert.Equal(t, "healthy", resp.Services["redis"])
	assert.Equal(t, "configured", resp.Services["openai"])
	assert.Equal(t, "healthy", resp.Services["knowledge_base"])
}

func TestHealthEndpointDegraded(t *testing.T) {
	router := NewRouter(RouterConfig{
		Agent:   &fakeAgent{},
		FAQ:     &fakeFAQSvc{},
		Booking: &fakeBookingSvc{},
		Health:  NewHealthHandler(healthyPg{}, healthyRedis{}, false, 0),
		Clinic:  config.ClinicInfo{Name: "HealthCare Plus Clinic"},
	})

	rec := doJSON(t, router, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "not_configured", resp.Services["openai"])
	assert.Equal(t, "empty", resp.Services["knowledge_base"])
}

func TestRootEndpoint(t *testing.T) {
	router := testRouter(t, &fakeAgent{}, &fakeFAQSvc{}, &fakeBookingSvc{})

	rec := doJSON(t, router, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Contains(t, resp["message"], "HealthCare Plus Clinic")
}

func TestCORSPreflight(t *testing.T) {
	router := testRouter(t, &fakeAgent{}, &fakeFAQSvc{}, &fakeBookingSvc{})

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

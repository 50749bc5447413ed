package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/healthcareplus/scheduling-agent/internal/config"
	"github.com/healthcareplus/scheduling-agent/pkg/logging"
)

type RouterConfig struct {
	Agent   AgentService
	FAQ     FAQService
	Booking BookingService
	Health  *HealthHandler
	Clinic  config.ClinicInfo
	Logger  *logging.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSMiddleware)

	r.Get("/", rootHandler(cfg.Clinic))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", cfg.Health.Check)

		// Conversational surface
		r.Post("/chat", chatHandler(cfg.Agent))
		r.Post("/ask-faq", askFAQHandler(cfg.FAQ))
		r.Post("/reset-session/{sessionID}", resetSessionHandler(cfg.Agent))
		r.Get("/session/{sessionID}", sessionInfoHandler(cfg.Agent))

		// Direct scheduling surface
		r.Route("/calendly", func(r chi.Router) {
			r.Get("/availability", availabilityHandler(cfg.Booking))
			r.Post("/book", bookHandler(cfg.Booking, cfg.Clinic))
			r.Get("/booking/{bookingID}", getBookingHandler(cfg.Booking))
			r.Delete("/booking/{bookingID}", cancelBookingHandler(cfg.Booking))
		})
	})

	return r
}

func rootHandler(clinic config.ClinicInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message":  "Welcome to " + clinic.Name + " Appointment Scheduling API",
			"clinic":   clinic.Name,
			"doctor":   clinic.Doctor,
			"location": clinic.Address,
			"phone":    clinic.Phone,
			"health":   "/api/health",
		})
	}
}

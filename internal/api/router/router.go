package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/datafirstseo/booking-backend/internal/auth"
	"github.com/datafirstseo/booking-backend/internal/blockedslots"
	"github.com/datafirstseo/booking-backend/internal/bookings"
	"github.com/datafirstseo/booking-backend/internal/contact"
	httpmiddleware "github.com/datafirstseo/booking-backend/internal/http/middleware"
	"github.com/datafirstseo/booking-backend/internal/uploads"
	"github.com/datafirstseo/booking-backend/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	BookingsHandler    *bookings.Handler
	BlockedSlots       *blockedslots.Handler
	AuthHandler        *auth.Handler
	ContactHandler     *contact.Handler
	UploadsHandler     *uploads.Handler
	MetricsHandler     http.Handler
	SessionSecret      string
	CORSAllowedOrigins []string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		public.Route("/api", func(api chi.Router) {
			// Only the anonymous booking surface is throttled; admin
			// routes and operational endpoints stay outside.
			if cfg.RateLimitPerSecond > 0 {
				api.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
			}
			if cfg.BookingsHandler != nil {
				api.Get("/availability", cfg.BookingsHandler.GetAvailability)
				api.Get("/availability/next", cfg.BookingsHandler.GetNextAvailable)
				api.Post("/bookings", cfg.BookingsHandler.CreateBooking)
				api.Get("/bookings/confirm/{token}", cfg.BookingsHandler.ConfirmBooking)
				api.Get("/bookings/{token}", cfg.BookingsHandler.GetBooking)
				api.Put("/bookings/{token}", cfg.BookingsHandler.RescheduleBooking)
				api.Delete("/bookings/{token}", cfg.BookingsHandler.CancelBooking)
			}
			if cfg.ContactHandler != nil {
				api.Post("/contact", cfg.ContactHandler.Submit)
			}
			if cfg.AuthHandler != nil {
				api.Post("/login", cfg.AuthHandler.Login)
				api.Post("/logout", cfg.AuthHandler.Logout)
				api.Post("/forgot-password", cfg.AuthHandler.ForgotPassword)
				api.Post("/reset-password", cfg.AuthHandler.ResetPassword)
			}
		})
	})

	// Admin routes (protected by the session JWT)
	if cfg.SessionSecret != "" {
		r.Group(func(protected chi.Router) {
			protected.Use(httpmiddleware.SessionAuth(cfg.SessionSecret))

			if cfg.AuthHandler != nil {
				protected.Get("/api/user", cfg.AuthHandler.CurrentUser)
			}
			protected.Route("/api/admin", func(admin chi.Router) {
				if cfg.BookingsHandler != nil {
					admin.Get("/consultations", cfg.BookingsHandler.ListConsultations)
					admin.Delete("/consultations/{id}", cfg.BookingsHandler.DeleteConsultation)
				}
				if cfg.BlockedSlots != nil {
					admin.Get("/blocked-slots", cfg.BlockedSlots.GetBlockedSlots)
					admin.Post("/blocked-slots", cfg.BlockedSlots.BlockSlot)
					admin.Delete("/blocked-slots", cfg.BlockedSlots.Unblock)
					admin.Post("/blocked-slots/bulk", cfg.BlockedSlots.BulkBlock)
					admin.Post("/blocked-slots/recurring", cfg.BlockedSlots.RecurringBlock)
				}
				if cfg.UploadsHandler != nil {
					admin.Post("/uploads", cfg.UploadsHandler.Upload)
				}
			})
		})
	}

	return r
}

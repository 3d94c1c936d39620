package bookings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/datafirstseo/booking-backend/internal/cache"
	"github.com/datafirstseo/booking-backend/internal/ledger"
	"github.com/datafirstseo/booking-backend/internal/schedule"
	"github.com/datafirstseo/booking-backend/pkg/logging"
)

// Handler exposes the booking endpoints.
type Handler struct {
	service          *Service
	cache            *cache.Cache
	logger           *logging.Logger
	availabilityTTL  time.Duration
	nextAvailableTTL time.Duration
}

// NewHandler creates a bookings handler. c may be nil to disable caching.
func NewHandler(service *Service, c *cache.Cache, logger *logging.Logger, availabilityTTL, nextAvailableTTL time.Duration) *Handler {
	if service == nil {
		panic("bookings: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service:          service,
		cache:            c,
		logger:           logger,
		availabilityTTL:  availabilityTTL,
		nextAvailableTTL: nextAvailableTTL,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service and ledger errors onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var ve *ErrValidation
	switch {
	case errors.As(err, &ve):
		jsonError(w, ve.Reason+": "+ve.Field, http.StatusBadRequest)
	case errors.Is(err, ErrTooSoon):
		jsonError(w, "bookings require advance notice; please pick a later slot", http.StatusBadRequest)
	case errors.Is(err, ErrNoSlotsInHorizon):
		jsonError(w, "no available slots in the next 30 days", http.StatusNotFound)
	case errors.Is(err, ledger.ErrDuplicateBooking):
		jsonError(w, "you already have an upcoming consultation booked", http.StatusConflict)
	case errors.Is(err, ledger.ErrSlotUnavailable):
		jsonError(w, "that time slot is no longer available", http.StatusConflict)
	case errors.Is(err, ledger.ErrBookingNotFound):
		jsonError(w, "booking not found", http.StatusNotFound)
	default:
		h.logger.Error("booking request failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

// AvailabilityResponse lists the slots that cannot be booked on a day.
type AvailabilityResponse struct {
	Date             schedule.DayKey `json:"date"`
	UnavailableSlots []string        `json:"unavailableSlots"`
	AllSlots         []string        `json:"allSlots"`
}

// GetAvailability returns slot availability for one day.
// GET /api/availability?date=YYYY-MM-DD
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	day, err := schedule.ParseDayKey(r.URL.Query().Get("date"))
	if err != nil {
		jsonError(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	payload, err := h.cache.GetOrCompute(r.Context(), cache.AvailabilityKey(day.String()), h.availabilityTTL, func(ctx context.Context) ([]byte, error) {
		unavailable, err := h.service.Availability(ctx, day)
		if err != nil {
			return nil, err
		}
		return json.Marshal(AvailabilityResponse{
			Date:             day,
			UnavailableSlots: unavailable,
			AllSlots:         schedule.TimeSlots,
		})
	})
	if err != nil {
		h.logger.Error("availability lookup failed", "date", day, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

// NextAvailableResponse carries the next bookable weekday.
type NextAvailableResponse struct {
	Date schedule.DayKey `json:"date"`
}

// GetNextAvailable returns the next weekday with a free slot, or 404
// when the whole horizon is taken. The 404 is never cached; a
// cancellation can free a slot at any moment.
// GET /api/availability/next
func (h *Handler) GetNextAvailable(w http.ResponseWriter, r *http.Request) {
	payload, err := h.cache.GetOrCompute(r.Context(), cache.NextAvailableKey, h.nextAvailableTTL, func(ctx context.Context) ([]byte, error) {
		day, err := h.service.NextAvailableDate(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(NextAvailableResponse{Date: day})
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

func (h *Handler) invalidateAvailability(ctx context.Context) {
	h.cache.Invalidate(ctx, "availability:")
}

// CreateBookingRequest is the booking form payload.
type CreateBookingRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
	Message string `json:"message"`
	Date    string `json:"date"`
	Time    string `json:"time"`
}

// CreateBooking books a consultation slot.
// POST /api/bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	booking, err := h.service.Create(r.Context(), CreateParams{
		Name:    req.Name,
		Email:   req.Email,
		Company: req.Company,
		Message: req.Message,
		Date:    req.Date,
		Time:    req.Time,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.invalidateAvailability(r.Context())
	writeJSON(w, http.StatusCreated, booking)
}

// GetBooking returns a booking for the self-service manage page.
// GET /api/bookings/{token}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.service.GetByToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// ConfirmBooking marks a booking confirmed; confirming twice succeeds.
// GET /api/bookings/confirm/{token}
func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	booking, already, err := h.service.Confirm(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	message := "booking confirmed"
	if already {
		message = "booking was already confirmed"
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": message, "booking": booking})
}

// RescheduleBookingRequest is the reschedule payload.
type RescheduleBookingRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// RescheduleBooking moves a booking to a new slot.
// PUT /api/bookings/{token}
func (h *Handler) RescheduleBooking(w http.ResponseWriter, r *http.Request) {
	var req RescheduleBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	booking, err := h.service.Reschedule(r.Context(), chi.URLParam(r, "token"), req.Date, req.Time)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.invalidateAvailability(r.Context())
	writeJSON(w, http.StatusOK, booking)
}

// CancelBooking cancels a booking; cancelling twice succeeds.
// DELETE /api/bookings/{token}
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	booking, already, err := h.service.Cancel(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if !already {
		h.invalidateAvailability(r.Context())
	}
	message := "booking cancelled"
	if already {
		message = "booking was already cancelled"
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": message, "booking": booking})
}

// ListConsultations returns upcoming bookings for the admin dashboard.
// GET /api/admin/consultations
func (h *Handler) ListConsultations(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.service.Upcoming(r.Context())
	if err != nil {
		h.logger.Error("failed to list consultations", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// DeleteConsultation cancels a booking by id on behalf of an admin.
// DELETE /api/admin/consultations/{id}
func (h *Handler) DeleteConsultation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		jsonError(w, "invalid consultation id", http.StatusBadRequest)
		return
	}
	booking, err := h.service.CancelByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.invalidateAvailability(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"message": "booking cancelled", "booking": booking})
}

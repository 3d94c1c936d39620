package blockedslots

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/datafirstseo/booking-backend/internal/cache"
	"github.com/datafirstseo/booking-backend/internal/ledger"
	"github.com/datafirstseo/booking-backend/internal/schedule"
	"github.com/datafirstseo/booking-backend/pkg/logging"
)

// Handler exposes the admin blocked-slots endpoints.
type Handler struct {
	service *Service
	cache   *cache.Cache
	logger  *logging.Logger
}

// NewHandler creates a blocked-slots handler. c may be nil.
func NewHandler(service *Service, c *cache.Cache, logger *logging.Logger) *Handler {
	if service == nil {
		panic("blockedslots: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, cache: c, logger: logger}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) invalidateAvailability(ctx context.Context) {
	h.cache.Invalidate(ctx, "availability:")
}

func parseSlot(date, label string) (schedule.DayKey, string, error) {
	day, err := schedule.ParseDayKey(date)
	if err != nil {
		return "", "", errors.New("date must be YYYY-MM-DD")
	}
	if !schedule.ValidSlot(label) {
		return "", "", errors.New("time is not a bookable slot")
	}
	return day, label, nil
}

// GetBlockedSlots returns the day's blocked and booked labels.
// GET /api/admin/blocked-slots?date=YYYY-MM-DD
func (h *Handler) GetBlockedSlots(w http.ResponseWriter, r *http.Request) {
	day, err := schedule.ParseDayKey(r.URL.Query().Get("date"))
	if err != nil {
		jsonError(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	slots, err := h.service.SlotsByDate(r.Context(), day)
	if err != nil {
		h.logger.Error("failed to load blocked slots", "date", day, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

// BlockSlotRequest is a single-slot block.
type BlockSlotRequest struct {
	Date   string `json:"date"`
	Time   string `json:"time"`
	Reason string `json:"reason"`
}

// BlockSlot places a single hold.
// POST /api/admin/blocked-slots
func (h *Handler) BlockSlot(w http.ResponseWriter, r *http.Request) {
	var req BlockSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	day, label, err := parseSlot(req.Date, req.Time)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	block, err := h.service.Block(r.Context(), day, label, req.Reason)
	switch {
	case errors.Is(err, ledger.ErrSlotBooked):
		jsonError(w, "an active booking occupies that slot", http.StatusConflict)
		return
	case errors.Is(err, ledger.ErrSlotBlocked):
		jsonError(w, "that slot is already blocked", http.StatusConflict)
		return
	case err != nil:
		h.logger.Error("failed to block slot", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.invalidateAvailability(r.Context())
	writeJSON(w, http.StatusCreated, block)
}

// BulkBlockRequest blocks every listed time on every listed date.
type BulkBlockRequest struct {
	Dates  []string `json:"dates"`
	Times  []string `json:"times"`
	Reason string   `json:"reason"`
}

func parseDates(dates []string) ([]schedule.DayKey, error) {
	days := make([]schedule.DayKey, 0, len(dates))
	for _, d := range dates {
		day, err := schedule.ParseDayKey(d)
		if err != nil {
			return nil, errors.New("date must be YYYY-MM-DD")
		}
		days = append(days, day)
	}
	return days, nil
}

func (h *Handler) writeBulkResult(w http.ResponseWriter, r *http.Request, result *BulkResult) {
	if len(result.Successful) > 0 {
		h.invalidateAvailability(r.Context())
	}
	// Nothing landed and at least one slot was contested: report the
	// whole request as a conflict, with the breakdown attached.
	if len(result.Successful) == 0 && len(result.Conflicts) > 0 {
		writeJSON(w, http.StatusConflict, result)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// BulkBlock blocks every date x time pair of the request; contested
// pairs are reported per day, not fatal.
// POST /api/admin/blocked-slots/bulk
func (h *Handler) BulkBlock(w http.ResponseWriter, r *http.Request) {
	var req BulkBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if len(req.Dates) == 0 || len(req.Times) == 0 {
		jsonError(w, "dates and times must not be empty", http.StatusBadRequest)
		return
	}
	days, err := parseDates(req.Dates)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	for _, label := range req.Times {
		if !schedule.ValidSlot(label) {
			jsonError(w, "time is not a bookable slot", http.StatusBadRequest)
			return
		}
	}
	result, err := h.service.BlockBulk(r.Context(), days, req.Times, req.Reason)
	if err != nil {
		h.logger.Error("bulk block failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeBulkResult(w, r, result)
}

// RecurringBlockRequest blocks a weekday pattern over consecutive weeks.
type RecurringBlockRequest struct {
	Weekdays []int    `json:"weekdays"` // 0=Sunday..6=Saturday
	Weeks    int      `json:"weeks"`
	Times    []string `json:"times"`
	Reason   string   `json:"reason"`
}

// RecurringBlock expands a weekday pattern and blocks the result.
// POST /api/admin/blocked-slots/recurring
func (h *Handler) RecurringBlock(w http.ResponseWriter, r *http.Request) {
	var req RecurringBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if len(req.Weekdays) == 0 || len(req.Times) == 0 {
		jsonError(w, "weekdays and times must not be empty", http.StatusBadRequest)
		return
	}
	if req.Weeks < 1 || req.Weeks > 52 {
		jsonError(w, "weeks must be between 1 and 52", http.StatusBadRequest)
		return
	}
	for _, wd := range req.Weekdays {
		if wd < 0 || wd > 6 {
			jsonError(w, "weekdays must be 0 (Sunday) through 6 (Saturday)", http.StatusBadRequest)
			return
		}
	}
	for _, label := range req.Times {
		if !schedule.ValidSlot(label) {
			jsonError(w, "time is not a bookable slot", http.StatusBadRequest)
			return
		}
	}
	result, err := h.service.BlockRecurring(r.Context(), req.Weekdays, req.Weeks, req.Times, req.Reason)
	if err != nil {
		h.logger.Error("recurring block failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeBulkResult(w, r, result)
}

// UnblockRequest removes holds from one day.
type UnblockRequest struct {
	Date  string   `json:"date"`
	Times []string `json:"times"`
}

// Unblock removes holds; labels that are not blocked are skipped.
// DELETE /api/admin/blocked-slots
func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	var req UnblockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	day, err := schedule.ParseDayKey(req.Date)
	if err != nil {
		jsonError(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if len(req.Times) == 0 {
		jsonError(w, "times must not be empty", http.StatusBadRequest)
		return
	}
	removed, err := h.service.Unblock(r.Context(), day, req.Times)
	if err != nil {
		h.logger.Error("unblock failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if len(removed) > 0 {
		h.invalidateAvailability(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

// Package bookings implements the consultation booking lifecycle on top
// of the slot ledger: create, confirm, reschedule, cancel, and the
// next-available-date search.
package bookings

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/datafirstseo/booking-backend/internal/ledger"
	"github.com/datafirstseo/booking-backend/internal/observability/metrics"
	"github.com/datafirstseo/booking-backend/internal/schedule"
	"github.com/datafirstseo/booking-backend/pkg/logging"
)

// SlotLedger is the slice of the ledger store the service needs.
type SlotLedger interface {
	Availability(ctx context.Context, day schedule.DayKey, noticeHours int, now time.Time) ([]string, error)
	SlotsByDateRange(ctx context.Context, days []schedule.DayKey) (map[schedule.DayKey]*ledger.DaySlots, error)
	InsertBooking(ctx context.Context, p ledger.InsertBookingParams) (*ledger.Booking, error)
	BookingByToken(ctx context.Context, token string) (*ledger.Booking, error)
	BookingByID(ctx context.Context, id int64) (*ledger.Booking, error)
	ConfirmBooking(ctx context.Context, token string) (bool, error)
	RescheduleBooking(ctx context.Context, token string, day schedule.DayKey, label string) (*ledger.Booking, error)
	CancelBooking(ctx context.Context, token string) (bool, error)
	CancelBookingByID(ctx context.Context, id int64) (bool, error)
	UpcomingBookings(ctx context.Context, today schedule.DayKey, limit int) ([]*ledger.Booking, error)
}

// Notifier receives booking lifecycle events for email delivery.
type Notifier interface {
	BookingCreated(b *ledger.Booking)
	BookingRescheduled(b *ledger.Booking)
	BookingCancelled(b *ledger.Booking)
}

// ErrValidation wraps a client input problem; the message is safe to
// return to the caller.
type ErrValidation struct {
	Field  string
	Reason string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("bookings: invalid %s: %s", e.Field, e.Reason)
}

// ErrTooSoon means the requested slot starts inside the minimum-notice
// window.
var ErrTooSoon = errors.New("bookings: slot starts inside the minimum notice window")

// ErrNoSlotsInHorizon means every slot in the search horizon is taken
// or inside the notice window.
var ErrNoSlotsInHorizon = errors.New("bookings: no available slots in the search horizon")

// searchHorizonDays bounds the next-available-date scan.
const searchHorizonDays = 30

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Service orchestrates booking operations.
type Service struct {
	store         SlotLedger
	notifier      Notifier
	logger        *logging.Logger
	metrics       *metrics.BookingMetrics
	noticeHours   int
	upcomingLimit int
	now           func() time.Time
}

// NewService constructs a bookings service. notifier may be nil.
func NewService(store SlotLedger, notifier Notifier, logger *logging.Logger, m *metrics.BookingMetrics, noticeHours, upcomingLimit int) *Service {
	if store == nil {
		panic("bookings: slot ledger required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:         store,
		notifier:      notifier,
		logger:        logger,
		metrics:       m,
		noticeHours:   noticeHours,
		upcomingLimit: upcomingLimit,
		now:           time.Now,
	}
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("bookings: generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Availability returns the unavailable catalog labels for a day.
func (s *Service) Availability(ctx context.Context, day schedule.DayKey) ([]string, error) {
	return s.store.Availability(ctx, day, s.noticeHours, s.now())
}

// CreateParams carries a booking request.
type CreateParams struct {
	Name    string
	Email   string
	Company string
	Message string
	Date    string
	Time    string
}

func (s *Service) validateSlot(date, label string) (schedule.DayKey, error) {
	day, err := schedule.ParseDayKey(strings.TrimSpace(date))
	if err != nil {
		return "", &ErrValidation{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	if !schedule.ValidSlot(label) {
		return "", &ErrValidation{Field: "time", Reason: "not a bookable time slot"}
	}
	now := s.now()
	if schedule.SlotStart(day, label).Before(now.Add(time.Duration(s.noticeHours) * time.Hour)) {
		return "", ErrTooSoon
	}
	return day, nil
}

// Create books a slot. On success the confirmation email is dispatched
// asynchronously; delivery failures never fail the booking.
func (s *Service) Create(ctx context.Context, p CreateParams) (*ledger.Booking, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, &ErrValidation{Field: "name", Reason: "required"}
	}
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if !emailPattern.MatchString(email) {
		return nil, &ErrValidation{Field: "email", Reason: "not a valid email address"}
	}
	day, err := s.validateSlot(p.Date, p.Time)
	if err != nil {
		return nil, err
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}
	booking, err := s.store.InsertBooking(ctx, ledger.InsertBookingParams{
		Name:    name,
		Email:   email,
		Company: strings.TrimSpace(p.Company),
		Message: strings.TrimSpace(p.Message),
		Date:    day,
		Time:    p.Time,
		Token:   token,
		Today:   schedule.ToDayKey(s.now()),
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrDuplicateBooking):
			s.metrics.ObserveConflict("duplicate_email")
		case errors.Is(err, ledger.ErrSlotUnavailable):
			s.metrics.ObserveConflict("slot_taken")
		}
		return nil, err
	}

	s.metrics.ObserveBooking("created")
	s.logger.Info("booking created", "id", booking.ID, "date", booking.Date, "time", booking.Time)
	if s.notifier != nil {
		s.notifier.BookingCreated(booking)
	}
	return booking, nil
}

// GetByToken loads a booking for the self-service manage page.
func (s *Service) GetByToken(ctx context.Context, token string) (*ledger.Booking, error) {
	return s.store.BookingByToken(ctx, token)
}

// Confirm marks a booking confirmed. The second return is true when the
// booking was already confirmed; confirming twice is not an error.
func (s *Service) Confirm(ctx context.Context, token string) (*ledger.Booking, bool, error) {
	transitioned, err := s.store.ConfirmBooking(ctx, token)
	if err != nil {
		return nil, false, err
	}
	booking, err := s.store.BookingByToken(ctx, token)
	if err != nil {
		return nil, false, err
	}
	if transitioned {
		s.metrics.ObserveBooking("confirmed")
		s.logger.Info("booking confirmed", "id", booking.ID)
	}
	return booking, !transitioned, nil
}

// Reschedule moves a booking to a new slot and notifies both parties.
func (s *Service) Reschedule(ctx context.Context, token, date, label string) (*ledger.Booking, error) {
	day, err := s.validateSlot(date, label)
	if err != nil {
		return nil, err
	}
	booking, err := s.store.RescheduleBooking(ctx, token, day, label)
	if err != nil {
		if errors.Is(err, ledger.ErrSlotUnavailable) {
			s.metrics.ObserveConflict("slot_taken")
		}
		return nil, err
	}
	s.metrics.ObserveBooking("rescheduled")
	s.logger.Info("booking rescheduled", "id", booking.ID, "date", booking.Date, "time", booking.Time)
	if s.notifier != nil {
		s.notifier.BookingRescheduled(booking)
	}
	return booking, nil
}

// Cancel marks a booking cancelled. The second return is true when it
// was already cancelled; cancelling twice is not an error.
func (s *Service) Cancel(ctx context.Context, token string) (*ledger.Booking, bool, error) {
	transitioned, err := s.store.CancelBooking(ctx, token)
	if err != nil {
		return nil, false, err
	}
	booking, err := s.store.BookingByToken(ctx, token)
	if err != nil {
		return nil, false, err
	}
	if transitioned {
		s.metrics.ObserveBooking("cancelled")
		s.logger.Info("booking cancelled", "id", booking.ID)
		if s.notifier != nil {
			s.notifier.BookingCancelled(booking)
		}
	}
	return booking, !transitioned, nil
}

// CancelByID is the administrator cancellation path. Unlike Cancel it
// reports ErrBookingNotFound for unknown ids.
func (s *Service) CancelByID(ctx context.Context, id int64) (*ledger.Booking, error) {
	booking, err := s.store.BookingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	transitioned, err := s.store.CancelBookingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if transitioned {
		booking.Cancelled = true
		s.metrics.ObserveBooking("cancelled")
		s.logger.Info("booking cancelled by admin", "id", id)
		if s.notifier != nil {
			s.notifier.BookingCancelled(booking)
		}
	}
	return booking, nil
}

// Upcoming lists non-cancelled bookings from today forward.
func (s *Service) Upcoming(ctx context.Context) ([]*ledger.Booking, error) {
	return s.store.UpcomingBookings(ctx, schedule.ToDayKey(s.now()), s.upcomingLimit)
}

// NextAvailableDate scans the coming weeks for the first weekday with at
// least one bookable slot. The whole horizon is resolved with one
// batched ledger read. Returns ErrNoSlotsInHorizon when every slot in
// the horizon is taken or inside the notice window.
func (s *Service) NextAvailableDate(ctx context.Context) (schedule.DayKey, error) {
	started := s.now()
	today := schedule.ToDayKey(started)

	candidates := make([]schedule.DayKey, 0, searchHorizonDays)
	for i := 0; i <= searchHorizonDays; i++ {
		day := today.AddDays(i)
		if day.IsWeekend() {
			continue
		}
		candidates = append(candidates, day)
	}

	byDay, err := s.store.SlotsByDateRange(ctx, candidates)
	if err != nil {
		return "", err
	}

	cutoff := started.Add(time.Duration(s.noticeHours) * time.Hour)
	for _, day := range candidates {
		slots := byDay[day]
		for _, label := range schedule.TimeSlots {
			if slots != nil && slots.Unavailable(label) {
				continue
			}
			if schedule.SlotStart(day, label).Before(cutoff) {
				continue
			}
			s.metrics.ObserveSearchLatency(s.now().Sub(started).Seconds())
			return day, nil
		}
	}
	s.metrics.ObserveSearchLatency(s.now().Sub(started).Seconds())
	return "", ErrNoSlotsInHorizon
}

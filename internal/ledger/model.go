package ledger

import (
	"errors"
	"time"

	"github.com/datafirstseo/booking-backend/internal/schedule"
)

// Booking is a consultation booking row. Bookings are never physically
// deleted; cancellation is a terminal flag.
type Booking struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Company   string          `json:"company"`
	Message   string          `json:"message,omitempty"`
	Date      schedule.DayKey `json:"date"`
	Time      string          `json:"time"`
	Token     string          `json:"confirmationToken"`
	Confirmed bool            `json:"confirmed"`
	Cancelled bool            `json:"cancelled"`
	CreatedAt time.Time       `json:"createdAt"`
}

// BlockedSlot is an administrator-created hold on a (day, time) pair.
type BlockedSlot struct {
	ID        int64           `json:"id"`
	Date      schedule.DayKey `json:"date"`
	Time      string          `json:"time"`
	Reason    string          `json:"reason"`
	CreatedAt time.Time       `json:"createdAt"`
}

// DaySlots is the read-only union of active holds for one day.
type DaySlots struct {
	BlockedTimes []string `json:"blockedTimes"`
	BookedTimes  []string `json:"bookedTimes"`
}

// Unavailable reports whether the label appears in either set.
func (d *DaySlots) Unavailable(label string) bool {
	for _, t := range d.BookedTimes {
		if t == label {
			return true
		}
	}
	for _, t := range d.BlockedTimes {
		if t == label {
			return true
		}
	}
	return false
}

var (
	// ErrSlotUnavailable means the (day, time) pair is already booked or blocked.
	ErrSlotUnavailable = errors.New("ledger: time slot is not available")
	// ErrDuplicateBooking means the email already has an active upcoming booking.
	ErrDuplicateBooking = errors.New("ledger: email already has an upcoming booking")
	// ErrBookingNotFound means no booking matched the token or id.
	ErrBookingNotFound = errors.New("ledger: booking not found")
	// ErrSlotBlocked means a block already exists for the (day, time) pair.
	ErrSlotBlocked = errors.New("ledger: time slot is already blocked")
	// ErrSlotBooked means an active booking occupies the (day, time) pair.
	ErrSlotBooked = errors.New("ledger: time slot already has a booking")
)

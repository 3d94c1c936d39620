package notify

import (
	"context"
	"time"

	"github.com/datafirstseo/booking-backend/internal/ledger"
	"github.com/datafirstseo/booking-backend/internal/observability/metrics"
	"github.com/datafirstseo/booking-backend/pkg/logging"
)

const sendTimeout = 15 * time.Second

// Dispatcher sends emails asynchronously. Booking requests never wait on
// or fail because of email delivery; failures are logged and counted.
type Dispatcher struct {
	mailer  *Mailer
	logger  *logging.Logger
	metrics *metrics.BookingMetrics
}

// NewDispatcher creates a dispatcher around the mailer.
func NewDispatcher(mailer *Mailer, logger *logging.Logger, m *metrics.BookingMetrics) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{mailer: mailer, logger: logger, metrics: m}
}

func (d *Dispatcher) dispatch(emailType string, send func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			d.logger.Error("email dispatch failed", "type", emailType, "error", err)
			d.metrics.ObserveEmail(emailType, "failed")
			return
		}
		d.metrics.ObserveEmail(emailType, "sent")
	}()
}

// BookingCreated notifies the client and the site owner about a new booking.
func (d *Dispatcher) BookingCreated(b *ledger.Booking) {
	d.dispatch("confirmation", func(ctx context.Context) error {
		return d.mailer.BookingConfirmation(ctx, b)
	})
	d.dispatch("admin_notice", func(ctx context.Context) error {
		return d.mailer.AdminBookingNotice(ctx, "new", b)
	})
}

// BookingRescheduled notifies both parties about a reschedule.
func (d *Dispatcher) BookingRescheduled(b *ledger.Booking) {
	d.dispatch("rescheduled", func(ctx context.Context) error {
		return d.mailer.BookingRescheduled(ctx, b)
	})
	d.dispatch("admin_notice", func(ctx context.Context) error {
		return d.mailer.AdminBookingNotice(ctx, "rescheduled", b)
	})
}

// BookingCancelled notifies both parties about a cancellation.
func (d *Dispatcher) BookingCancelled(b *ledger.Booking) {
	d.dispatch("cancelled", func(ctx context.Context) error {
		return d.mailer.BookingCancelled(ctx, b)
	})
	d.dispatch("admin_notice", func(ctx context.Context) error {
		return d.mailer.AdminBookingNotice(ctx, "cancelled", b)
	})
}

// PasswordReset sends the reset link without blocking the request.
func (d *Dispatcher) PasswordReset(email, token string) {
	d.dispatch("password_reset", func(ctx context.Context) error {
		return d.mailer.PasswordReset(ctx, email, token)
	})
}

// ContactMessage forwards a contact-form submission.
func (d *Dispatcher) ContactMessage(name, email, message string) {
	d.dispatch("contact", func(ctx context.Context) error {
		return d.mailer.ContactMessage(ctx, name, email, message)
	})
}

package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/datafirstseo/booking-backend/internal/ledger"
	"github.com/datafirstseo/booking-backend/internal/schedule"
)

// Mailer composes and sends the application's transactional emails.
type Mailer struct {
	sender     EmailSender
	baseURL    string
	adminEmail string
}

// NewMailer creates a mailer. baseURL is the public origin used to build
// confirmation and manage links.
func NewMailer(sender EmailSender, baseURL, adminEmail string) *Mailer {
	return &Mailer{
		sender:     sender,
		baseURL:    strings.TrimRight(baseURL, "/"),
		adminEmail: adminEmail,
	}
}

func (m *Mailer) confirmLink(token string) string {
	return fmt.Sprintf("%s/booking/confirm?token=%s", m.baseURL, token)
}

func (m *Mailer) manageLink(token string) string {
	return fmt.Sprintf("%s/booking/manage?token=%s", m.baseURL, token)
}

// BookingConfirmation is sent to the client right after booking.
func (m *Mailer) BookingConfirmation(ctx context.Context, b *ledger.Booking) error {
	when := fmt.Sprintf("%s at %s", schedule.FormatDate(b.Date), schedule.FormatTime(b.Time))
	body := fmt.Sprintf(
		"Hi %s,\n\nYour consultation is scheduled for %s.\n\n"+
			"Please confirm your booking:\n%s\n\n"+
			"Need to reschedule or cancel? Manage your booking here:\n%s\n\n"+
			"Talk soon,\nDataFirst SEO",
		b.Name, when, m.confirmLink(b.Token), m.manageLink(b.Token))
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your consultation is scheduled for <strong>%s</strong>.</p>"+
			`<p><a href="%s">Confirm your booking</a></p>`+
			`<p>Need to reschedule or cancel? <a href="%s">Manage your booking</a>.</p>`+
			"<p>Talk soon,<br>DataFirst SEO</p>",
		b.Name, when, m.confirmLink(b.Token), m.manageLink(b.Token))

	return m.sender.Send(ctx, EmailMessage{
		To:      b.Email,
		ToName:  b.Name,
		Subject: "Consultation Booking Confirmation",
		Body:    body,
		HTML:    html,
	})
}

// BookingRescheduled is sent to the client after a reschedule.
func (m *Mailer) BookingRescheduled(ctx context.Context, b *ledger.Booking) error {
	when := fmt.Sprintf("%s at %s", schedule.FormatDate(b.Date), schedule.FormatTime(b.Time))
	body := fmt.Sprintf(
		"Hi %s,\n\nYour consultation has been moved to %s.\n\n"+
			"Manage your booking here:\n%s\n\nTalk soon,\nDataFirst SEO",
		b.Name, when, m.manageLink(b.Token))
	return m.sender.Send(ctx, EmailMessage{
		To:      b.Email,
		ToName:  b.Name,
		Subject: "Consultation Rescheduled",
		Body:    body,
	})
}

// BookingCancelled is sent to the client after a cancellation.
func (m *Mailer) BookingCancelled(ctx context.Context, b *ledger.Booking) error {
	when := fmt.Sprintf("%s at %s", schedule.FormatDate(b.Date), schedule.FormatTime(b.Time))
	body := fmt.Sprintf(
		"Hi %s,\n\nYour consultation on %s has been cancelled.\n\n"+
			"You can book a new time at %s any time.\n\nDataFirst SEO",
		b.Name, when, m.baseURL)
	return m.sender.Send(ctx, EmailMessage{
		To:      b.Email,
		ToName:  b.Name,
		Subject: "Consultation Cancelled",
		Body:    body,
	})
}

// AdminBookingNotice tells the site owner about a lifecycle event. action
// is "new", "rescheduled" or "cancelled".
func (m *Mailer) AdminBookingNotice(ctx context.Context, action string, b *ledger.Booking) error {
	if m.adminEmail == "" {
		return nil
	}
	when := fmt.Sprintf("%s at %s", schedule.FormatDate(b.Date), schedule.FormatTime(b.Time))
	lines := []string{
		fmt.Sprintf("Booking %s", action),
		"",
		fmt.Sprintf("Name: %s", b.Name),
		fmt.Sprintf("Email: %s", b.Email),
		fmt.Sprintf("Company: %s", b.Company),
		fmt.Sprintf("When: %s", when),
	}
	if b.Message != "" {
		lines = append(lines, fmt.Sprintf("Message: %s", b.Message))
	}
	return m.sender.Send(ctx, EmailMessage{
		To:      m.adminEmail,
		Subject: fmt.Sprintf("Consultation %s: %s on %s", action, b.Name, when),
		Body:    strings.Join(lines, "\n"),
	})
}

// PasswordReset sends the one-time reset link to a user.
func (m *Mailer) PasswordReset(ctx context.Context, email, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.baseURL, token)
	body := fmt.Sprintf(
		"A password reset was requested for your account.\n\n"+
			"Reset your password here (the link expires in 1 hour):\n%s\n\n"+
			"If you did not request this, you can ignore this email.",
		link)
	return m.sender.Send(ctx, EmailMessage{
		To:      email,
		Subject: "Password Reset Request",
		Body:    body,
	})
}

// ContactMessage forwards a contact-form submission to the site owner.
func (m *Mailer) ContactMessage(ctx context.Context, name, email, message string) error {
	if m.adminEmail == "" {
		return nil
	}
	body := fmt.Sprintf("From: %s <%s>\n\n%s", name, email, message)
	return m.sender.Send(ctx, EmailMessage{
		To:      m.adminEmail,
		Subject: fmt.Sprintf("Contact form message from %s", name),
		Body:    body,
	})
}

package bookings

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/datafirstseo/booking-backend/internal/ledger"
	"github.com/datafirstseo/booking-backend/internal/schedule"
)

// fakeLedger is an in-memory SlotLedger for service tests.
type fakeLedger struct {
	bookings  map[string]*ledger.Booking // by token
	blocked   map[string]bool            // "date|time"
	nextID    int64
	rangeErr  error
	insertErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		bookings: map[string]*ledger.Booking{},
		blocked:  map[string]bool{},
	}
}

func slotKey(day schedule.DayKey, label string) string {
	return day.String() + "|" + label
}

func (f *fakeLedger) activeAt(day schedule.DayKey, label string) bool {
	for _, b := range f.bookings {
		if b.Date == day && b.Time == label && !b.Cancelled {
			return true
		}
	}
	return false
}

func (f *fakeLedger) Availability(ctx context.Context, day schedule.DayKey, noticeHours int, now time.Time) ([]string, error) {
	cutoff := now.Add(time.Duration(noticeHours) * time.Hour)
	unavailable := []string{}
	for _, label := range schedule.TimeSlots {
		if f.blocked[slotKey(day, label)] || f.activeAt(day, label) || schedule.SlotStart(day, label).Before(cutoff) {
			unavailable = append(unavailable, label)
		}
	}
	return unavailable, nil
}

func (f *fakeLedger) SlotsByDateRange(ctx context.Context, days []schedule.DayKey) (map[schedule.DayKey]*ledger.DaySlots, error) {
	if f.rangeErr != nil {
		return nil, f.rangeErr
	}
	result := map[schedule.DayKey]*ledger.DaySlots{}
	for _, day := range days {
		slots := &ledger.DaySlots{BlockedTimes: []string{}, BookedTimes: []string{}}
		for _, label := range schedule.TimeSlots {
			if f.blocked[slotKey(day, label)] {
				slots.BlockedTimes = append(slots.BlockedTimes, label)
			}
			if f.activeAt(day, label) {
				slots.BookedTimes = append(slots.BookedTimes, label)
			}
		}
		result[day] = slots
	}
	return result, nil
}

func (f *fakeLedger) InsertBooking(ctx context.Context, p ledger.InsertBookingParams) (*ledger.Booking, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	for _, b := range f.bookings {
		if b.Email == p.Email && !b.Cancelled && b.Date >= p.Today {
			return nil, ledger.ErrDuplicateBooking
		}
	}
	if f.blocked[slotKey(p.Date, p.Time)] || f.activeAt(p.Date, p.Time) {
		return nil, ledger.ErrSlotUnavailable
	}
	f.nextID++
	b := &ledger.Booking{
		ID: f.nextID, Name: p.Name, Email: p.Email, Company: p.Company,
		Message: p.Message, Date: p.Date, Time: p.Time, Token: p.Token,
		CreatedAt: time.Now(),
	}
	f.bookings[p.Token] = b
	return b, nil
}

func (f *fakeLedger) BookingByToken(ctx context.Context, token string) (*ledger.Booking, error) {
	if b, ok := f.bookings[token]; ok {
		return b, nil
	}
	return nil, ledger.ErrBookingNotFound
}

func (f *fakeLedger) BookingByID(ctx context.Context, id int64) (*ledger.Booking, error) {
	for _, b := range f.bookings {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, ledger.ErrBookingNotFound
}

func (f *fakeLedger) ConfirmBooking(ctx context.Context, token string) (bool, error) {
	b, ok := f.bookings[token]
	if !ok || b.Confirmed {
		return false, nil
	}
	b.Confirmed = true
	return true, nil
}

func (f *fakeLedger) RescheduleBooking(ctx context.Context, token string, day schedule.DayKey, label string) (*ledger.Booking, error) {
	b, ok := f.bookings[token]
	if !ok {
		return nil, ledger.ErrBookingNotFound
	}
	if f.blocked[slotKey(day, label)] {
		return nil, ledger.ErrSlotUnavailable
	}
	for _, other := range f.bookings {
		if other != b && other.Date == day && other.Time == label && !other.Cancelled {
			return nil, ledger.ErrSlotUnavailable
		}
	}
	b.Date, b.Time = day, label
	return b, nil
}

func (f *fakeLedger) CancelBooking(ctx context.Context, token string) (bool, error) {
	b, ok := f.bookings[token]
	if !ok || b.Cancelled {
		return false, nil
	}
	b.Cancelled = true
	return true, nil
}

func (f *fakeLedger) CancelBookingByID(ctx context.Context, id int64) (bool, error) {
	for _, b := range f.bookings {
		if b.ID == id && !b.Cancelled {
			b.Cancelled = true
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) UpcomingBookings(ctx context.Context, today schedule.DayKey, limit int) ([]*ledger.Booking, error) {
	out := []*ledger.Booking{}
	for _, b := range f.bookings {
		if !b.Cancelled && b.Date >= today {
			out = append(out, b)
		}
	}
	return out, nil
}

type recordingNotifier struct {
	created, rescheduled, cancelled int
}

func (n *recordingNotifier) BookingCreated(b *ledger.Booking)     { n.created++ }
func (n *recordingNotifier) BookingRescheduled(b *ledger.Booking) { n.rescheduled++ }
func (n *recordingNotifier) BookingCancelled(b *ledger.Booking)   { n.cancelled++ }

// fixedNow is a Monday morning well before the test dates.
var fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *fakeLedger, *recordingNotifier) {
	t.Helper()
	store := newFakeLedger()
	notifier := &recordingNotifier{}
	svc := NewService(store, notifier, nil, nil, 20, 200)
	svc.now = func() time.Time { return fixedNow }
	return svc, store, notifier
}

func validCreate() CreateParams {
	return CreateParams{
		Name:  "Ada Lovelace",
		Email: "Ada@Example.com",
		Date:  "2026-03-16",
		Time:  "10:00",
	}
}

func TestCreateBooking(t *testing.T) {
	svc, _, notifier := newTestService(t)

	b, err := svc.Create(context.Background(), validCreate())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if b.Email != "ada@example.com" {
		t.Errorf("email not normalized: %s", b.Email)
	}
	if !regexp.MustCompile(`^[0-9a-f]{64}$`).MatchString(b.Token) {
		t.Errorf("token is not 32 random bytes hex-encoded: %q", b.Token)
	}
	if notifier.created != 1 {
		t.Errorf("expected 1 created notification, got %d", notifier.created)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateParams)
	}{
		{"missing name", func(p *CreateParams) { p.Name = "  " }},
		{"bad email", func(p *CreateParams) { p.Email = "not-an-email" }},
		{"bad date", func(p *CreateParams) { p.Date = "03/16/2026" }},
		{"unknown slot", func(p *CreateParams) { p.Time = "13:00" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validCreate()
			tc.mutate(&p)
			_, err := svc.Create(ctx, p)
			var ve *ErrValidation
			if !errors.As(err, &ve) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateRejectsShortNotice(t *testing.T) {
	svc, _, _ := newTestService(t)

	p := validCreate()
	p.Date = "2026-03-02" // same day as the fixed clock
	p.Time = "16:00"
	_, err := svc.Create(context.Background(), p)
	if !errors.Is(err, ErrTooSoon) {
		t.Fatalf("expected ErrTooSoon, got %v", err)
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, validCreate()); err != nil {
		t.Fatal(err)
	}
	p := validCreate()
	p.Time = "11:00"
	_, err := svc.Create(ctx, p)
	if !errors.Is(err, ledger.ErrDuplicateBooking) {
		t.Fatalf("expected ErrDuplicateBooking, got %v", err)
	}
	if notifier.created != 1 {
		t.Errorf("rejected booking must not notify, got %d", notifier.created)
	}
}

func TestConfirmIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.Create(ctx, validCreate())
	if err != nil {
		t.Fatal(err)
	}

	_, already, err := svc.Confirm(ctx, b.Token)
	if err != nil || already {
		t.Fatalf("first confirm: already=%v err=%v", already, err)
	}
	confirmed, already, err := svc.Confirm(ctx, b.Token)
	if err != nil || !already {
		t.Fatalf("second confirm: already=%v err=%v", already, err)
	}
	if !confirmed.Confirmed {
		t.Error("booking should remain confirmed")
	}

	if _, _, err := svc.Confirm(ctx, "unknown-token"); !errors.Is(err, ledger.ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound for unknown token, got %v", err)
	}
}

func TestRescheduleFreesOldSlot(t *testing.T) {
	svc, store, notifier := newTestService(t)
	ctx := context.Background()

	b, err := svc.Create(ctx, validCreate())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Reschedule(ctx, b.Token, "2026-03-17", "14:00"); err != nil {
		t.Fatalf("Reschedule failed: %v", err)
	}
	if notifier.rescheduled != 1 {
		t.Errorf("expected 1 reschedule notification, got %d", notifier.rescheduled)
	}
	if store.activeAt("2026-03-16", "10:00") {
		t.Error("old slot still occupied after reschedule")
	}
	if !store.activeAt("2026-03-17", "14:00") {
		t.Error("new slot not occupied after reschedule")
	}
}

func TestRescheduleConflict(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.Create(ctx, validCreate())
	if err != nil {
		t.Fatal(err)
	}
	store.blocked[slotKey("2026-03-17", "14:00")] = true
	_, err = svc.Reschedule(ctx, b.Token, "2026-03-17", "14:00")
	if !errors.Is(err, ledger.ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := context.Background()

	b, err := svc.Create(ctx, validCreate())
	if err != nil {
		t.Fatal(err)
	}
	_, already, err := svc.Cancel(ctx, b.Token)
	if err != nil || already {
		t.Fatalf("first cancel: already=%v err=%v", already, err)
	}
	_, already, err = svc.Cancel(ctx, b.Token)
	if err != nil || !already {
		t.Fatalf("second cancel: already=%v err=%v", already, err)
	}
	if notifier.cancelled != 1 {
		t.Errorf("only the transition should notify, got %d", notifier.cancelled)
	}
}

func TestNextAvailableDateSkipsWeekends(t *testing.T) {
	svc, _, _ := newTestService(t)

	day, err := svc.NextAvailableDate(context.Background())
	if err != nil {
		t.Fatalf("NextAvailableDate failed: %v", err)
	}
	// Clock is Monday 2026-03-02 09:00; the 20h notice window pushes
	// every slot of today past the cutoff, so tomorrow wins.
	if day != "2026-03-03" {
		t.Fatalf("expected 2026-03-03, got %s", day)
	}
}

func TestNextAvailableDateSkipsFullDays(t *testing.T) {
	svc, store, _ := newTestService(t)

	// Fill every weekday of the first week.
	for _, d := range []schedule.DayKey{"2026-03-03", "2026-03-04", "2026-03-05", "2026-03-06"} {
		for _, label := range schedule.TimeSlots {
			store.blocked[slotKey(d, label)] = true
		}
	}
	day, err := svc.NextAvailableDate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// 2026-03-07/08 are a weekend; the next weekday is Monday the 9th.
	if day != "2026-03-09" {
		t.Fatalf("expected 2026-03-09, got %s", day)
	}
}

func TestNextAvailableDateExhaustedHorizon(t *testing.T) {
	svc, store, _ := newTestService(t)

	today := schedule.ToDayKey(fixedNow)
	for i := 1; i <= searchHorizonDays; i++ {
		d := today.AddDays(i)
		for _, label := range schedule.TimeSlots {
			store.blocked[slotKey(d, label)] = true
		}
	}
	day, err := svc.NextAvailableDate(context.Background())
	if !errors.Is(err, ErrNoSlotsInHorizon) {
		t.Fatalf("expected ErrNoSlotsInHorizon, got day=%q err=%v", day, err)
	}
}

func TestCancelByID(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.Create(ctx, validCreate())
	if err != nil {
		t.Fatal(err)
	}
	cancelled, err := svc.CancelByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("CancelByID failed: %v", err)
	}
	if !cancelled.Cancelled {
		t.Error("booking not marked cancelled")
	}
	if _, err := svc.CancelByID(ctx, 9999); !errors.Is(err, ledger.ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

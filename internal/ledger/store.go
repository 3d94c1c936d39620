// Package ledger is the single writer of slot-availability state: the
// combined record of confirmed bookings and administrator blocks that
// determines which (day, time) pairs are free. Every check-then-insert
// goes through one SQL statement backed by a uniqueness constraint, so
// two concurrent writers racing on the same slot produce exactly one
// success and one rejection.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/datafirstseo/booking-backend/internal/schedule"
)

// PgxPool is the subset of pgxpool.Pool the store needs. Tests inject
// a pgxmock pool through it.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists bookings and blocked slots in Postgres.
type Store struct {
	pool PgxPool
}

// NewStore creates the ledger store.
func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("ledger: pgx pool required")
	}
	return &Store{pool: pool}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// SlotsByDate returns the active blocks and non-cancelled bookings for
// one day. Read-only.
func (s *Store) SlotsByDate(ctx context.Context, day schedule.DayKey) (*DaySlots, error) {
	blocked, err := s.labelsForDay(ctx, day, `SELECT slot_time FROM blocked_slots WHERE slot_date = $1::date`)
	if err != nil {
		return nil, fmt.Errorf("ledger: load blocked slots: %w", err)
	}
	booked, err := s.labelsForDay(ctx, day, `SELECT slot_time FROM bookings WHERE slot_date = $1::date AND NOT cancelled`)
	if err != nil {
		return nil, fmt.Errorf("ledger: load booked slots: %w", err)
	}
	return &DaySlots{BlockedTimes: blocked, BookedTimes: booked}, nil
}

func (s *Store) labelsForDay(ctx context.Context, day schedule.DayKey, query string) ([]string, error) {
	rows, err := s.pool.Query(ctx, query, day.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	labels := []string{}
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

// SlotsByDateRange resolves blocks and bookings for a set of days with
// one query per entity type, never one per day. The next-available-date
// search depends on this staying batched.
func (s *Store) SlotsByDateRange(ctx context.Context, days []schedule.DayKey) (map[schedule.DayKey]*DaySlots, error) {
	result := make(map[schedule.DayKey]*DaySlots, len(days))
	for _, d := range days {
		result[d] = &DaySlots{BlockedTimes: []string{}, BookedTimes: []string{}}
	}
	if len(days) == 0 {
		return result, nil
	}

	keys := make([]string, len(days))
	for i, d := range days {
		keys[i] = d.String()
	}

	blockedQuery := `SELECT slot_date, slot_time FROM blocked_slots WHERE slot_date = ANY($1::date[])`
	if err := s.scanRange(ctx, blockedQuery, keys, func(day schedule.DayKey, label string) {
		if slots, ok := result[day]; ok {
			slots.BlockedTimes = append(slots.BlockedTimes, label)
		}
	}); err != nil {
		return nil, fmt.Errorf("ledger: load blocked range: %w", err)
	}

	bookedQuery := `SELECT slot_date, slot_time FROM bookings WHERE slot_date = ANY($1::date[]) AND NOT cancelled`
	if err := s.scanRange(ctx, bookedQuery, keys, func(day schedule.DayKey, label string) {
		if slots, ok := result[day]; ok {
			slots.BookedTimes = append(slots.BookedTimes, label)
		}
	}); err != nil {
		return nil, fmt.Errorf("ledger: load booked range: %w", err)
	}

	return result, nil
}

func (s *Store) scanRange(ctx context.Context, query string, keys []string, add func(schedule.DayKey, string)) error {
	rows, err := s.pool.Query(ctx, query, keys)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var date time.Time
		var label string
		if err := rows.Scan(&date, &label); err != nil {
			return err
		}
		add(schedule.ToDayKey(date), label)
	}
	return rows.Err()
}

// Availability returns the catalog labels that cannot be booked on the
// day: booked, blocked, or starting before now + the notice window. A
// day can therefore show zero free slots even with an empty ledger.
func (s *Store) Availability(ctx context.Context, day schedule.DayKey, noticeHours int, now time.Time) ([]string, error) {
	slots, err := s.SlotsByDate(ctx, day)
	if err != nil {
		return nil, err
	}
	cutoff := now.Add(time.Duration(noticeHours) * time.Hour)

	unavailable := []string{}
	for _, label := range schedule.TimeSlots {
		if slots.Unavailable(label) || schedule.SlotStart(day, label).Before(cutoff) {
			unavailable = append(unavailable, label)
		}
	}
	return unavailable, nil
}

// IsSlotAvailable reports whether the pair is in neither the booking set
// nor the block set. The notice-window check is the caller's concern.
func (s *Store) IsSlotAvailable(ctx context.Context, day schedule.DayKey, label string) (bool, error) {
	query := `
		SELECT NOT EXISTS (
			SELECT 1 FROM bookings WHERE slot_date = $1::date AND slot_time = $2 AND NOT cancelled
		) AND NOT EXISTS (
			SELECT 1 FROM blocked_slots WHERE slot_date = $1::date AND slot_time = $2
		)
	`
	var available bool
	if err := s.pool.QueryRow(ctx, query, day.String(), label).Scan(&available); err != nil {
		return false, fmt.Errorf("ledger: check availability: %w", err)
	}
	return available, nil
}

// InsertBookingParams carries a validated booking insert.
type InsertBookingParams struct {
	Name    string
	Email   string
	Company string
	Message string
	Date    schedule.DayKey
	Time    string
	Token   string
	Today   schedule.DayKey
}

// InsertBooking creates a booking in one atomic statement. The guards
// (no active upcoming booking for the email, slot not blocked) live in
// the INSERT itself, and booking-vs-booking races are settled by the
// partial unique index on (slot_date, slot_time) WHERE NOT cancelled.
// Returns ErrDuplicateBooking or ErrSlotUnavailable on rejection.
func (s *Store) InsertBooking(ctx context.Context, p InsertBookingParams) (*Booking, error) {
	query := `
		INSERT INTO bookings (name, email, company, message, slot_date, slot_time, confirmation_token)
		SELECT $1, $2, $3, $4, $5::date, $6, $7
		WHERE NOT EXISTS (
			SELECT 1 FROM bookings
			WHERE email = $2 AND NOT cancelled AND slot_date >= $8::date
		)
		AND NOT EXISTS (
			SELECT 1 FROM blocked_slots WHERE slot_date = $5::date AND slot_time = $6
		)
		ON CONFLICT (slot_date, slot_time) WHERE NOT cancelled DO NOTHING
		RETURNING id, created_at
	`
	booking := &Booking{
		Name:    p.Name,
		Email:   p.Email,
		Company: p.Company,
		Message: p.Message,
		Date:    p.Date,
		Time:    p.Time,
		Token:   p.Token,
	}
	err := s.pool.QueryRow(ctx, query,
		p.Name, p.Email, p.Company, p.Message,
		p.Date.String(), p.Time, p.Token, p.Today.String(),
	).Scan(&booking.ID, &booking.CreatedAt)
	if err == nil {
		return booking, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) && !isUniqueViolation(err) {
		return nil, fmt.Errorf("ledger: insert booking: %w", err)
	}

	// The statement rejected the insert; classify why.
	if dup, derr := s.hasActiveUpcomingBooking(ctx, p.Email, p.Today); derr == nil && dup {
		return nil, ErrDuplicateBooking
	}
	return nil, ErrSlotUnavailable
}

func (s *Store) hasActiveUpcomingBooking(ctx context.Context, email string, today schedule.DayKey) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE email = $1 AND NOT cancelled AND slot_date >= $2::date
		)
	`
	var exists bool
	if err := s.pool.QueryRow(ctx, query, email, today.String()).Scan(&exists); err != nil {
		return false, fmt.Errorf("ledger: check duplicate booking: %w", err)
	}
	return exists, nil
}

const bookingColumns = `id, name, email, company, COALESCE(message, ''), slot_date, slot_time, confirmation_token, confirmed, cancelled, created_at`

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var date time.Time
	if err := row.Scan(&b.ID, &b.Name, &b.Email, &b.Company, &b.Message, &date, &b.Time, &b.Token, &b.Confirmed, &b.Cancelled, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.Date = schedule.ToDayKey(date)
	return &b, nil
}

// BookingByToken fetches a booking by its confirmation token.
func (s *Store) BookingByToken(ctx context.Context, token string) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE confirmation_token = $1`
	b, err := scanBooking(s.pool.QueryRow(ctx, query, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: load booking by token: %w", err)
	}
	return b, nil
}

// BookingByID fetches a booking by its internal id.
func (s *Store) BookingByID(ctx context.Context, id int64) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: load booking by id: %w", err)
	}
	return b, nil
}

// ConfirmBooking marks the booking confirmed. Returns true when this
// call performed the transition, false when it was already confirmed.
func (s *Store) ConfirmBooking(ctx context.Context, token string) (bool, error) {
	query := `UPDATE bookings SET confirmed = TRUE WHERE confirmation_token = $1 AND NOT confirmed`
	ct, err := s.pool.Exec(ctx, query, token)
	if err != nil {
		return false, fmt.Errorf("ledger: confirm booking: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// RescheduleBooking moves the booking to a new (day, time) in one
// statement; the old slot is implicitly freed because the row moves.
// Returns ErrSlotUnavailable when the target slot is booked or blocked.
func (s *Store) RescheduleBooking(ctx context.Context, token string, day schedule.DayKey, label string) (*Booking, error) {
	query := `
		UPDATE bookings
		SET slot_date = $2::date, slot_time = $3
		WHERE confirmation_token = $1
		AND NOT EXISTS (
			SELECT 1 FROM blocked_slots WHERE slot_date = $2::date AND slot_time = $3
		)
		AND NOT EXISTS (
			SELECT 1 FROM bookings o
			WHERE o.slot_date = $2::date AND o.slot_time = $3 AND NOT o.cancelled
			AND o.confirmation_token <> $1
		)
		RETURNING ` + bookingColumns
	b, err := scanBooking(s.pool.QueryRow(ctx, query, token, day.String(), label))
	if err == nil {
		return b, nil
	}
	if isUniqueViolation(err) {
		// Lost a race with a concurrent writer on the target slot.
		return nil, ErrSlotUnavailable
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ledger: reschedule booking: %w", err)
	}
	if _, lerr := s.BookingByToken(ctx, token); lerr != nil {
		return nil, lerr
	}
	return nil, ErrSlotUnavailable
}

// CancelBooking marks the booking cancelled. Returns true when this
// call performed the transition, false when it was already cancelled.
func (s *Store) CancelBooking(ctx context.Context, token string) (bool, error) {
	query := `UPDATE bookings SET cancelled = TRUE WHERE confirmation_token = $1 AND NOT cancelled`
	ct, err := s.pool.Exec(ctx, query, token)
	if err != nil {
		return false, fmt.Errorf("ledger: cancel booking: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// CancelBookingByID is the administrator variant of CancelBooking.
func (s *Store) CancelBookingByID(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE bookings SET cancelled = TRUE WHERE id = $1 AND NOT cancelled`
	ct, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("ledger: cancel booking by id: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// UpcomingBookings lists non-cancelled bookings with day >= today,
// ordered by (day, time). The limit is an operational safeguard.
func (s *Store) UpcomingBookings(ctx context.Context, today schedule.DayKey, limit int) ([]*Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE slot_date >= $1::date AND NOT cancelled
		ORDER BY slot_date, slot_time
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, today.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: list upcoming bookings: %w", err)
	}
	defer rows.Close()

	bookings := []*Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("ledger: scan upcoming booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// InsertBlock creates a single block. Blocking never overrides an
// existing booking; block-vs-block races are settled by the unique
// constraint on (slot_date, slot_time). Returns ErrSlotBooked or
// ErrSlotBlocked on rejection.
func (s *Store) InsertBlock(ctx context.Context, day schedule.DayKey, label, reason string) (*BlockedSlot, error) {
	query := `
		INSERT INTO blocked_slots (slot_date, slot_time, reason)
		SELECT $1::date, $2, $3
		WHERE NOT EXISTS (
			SELECT 1 FROM bookings WHERE slot_date = $1::date AND slot_time = $2 AND NOT cancelled
		)
		ON CONFLICT (slot_date, slot_time) DO NOTHING
		RETURNING id, created_at
	`
	block := &BlockedSlot{Date: day, Time: label, Reason: reason}
	err := s.pool.QueryRow(ctx, query, day.String(), label, reason).Scan(&block.ID, &block.CreatedAt)
	if err == nil {
		return block, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) && !isUniqueViolation(err) {
		return nil, fmt.Errorf("ledger: insert block: %w", err)
	}

	if booked, berr := s.hasActiveBooking(ctx, day, label); berr == nil && booked {
		return nil, ErrSlotBooked
	}
	return nil, ErrSlotBlocked
}

func (s *Store) hasActiveBooking(ctx context.Context, day schedule.DayKey, label string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM bookings WHERE slot_date = $1::date AND slot_time = $2 AND NOT cancelled)`
	var exists bool
	if err := s.pool.QueryRow(ctx, query, day.String(), label).Scan(&exists); err != nil {
		return false, fmt.Errorf("ledger: check booking: %w", err)
	}
	return exists, nil
}

// SlotRef identifies one (day, time) pair.
type SlotRef struct {
	Date schedule.DayKey
	Time string
}

// InsertBlocks applies a batch of blocks in one statement and returns
// the pairs that actually landed. Pairs lost to a concurrent writer are
// simply absent from the result and must be treated as conflicts by the
// caller, not as a failure of the whole batch.
func (s *Store) InsertBlocks(ctx context.Context, slots []SlotRef, reason string) ([]SlotRef, error) {
	if len(slots) == 0 {
		return []SlotRef{}, nil
	}
	dates := make([]string, len(slots))
	times := make([]string, len(slots))
	for i, ref := range slots {
		dates[i] = ref.Date.String()
		times[i] = ref.Time
	}

	query := `
		INSERT INTO blocked_slots (slot_date, slot_time, reason)
		SELECT p.d, p.t, $3
		FROM unnest($1::date[], $2::text[]) AS p(d, t)
		WHERE NOT EXISTS (
			SELECT 1 FROM bookings b WHERE b.slot_date = p.d AND b.slot_time = p.t AND NOT b.cancelled
		)
		ON CONFLICT (slot_date, slot_time) DO NOTHING
		RETURNING slot_date, slot_time
	`
	rows, err := s.pool.Query(ctx, query, dates, times, reason)
	if err != nil {
		return nil, fmt.Errorf("ledger: insert blocks: %w", err)
	}
	defer rows.Close()

	inserted := []SlotRef{}
	for rows.Next() {
		var date time.Time
		var label string
		if err := rows.Scan(&date, &label); err != nil {
			return nil, fmt.Errorf("ledger: scan inserted block: %w", err)
		}
		inserted = append(inserted, SlotRef{Date: schedule.ToDayKey(date), Time: label})
	}
	return inserted, rows.Err()
}

// DeleteBlocks removes blocks for the day and returns the labels that
// were actually removed; labels not currently blocked are silently
// absent from the result.
func (s *Store) DeleteBlocks(ctx context.Context, day schedule.DayKey, labels []string) ([]string, error) {
	query := `
		DELETE FROM blocked_slots
		WHERE slot_date = $1::date AND slot_time = ANY($2::text[])
		RETURNING slot_time
	`
	rows, err := s.pool.Query(ctx, query, day.String(), labels)
	if err != nil {
		return nil, fmt.Errorf("ledger: delete blocks: %w", err)
	}
	defer rows.Close()

	removed := []string{}
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("ledger: scan deleted block: %w", err)
		}
		removed = append(removed, label)
	}
	return removed, rows.Err()
}

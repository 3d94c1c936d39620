// Package blockedslots manages administrator holds on bookable slots,
// including bulk and recurring blocking.
package blockedslots

import (
	"context"
	"time"

	"github.com/datafirstseo/booking-backend/internal/ledger"
	"github.com/datafirstseo/booking-backend/internal/observability/metrics"
	"github.com/datafirstseo/booking-backend/internal/schedule"
	"github.com/datafirstseo/booking-backend/pkg/logging"
)

// BlockStore is the slice of the ledger store the service needs.
type BlockStore interface {
	SlotsByDate(ctx context.Context, day schedule.DayKey) (*ledger.DaySlots, error)
	InsertBlock(ctx context.Context, day schedule.DayKey, label, reason string) (*ledger.BlockedSlot, error)
	InsertBlocks(ctx context.Context, slots []ledger.SlotRef, reason string) ([]ledger.SlotRef, error)
	DeleteBlocks(ctx context.Context, day schedule.DayKey, labels []string) ([]string, error)
}

// Service applies blocking operations against the ledger.
type Service struct {
	store   BlockStore
	logger  *logging.Logger
	metrics *metrics.BookingMetrics
	now     func() time.Time
}

// NewService constructs a blocked-slots service.
func NewService(store BlockStore, logger *logging.Logger, m *metrics.BookingMetrics) *Service {
	if store == nil {
		panic("blockedslots: block store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, logger: logger, metrics: m, now: time.Now}
}

// SlotsByDate returns the blocked and booked labels for a day.
func (s *Service) SlotsByDate(ctx context.Context, day schedule.DayKey) (*ledger.DaySlots, error) {
	return s.store.SlotsByDate(ctx, day)
}

// Block places a single hold. Returns ledger.ErrSlotBooked when an
// active booking occupies the slot and ledger.ErrSlotBlocked when a
// hold already exists.
func (s *Service) Block(ctx context.Context, day schedule.DayKey, label, reason string) (*ledger.BlockedSlot, error) {
	block, err := s.store.InsertBlock(ctx, day, label, reason)
	if err != nil {
		return nil, err
	}
	s.logger.Info("slot blocked", "date", day, "time", label)
	return block, nil
}

// DayBlocks groups one day's labels in a bulk result.
type DayBlocks struct {
	Date  schedule.DayKey `json:"date"`
	Times []string        `json:"times"`
}

// BulkResult partitions a bulk request, per day, into the labels that
// were blocked and the labels that were already taken.
type BulkResult struct {
	Successful []DayBlocks `json:"successful"`
	Conflicts  []DayBlocks `json:"conflicts"`
}

// BlockBulk blocks every requested label on every requested day (the
// full cross product) in one ledger write. Pairs lost to existing
// bookings, existing holds, or concurrent writers land in Conflicts;
// the rest of the batch still succeeds.
func (s *Service) BlockBulk(ctx context.Context, days []schedule.DayKey, labels []string, reason string) (*BulkResult, error) {
	days = dedupe(days)
	labels = dedupe(labels)

	slots := make([]ledger.SlotRef, 0, len(days)*len(labels))
	for _, day := range days {
		for _, label := range labels {
			slots = append(slots, ledger.SlotRef{Date: day, Time: label})
		}
	}
	inserted, err := s.store.InsertBlocks(ctx, slots, reason)
	if err != nil {
		return nil, err
	}

	landed := make(map[ledger.SlotRef]bool, len(inserted))
	for _, ref := range inserted {
		landed[ref] = true
	}
	result := &BulkResult{Successful: []DayBlocks{}, Conflicts: []DayBlocks{}}
	var blocked, conflicted int
	for _, day := range days {
		ok := DayBlocks{Date: day, Times: []string{}}
		taken := DayBlocks{Date: day, Times: []string{}}
		for _, label := range labels {
			if landed[ledger.SlotRef{Date: day, Time: label}] {
				ok.Times = append(ok.Times, label)
			} else {
				taken.Times = append(taken.Times, label)
				s.metrics.ObserveConflict("block_collision")
			}
		}
		if len(ok.Times) > 0 {
			result.Successful = append(result.Successful, ok)
			blocked += len(ok.Times)
		}
		if len(taken.Times) > 0 {
			result.Conflicts = append(result.Conflicts, taken)
			conflicted += len(taken.Times)
		}
	}
	s.logger.Info("bulk block applied", "days", len(days), "blocked", blocked, "conflicts", conflicted)
	return result, nil
}

// BlockRecurring expands a weekday pattern into concrete dates and
// applies them as one bulk request. weekdays use 0=Sunday..6=Saturday;
// a weekday earlier in the current week rolls forward, never backward.
func (s *Service) BlockRecurring(ctx context.Context, weekdays []int, weeks int, labels []string, reason string) (*BulkResult, error) {
	return s.BlockBulk(ctx, schedule.ExpandRecurring(s.now(), weekdays, weeks), labels, reason)
}

// Unblock removes holds for a day and returns the labels actually
// removed. Unknown labels are skipped, not an error.
func (s *Service) Unblock(ctx context.Context, day schedule.DayKey, labels []string) ([]string, error) {
	removed, err := s.store.DeleteBlocks(ctx, day, labels)
	if err != nil {
		return nil, err
	}
	s.logger.Info("slots unblocked", "date", day, "removed", len(removed))
	return removed, nil
}

func dedupe[T comparable](in []T) []T {
	seen := make(map[T]bool, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

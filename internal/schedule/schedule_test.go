package schedule

import (
	"testing"
	"time"
)

func TestToDayKeyStableAcrossTimeOfDay(t *testing.T) {
	morning := time.Date(2026, 3, 14, 0, 0, 1, 0, time.UTC)
	night := time.Date(2026, 3, 14, 23, 59, 59, 0, time.UTC)

	if ToDayKey(morning) != ToDayKey(night) {
		t.Fatalf("same calendar day produced different keys: %s vs %s", ToDayKey(morning), ToDayKey(night))
	}
	if got := ToDayKey(morning); got != "2026-03-14" {
		t.Fatalf("unexpected key: %s", got)
	}
	// Calling twice on the same value yields the same string.
	if ToDayKey(morning) != ToDayKey(morning) {
		t.Fatal("ToDayKey is not stable")
	}
}

func TestToDayKeyNormalizesZones(t *testing.T) {
	// 2026-03-14 23:30 in UTC-5 is 2026-03-15 04:30 UTC; the UTC
	// convention must win regardless of the input's zone.
	est := time.FixedZone("EST", -5*3600)
	local := time.Date(2026, 3, 14, 23, 30, 0, 0, est)
	if got := ToDayKey(local); got != "2026-03-15" {
		t.Fatalf("expected UTC day 2026-03-15, got %s", got)
	}
}

func TestParseDayKey(t *testing.T) {
	day, err := ParseDayKey("2026-07-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if day != "2026-07-01" {
		t.Fatalf("unexpected day: %s", day)
	}
	if _, err := ParseDayKey("07/01/2026"); err == nil {
		t.Fatal("expected error for non-canonical format")
	}
	if _, err := ParseDayKey("2026-13-40"); err == nil {
		t.Fatal("expected error for impossible date")
	}
}

func TestSlotStart(t *testing.T) {
	start := SlotStart("2026-03-16", "14:00")
	want := time.Date(2026, 3, 16, 14, 0, 0, 0, time.UTC)
	if !start.Equal(want) {
		t.Fatalf("SlotStart = %s, want %s", start, want)
	}
}

func TestWeekendDetection(t *testing.T) {
	if !DayKey("2026-03-14").IsWeekend() { // Saturday
		t.Error("2026-03-14 should be a weekend")
	}
	if !DayKey("2026-03-15").IsWeekend() { // Sunday
		t.Error("2026-03-15 should be a weekend")
	}
	if DayKey("2026-03-16").IsWeekend() { // Monday
		t.Error("2026-03-16 should not be a weekend")
	}
}

func TestValidSlot(t *testing.T) {
	for _, label := range TimeSlots {
		if !ValidSlot(label) {
			t.Errorf("catalog slot %s reported invalid", label)
		}
	}
	for _, label := range []string{"13:00", "08:00", "9:00", ""} {
		if ValidSlot(label) {
			t.Errorf("non-catalog slot %s reported valid", label)
		}
	}
}

func TestExpandRecurringForwardOnly(t *testing.T) {
	// Anchor on a Wednesday. Requesting Monday(1) and Friday(5) for two
	// weeks: Monday rolls forward to next week's Monday, never backward.
	anchor := time.Date(2026, 3, 18, 10, 0, 0, 0, time.UTC) // Wednesday
	days := ExpandRecurring(anchor, []int{1, 5}, 2)

	want := []DayKey{
		"2026-03-23", // Monday after the anchor, same request week
		"2026-03-20", // Friday of the anchor week
		"2026-03-30", // Monday, week 2
		"2026-03-27", // Friday, week 2
	}
	if len(days) != len(want) {
		t.Fatalf("expected %d days, got %d: %v", len(want), len(days), days)
	}
	for i, d := range want {
		if days[i] != d {
			t.Errorf("days[%d] = %s, want %s", i, days[i], d)
		}
	}
}

func TestExpandRecurringSkipsInvalidWeekdays(t *testing.T) {
	anchor := time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)
	days := ExpandRecurring(anchor, []int{7, -1}, 3)
	if len(days) != 0 {
		t.Fatalf("expected no days for out-of-range weekdays, got %v", days)
	}
}

func TestFormatting(t *testing.T) {
	if got := FormatTime("14:00"); got != "2:00 PM" {
		t.Errorf("FormatTime = %q", got)
	}
	if got := FormatTime("09:00"); got != "9:00 AM" {
		t.Errorf("FormatTime = %q", got)
	}
	if got := FormatDate("2026-03-16"); got != "Monday, March 16, 2026" {
		t.Errorf("FormatDate = %q", got)
	}
}

// Package schedule defines the canonical day-key format and the fixed
// daily slot catalog shared by availability computation and the UI.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DayKey is a calendar date in canonical YYYY-MM-DD form. It is the
// partition key for slot availability and is compared/joined against
// directly in storage, so the format must stay stable.
type DayKey string

const dayKeyLayout = "2006-01-02"

// TimeSlots is the fixed ordered catalog of bookable time-of-day labels.
// Order defines display and iteration order. Keep in sync with the frontend.
var TimeSlots = []string{"09:00", "10:00", "11:00", "14:00", "15:00", "16:00"}

// ToDayKey normalizes a point in time to its UTC calendar day. The UTC
// convention is applied uniformly across slot lookup, insertion and the
// next-available search; mixing it with local-time keys reintroduces
// day-boundary bugs.
func ToDayKey(t time.Time) DayKey {
	return DayKey(t.UTC().Format(dayKeyLayout))
}

// ParseDayKey validates and parses a YYYY-MM-DD string.
func ParseDayKey(s string) (DayKey, error) {
	t, err := time.ParseInLocation(dayKeyLayout, s, time.UTC)
	if err != nil {
		return "", fmt.Errorf("schedule: invalid day key %q: %w", s, err)
	}
	return ToDayKey(t), nil
}

// Time returns midnight UTC of the day.
func (d DayKey) Time() time.Time {
	t, err := time.ParseInLocation(dayKeyLayout, string(d), time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays returns the day key n days after d.
func (d DayKey) AddDays(n int) DayKey {
	return ToDayKey(d.Time().AddDate(0, 0, n))
}

// Weekday returns the day-of-week with 0=Sunday..6=Saturday.
func (d DayKey) Weekday() int {
	return int(d.Time().Weekday())
}

// IsWeekend reports whether the day falls on Saturday or Sunday.
func (d DayKey) IsWeekend() bool {
	wd := d.Time().Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d DayKey) String() string { return string(d) }

// ValidSlot reports whether the label is part of the catalog.
func ValidSlot(label string) bool {
	for _, s := range TimeSlots {
		if s == label {
			return true
		}
	}
	return false
}

// SlotStart returns the absolute UTC start time of a slot on a day.
func SlotStart(day DayKey, label string) time.Time {
	base := day.Time()
	parts := strings.SplitN(label, ":", 2)
	hour, _ := strconv.Atoi(parts[0])
	minute := 0
	if len(parts) == 2 {
		minute, _ = strconv.Atoi(parts[1])
	}
	return base.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// ExpandRecurring computes the concrete day keys for a recurring block
// request: for each of weeks consecutive weeks starting at the week
// containing anchor, and each requested weekday (0=Sunday..6=Saturday),
// the date landing on that weekday within the week. The scan is
// forward-only within a week: a weekday earlier in the week than the
// anchor rolls over to the next occurrence, never backward.
func ExpandRecurring(anchor time.Time, weekdays []int, weeks int) []DayKey {
	var days []DayKey
	start := ToDayKey(anchor)
	for week := 0; week < weeks; week++ {
		base := start.AddDays(week * 7)
		for _, target := range weekdays {
			if target < 0 || target > 6 {
				continue
			}
			offset := (target - base.Weekday() + 7) % 7
			days = append(days, base.AddDays(offset))
		}
	}
	return days
}

// FormatTime renders a catalog label as a 12-hour clock string, e.g.
// "14:00" -> "2:00 PM". Presentation only; emails use it.
func FormatTime(label string) string {
	t, err := time.Parse("15:04", label)
	if err != nil {
		return label
	}
	return t.Format("3:04 PM")
}

// FormatDate renders a day key for humans, e.g. "Monday, January 2, 2006".
func FormatDate(day DayKey) string {
	return day.Time().Format("Monday, January 2, 2006")
}

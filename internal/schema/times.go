package schema

import (
	"strings"
	"time"
)

// DueLayout is the cache form of a reminder due instant (local wall clock).
const DueLayout = "2006-01-02 15:04:05"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000000Z",
	DueLayout,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp formats the API emits. Unparseable
// input yields the zero time.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ComposeDueAt joins the wire date and time fields into DueLayout form.
// The clock is normalized by NormalizeClock; a date carrying a time suffix keeps only the date.
func ComposeDueAt(date, clock string) string {
	date = strings.TrimSpace(date)
	if len(date) > 10 {
		date = date[:10]
	}
	return date + " " + NormalizeClock(clock)
}

var clockLayouts = []string{"15:04:05", "15:04", "15.04"}

// NormalizeClock returns an "HH:MM:SS" wall clock for "H:MM", "HH:MM",
// "HH.MM" or "HH:MM:SS" input, dropping fractional seconds. Other input is
// returned trimmed.
func NormalizeClock(clock string) string {
	clock = strings.TrimSpace(clock)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, clock); err == nil {
			return t.Format("15:04:05")
		}
	}
	if len(clock) > 8 && clock[2] == ':' && clock[5] == ':' {
		return clock[:8]
	}
	return clock
}

// ShortClock trims seconds from an "HH:MM:SS" wall clock for display.
func ShortClock(clock string) string {
	clock = strings.TrimSpace(clock)
	if len(clock) >= 8 && clock[2] == ':' && clock[5] == ':' {
		return clock[:5]
	}
	return clock
}

// SplitDueAt splits t into the wire date and time fields.
func SplitDueAt(t time.Time) (date, clock string) {
	return t.Format("2006-01-02"), t.Format("15:04:05")
}

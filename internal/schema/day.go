package schema

import (
	"strings"
	"time"
)

// UnknownDayIndex sorts schedules with unrecognized day names last.
const UnknownDayIndex = 7

var dayNames = map[string]time.Weekday{
	"monday": time.Monday, "mon": time.Monday, "senin": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "selasa": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday, "rabu": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "kamis": time.Thursday,
	"friday": time.Friday, "fri": time.Friday, "jumat": time.Friday, "jum'at": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday, "sabtu": time.Saturday,
	"sunday": time.Sunday, "sun": time.Sunday, "minggu": time.Sunday, "ahad": time.Sunday,
}

// ParseDay maps an English or Indonesian day name to a weekday. Matching is
// case-insensitive.
func ParseDay(name string) (time.Weekday, bool) {
	wd, ok := dayNames[strings.ToLower(strings.TrimSpace(name))]
	return wd, ok
}

// DayIndex returns the Monday-first position of a day name, or
// UnknownDayIndex.
func DayIndex(name string) int {
	wd, ok := ParseDay(name)
	if !ok {
		return UnknownDayIndex
	}
	return (int(wd) + 6) % 7
}

// DayLabel returns the English name for a recognized day, or the input
// unchanged.
func DayLabel(name string) string {
	if wd, ok := ParseDay(name); ok {
		return wd.String()
	}
	return name
}

package alarm

import (
	"time"

	"github.com/campusnote/campusnote/internal/schema"
)

const (
	// ReferenceHour is the local hour at which weekly schedule alarms fire.
	ReferenceHour = 7

	// SameDayDelay is how soon a schedule whose weekday is today fires.
	SameDayDelay = 5 * time.Second
)

// ReminderTrigger returns the instant a reminder due at dueAt (DueLayout,
// interpreted in now's location) should fire. ok is false when dueAt does not
// parse or is not strictly after now.
func ReminderTrigger(dueAt string, now time.Time) (time.Time, bool) {
	t, err := time.ParseInLocation(schema.DueLayout, dueAt, now.Location())
	if err != nil {
		return time.Time{}, false
	}
	if !t.After(now) {
		return time.Time{}, false
	}
	return t, true
}

// ScheduleTrigger returns the next alarm instant for a weekly class held on
// day. A class held today fires SameDayDelay from now; any other day fires at
// ReferenceHour on its next occurrence. ok is false for unrecognized days.
func ScheduleTrigger(day string, now time.Time) (time.Time, bool) {
	wd, ok := schema.ParseDay(day)
	if !ok {
		return time.Time{}, false
	}
	if wd == now.Weekday() {
		return now.Add(SameDayDelay), true
	}

	ahead := (int(wd) - int(now.Weekday()) + 7) % 7
	t := time.Date(now.Year(), now.Month(), now.Day()+ahead, ReferenceHour, 0, 0, 0, now.Location())
	if !t.After(now) {
		t = t.AddDate(0, 0, 7)
	}
	return t, true
}

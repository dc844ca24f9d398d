package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/campusnote/campusnote/internal/schema"
)

// dueLayouts are tried before natural language parsing. A date without a
// clock falls due at the start of that day.
var dueLayouts = []string{
	schema.DueLayout,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

var dueParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseDue resolves a due date given as a timestamp ("2026-10-20 09:00") or
// as English text relative to now ("tomorrow 9am", "next friday at 14:00").
func parseDue(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("due date is required")
	}
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, nil
		}
	}

	r, err := dueParser.Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse due date %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("unrecognized due date %q", s)
	}
	return r.Time.Truncate(time.Minute), nil
}

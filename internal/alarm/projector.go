package alarm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/campusnote/campusnote/internal/schema"
)

// Projector turns cache snapshots into Scheduler calls. Each snapshot is the
// complete set for its kind: rows that disappear have their alarm cancelled.
//
// Re-projecting an unchanged row is a no-op, so a class held today fires
// once per day rather than on every snapshot.
type Projector struct {
	sched *Scheduler

	mu        sync.Mutex
	projected map[Key]string
}

// NewProjector creates a Projector feeding sched.
func NewProjector(sched *Scheduler) *Projector {
	return &Projector{sched: sched, projected: make(map[Key]string)}
}

// Schedules projects a snapshot of schedule rows.
func (p *Projector) Schedules(rows []schema.Schedule) {
	now := p.sched.Now()
	alarms := make(map[Key]projection, len(rows))
	for _, row := range rows {
		at, ok := ScheduleTrigger(row.Day, now)
		if !ok {
			continue
		}
		a := Alarm{
			Key:    Key{Kind: KindSchedule, ID: row.ID},
			UserID: row.UserID,
			Title:  row.CourseName,
			Body:   scheduleBody(row),
			At:     at,
		}
		sig := strings.Join([]string{at.Format("2006-01-02"), row.UserID, row.CourseName, a.Body}, "|")
		alarms[a.Key] = projection{alarm: a, sig: sig}
	}
	p.apply(KindSchedule, alarms)
}

// Reminders projects a snapshot of reminder rows. Completed reminders and
// reminders already due are not armed.
func (p *Projector) Reminders(rows []schema.Reminder) {
	now := p.sched.Now()
	alarms := make(map[Key]projection, len(rows))
	for _, row := range rows {
		if row.IsCompleted {
			continue
		}
		at, ok := ReminderTrigger(row.DueAt, now)
		if !ok {
			continue
		}
		body := row.DueAt
		if row.Description != nil && *row.Description != "" {
			body = *row.Description
		}
		a := Alarm{
			Key:    Key{Kind: KindReminder, ID: row.ID},
			UserID: row.UserID,
			Title:  row.Subject,
			Body:   body,
			At:     at,
		}
		sig := strings.Join([]string{at.Format(time.RFC3339), row.UserID, row.Subject, body}, "|")
		alarms[a.Key] = projection{alarm: a, sig: sig}
	}
	p.apply(KindReminder, alarms)
}

// Run projects snapshots from both streams until ctx is done or both
// streams are closed. Either stream may be nil.
func (p *Projector) Run(ctx context.Context, schedules <-chan []schema.Schedule, reminders <-chan []schema.Reminder) {
	for schedules != nil || reminders != nil {
		select {
		case <-ctx.Done():
			return
		case rows, ok := <-schedules:
			if !ok {
				schedules = nil
				continue
			}
			p.Schedules(rows)
		case rows, ok := <-reminders:
			if !ok {
				reminders = nil
				continue
			}
			p.Reminders(rows)
		}
	}
}

type projection struct {
	alarm Alarm
	sig   string
}

func (p *Projector) apply(kind Kind, next map[Key]projection) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key := range p.projected {
		if key.Kind != kind {
			continue
		}
		if _, ok := next[key]; !ok {
			p.sched.Cancel(key)
			delete(p.projected, key)
		}
	}

	for key, proj := range next {
		if p.projected[key] == proj.sig {
			continue
		}
		p.sched.Schedule(proj.alarm)
		p.projected[key] = proj.sig
	}
}

func scheduleBody(row schema.Schedule) string {
	body := fmt.Sprintf("%s %s-%s", schema.DayLabel(row.Day), schema.ShortClock(row.StartTime), schema.ShortClock(row.EndTime))
	if row.Room != nil && *row.Room != "" {
		body += " in " + *row.Room
	}
	return body
}

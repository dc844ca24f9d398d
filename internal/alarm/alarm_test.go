package alarm

import (
	"context"
	"io"
	"log"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/campusnote/campusnote/internal/schema"
	"github.com/campusnote/campusnote/internal/session"
)

// 2026-10-19 is a Monday.
var monday0900 = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func TestScheduleTrigger(t *testing.T) {
	tests := []struct {
		name string
		day  string
		now  time.Time
		want time.Time
		ok   bool
	}{
		{"same day fires promptly", "Senin", monday0900, monday0900.Add(5 * time.Second), true},
		{"english same day", "monday", monday0900, monday0900.Add(5 * time.Second), true},
		{"tomorrow at seven", "selasa", monday0900, time.Date(2026, 10, 20, 7, 0, 0, 0, time.UTC), true},
		{"sunday", "Ahad", monday0900, time.Date(2026, 10, 25, 7, 0, 0, 0, time.UTC), true},
		{"wraps the week", "minggu", time.Date(2026, 10, 24, 23, 0, 0, 0, time.UTC), time.Date(2026, 10, 25, 7, 0, 0, 0, time.UTC), true},
		{"friday from saturday", "Jum'at", time.Date(2026, 10, 24, 6, 0, 0, 0, time.UTC), time.Date(2026, 10, 30, 7, 0, 0, 0, time.UTC), true},
		{"unknown day", "someday", monday0900, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ScheduleTrigger(tt.day, tt.now)
			if ok != tt.ok {
				t.Fatalf("ScheduleTrigger() ok = %v, want %v", ok, tt.ok)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ScheduleTrigger() = %v, want %v", got, tt.want)
			}
			if ok && !got.After(tt.now) {
				t.Errorf("trigger %v is not after now %v", got, tt.now)
			}
		})
	}
}

func TestReminderTrigger(t *testing.T) {
	tests := []struct {
		name  string
		dueAt string
		want  time.Time
		ok    bool
	}{
		{"future", "2026-10-20 08:30:00", time.Date(2026, 10, 20, 8, 30, 0, 0, time.UTC), true},
		{"now is not future", "2026-10-19 09:00:00", time.Time{}, false},
		{"past", "2026-10-01 09:00:00", time.Time{}, false},
		{"unparseable", "tomorrow", time.Time{}, false},
		{"missing seconds", "2026-10-20 08:30", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ReminderTrigger(tt.dueAt, monday0900)
			if ok != tt.ok || !got.Equal(tt.want) {
				t.Errorf("ReminderTrigger(%q) = %v, %v; want %v, %v", tt.dueAt, got, ok, tt.want, tt.ok)
			}
		})
	}
}

// manualClock fires timers only when advanced.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and runs due timers in order.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

type recorder struct {
	mu    sync.Mutex
	fired []Alarm
}

func (r *recorder) Dispatch(ctx context.Context, a Alarm) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, a)
	return nil
}

func (r *recorder) keys() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Key, len(r.fired))
	for i, a := range r.fired {
		out[i] = a.Key
	}
	return out
}

func newTestScheduler(d Dispatcher) (*Scheduler, *manualClock) {
	clock := &manualClock{now: monday0900}
	s := NewScheduler(d, &Config{Clock: clock, Logger: log.New(io.Discard, "", 0)})
	return s, clock
}

func TestScheduler_FiresAndReplaces(t *testing.T) {
	rec := &recorder{}
	s, clock := newTestScheduler(rec)

	key := Key{Kind: KindReminder, ID: "r1"}
	if !s.Schedule(Alarm{Key: key, Title: "first", At: monday0900.Add(time.Minute)}) {
		t.Fatal("Schedule() = false")
	}
	if !s.Schedule(Alarm{Key: key, Title: "second", At: monday0900.Add(2 * time.Minute)}) {
		t.Fatal("Schedule() = false on replace")
	}
	if n := len(s.Pending()); n != 1 {
		t.Fatalf("Pending() has %d alarms, want 1", n)
	}

	clock.Advance(time.Minute)
	if len(rec.keys()) != 0 {
		t.Fatalf("replaced alarm fired: %+v", rec.fired)
	}

	clock.Advance(time.Minute)
	if len(rec.fired) != 1 || rec.fired[0].Title != "second" {
		t.Fatalf("fired = %+v, want only the replacement", rec.fired)
	}
	if n := len(s.Pending()); n != 0 {
		t.Errorf("Pending() has %d alarms after firing", n)
	}
}

func TestScheduler_NeverArmsPastAlarms(t *testing.T) {
	rec := &recorder{}
	s, clock := newTestScheduler(rec)

	key := Key{Kind: KindSchedule, ID: "s1"}
	s.Schedule(Alarm{Key: key, At: monday0900.Add(time.Hour)})

	if s.Schedule(Alarm{Key: key, At: monday0900}) {
		t.Error("Schedule() armed an alarm at now")
	}
	if s.Schedule(Alarm{Key: key, At: monday0900.Add(-time.Hour)}) {
		t.Error("Schedule() armed an alarm in the past")
	}
	if n := len(s.Pending()); n != 0 {
		t.Errorf("Pending() = %d, previous alarm should be cancelled", n)
	}

	clock.Advance(2 * time.Hour)
	if len(rec.keys()) != 0 {
		t.Errorf("fired = %v", rec.keys())
	}
}

func TestScheduler_CancelAndOrder(t *testing.T) {
	rec := &recorder{}
	s, clock := newTestScheduler(rec)

	s.Schedule(Alarm{Key: Key{KindReminder, "late"}, At: monday0900.Add(3 * time.Minute)})
	s.Schedule(Alarm{Key: Key{KindReminder, "early"}, At: monday0900.Add(time.Minute)})
	s.Schedule(Alarm{Key: Key{KindSchedule, "gone"}, At: monday0900.Add(2 * time.Minute)})

	pending := s.Pending()
	if len(pending) != 3 || pending[0].ID != "early" || pending[2].ID != "late" {
		t.Fatalf("Pending() = %+v", pending)
	}

	s.CancelSchedule("gone")
	if s.Cancel(Key{KindSchedule, "gone"}) {
		t.Error("Cancel() of a cancelled alarm = true")
	}

	clock.Advance(5 * time.Minute)
	got := rec.keys()
	if len(got) != 2 || got[0].ID != "early" || got[1].ID != "late" {
		t.Errorf("fired = %v", got)
	}
}

func TestScheduler_Stop(t *testing.T) {
	rec := &recorder{}
	s, clock := newTestScheduler(rec)

	s.Schedule(Alarm{Key: Key{KindReminder, "r1"}, At: monday0900.Add(time.Minute)})
	s.Stop()
	if s.Schedule(Alarm{Key: Key{KindReminder, "r2"}, At: monday0900.Add(time.Minute)}) {
		t.Error("Schedule() after Stop() = true")
	}
	clock.Advance(time.Hour)
	if len(rec.keys()) != 0 {
		t.Errorf("fired after Stop(): %v", rec.keys())
	}
}

func TestUserFilter(t *testing.T) {
	rec := &recorder{}
	sess := session.New(session.State{UserID: "7", Token: "t"})
	f := &UserFilter{Session: sess, Next: rec, Logger: log.New(io.Discard, "", 0)}
	ctx := context.Background()

	f.Dispatch(ctx, Alarm{Key: Key{KindReminder, "mine"}, UserID: "7"})
	f.Dispatch(ctx, Alarm{Key: Key{KindReminder, "theirs"}, UserID: "8"})
	f.Dispatch(ctx, Alarm{Key: Key{KindReminder, "anyone"}})

	sess.Set(session.State{UserID: "8", Token: "t2"})
	f.Dispatch(ctx, Alarm{Key: Key{KindReminder, "switched"}, UserID: "8"})

	got := rec.keys()
	want := []string{"mine", "anyone", "switched"}
	if len(got) != len(want) {
		t.Fatalf("delivered = %v, want %v", got, want)
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("delivered[%d] = %s, want %s", i, got[i].ID, want[i])
		}
	}
}

func TestProjector_Schedules(t *testing.T) {
	rec := &recorder{}
	s, clock := newTestScheduler(rec)
	p := NewProjector(s)

	rows := []schema.Schedule{
		{ID: "today", UserID: "7", CourseName: "Algo", Day: "Senin", StartTime: "10:00:00", EndTime: "11:40:00"},
		{ID: "tue", UserID: "7", CourseName: "Basis Data", Day: "Selasa", StartTime: "08:00:00", EndTime: "09:40:00"},
		{ID: "bad", UserID: "7", CourseName: "?", Day: "Funday"},
	}
	p.Schedules(rows)

	pending := s.Pending()
	if len(pending) != 2 {
		t.Fatalf("Pending() = %+v, want 2", pending)
	}
	if pending[0].ID != "today" || !pending[0].At.Equal(monday0900.Add(SameDayDelay)) {
		t.Errorf("first alarm = %+v", pending[0])
	}
	if pending[0].Body != "Monday 10:00-11:40" {
		t.Errorf("Body = %q", pending[0].Body)
	}

	clock.Advance(10 * time.Second)
	if got := rec.keys(); len(got) != 1 || got[0].ID != "today" {
		t.Fatalf("fired = %v", got)
	}

	// Re-projecting the same snapshot later the same day does not fire again.
	clock.Advance(time.Hour)
	p.Schedules(rows)
	clock.Advance(time.Minute)
	if got := rec.keys(); len(got) != 1 {
		t.Errorf("fired again: %v", got)
	}

	// A row disappearing cancels its alarm.
	p.Schedules(rows[:1])
	for _, a := range s.Pending() {
		if a.ID == "tue" {
			t.Errorf("alarm for removed schedule still pending")
		}
	}
}

func TestProjector_Reminders(t *testing.T) {
	rec := &recorder{}
	s, _ := newTestScheduler(rec)
	p := NewProjector(s)

	desc := "bring calculator"
	rows := []schema.Reminder{
		{ID: "r1", UserID: "7", Subject: "Quiz", DueAt: "2026-10-19 10:00:00", Description: &desc},
		{ID: "r2", UserID: "7", Subject: "Done", DueAt: "2026-10-19 11:00:00", IsCompleted: true},
		{ID: "r3", UserID: "7", Subject: "Past", DueAt: "2026-10-18 11:00:00"},
	}
	p.Reminders(rows)

	pending := s.Pending()
	if len(pending) != 1 || pending[0].ID != "r1" || pending[0].Body != desc {
		t.Fatalf("Pending() = %+v", pending)
	}

	// Completing the reminder cancels its alarm.
	rows[0].IsCompleted = true
	p.Reminders(rows)
	if n := len(s.Pending()); n != 0 {
		t.Errorf("Pending() = %d after completion", n)
	}

	// Moving the due time re-arms.
	rows[0].IsCompleted = false
	rows[0].DueAt = "2026-10-19 12:00:00"
	p.Reminders(rows)
	if pending := s.Pending(); len(pending) != 1 || pending[0].At.Hour() != 12 {
		t.Errorf("Pending() = %+v", pending)
	}
}

func TestProjector_Run(t *testing.T) {
	s, _ := newTestScheduler(&recorder{})
	p := NewProjector(s)

	schedules := make(chan []schema.Schedule, 1)
	reminders := make(chan []schema.Reminder, 1)
	schedules <- []schema.Schedule{{ID: "s1", Day: "Rabu"}}
	reminders <- []schema.Reminder{{ID: "r1", DueAt: "2026-10-20 08:00:00"}}
	close(schedules)
	close(reminders)

	done := make(chan struct{})
	go func() {
		p.Run(context.Background(), schedules, reminders)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after both streams closed")
	}
	if n := len(s.Pending()); n != 2 {
		t.Errorf("Pending() = %d, want 2", n)
	}
}

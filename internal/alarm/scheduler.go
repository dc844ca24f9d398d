package alarm

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"time"
)

// Kind names the entity an alarm belongs to.
type Kind string

const (
	KindSchedule Kind = "schedule"
	KindReminder Kind = "reminder"
)

// Key identifies an alarm. At most one alarm per key is pending.
type Key struct {
	Kind Kind
	ID   string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Kind, k.ID)
}

// Alarm is a single pending notification.
type Alarm struct {
	Key
	// UserID owns the alarm. Empty means any user.
	UserID string
	Title  string
	Body   string
	At     time.Time
}

// Dispatcher delivers fired alarms.
type Dispatcher interface {
	Dispatch(ctx context.Context, a Alarm) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, a Alarm) error

func (f DispatcherFunc) Dispatch(ctx context.Context, a Alarm) error {
	return f(ctx, a)
}

// Timer is a pending callback that can be stopped.
type Timer interface {
	Stop() bool
}

// Clock abstracts time for the Scheduler.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Config holds Scheduler options.
type Config struct {
	// Clock defaults to the wall clock.
	Clock Clock

	// Logger for scheduler activity
	Logger *log.Logger
}

// DefaultConfig returns a wall-clock configuration logging to stderr.
func DefaultConfig() *Config {
	return &Config{
		Clock:  realClock{},
		Logger: log.New(os.Stderr, "[alarm] ", log.LstdFlags),
	}
}

type entry struct {
	alarm Alarm
	timer Timer
	seq   uint64
}

// Scheduler keeps one timer per Key and hands fired alarms to a Dispatcher.
// It is safe for concurrent use.
type Scheduler struct {
	dispatch Dispatcher
	config   *Config

	mu      sync.Mutex
	pending map[Key]*entry
	seq     uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a Scheduler delivering to d.
func NewScheduler(d Dispatcher, config *Config) *Scheduler {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Clock == nil {
		config.Clock = realClock{}
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		dispatch: d,
		config:   config,
		pending:  make(map[Key]*entry),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Now returns the scheduler's current time.
func (s *Scheduler) Now() time.Time {
	return s.config.Clock.Now()
}

// Schedule arms a, replacing any pending alarm with the same key. An alarm
// that is not strictly in the future is not armed, and the previous one for
// its key is cancelled. Schedule reports whether a was armed.
func (s *Scheduler) Schedule(a Alarm) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked(a.Key)
	if s.ctx.Err() != nil {
		return false
	}

	now := s.config.Clock.Now()
	if !a.At.After(now) {
		s.config.Logger.Printf("Skipping %s: %s is not in the future", a.Key, a.At.Format(time.RFC3339))
		return false
	}

	s.seq++
	seq := s.seq
	key := a.Key
	e := &entry{alarm: a, seq: seq}
	e.timer = s.config.Clock.AfterFunc(a.At.Sub(now), func() { s.fire(key, seq) })
	s.pending[key] = e
	return true
}

// Cancel stops the pending alarm for key. It reports whether one was pending.
func (s *Scheduler) Cancel(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked(key)
}

// CancelSchedule cancels the alarm of schedule id.
func (s *Scheduler) CancelSchedule(id string) {
	s.Cancel(Key{Kind: KindSchedule, ID: id})
}

// CancelReminder cancels the alarm of reminder id.
func (s *Scheduler) CancelReminder(id string) {
	s.Cancel(Key{Kind: KindReminder, ID: id})
}

// Pending returns the armed alarms, earliest first.
func (s *Scheduler) Pending() []Alarm {
	s.mu.Lock()
	out := make([]Alarm, 0, len(s.pending))
	for _, e := range s.pending {
		out = append(out, e.alarm)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].At.Equal(out[j].At) {
			return out[i].Key.String() < out[j].Key.String()
		}
		return out[i].At.Before(out[j].At)
	})
	return out
}

// Stop cancels every pending alarm. Schedule is a no-op afterwards.
func (s *Scheduler) Stop() {
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.pending {
		s.stopLocked(key)
	}
}

func (s *Scheduler) stopLocked(key Key) bool {
	e, ok := s.pending[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.pending, key)
	return true
}

func (s *Scheduler) fire(key Key, seq uint64) {
	s.mu.Lock()
	e, ok := s.pending[key]
	if !ok || e.seq != seq {
		// Replaced or cancelled after the timer was already running.
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	s.mu.Unlock()

	if err := s.dispatch.Dispatch(s.ctx, e.alarm); err != nil {
		s.config.Logger.Printf("Error dispatching %s: %v", key, err)
	}
}

// Package daemon keeps the local cache fresh and alarms armed while running
// in the background.
//
// The daemon:
//  1. Refreshes schedules and reminders of the signed-in user on start
//  2. Refreshes them again on every tick of the refresh interval
//  3. Projects every cache snapshot onto the alarm scheduler
//  4. Follows the session file, re-scoping and refreshing on account switch
//  5. Handles graceful shutdown
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/campusnote/campusnote/internal/alarm"
	"github.com/campusnote/campusnote/internal/repo"
	"github.com/campusnote/campusnote/internal/session"
)

// Config holds configuration for the daemon.
type Config struct {
	// RefreshInterval is how often schedules and reminders are re-fetched
	RefreshInterval time.Duration

	// Logger for daemon activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RefreshInterval: 5 * time.Minute,
		Logger:          log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Deps are the components the daemon drives.
type Deps struct {
	Schedules *repo.ScheduleRepository
	Reminders *repo.ReminderRepository
	Session   *session.Session
	Scheduler *alarm.Scheduler

	// Store, when set, is watched for sessions written by other processes.
	Store *session.Store
}

// Daemon orchestrates periodic refresh and alarm projection.
type Daemon struct {
	deps      Deps
	config    *Config
	projector *alarm.Projector

	// kick requests an immediate refresh.
	kick chan struct{}

	mu       sync.Mutex
	lastSync time.Time
	lastErr  error

	wg sync.WaitGroup
}

// New creates a Daemon. Use Run to start it.
func New(deps Deps, config *Config) (*Daemon, error) {
	if deps.Schedules == nil || deps.Reminders == nil {
		return nil, fmt.Errorf("schedule and reminder repositories are required")
	}
	if deps.Session == nil {
		return nil, fmt.Errorf("session cannot be nil")
	}
	if deps.Scheduler == nil {
		return nil, fmt.Errorf("scheduler cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = DefaultConfig().RefreshInterval
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}

	return &Daemon{
		deps:      deps,
		config:    config,
		projector: alarm.NewProjector(deps.Scheduler),
		kick:      make(chan struct{}, 1),
	}, nil
}

// Run performs the initial refresh and then keeps refreshing and projecting
// until ctx is cancelled. A failed refresh is logged; the daemon keeps
// serving alarms from the cache.
func (d *Daemon) Run(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	if err := d.RefreshAll(ctx); err != nil {
		d.config.Logger.Printf("Initial refresh failed: %v", err)
	}

	d.wg.Add(2)
	go d.refreshLoop(ctx)
	go d.projectLoop(ctx)

	if d.deps.Store != nil {
		d.wg.Add(1)
		go d.followSession(ctx)
	}

	<-ctx.Done()
	d.config.Logger.Println("Shutdown signal received")

	d.wg.Wait()
	d.deps.Scheduler.Stop()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// RefreshAll refreshes schedules and reminders of the signed-in user. It does
// nothing while signed out or when the token has expired.
func (d *Daemon) RefreshAll(ctx context.Context) error {
	state := d.deps.Session.Current()
	if !state.SignedIn() {
		d.config.Logger.Println("Not signed in; skipping refresh")
		return nil
	}
	if state.Expired(time.Now()) {
		d.config.Logger.Printf("Session of user %s expired at %s; skipping refresh", state.UserID, state.ExpiresAt.Format(time.RFC3339))
		return nil
	}

	err := errors.Join(
		d.deps.Schedules.Refresh(ctx, nil),
		d.deps.Reminders.Refresh(ctx, nil),
	)

	d.mu.Lock()
	d.lastSync = time.Now()
	d.lastErr = err
	d.mu.Unlock()
	return err
}

// Status reports the last refresh.
func (d *Daemon) Status() (lastSync time.Time, lastErr error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastSync, d.lastErr
}

// Kick requests a refresh outside the regular interval.
func (d *Daemon) Kick() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// refreshLoop refreshes on every tick and on every kick.
func (d *Daemon) refreshLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
		case <-d.kick:
		}

		if err := d.RefreshAll(ctx); err != nil && ctx.Err() == nil {
			d.config.Logger.Printf("Error refreshing: %v", err)
		}
	}
}

// projectLoop feeds cache snapshots of the signed-in user to the projector,
// restarting the streams whenever the user changes.
func (d *Daemon) projectLoop(ctx context.Context) {
	defer d.wg.Done()

	var (
		running sync.WaitGroup
		stop    = func() {}
		scope   string
		started bool
	)
	defer func() {
		stop()
		running.Wait()
	}()

	for state := range d.deps.Session.Subscribe(ctx) {
		if started && state.UserID == scope {
			continue
		}
		if started {
			d.config.Logger.Printf("Re-scoping alarms to user %q", state.UserID)
			d.Kick()
		}

		stop()
		running.Wait()

		scope, started = state.UserID, true
		pctx, cancel := context.WithCancel(ctx)
		stop = cancel

		running.Add(1)
		go func() {
			defer running.Done()
			d.projector.Run(pctx, d.deps.Schedules.Observe(pctx, nil), d.deps.Reminders.Observe(pctx, nil))
		}()
	}
}

func (d *Daemon) followSession(ctx context.Context) {
	defer d.wg.Done()

	logger := log.New(d.config.Logger.Writer(), "[session] ", d.config.Logger.Flags())
	if err := session.Follow(ctx, d.deps.Store, d.deps.Session, logger); err != nil {
		d.config.Logger.Printf("Not following session file: %v", err)
	}
}

package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/campusnote/campusnote/internal/alarm"
	"github.com/campusnote/campusnote/internal/api"
	"github.com/campusnote/campusnote/internal/cache"
	"github.com/campusnote/campusnote/internal/repo"
	"github.com/campusnote/campusnote/internal/session"
)

var discard = log.New(io.Discard, "", 0)

// campusServer serves one schedule and one reminder per user id.
type campusServer struct {
	requests atomic.Int32
	day      string
	due      time.Time
}

func (s *campusServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	user := r.URL.Query().Get("userId")
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/api/schedules":
		json.NewEncoder(w).Encode([]map[string]any{{
			"id":              "s" + user,
			"user_id":         user,
			"nama_matakuliah": "Course " + user,
			"sks":             3,
			"hari":            s.day,
			"jam_mulai":       "08:00",
			"jam_selesai":     "09:40",
		}})
	case "/api/reminders":
		json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data": []map[string]any{{
				"id":             "r" + user,
				"user_id":        user,
				"jenis_reminder": "Quiz " + user,
				"tanggal":        s.due.Format("2006-01-02"),
				"jam":            s.due.Format("15:04:05"),
				"is_completed":   false,
			}},
		})
	default:
		http.NotFound(w, r)
	}
}

type harness struct {
	server    *campusServer
	sess      *session.Session
	scheduler *alarm.Scheduler
	daemon    *Daemon
}

func newHarness(t *testing.T, state session.State) *harness {
	t.Helper()

	now := time.Now()
	srv := &campusServer{
		// Two days ahead so the alarm is never the same-day one.
		day: now.AddDate(0, 0, 2).Weekday().String(),
		due: now.Add(2 * time.Hour).Truncate(time.Second),
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	db, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetLogger(discard)

	sess := session.New(state)
	client, err := api.New(api.Config{BaseURL: ts.URL + "/api", Logger: discard}, sess)
	if err != nil {
		t.Fatalf("api.New() failed: %v", err)
	}

	scheduler := alarm.NewScheduler(Dispatcher(sess, LogNotifier{Logger: discard}, discard), &alarm.Config{Logger: discard})
	rdeps := repo.Deps{DB: db, Session: sess, Alarms: scheduler, Logger: discard}

	d, err := New(Deps{
		Schedules: repo.NewScheduleRepository(client, rdeps),
		Reminders: repo.NewReminderRepository(client, nil, rdeps),
		Session:   sess,
		Scheduler: scheduler,
	}, &Config{RefreshInterval: time.Hour, Logger: discard})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	return &harness{server: srv, sess: sess, scheduler: scheduler, daemon: d}
}

func pendingIDs(s *alarm.Scheduler) string {
	var ids []string
	for _, a := range s.Pending() {
		ids = append(ids, a.Key.String())
	}
	return strings.Join(ids, ",")
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Deps{}, nil); err == nil {
		t.Error("New() without repositories should fail")
	}
}

func TestRun_ProjectsAndFollowsUser(t *testing.T) {
	h := newHarness(t, session.State{UserID: "7", Token: "t"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.daemon.Run(ctx) }()

	waitFor(t, "alarms of user 7", func() bool {
		ids := pendingIDs(h.scheduler)
		return strings.Contains(ids, "schedule/s7") && strings.Contains(ids, "reminder/r7")
	})

	h.sess.Set(session.State{UserID: "8", Token: "t"})

	waitFor(t, "alarms of user 8 only", func() bool {
		ids := pendingIDs(h.scheduler)
		return ids != "" &&
			strings.Contains(ids, "schedule/s8") && strings.Contains(ids, "reminder/r8") &&
			!strings.Contains(ids, "7")
	})

	if last, err := h.daemon.Status(); last.IsZero() || err != nil {
		t.Errorf("Status() = %v, %v", last, err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if n := len(h.scheduler.Pending()); n != 0 {
		t.Errorf("Pending() = %d after shutdown", n)
	}
}

func TestRefreshAll_SignedOut(t *testing.T) {
	h := newHarness(t, session.State{})

	if err := h.daemon.RefreshAll(context.Background()); err != nil {
		t.Fatalf("RefreshAll() = %v", err)
	}
	if n := h.server.requests.Load(); n != 0 {
		t.Errorf("server got %d requests while signed out", n)
	}
}

func TestRefreshAll_Expired(t *testing.T) {
	h := newHarness(t, session.State{UserID: "7", Token: "t", ExpiresAt: time.Now().Add(-time.Minute)})

	if err := h.daemon.RefreshAll(context.Background()); err != nil {
		t.Fatalf("RefreshAll() = %v", err)
	}
	if n := h.server.requests.Load(); n != 0 {
		t.Errorf("server got %d requests with an expired token", n)
	}
}

func TestRefreshAll_ReportsErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"down"}`, http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	h := newHarness(t, session.State{UserID: "7", Token: "t"})
	client, err := api.New(api.Config{BaseURL: ts.URL, Logger: discard}, h.sess)
	if err != nil {
		t.Fatal(err)
	}
	h.daemon.deps.Schedules = repo.NewScheduleRepository(client, repo.Deps{DB: mustDB(t), Session: h.sess, Logger: discard})

	err = h.daemon.RefreshAll(context.Background())
	if api.StatusCode(err) != http.StatusServiceUnavailable {
		t.Errorf("RefreshAll() = %v, want 503", err)
	}
	if _, lastErr := h.daemon.Status(); lastErr == nil {
		t.Error("Status() did not record the error")
	}
}

func mustDB(t *testing.T) *cache.DB {
	t.Helper()
	db, err := cache.Open(filepath.Join(t.TempDir(), "other.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type captureNotifier struct {
	mu  sync.Mutex
	got []string
}

func (c *captureNotifier) Notify(ctx context.Context, a alarm.Alarm) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, a.ID)
	return nil
}

func TestDispatcher_FiltersOtherUsers(t *testing.T) {
	sess := session.New(session.State{UserID: "7", Token: "t"})
	n := &captureNotifier{}
	d := Dispatcher(sess, n, discard)

	ctx := context.Background()
	d.Dispatch(ctx, alarm.Alarm{Key: alarm.Key{Kind: alarm.KindReminder, ID: "mine"}, UserID: "7"})
	d.Dispatch(ctx, alarm.Alarm{Key: alarm.Key{Kind: alarm.KindReminder, ID: "theirs"}, UserID: "9"})

	if len(n.got) != 1 || n.got[0] != "mine" {
		t.Errorf("notified = %v", n.got)
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := LogNotifier{Logger: log.New(&buf, "", 0)}
	a := alarm.Alarm{Key: alarm.Key{Kind: alarm.KindSchedule, ID: "s1"}, Title: "Algo", Body: "Monday 08:00-09:40"}
	if err := n.Notify(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	want := "schedule s1: Algo (Monday 08:00-09:40)\n"
	if buf.String() != want {
		t.Errorf("log = %q, want %q", buf.String(), want)
	}
}

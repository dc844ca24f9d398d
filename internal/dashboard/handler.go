package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/campusnote/campusnote/internal/cache"
	"github.com/campusnote/campusnote/internal/schema"
	"github.com/campusnote/campusnote/internal/session"
)

// Handler turns cache commits into dashboard messages.
type Handler struct {
	server *Server
	db     *cache.DB
	sess   *session.Session
	logger *log.Logger
}

// NewHandler creates a handler feeding server from db. Schedules and
// reminders are scoped to the user signed in to sess. The handler installs
// itself as the server's snapshot source.
func NewHandler(server *Server, db *cache.DB, sess *session.Session, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(os.Stderr, "[dashboard] ", log.LstdFlags)
	}
	h := &Handler{server: server, db: db, sess: sess, logger: logger}
	server.SetSnapshot(h.Snapshot)
	return h
}

// Snapshot builds the full message set for a client of course.
func (h *Handler) Snapshot(ctx context.Context, course string) ([]Message, error) {
	var msgs []Message

	schedules, err := h.schedules(ctx)
	if err != nil {
		return nil, err
	}
	reminders, err := h.reminders(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := h.stats(ctx)
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, schedules, reminders, stats)

	if course != "" {
		notes, err := h.notes(ctx, course)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, notes)
	}
	return msgs, nil
}

// Start subscribes to cache commits and, from a background goroutine,
// broadcasts a fresh snapshot of every table changed since the last
// broadcast. The returned channel is closed once ctx is done and the
// goroutine has exited.
func (h *Handler) Start(ctx context.Context) <-chan struct{} {
	seen := make(map[cache.Table]uint64, len(cache.Tables))
	for _, t := range cache.Tables {
		seen[t] = h.db.Version(t)
	}
	changes := h.db.Changes(ctx, cache.Tables...)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range changes {
			changed := make(map[cache.Table]bool)
			for _, t := range cache.Tables {
				if v := h.db.Version(t); v != seen[t] {
					seen[t] = v
					changed[t] = true
				}
			}
			h.broadcastChanged(ctx, changed)
		}
	}()
	return done
}

func (h *Handler) broadcastChanged(ctx context.Context, changed map[cache.Table]bool) {
	send := func(msg Message, err error) {
		if err != nil {
			if ctx.Err() == nil {
				h.logger.Printf("Failed to build %s message: %v", msg.Type, err)
			}
			return
		}
		h.server.Broadcast(msg)
	}

	if changed[cache.TableSchedules] {
		send(h.schedules(ctx))
	}
	if changed[cache.TableReminders] || changed[cache.TableReminderFiles] {
		send(h.reminders(ctx))
	}
	if changed[cache.TableNotes] {
		for _, course := range h.server.Courses() {
			send(h.notes(ctx, course))
		}
	}
	if len(changed) > 0 {
		send(h.stats(ctx))
	}
}

func (h *Handler) schedules(ctx context.Context) (Message, error) {
	rows, err := h.db.ListSchedules(ctx, h.sess.Current().Scope())
	if err != nil {
		return Message{Type: MessageTypeSchedules}, err
	}
	views := make([]schema.ScheduleView, len(rows))
	for i, r := range rows {
		views[i] = r.View()
	}
	return message(MessageTypeSchedules, "", views)
}

func (h *Handler) reminders(ctx context.Context) (Message, error) {
	rows, err := h.db.ListReminders(ctx, h.sess.Current().Scope())
	if err != nil {
		return Message{Type: MessageTypeReminders}, err
	}
	views := make([]schema.ReminderView, len(rows))
	for i, r := range rows {
		views[i] = r.View()
	}
	return message(MessageTypeReminders, "", views)
}

func (h *Handler) notes(ctx context.Context, course string) (Message, error) {
	rows, err := h.db.ListNotes(ctx, course)
	if err != nil {
		return Message{Type: MessageTypeNotes, Course: course}, err
	}
	views := make([]schema.NoteView, len(rows))
	for i, r := range rows {
		views[i] = r.View()
	}
	return message(MessageTypeNotes, course, views)
}

func (h *Handler) stats(ctx context.Context) (Message, error) {
	counts, err := h.db.Stats(ctx)
	if err != nil {
		return Message{Type: MessageTypeStats}, err
	}
	return message(MessageTypeStats, "", counts)
}

func message(typ MessageType, course string, v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{Type: typ, Course: course}, err
	}
	return Message{Type: typ, Timestamp: time.Now(), Course: course, Data: data}, nil
}

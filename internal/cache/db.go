// Package cache provides the on-device SQLite store for campusnote.
//
// The cache is the single read model for every client surface. Rows are
// written only by the sync repositories (internal/repo) after the remote API
// has accepted a change or returned a fresh collection.
//
// Architecture:
//   - Database file: ~/.local/share/campusnote/cache.db (see internal/config)
//   - WAL mode: concurrent readers while a refresh commits
//   - Tables: schedules, notes, reminders, reminder_files
//   - reminder_files rows are owned by their reminder (ON DELETE CASCADE)
//
// Every committed write bumps a per-table version and wakes subscribers, so
// Observe can stream fresh snapshots after each commit.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound is returned by the Get methods when no row has the given id.
var ErrNotFound = errors.New("not found")

// Table names a cache table for change notification.
type Table string

const (
	TableSchedules     Table = "schedules"
	TableNotes         Table = "notes"
	TableReminders     Table = "reminders"
	TableReminderFiles Table = "reminder_files"
)

// Tables lists every cache table.
var Tables = []Table{TableSchedules, TableNotes, TableReminders, TableReminderFiles}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// DB wraps the SQLite connection and the change notifier.
type DB struct {
	conn   *sql.DB
	path   string
	notify *notifier
	logger *log.Logger
}

// Open creates a database connection at path and initializes the schema.
//
// The caller MUST call Close() when done.
//
// Example:
//
//	store, err := cache.Open(cfg.Cache.Path)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// foreign_keys and busy_timeout are per connection, so they go in the DSN
	// where the driver applies them to every pooled connection.
	connStr := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(8)
	conn.SetMaxIdleConns(4)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{
		conn:   conn,
		path:   path,
		notify: newNotifier(),
		logger: log.New(os.Stderr, "[cache] ", log.LstdFlags),
	}

	if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// SetLogger replaces the logger used for background snapshot failures.
func (db *DB) SetLogger(logger *log.Logger) {
	if logger != nil {
		db.logger = logger
	}
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

func (db *DB) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS schedules (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		course_name TEXT NOT NULL,
		credits INTEGER NOT NULL DEFAULT 0,
		instructor TEXT,
		day TEXT NOT NULL,
		day_index INTEGER NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		room TEXT
	);

	CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		course_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL DEFAULT '',
		content_json TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reminders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		subject TEXT NOT NULL,
		due_at TEXT NOT NULL,
		description TEXT,
		is_completed INTEGER NOT NULL DEFAULT 0,
		file_url TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reminder_files (
		file_id TEXT PRIMARY KEY,
		reminder_id TEXT NOT NULL,
		file_name TEXT NOT NULL,
		file_type TEXT NOT NULL DEFAULT '',
		remote_url TEXT,
		local_path TEXT,
		FOREIGN KEY (reminder_id) REFERENCES reminders(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_schedules_user ON schedules(user_id);
	CREATE INDEX IF NOT EXISTS idx_schedules_order ON schedules(day_index, start_time);
	CREATE INDEX IF NOT EXISTS idx_notes_course ON notes(course_id);
	CREATE INDEX IF NOT EXISTS idx_reminders_user ON reminders(user_id);
	CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders(due_at);
	CREATE INDEX IF NOT EXISTS idx_reminder_files_reminder ON reminder_files(reminder_id);
	`

	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Count returns the number of rows in table.
func (db *DB) Count(ctx context.Context, table Table) (int, error) {
	if !knownTable(table) {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+string(table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return count, nil
}

// Stats returns row counts for every table.
func (db *DB) Stats(ctx context.Context) (map[Table]int, error) {
	stats := make(map[Table]int, len(Tables))
	for _, table := range Tables {
		n, err := db.Count(ctx, table)
		if err != nil {
			return nil, err
		}
		stats[table] = n
	}
	return stats, nil
}

// withTx runs fn in a transaction and notifies subscribers of tables after a
// successful commit.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error, tables ...Table) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	db.notify.publish(tables...)
	return nil
}

func knownTable(table Table) bool {
	for _, t := range Tables {
		if t == table {
			return true
		}
	}
	return false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil || t.Year() <= 1 {
		return time.Time{}
	}
	return t
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/campusnote/campusnote/internal/schema"
)

const reminderColumns = `id, user_id, subject, due_at, description, is_completed,
	file_url, created_at, updated_at`

const upsertReminderSQL = `
	INSERT INTO reminders (` + reminderColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		subject = excluded.subject,
		due_at = excluded.due_at,
		description = excluded.description,
		is_completed = excluded.is_completed,
		file_url = excluded.file_url,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at
	`

const reminderFileColumns = `file_id, reminder_id, file_name, file_type, remote_url, local_path`

// A refreshed attachment keeps its local copy unless the new row names one.
const upsertReminderFileSQL = `
	INSERT INTO reminder_files (` + reminderFileColumns + `)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(file_id) DO UPDATE SET
		reminder_id = excluded.reminder_id,
		file_name = excluded.file_name,
		file_type = excluded.file_type,
		remote_url = excluded.remote_url,
		local_path = COALESCE(excluded.local_path, reminder_files.local_path)
	`

// ReplaceReminders atomically replaces the reminders in scope with rows.
// A nil userID scopes the replace to the whole table. Attachments of
// reminders that disappear are removed with them; attachments of reminders
// that survive the refresh are kept.
func (db *DB) ReplaceReminders(ctx context.Context, userID *string, rows []schema.Reminder) error {
	ids, err := idList(len(rows), func(i int) string { return rows[i].ID })
	if err != nil {
		return err
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		query := `DELETE FROM reminders WHERE id NOT IN (SELECT value FROM json_each(?))`
		args := []interface{}{ids}
		if userID != nil {
			query += ` AND user_id = ?`
			args = append(args, *userID)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to clear reminders: %w", err)
		}

		for i := range rows {
			if err := upsertReminder(ctx, tx, &rows[i]); err != nil {
				return err
			}
		}
		return nil
	}, TableReminders, TableReminderFiles)
}

// UpsertReminder inserts row or replaces the row with the same id. Existing
// attachments are kept.
func (db *DB) UpsertReminder(ctx context.Context, row schema.Reminder) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return upsertReminder(ctx, tx, &row)
	}, TableReminders)
}

func upsertReminder(ctx context.Context, tx *sql.Tx, r *schema.Reminder) error {
	if r.ID == "" {
		return fmt.Errorf("failed to upsert reminder: empty id")
	}
	_, err := tx.ExecContext(ctx, upsertReminderSQL,
		r.ID,
		r.UserID,
		r.Subject,
		r.DueAt,
		toNullString(r.Description),
		r.IsCompleted,
		toNullString(r.FileURL),
		formatTime(r.CreatedAt),
		formatTime(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert reminder %s: %w", r.ID, err)
	}
	return nil
}

// SetReminderCompleted updates the completion flag of a cached reminder.
func (db *DB) SetReminderCompleted(ctx context.Context, id string, completed bool) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE reminders SET is_completed = ? WHERE id = ?`, completed, id)
		if err != nil {
			return fmt.Errorf("failed to update reminder %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("reminder %s: %w", id, ErrNotFound)
		}
		return nil
	}, TableReminders)
}

// DeleteReminder removes a reminder and, through the foreign key, its
// attachments. Deleting a missing id is not an error.
func (db *DB) DeleteReminder(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete reminder %s: %w", id, err)
		}
		return nil
	}, TableReminders, TableReminderFiles)
}

// ListReminders returns reminders ordered by due time, earliest first.
// A nil userID lists every cached reminder.
func (db *DB) ListReminders(ctx context.Context, userID *string) ([]schema.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders`
	var args []interface{}
	if userID != nil {
		query += ` WHERE user_id = ?`
		args = append(args, *userID)
	}
	query += ` ORDER BY due_at ASC, id ASC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	reminders := []schema.Reminder{}
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminders: %w", err)
	}
	return reminders, nil
}

// GetReminder returns the reminder with id, or ErrNotFound.
func (db *DB) GetReminder(ctx context.Context, id string) (schema.Reminder, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE id = ?`, id)
	r, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.Reminder{}, fmt.Errorf("reminder %s: %w", id, ErrNotFound)
	}
	return r, err
}

func scanReminder(s scanner) (schema.Reminder, error) {
	var r schema.Reminder
	var description, fileURL sql.NullString
	var createdAt, updatedAt string
	err := s.Scan(
		&r.ID,
		&r.UserID,
		&r.Subject,
		&r.DueAt,
		&description,
		&r.IsCompleted,
		&fileURL,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return r, err
	}
	if err != nil {
		return r, fmt.Errorf("failed to scan reminder: %w", err)
	}
	r.Description = fromNullString(description)
	r.FileURL = fromNullString(fileURL)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return r, nil
}

// ReplaceReminderFiles atomically replaces the attachments of reminderID.
// Local copies of attachments that survive the refresh are kept.
func (db *DB) ReplaceReminderFiles(ctx context.Context, reminderID string, rows []schema.ReminderFile) error {
	ids, err := idList(len(rows), func(i int) string { return rows[i].FileID })
	if err != nil {
		return err
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM reminder_files WHERE reminder_id = ? AND file_id NOT IN (SELECT value FROM json_each(?))`,
			reminderID, ids)
		if err != nil {
			return fmt.Errorf("failed to clear files for reminder %s: %w", reminderID, err)
		}

		for i := range rows {
			f := rows[i]
			f.ReminderID = reminderID
			if err := upsertReminderFile(ctx, tx, &f); err != nil {
				return err
			}
		}
		return nil
	}, TableReminderFiles)
}

// UpsertReminderFile inserts row or replaces the row with the same file id.
// The owning reminder must already be cached.
func (db *DB) UpsertReminderFile(ctx context.Context, row schema.ReminderFile) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return upsertReminderFile(ctx, tx, &row)
	}, TableReminderFiles)
}

func upsertReminderFile(ctx context.Context, tx *sql.Tx, f *schema.ReminderFile) error {
	if f.FileID == "" {
		return fmt.Errorf("failed to upsert reminder file: empty id")
	}
	_, err := tx.ExecContext(ctx, upsertReminderFileSQL,
		f.FileID,
		f.ReminderID,
		f.FileName,
		f.FileType,
		toNullString(f.RemoteURL),
		toNullString(f.LocalPath),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert reminder file %s: %w", f.FileID, err)
	}
	return nil
}

// SetReminderFileLocalPath records where a local copy of an attachment lives.
func (db *DB) SetReminderFileLocalPath(ctx context.Context, fileID, path string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE reminder_files SET local_path = ? WHERE file_id = ?`, path, fileID)
		if err != nil {
			return fmt.Errorf("failed to set local path of file %s: %w", fileID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("reminder file %s: %w", fileID, ErrNotFound)
		}
		return nil
	}, TableReminderFiles)
}

// ListReminderFiles returns the attachments of reminderID by file name.
func (db *DB) ListReminderFiles(ctx context.Context, reminderID string) ([]schema.ReminderFile, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+reminderFileColumns+` FROM reminder_files WHERE reminder_id = ? ORDER BY file_name ASC, file_id ASC`,
		reminderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminder files: %w", err)
	}
	defer rows.Close()

	files := []schema.ReminderFile{}
	for rows.Next() {
		var f schema.ReminderFile
		var remote, local sql.NullString
		if err := rows.Scan(&f.FileID, &f.ReminderID, &f.FileName, &f.FileType, &remote, &local); err != nil {
			return nil, fmt.Errorf("failed to scan reminder file: %w", err)
		}
		f.RemoteURL = fromNullString(remote)
		f.LocalPath = fromNullString(local)
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminder files: %w", err)
	}
	return files, nil
}

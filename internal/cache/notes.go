package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/campusnote/campusnote/internal/schema"
)

const noteColumns = `id, course_id, user_id, title, body, content_json, created_at, updated_at`

const upsertNoteSQL = `
	INSERT INTO notes (` + noteColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		course_id = excluded.course_id,
		user_id = excluded.user_id,
		title = excluded.title,
		body = excluded.body,
		content_json = excluded.content_json,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at
	`

// ReplaceNotes atomically replaces the notes of courseID with rows.
func (db *DB) ReplaceNotes(ctx context.Context, courseID string, rows []schema.Note) error {
	ids, err := idList(len(rows), func(i int) string { return rows[i].ID })
	if err != nil {
		return err
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM notes WHERE course_id = ? AND id NOT IN (SELECT value FROM json_each(?))`,
			courseID, ids)
		if err != nil {
			return fmt.Errorf("failed to clear notes for course %s: %w", courseID, err)
		}

		for i := range rows {
			if err := upsertNote(ctx, tx, &rows[i]); err != nil {
				return err
			}
		}
		return nil
	}, TableNotes)
}

// UpsertNote inserts row or replaces the row with the same id.
func (db *DB) UpsertNote(ctx context.Context, row schema.Note) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return upsertNote(ctx, tx, &row)
	}, TableNotes)
}

func upsertNote(ctx context.Context, tx *sql.Tx, n *schema.Note) error {
	if n.ID == "" {
		return fmt.Errorf("failed to upsert note: empty id")
	}
	contentJSON := n.ContentJSON
	if contentJSON == "" {
		contentJSON = "[]"
	}
	_, err := tx.ExecContext(ctx, upsertNoteSQL,
		n.ID,
		n.CourseID,
		n.UserID,
		n.Title,
		n.Body,
		contentJSON,
		formatTime(n.CreatedAt),
		formatTime(n.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert note %s: %w", n.ID, err)
	}
	return nil
}

// DeleteNote removes a note. Deleting a missing id is not an error.
func (db *DB) DeleteNote(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete note %s: %w", id, err)
		}
		return nil
	}, TableNotes)
}

// ListNotes returns the notes of courseID, newest first.
func (db *DB) ListNotes(ctx context.Context, courseID string) ([]schema.Note, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE course_id = ? ORDER BY created_at DESC, id ASC`,
		courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	notes := []schema.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}
	return notes, nil
}

// GetNote returns the note with id, or ErrNotFound.
func (db *DB) GetNote(ctx context.Context, id string) (schema.Note, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.Note{}, fmt.Errorf("note %s: %w", id, ErrNotFound)
	}
	return n, err
}

func scanNote(r scanner) (schema.Note, error) {
	var n schema.Note
	var createdAt, updatedAt string
	err := r.Scan(
		&n.ID,
		&n.CourseID,
		&n.UserID,
		&n.Title,
		&n.Body,
		&n.ContentJSON,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return n, err
	}
	if err != nil {
		return n, fmt.Errorf("failed to scan note: %w", err)
	}
	n.CreatedAt = parseTime(createdAt)
	n.UpdatedAt = parseTime(updatedAt)
	return n, nil
}

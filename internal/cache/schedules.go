package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/campusnote/campusnote/internal/schema"
)

const scheduleColumns = `id, user_id, course_name, credits, instructor, day,
	day_index, start_time, end_time, room`

const upsertScheduleSQL = `
	INSERT INTO schedules (` + scheduleColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		course_name = excluded.course_name,
		credits = excluded.credits,
		instructor = excluded.instructor,
		day = excluded.day,
		day_index = excluded.day_index,
		start_time = excluded.start_time,
		end_time = excluded.end_time,
		room = excluded.room
	`

// ReplaceSchedules atomically replaces the schedules in scope with rows.
// A nil userID scopes the replace to the whole table; otherwise only rows
// owned by *userID are replaced. Observers never see a partial state.
func (db *DB) ReplaceSchedules(ctx context.Context, userID *string, rows []schema.Schedule) error {
	ids, err := idList(len(rows), func(i int) string { return rows[i].ID })
	if err != nil {
		return err
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		query := `DELETE FROM schedules WHERE id NOT IN (SELECT value FROM json_each(?))`
		args := []interface{}{ids}
		if userID != nil {
			query += ` AND user_id = ?`
			args = append(args, *userID)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to clear schedules: %w", err)
		}

		for i := range rows {
			if err := upsertSchedule(ctx, tx, &rows[i]); err != nil {
				return err
			}
		}
		return nil
	}, TableSchedules)
}

// UpsertSchedule inserts row or replaces the row with the same id.
func (db *DB) UpsertSchedule(ctx context.Context, row schema.Schedule) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return upsertSchedule(ctx, tx, &row)
	}, TableSchedules)
}

func upsertSchedule(ctx context.Context, tx *sql.Tx, s *schema.Schedule) error {
	if s.ID == "" {
		return fmt.Errorf("failed to upsert schedule: empty id")
	}
	_, err := tx.ExecContext(ctx, upsertScheduleSQL,
		s.ID,
		s.UserID,
		s.CourseName,
		s.Credits,
		toNullString(s.Instructor),
		s.Day,
		s.DayIndex,
		s.StartTime,
		s.EndTime,
		toNullString(s.Room),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert schedule %s: %w", s.ID, err)
	}
	return nil
}

// DeleteSchedule removes a schedule. Deleting a missing id is not an error.
func (db *DB) DeleteSchedule(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete schedule %s: %w", id, err)
		}
		return nil
	}, TableSchedules)
}

// ListSchedules returns schedules ordered by day of week then start time.
// A nil userID lists every cached schedule.
func (db *DB) ListSchedules(ctx context.Context, userID *string) ([]schema.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules`
	var args []interface{}
	if userID != nil {
		query += ` WHERE user_id = ?`
		args = append(args, *userID)
	}
	query += ` ORDER BY day_index ASC, start_time ASC, id ASC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	schedules := []schema.Schedule{}
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedules: %w", err)
	}
	return schedules, nil
}

// GetSchedule returns the schedule with id, or ErrNotFound.
func (db *DB) GetSchedule(ctx context.Context, id string) (schema.Schedule, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id)
	s, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.Schedule{}, fmt.Errorf("schedule %s: %w", id, ErrNotFound)
	}
	return s, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSchedule(r scanner) (schema.Schedule, error) {
	var s schema.Schedule
	var instructor, room sql.NullString
	err := r.Scan(
		&s.ID,
		&s.UserID,
		&s.CourseName,
		&s.Credits,
		&instructor,
		&s.Day,
		&s.DayIndex,
		&s.StartTime,
		&s.EndTime,
		&room,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return s, err
	}
	if err != nil {
		return s, fmt.Errorf("failed to scan schedule: %w", err)
	}
	s.Instructor = fromNullString(instructor)
	s.Room = fromNullString(room)
	return s, nil
}

// idList encodes the ids of n rows as a JSON array for json_each.
func idList(n int, id func(int) string) (string, error) {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, id(i))
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to encode id list: %w", err)
	}
	return string(data), nil
}

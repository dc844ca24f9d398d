package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/campusnote/campusnote/internal/schema"
)

// Login exchanges credentials for a token and the signed-in user.
func (c *Client) Login(ctx context.Context, email, password string) (schema.AuthResponse, error) {
	return c.auth(ctx, "auth/login", schema.LoginRequest{Email: email, Password: password})
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, req schema.RegisterRequest) (schema.AuthResponse, error) {
	return c.auth(ctx, "auth/register", req)
}

func (c *Client) auth(ctx context.Context, path string, body any) (schema.AuthResponse, error) {
	var resp schema.AuthResponse
	data, err := c.do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return resp, err
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return resp, fmt.Errorf("failed to decode auth response: %w", err)
	}
	if resp.Token == "" {
		// Some deployments nest user and token under data.
		if rec, ok, err := decodeRecord[schema.AuthResponse](data); err == nil && ok {
			resp.User, resp.Token = rec.User, rec.Token
		}
	}
	if resp.Token == "" {
		return resp, ErrNoToken
	}
	return resp, nil
}

// ListSchedules fetches schedules, optionally only those of userID.
func (c *Client) ListSchedules(ctx context.Context, userID *string) ([]schema.ScheduleRecord, error) {
	var query url.Values
	if userID != nil {
		query = url.Values{"userId": {*userID}}
	}
	data, err := c.do(ctx, http.MethodGet, "schedules", query, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[schema.ScheduleRecord](data)
}

// CreateSchedule creates a schedule and returns the stored record.
func (c *Client) CreateSchedule(ctx context.Context, req schema.ScheduleRequest) (schema.ScheduleRecord, error) {
	data, err := c.do(ctx, http.MethodPost, "schedules", nil, req)
	if err != nil {
		return schema.ScheduleRecord{}, err
	}
	rec, ok, err := decodeRecord[schema.ScheduleRecord](data)
	if err != nil {
		return rec, err
	}
	if !ok || rec.ID == "" {
		return rec, ErrMissingServerID
	}
	return rec, nil
}

// UpdateSchedule replaces the editable fields of schedule id.
func (c *Client) UpdateSchedule(ctx context.Context, id string, req schema.ScheduleRequest) error {
	_, err := c.do(ctx, http.MethodPut, "schedules/"+segment(id), nil, req)
	return err
}

// DeleteSchedule deletes schedule id.
func (c *Client) DeleteSchedule(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "schedules/"+segment(id), nil, nil)
	return err
}

// ListNotes fetches the notes of a course.
func (c *Client) ListNotes(ctx context.Context, courseID string) ([]schema.NoteRecord, error) {
	data, err := c.do(ctx, http.MethodGet, "notes", url.Values{"matkulId": {courseID}}, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[schema.NoteRecord](data)
}

// CreateNote creates a note and returns the stored record.
func (c *Client) CreateNote(ctx context.Context, req schema.NoteRequest) (schema.NoteRecord, error) {
	data, err := c.do(ctx, http.MethodPost, "notes", nil, req)
	if err != nil {
		return schema.NoteRecord{}, err
	}
	rec, ok, err := decodeRecord[schema.NoteRecord](data)
	if err != nil {
		return rec, err
	}
	if !ok || rec.ID == "" {
		return rec, ErrMissingServerID
	}
	return rec, nil
}

// UpdateNote replaces the editable fields of note id.
func (c *Client) UpdateNote(ctx context.Context, id string, req schema.NoteRequest) error {
	_, err := c.do(ctx, http.MethodPut, "notes/"+segment(id), nil, req)
	return err
}

// DeleteNote deletes note id.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "notes/"+segment(id), nil, nil)
	return err
}

// ListReminders fetches reminders, optionally only those of userID.
func (c *Client) ListReminders(ctx context.Context, userID *string) ([]schema.ReminderRecord, error) {
	var query url.Values
	if userID != nil {
		query = url.Values{"userId": {*userID}}
	}
	data, err := c.do(ctx, http.MethodGet, "reminders", query, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[schema.ReminderRecord](data)
}

// CreateReminder creates a reminder and returns the stored record.
func (c *Client) CreateReminder(ctx context.Context, req schema.ReminderRequest) (schema.ReminderRecord, error) {
	data, err := c.do(ctx, http.MethodPost, "reminders", nil, req)
	if err != nil {
		return schema.ReminderRecord{}, err
	}
	rec, ok, err := decodeRecord[schema.ReminderRecord](data)
	if err != nil {
		return rec, err
	}
	if !ok || rec.ID == "" {
		return rec, ErrMissingServerID
	}
	return rec, nil
}

// UpdateReminder replaces the editable fields of reminder id.
func (c *Client) UpdateReminder(ctx context.Context, id string, req schema.ReminderRequest) error {
	_, err := c.do(ctx, http.MethodPut, "reminders/"+segment(id), nil, req)
	return err
}

// DeleteReminder deletes reminder id.
func (c *Client) DeleteReminder(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "reminders/"+segment(id), nil, nil)
	return err
}

// ListReminderFiles fetches the attachments of reminder id.
func (c *Client) ListReminderFiles(ctx context.Context, reminderID string) ([]schema.ReminderFileRecord, error) {
	data, err := c.do(ctx, http.MethodGet, fmt.Sprintf("reminders/%s/files", segment(reminderID)), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[schema.ReminderFileRecord](data)
}

package schema

import (
	"fmt"
	"strings"
	"time"
)

// ReminderRecord is a reminder as returned by the /reminders endpoints.
type ReminderRecord struct {
	ID          FlexString `json:"id"`
	UserID      FlexString `json:"user_id"`
	Subject     string     `json:"jenis_reminder"`
	Date        string     `json:"tanggal"`
	Time        string     `json:"jam"`
	Description *string    `json:"keterangan"`
	FileURL     *string    `json:"file_url"`
	IsCompleted FlexBool   `json:"is_completed"`
	CreatedAt   string     `json:"created_at"`
	UpdatedAt   string     `json:"updated_at"`
}

// ReminderFileRecord is an attachment as returned by GET /reminders/:id/files.
type ReminderFileRecord struct {
	FileID     FlexString  `json:"id_file"`
	NoteID     *FlexString `json:"id_catatan"`
	ReminderID *FlexString `json:"id_reminder"`
	FileName   string      `json:"nama_file"`
	FileType   string      `json:"tipe_file"`
	Path       string      `json:"path_file"`
	URL        *string     `json:"url"`
}

// Reminder is the cache row for a reminder. DueAt is a local wall-clock
// instant in DueLayout form.
type Reminder struct {
	ID          string
	UserID      string
	Subject     string
	DueAt       string
	Description *string
	IsCompleted bool
	FileURL     *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ReminderFile is the cache row for a reminder attachment. It is owned by
// its reminder and removed with it.
type ReminderFile struct {
	FileID     string
	ReminderID string
	FileName   string
	FileType   string
	RemoteURL  *string
	// LocalPath is nil until the file has been uploaded and copied locally.
	LocalPath *string
}

// ReminderFromRecord converts a wire record to a cache row.
func ReminderFromRecord(r ReminderRecord) Reminder {
	return Reminder{
		ID:          r.ID.String(),
		UserID:      r.UserID.String(),
		Subject:     strings.TrimSpace(r.Subject),
		DueAt:       ComposeDueAt(r.Date, r.Time),
		Description: optional(r.Description),
		IsCompleted: bool(r.IsCompleted),
		FileURL:     optional(r.FileURL),
		CreatedAt:   ParseTimestamp(r.CreatedAt),
		UpdatedAt:   ParseTimestamp(r.UpdatedAt),
	}
}

// ReminderFileFromRecord converts a wire attachment to a cache row owned by
// reminderID. The record's own reminder reference wins when present.
func ReminderFileFromRecord(reminderID string, r ReminderFileRecord) ReminderFile {
	owner := reminderID
	if r.ReminderID != nil && r.ReminderID.String() != "" {
		owner = r.ReminderID.String()
	}
	remote := optional(r.URL)
	if remote == nil {
		remote = optional(&r.Path)
	}
	return ReminderFile{
		FileID:     r.FileID.String(),
		ReminderID: owner,
		FileName:   strings.TrimSpace(r.FileName),
		FileType:   strings.TrimSpace(r.FileType),
		RemoteURL:  remote,
	}
}

// Due parses DueAt in loc.
func (r Reminder) Due(loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(DueLayout, r.DueAt, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ReminderView is the presentation projection of a reminder row.
type ReminderView struct {
	ID          string    `json:"id" yaml:"id"`
	Subject     string    `json:"subject" yaml:"subject"`
	DueAt       time.Time `json:"due_at" yaml:"due_at"`
	DueLabel    string    `json:"due" yaml:"due"`
	Description string    `json:"description" yaml:"description"`
	Completed   bool      `json:"completed" yaml:"completed"`
	HasFile     bool      `json:"has_file" yaml:"has_file"`
}

// View projects the row for display in the local time zone.
func (r Reminder) View() ReminderView {
	v := ReminderView{
		ID:        r.ID,
		Subject:   r.Subject,
		DueLabel:  r.DueAt,
		Completed: r.IsCompleted,
		HasFile:   r.FileURL != nil,
	}
	if r.Description != nil {
		v.Description = *r.Description
	}
	if due, ok := r.Due(time.Local); ok {
		v.DueAt = due
		v.DueLabel = due.Format("Mon, 02 Jan 2006 15:04")
	}
	return v
}

// Overdue reports whether the reminder is still open after its due instant.
func (v ReminderView) Overdue(now time.Time) bool {
	return !v.Completed && !v.DueAt.IsZero() && v.DueAt.Before(now)
}

// ReminderInput holds user-editable reminder fields.
type ReminderInput struct {
	Subject     string
	DueAt       time.Time
	Description string
	Completed   bool
	// FileURL links an uploaded attachment; blank leaves it unset.
	FileURL string
}

// ReminderRequest is the POST/PUT /reminders body.
type ReminderRequest struct {
	Subject     string  `json:"jenis_reminder"`
	Date        string  `json:"tanggal"`
	Time        string  `json:"jam"`
	Description *string `json:"keterangan"`
	IsCompleted bool    `json:"is_completed"`
	FileURL     *string `json:"file_url,omitempty"`
}

// Validate checks the fields the API requires.
func (in ReminderInput) Validate() error {
	if strings.TrimSpace(in.Subject) == "" {
		return fmt.Errorf("subject is required")
	}
	if in.DueAt.IsZero() {
		return fmt.Errorf("due time is required")
	}
	return nil
}

// Request builds the wire body.
func (in ReminderInput) Request() ReminderRequest {
	date, clock := SplitDueAt(in.DueAt)
	desc, fileURL := in.Description, in.FileURL
	return ReminderRequest{
		Subject:     strings.TrimSpace(in.Subject),
		Date:        date,
		Time:        clock,
		Description: optional(&desc),
		IsCompleted: in.Completed,
		FileURL:     optional(&fileURL),
	}
}

// InputFromRow rebuilds an editable input from a cached reminder.
func InputFromRow(r Reminder) ReminderInput {
	in := ReminderInput{Subject: r.Subject, Completed: r.IsCompleted}
	if due, ok := r.Due(time.Local); ok {
		in.DueAt = due
	}
	if r.Description != nil {
		in.Description = *r.Description
	}
	if r.FileURL != nil {
		in.FileURL = *r.FileURL
	}
	return in
}

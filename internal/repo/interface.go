package repo

import (
	"context"
	"io"

	"github.com/campusnote/campusnote/internal/schema"
)

// ScheduleAPI is the part of the REST client the schedule repository uses.
type ScheduleAPI interface {
	ListSchedules(ctx context.Context, userID *string) ([]schema.ScheduleRecord, error)
	CreateSchedule(ctx context.Context, req schema.ScheduleRequest) (schema.ScheduleRecord, error)
	UpdateSchedule(ctx context.Context, id string, req schema.ScheduleRequest) error
	DeleteSchedule(ctx context.Context, id string) error
}

// NoteAPI is the part of the REST client the note repository uses.
type NoteAPI interface {
	ListNotes(ctx context.Context, courseID string) ([]schema.NoteRecord, error)
	CreateNote(ctx context.Context, req schema.NoteRequest) (schema.NoteRecord, error)
	UpdateNote(ctx context.Context, id string, req schema.NoteRequest) error
	DeleteNote(ctx context.Context, id string) error
}

// ReminderAPI is the part of the REST client the reminder repository uses.
type ReminderAPI interface {
	ListReminders(ctx context.Context, userID *string) ([]schema.ReminderRecord, error)
	CreateReminder(ctx context.Context, req schema.ReminderRequest) (schema.ReminderRecord, error)
	UpdateReminder(ctx context.Context, id string, req schema.ReminderRequest) error
	DeleteReminder(ctx context.Context, id string) error
	ListReminderFiles(ctx context.Context, reminderID string) ([]schema.ReminderFileRecord, error)
	UploadFile(ctx context.Context, name string, r io.Reader) (schema.UploadResult, error)
	Download(ctx context.Context, ref string, w io.Writer) error
}

// AlarmCanceler drops pending alarms for deleted entities.
type AlarmCanceler interface {
	CancelSchedule(id string)
	CancelReminder(id string)
}

// FileStore keeps local copies of uploaded attachments.
type FileStore interface {
	// Put stores the content of r under key and returns its local path.
	Put(key, name string, r io.Reader) (string, error)

	// Remove deletes the local copy stored under key, if any.
	Remove(key string) error
}

type noAlarms struct{}

func (noAlarms) CancelSchedule(string) {}
func (noAlarms) CancelReminder(string) {}

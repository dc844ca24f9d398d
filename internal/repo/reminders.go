package repo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/campusnote/campusnote/internal/cache"
	"github.com/campusnote/campusnote/internal/schema"
)

// ReminderRepository syncs reminders and their attachments.
type ReminderRepository struct {
	api   ReminderAPI
	files FileStore
	Deps
}

// NewReminderRepository creates a ReminderRepository. files may be nil, in
// which case Attach uploads without keeping a local copy.
func NewReminderRepository(api ReminderAPI, files FileStore, deps Deps) *ReminderRepository {
	return &ReminderRepository{api: api, files: files, Deps: deps.withDefaults()}
}

// Observe streams the cached reminders of userID (the signed-in user when
// nil), earliest due first.
func (r *ReminderRepository) Observe(ctx context.Context, userID *string) <-chan []schema.Reminder {
	scope := r.userScope(userID)
	return cache.Observe(ctx, r.DB, func(ctx context.Context) ([]schema.Reminder, error) {
		return r.DB.ListReminders(ctx, scope)
	}, cache.TableReminders)
}

// ObserveFiles streams the cached attachments of reminderID.
func (r *ReminderRepository) ObserveFiles(ctx context.Context, reminderID string) <-chan []schema.ReminderFile {
	return cache.Observe(ctx, r.DB, func(ctx context.Context) ([]schema.ReminderFile, error) {
		return r.DB.ListReminderFiles(ctx, reminderID)
	}, cache.TableReminderFiles)
}

// List returns the cached reminders of userID.
func (r *ReminderRepository) List(ctx context.Context, userID *string) ([]schema.Reminder, error) {
	return r.DB.ListReminders(ctx, r.userScope(userID))
}

// Get returns the cached reminder id.
func (r *ReminderRepository) Get(ctx context.Context, id string) (schema.Reminder, error) {
	return r.DB.GetReminder(ctx, id)
}

// Files returns the cached attachments of reminderID.
func (r *ReminderRepository) Files(ctx context.Context, reminderID string) ([]schema.ReminderFile, error) {
	return r.DB.ListReminderFiles(ctx, reminderID)
}

// Refresh replaces the cached reminders of userID with the remote ones.
func (r *ReminderRepository) Refresh(ctx context.Context, userID *string) error {
	scope := r.userScope(userID)

	records, err := r.api.ListReminders(ctx, scope)
	if err != nil {
		return fmt.Errorf("failed to fetch reminders: %w", err)
	}

	rows := make([]schema.Reminder, 0, len(records))
	for _, rec := range records {
		row := schema.ReminderFromRecord(rec)
		if row.ID == "" {
			r.Logger.Printf("WARNING: skipping reminder without id (%s)", row.Subject)
			continue
		}
		if row.UserID == "" && scope != nil {
			row.UserID = *scope
		}
		rows = append(rows, row)
	}

	if err := r.DB.ReplaceReminders(ctx, scope, rows); err != nil {
		return fmt.Errorf("failed to store reminders: %w", err)
	}

	r.Logger.Printf("Refreshed %d reminders (%s)", len(rows), scopeLabel(scope))
	return nil
}

// Create posts a new reminder, caches the returned row and refreshes.
func (r *ReminderRepository) Create(ctx context.Context, in schema.ReminderInput) (schema.Reminder, error) {
	if err := in.Validate(); err != nil {
		return schema.Reminder{}, fmt.Errorf("invalid reminder: %w", err)
	}

	rec, err := r.api.CreateReminder(ctx, in.Request())
	if err != nil {
		return schema.Reminder{}, fmt.Errorf("failed to create reminder: %w", err)
	}

	row := schema.ReminderFromRecord(rec)
	if row.UserID == "" {
		row.UserID = r.Session.UserID()
	}
	if err := r.DB.UpsertReminder(ctx, row); err != nil {
		return row, fmt.Errorf("failed to cache reminder %s: %w", row.ID, err)
	}

	if err := r.Refresh(ctx, nil); err != nil {
		return row, fmt.Errorf("reminder %s created: %w", row.ID, err)
	}
	return row, nil
}

// Update replaces reminder id remotely and refreshes.
func (r *ReminderRepository) Update(ctx context.Context, id string, in schema.ReminderInput) error {
	if err := in.Validate(); err != nil {
		return fmt.Errorf("invalid reminder: %w", err)
	}
	if err := r.api.UpdateReminder(ctx, id, in.Request()); err != nil {
		return fmt.Errorf("failed to update reminder %s: %w", id, err)
	}
	return r.Refresh(ctx, nil)
}

// SetCompleted marks reminder id done or open. Completing a reminder cancels
// its pending alarm.
func (r *ReminderRepository) SetCompleted(ctx context.Context, id string, completed bool) error {
	row, err := r.DB.GetReminder(ctx, id)
	if err != nil {
		return err
	}
	in := schema.InputFromRow(row)
	in.Completed = completed
	if err := r.Update(ctx, id, in); err != nil {
		return err
	}
	if completed {
		r.Alarms.CancelReminder(id)
	}
	return nil
}

// Delete removes reminder id remotely, then from the cache together with its
// attachments and their local copies, then cancels its alarm.
func (r *ReminderRepository) Delete(ctx context.Context, id string) error {
	files, err := r.DB.ListReminderFiles(ctx, id)
	if err != nil {
		return err
	}

	if err := r.api.DeleteReminder(ctx, id); err != nil {
		return fmt.Errorf("failed to delete reminder %s: %w", id, err)
	}
	if err := r.DB.DeleteReminder(ctx, id); err != nil {
		return err
	}
	r.Alarms.CancelReminder(id)
	r.removeLocalCopies(files)

	r.Logger.Printf("Deleted reminder: %s", id)
	return nil
}

// SyncFiles replaces the cached attachments of reminderID with the remote
// list. A cached row the server does not list survives only while the
// reminder's file URL still points at it. Local copies of dropped rows are
// removed; those of surviving rows are kept.
func (r *ReminderRepository) SyncFiles(ctx context.Context, reminderID string) error {
	records, err := r.api.ListReminderFiles(ctx, reminderID)
	if err != nil {
		return fmt.Errorf("failed to fetch files of reminder %s: %w", reminderID, err)
	}

	listed := make(map[string]bool, len(records))
	rows := make([]schema.ReminderFile, 0, len(records))
	for _, rec := range records {
		row := schema.ReminderFileFromRecord(reminderID, rec)
		if row.FileID == "" {
			continue
		}
		// Attachments listed under this reminder belong to it.
		row.ReminderID = reminderID
		listed[row.FileID] = true
		rows = append(rows, row)
	}

	cached, err := r.DB.ListReminderFiles(ctx, reminderID)
	if err != nil {
		return err
	}
	var linked string
	reminder, err := r.DB.GetReminder(ctx, reminderID)
	switch {
	case err == nil && reminder.FileURL != nil:
		linked = *reminder.FileURL
	case err != nil && !errors.Is(err, cache.ErrNotFound):
		return err
	}

	var dropped []schema.ReminderFile
	for _, f := range cached {
		if listed[f.FileID] {
			continue
		}
		if linked != "" && f.RemoteURL != nil && *f.RemoteURL == linked {
			rows = append(rows, f)
			continue
		}
		dropped = append(dropped, f)
	}

	if err := r.DB.ReplaceReminderFiles(ctx, reminderID, rows); err != nil {
		return fmt.Errorf("failed to store files of reminder %s: %w", reminderID, err)
	}
	r.removeLocalCopies(dropped)
	return nil
}

// removeLocalCopies deletes the stored copies of files. Failures are logged.
func (r *ReminderRepository) removeLocalCopies(files []schema.ReminderFile) {
	if r.files == nil {
		return
	}
	for _, f := range files {
		if f.LocalPath == nil {
			continue
		}
		if err := r.files.Remove(f.FileID); err != nil {
			r.Logger.Printf("WARNING: failed to remove local copy of %s: %v", f.FileID, err)
		}
	}
}

// Attach uploads the file at path, links it to reminder reminderID, and keeps
// a local copy. The returned row has LocalPath set when a copy was made.
func (r *ReminderRepository) Attach(ctx context.Context, reminderID, path string) (schema.ReminderFile, error) {
	row, err := r.DB.GetReminder(ctx, reminderID)
	if err != nil {
		return schema.ReminderFile{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return schema.ReminderFile{}, fmt.Errorf("failed to open attachment: %w", err)
	}
	defer f.Close()

	name := filepath.Base(path)
	up, err := r.api.UploadFile(ctx, name, f)
	if err != nil {
		return schema.ReminderFile{}, fmt.Errorf("failed to upload %s: %w", name, err)
	}
	location := up.URL
	if location == "" {
		location = up.Path
	}

	in := schema.InputFromRow(row)
	in.FileURL = location
	if err := r.api.UpdateReminder(ctx, reminderID, in.Request()); err != nil {
		return schema.ReminderFile{}, fmt.Errorf("failed to link %s to reminder %s: %w", name, reminderID, err)
	}
	if err := r.Refresh(ctx, nil); err != nil {
		return schema.ReminderFile{}, err
	}
	if err := r.SyncFiles(ctx, reminderID); err != nil {
		return schema.ReminderFile{}, err
	}

	file, err := r.uploadedFile(ctx, reminderID, up, name)
	if err != nil {
		return schema.ReminderFile{}, err
	}

	if r.files == nil {
		return file, nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return file, fmt.Errorf("failed to rewind %s: %w", name, err)
	}
	local, err := r.files.Put(file.FileID, name, f)
	if err != nil {
		return file, fmt.Errorf("failed to keep local copy of %s: %w", name, err)
	}
	if err := r.DB.SetReminderFileLocalPath(ctx, file.FileID, local); err != nil {
		return file, err
	}
	file.LocalPath = &local
	return file, nil
}

// ErrNoFileStore is returned by Fetch when the repository keeps no local
// copies.
var ErrNoFileStore = errors.New("no local file store configured")

// Fetch downloads attachment fileID of reminderID into the local store and
// returns its path. An existing local copy is returned without downloading.
func (r *ReminderRepository) Fetch(ctx context.Context, reminderID, fileID string) (string, error) {
	if r.files == nil {
		return "", ErrNoFileStore
	}
	files, err := r.DB.ListReminderFiles(ctx, reminderID)
	if err != nil {
		return "", err
	}

	var file *schema.ReminderFile
	for i := range files {
		if files[i].FileID == fileID {
			file = &files[i]
			break
		}
	}
	if file == nil {
		return "", fmt.Errorf("file %s of reminder %s: %w", fileID, reminderID, cache.ErrNotFound)
	}
	if file.LocalPath != nil {
		if _, err := os.Stat(*file.LocalPath); err == nil {
			return *file.LocalPath, nil
		}
	}
	if file.RemoteURL == nil {
		return "", fmt.Errorf("file %s has no remote location", fileID)
	}

	var buf bytes.Buffer
	if err := r.api.Download(ctx, *file.RemoteURL, &buf); err != nil {
		return "", fmt.Errorf("failed to download %s: %w", file.FileName, err)
	}
	local, err := r.files.Put(fileID, file.FileName, &buf)
	if err != nil {
		return "", fmt.Errorf("failed to keep local copy of %s: %w", file.FileName, err)
	}
	if err := r.DB.SetReminderFileLocalPath(ctx, fileID, local); err != nil {
		return local, err
	}
	r.Logger.Printf("Fetched %s for reminder %s", file.FileName, reminderID)
	return local, nil
}

// uploadedFile finds the attachment row for an upload after SyncFiles. When
// the server does not list it, a row keyed by the stored path is cached.
func (r *ReminderRepository) uploadedFile(ctx context.Context, reminderID string, up schema.UploadResult, name string) (schema.ReminderFile, error) {
	files, err := r.DB.ListReminderFiles(ctx, reminderID)
	if err != nil {
		return schema.ReminderFile{}, err
	}
	for _, f := range files {
		if f.RemoteURL != nil && (*f.RemoteURL == up.URL || *f.RemoteURL == up.Path) {
			return f, nil
		}
	}

	key := up.Path
	if key == "" {
		key = up.URL
	}
	if key == "" {
		return schema.ReminderFile{}, errors.New("upload result has no location")
	}
	remote := up.URL
	if remote == "" {
		remote = up.Path
	}
	file := schema.ReminderFile{
		FileID:     key,
		ReminderID: reminderID,
		FileName:   name,
		FileType:   up.Type,
		RemoteURL:  &remote,
	}
	if err := r.DB.UpsertReminderFile(ctx, file); err != nil {
		return schema.ReminderFile{}, err
	}
	return file, nil
}

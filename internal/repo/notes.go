package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/campusnote/campusnote/internal/cache"
	"github.com/campusnote/campusnote/internal/content"
	"github.com/campusnote/campusnote/internal/schema"
)

// NoteRepository syncs notes. Notes are scoped by course.
type NoteRepository struct {
	api NoteAPI
	Deps
}

// NewNoteRepository creates a NoteRepository.
func NewNoteRepository(api NoteAPI, deps Deps) *NoteRepository {
	return &NoteRepository{api: api, Deps: deps.withDefaults()}
}

// Observe streams the cached notes of courseID, newest first.
func (r *NoteRepository) Observe(ctx context.Context, courseID string) <-chan []schema.Note {
	return cache.Observe(ctx, r.DB, func(ctx context.Context) ([]schema.Note, error) {
		return r.DB.ListNotes(ctx, courseID)
	}, cache.TableNotes)
}

// List returns the cached notes of courseID.
func (r *NoteRepository) List(ctx context.Context, courseID string) ([]schema.Note, error) {
	return r.DB.ListNotes(ctx, courseID)
}

// Get returns the cached note id.
func (r *NoteRepository) Get(ctx context.Context, id string) (schema.Note, error) {
	return r.DB.GetNote(ctx, id)
}

// Refresh replaces the cached notes of courseID with the remote ones.
func (r *NoteRepository) Refresh(ctx context.Context, courseID string) error {
	if strings.TrimSpace(courseID) == "" {
		return fmt.Errorf("failed to refresh notes: course id is required")
	}

	records, err := r.api.ListNotes(ctx, courseID)
	if err != nil {
		return fmt.Errorf("failed to fetch notes for course %s: %w", courseID, err)
	}

	rows := make([]schema.Note, 0, len(records))
	for _, rec := range records {
		row := schema.NoteFromRecord(rec)
		if row.ID == "" {
			r.Logger.Printf("WARNING: skipping note without id (%s)", row.Title)
			continue
		}
		if row.CourseID == "" {
			row.CourseID = courseID
		}
		rows = append(rows, row)
	}

	if err := r.DB.ReplaceNotes(ctx, courseID, rows); err != nil {
		return fmt.Errorf("failed to store notes: %w", err)
	}

	r.Logger.Printf("Refreshed %d notes (course %s)", len(rows), courseID)
	return nil
}

// Create posts a new note, caches the returned row and refreshes the course.
func (r *NoteRepository) Create(ctx context.Context, in schema.NoteInput) (schema.Note, error) {
	if strings.TrimSpace(in.CourseID) == "" {
		return schema.Note{}, fmt.Errorf("invalid note: course id is required")
	}

	rec, err := r.api.CreateNote(ctx, in.Request())
	if err != nil {
		return schema.Note{}, fmt.Errorf("failed to create note: %w", err)
	}

	row := schema.NoteFromRecord(rec)
	if row.CourseID == "" {
		row.CourseID = in.CourseID
	}
	if row.UserID == "" {
		row.UserID = r.Session.UserID()
	}
	if err := r.DB.UpsertNote(ctx, row); err != nil {
		return row, fmt.Errorf("failed to cache note %s: %w", row.ID, err)
	}

	if err := r.Refresh(ctx, row.CourseID); err != nil {
		return row, fmt.Errorf("note %s created: %w", row.ID, err)
	}
	return row, nil
}

// Update replaces note id remotely and refreshes its course.
func (r *NoteRepository) Update(ctx context.Context, id string, in schema.NoteInput) error {
	if strings.TrimSpace(in.CourseID) == "" {
		return fmt.Errorf("invalid note: course id is required")
	}
	if err := r.api.UpdateNote(ctx, id, in.Request()); err != nil {
		return fmt.Errorf("failed to update note %s: %w", id, err)
	}
	return r.Refresh(ctx, in.CourseID)
}

// InsertBlock inserts nb into note id at the caret of the focused block and
// saves the result.
func (r *NoteRepository) InsertBlock(ctx context.Context, id string, nb content.Block, focus, caret int) (schema.Note, error) {
	note, err := r.DB.GetNote(ctx, id)
	if err != nil {
		return schema.Note{}, err
	}

	blocks := content.Insert(note.Document().Blocks(), nb, focus, caret)
	in := schema.NoteInput{CourseID: note.CourseID, Title: note.Title, Blocks: blocks}
	if err := r.Update(ctx, id, in); err != nil {
		return schema.Note{}, err
	}
	return r.DB.GetNote(ctx, id)
}

// Delete removes note id remotely, then from the cache.
func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	if err := r.api.DeleteNote(ctx, id); err != nil {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	if err := r.DB.DeleteNote(ctx, id); err != nil {
		return err
	}

	r.Logger.Printf("Deleted note: %s", id)
	return nil
}

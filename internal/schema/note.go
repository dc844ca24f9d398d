package schema

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/campusnote/campusnote/internal/content"
)

// NoteRecord is a note as returned by GET /notes.
type NoteRecord struct {
	ID          FlexString      `json:"id"`
	UserID      FlexString      `json:"user_id"`
	CourseID    FlexString      `json:"id_jadwal"`
	Title       string          `json:"judul_catatan"`
	Body        *string         `json:"isi_teks"`
	ContentJSON json.RawMessage `json:"content_json"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

// Note is the cache row for a note. ContentJSON always holds a valid
// encoded block array.
type Note struct {
	ID          string
	CourseID    string
	UserID      string
	Title       string
	Body        string
	ContentJSON string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NoteFromRecord converts a wire record to a cache row. The content is
// decoded and re-encoded so the cache only ever stores the canonical form.
func NoteFromRecord(r NoteRecord) Note {
	doc := content.ParseRaw(r.ContentJSON)
	body := ""
	if r.Body != nil {
		body = *r.Body
	}
	return Note{
		ID:          r.ID.String(),
		CourseID:    r.CourseID.String(),
		UserID:      r.UserID.String(),
		Title:       strings.TrimSpace(r.Title),
		Body:        body,
		ContentJSON: content.Encode(doc.Blocks()),
		CreatedAt:   ParseTimestamp(r.CreatedAt),
		UpdatedAt:   ParseTimestamp(r.UpdatedAt),
	}
}

// Document decodes the stored content.
func (n Note) Document() content.Document {
	return content.Parse(n.ContentJSON)
}

// LastModified returns UpdatedAt, falling back to CreatedAt.
func (n Note) LastModified() time.Time {
	if n.UpdatedAt.IsZero() {
		return n.CreatedAt
	}
	return n.UpdatedAt
}

// previewLength bounds NoteView.Preview in runes.
const previewLength = 80

// NoteView is the presentation projection of a note row.
type NoteView struct {
	ID           string          `json:"id" yaml:"id"`
	CourseID     string          `json:"course_id" yaml:"course_id"`
	Title        string          `json:"title" yaml:"title"`
	Blocks       []content.Block `json:"-" yaml:"-"`
	Preview      string          `json:"preview" yaml:"preview"`
	LastModified time.Time       `json:"last_modified" yaml:"last_modified"`
}

// View projects the row for display.
func (n Note) View() NoteView {
	blocks := n.Document().Blocks()
	preview := content.PlainText(blocks)
	if preview == "" {
		preview = n.Body
	}
	preview = strings.Join(strings.Fields(preview), " ")
	if r := []rune(preview); len(r) > previewLength {
		preview = string(r[:previewLength-1]) + "…"
	}
	return NoteView{
		ID:           n.ID,
		CourseID:     n.CourseID,
		Title:        n.Title,
		Blocks:       blocks,
		Preview:      preview,
		LastModified: n.LastModified(),
	}
}

// NoteInput holds user-editable note fields.
type NoteInput struct {
	CourseID string
	Title    string
	Blocks   []content.Block
}

// NoteRequest is the POST/PUT /notes body.
type NoteRequest struct {
	CourseID    string          `json:"id_jadwal"`
	Title       string          `json:"judul_catatan"`
	Body        string          `json:"isi_teks"`
	ContentJSON json.RawMessage `json:"content_json"`
}

// Request builds the wire body. isi_teks carries the plain text of the body
// for clients that do not understand blocks.
func (in NoteInput) Request() NoteRequest {
	blocks := content.NewDocument(in.Blocks).Blocks()
	return NoteRequest{
		CourseID:    in.CourseID,
		Title:       strings.TrimSpace(in.Title),
		Body:        content.PlainText(blocks),
		ContentJSON: content.EncodeRaw(blocks),
	}
}

package schema

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/campusnote/campusnote/internal/content"
)

func TestFlexString_Unmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want FlexString
	}{
		{`"abc"`, "abc"},
		{`" 42 "`, "42"},
		{`42`, "42"},
		{`42.0`, "42"},
		{`null`, ""},
		{`-7`, "-7"},
	}
	for _, tt := range tests {
		var got FlexString
		if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
			t.Fatalf("Unmarshal(%s) failed: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Unmarshal(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFlexBoolAndInt(t *testing.T) {
	var rec struct {
		B1 FlexBool `json:"b1"`
		B2 FlexBool `json:"b2"`
		B3 FlexBool `json:"b3"`
		I1 FlexInt  `json:"i1"`
		I2 FlexInt  `json:"i2"`
		I3 FlexInt  `json:"i3"`
	}
	data := `{"b1":1,"b2":"true","b3":0,"i1":"3","i2":2.0,"i3":"n/a"}`
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !rec.B1 || !rec.B2 || rec.B3 {
		t.Errorf("bools = %v %v %v, want true true false", rec.B1, rec.B2, rec.B3)
	}
	if rec.I1 != 3 || rec.I2 != 2 || rec.I3 != 0 {
		t.Errorf("ints = %d %d %d, want 3 2 0", rec.I1, rec.I2, rec.I3)
	}
}

func TestParseDay(t *testing.T) {
	tests := []struct {
		name string
		want time.Weekday
		ok   bool
	}{
		{"Senin", time.Monday, true},
		{"MONDAY", time.Monday, true},
		{"selasa", time.Tuesday, true},
		{"Rabu", time.Wednesday, true},
		{"kamis", time.Thursday, true},
		{"Jumat", time.Friday, true},
		{"jum'at", time.Friday, true},
		{"Sabtu", time.Saturday, true},
		{"Minggu", time.Sunday, true},
		{"ahad", time.Sunday, true},
		{" sunday ", time.Sunday, true},
		{"someday", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseDay(tt.name)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseDay(%q) = (%v, %v), want (%v, %v)", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDayIndex(t *testing.T) {
	if got := DayIndex("Senin"); got != 0 {
		t.Errorf("DayIndex(Senin) = %d, want 0", got)
	}
	if got := DayIndex("Minggu"); got != 6 {
		t.Errorf("DayIndex(Minggu) = %d, want 6", got)
	}
	if got := DayIndex("???"); got != UnknownDayIndex {
		t.Errorf("DayIndex(???) = %d, want %d", got, UnknownDayIndex)
	}
}

func TestScheduleFromRecord(t *testing.T) {
	data := `{"id":12,"user_id":"3","nama_matakuliah":" Algoritma ","sks":"3","dosen":"","hari":"Senin","jam_mulai":"08:00:00","jam_selesai":"09:40:00","ruangan":"R.204"}`
	var rec ScheduleRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	row := ScheduleFromRecord(rec)
	if row.ID != "12" || row.UserID != "3" {
		t.Errorf("ids = (%q, %q), want (12, 3)", row.ID, row.UserID)
	}
	if row.CourseName != "Algoritma" || row.Credits != 3 {
		t.Errorf("course = (%q, %d)", row.CourseName, row.Credits)
	}
	if row.Instructor != nil {
		t.Errorf("blank instructor should map to nil, got %q", *row.Instructor)
	}
	if row.Room == nil || *row.Room != "R.204" {
		t.Errorf("room = %v, want R.204", row.Room)
	}
	if row.DayIndex != 0 {
		t.Errorf("DayIndex = %d, want 0", row.DayIndex)
	}

	view := row.View()
	if view.Day != "Monday" || view.TimeRange != "08:00 - 09:40" || view.Instructor != "-" {
		t.Errorf("view = %+v", view)
	}
}

func TestScheduleInput(t *testing.T) {
	in := ScheduleInput{CourseName: "Basis Data", Credits: 2, Day: "Rabu", StartTime: "10:00", EndTime: "11:40"}
	if err := in.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	req := in.Request()
	if req.StartTime != "10:00:00" || req.EndTime != "11:40:00" {
		t.Errorf("times = %q %q", req.StartTime, req.EndTime)
	}
	if req.Instructor != nil || req.Room != nil {
		t.Errorf("blank optional fields should be nil")
	}

	bad := ScheduleInput{CourseName: "X", Day: "Blursday", StartTime: "1", EndTime: "2"}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unknown day")
	}
}

func TestNoteFromRecord(t *testing.T) {
	data := `{
		"id": 5, "user_id": 3, "id_jadwal": "12", "judul_catatan": "Week 1",
		"isi_teks": null,
		"content_json": [{"type":"text","text":"hello"},{"type":"image","imageUri":"u"}],
		"created_at": "2024-03-01T08:00:00.000000Z",
		"updated_at": "2024-03-02 09:30:00"
	}`
	var rec NoteRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	row := NoteFromRecord(rec)
	if row.ID != "5" || row.CourseID != "12" || row.UserID != "3" {
		t.Errorf("ids = %q %q %q", row.ID, row.CourseID, row.UserID)
	}
	want := []content.Block{
		content.Text{Text: "hello"},
		content.Image{Source: content.RemoteImage("u"), WidthPx: 750, HeightPx: 600},
	}
	if got := row.Document().Blocks(); !reflect.DeepEqual(got, want) {
		t.Errorf("blocks = %#v, want %#v", got, want)
	}
	if row.CreatedAt.IsZero() || row.UpdatedAt.IsZero() {
		t.Errorf("timestamps not parsed: %v %v", row.CreatedAt, row.UpdatedAt)
	}
	if !row.LastModified().Equal(row.UpdatedAt) {
		t.Errorf("LastModified = %v, want UpdatedAt", row.LastModified())
	}

	view := row.View()
	if view.Preview != "hello" {
		t.Errorf("Preview = %q, want hello", view.Preview)
	}
}

func TestNoteFromRecord_MalformedContent(t *testing.T) {
	rec := NoteRecord{ID: "1", ContentJSON: json.RawMessage(`"not json at all"`)}
	row := NoteFromRecord(rec)
	want := []content.Block{content.Text{Text: "not json at all"}}
	if got := row.Document().Blocks(); !reflect.DeepEqual(got, want) {
		t.Errorf("blocks = %#v, want %#v", got, want)
	}

	empty := NoteFromRecord(NoteRecord{ID: "2"})
	if got := empty.Document().Blocks(); !reflect.DeepEqual(got, []content.Block{content.Text{}}) {
		t.Errorf("missing content = %#v, want single empty text", got)
	}
}

func TestNoteInput_Request(t *testing.T) {
	req := NoteInput{CourseID: "12", Title: " T ", Blocks: nil}.Request()
	if req.Title != "T" {
		t.Errorf("Title = %q", req.Title)
	}
	if string(req.ContentJSON) != `[{"type":"text","text":""}]` {
		t.Errorf("ContentJSON = %s", req.ContentJSON)
	}
}

func TestReminderFromRecord(t *testing.T) {
	data := `{"id":"9","user_id":3,"jenis_reminder":"Quiz","tanggal":"2024-05-01","jam":"07:30","keterangan":"bring calculator","file_url":null,"is_completed":0,"created_at":"","updated_at":""}`
	var rec ReminderRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	row := ReminderFromRecord(rec)
	if row.DueAt != "2024-05-01 07:30:00" {
		t.Errorf("DueAt = %q", row.DueAt)
	}
	if row.IsCompleted || row.FileURL != nil {
		t.Errorf("row = %+v", row)
	}
	if row.Description == nil || *row.Description != "bring calculator" {
		t.Errorf("Description = %v", row.Description)
	}

	due, ok := row.Due(time.UTC)
	if !ok || !due.Equal(time.Date(2024, 5, 1, 7, 30, 0, 0, time.UTC)) {
		t.Errorf("Due = %v, %v", due, ok)
	}

	view := row.View()
	if !view.Overdue(time.Date(2030, 1, 1, 0, 0, 0, 0, time.Local)) {
		t.Error("expected reminder to be overdue in 2030")
	}
}

func TestReminderFileFromRecord(t *testing.T) {
	data := `{"id_file":77,"nama_file":"a.pdf","tipe_file":"pdf","path_file":"uploads/a.pdf","url":null}`
	var rec ReminderFileRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	row := ReminderFileFromRecord("9", rec)
	if row.FileID != "77" || row.ReminderID != "9" {
		t.Errorf("ids = %q %q", row.FileID, row.ReminderID)
	}
	if row.RemoteURL == nil || *row.RemoteURL != "uploads/a.pdf" {
		t.Errorf("RemoteURL = %v, want path fallback", row.RemoteURL)
	}
	if row.LocalPath != nil {
		t.Error("LocalPath should be nil until a local copy exists")
	}
}

func TestComposeDueAt(t *testing.T) {
	tests := []struct {
		date, clock, want string
	}{
		{"2024-05-01", "07:30", "2024-05-01 07:30:00"},
		{"2024-05-01", "07:30:15", "2024-05-01 07:30:15"},
		{"2024-05-01T00:00:00.000000Z", "23:59:00.000", "2024-05-01 23:59:00"},
	}
	for _, tt := range tests {
		if got := ComposeDueAt(tt.date, tt.clock); got != tt.want {
			t.Errorf("ComposeDueAt(%q, %q) = %q, want %q", tt.date, tt.clock, got, tt.want)
		}
	}
}

func TestNormalizeClock(t *testing.T) {
	tests := []struct {
		clock, want string
	}{
		{"08:00", "08:00:00"},
		{"8:00", "08:00:00"},
		{" 9:05 ", "09:05:00"},
		{"8:00:30", "08:00:30"},
		{"13.45", "13:45:00"},
		{"23:59:00.000", "23:59:00"},
		{"07:30:00+07", "07:30:00"},
		{"", ""},
		{"noon", "noon"},
	}
	for _, tt := range tests {
		if got := NormalizeClock(tt.clock); got != tt.want {
			t.Errorf("NormalizeClock(%q) = %q, want %q", tt.clock, got, tt.want)
		}
	}
}

func TestReminderInput_Request(t *testing.T) {
	due := time.Date(2024, 6, 2, 14, 5, 0, 0, time.Local)
	req := ReminderInput{Subject: "Essay", DueAt: due}.Request()
	if req.Date != "2024-06-02" || req.Time != "14:05:00" {
		t.Errorf("request = %+v", req)
	}
	if req.Description != nil {
		t.Error("blank description should be nil")
	}
	if err := (ReminderInput{Subject: "x"}).Validate(); err == nil {
		t.Error("expected error for zero due time")
	}
}

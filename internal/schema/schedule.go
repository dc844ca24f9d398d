package schema

import (
	"fmt"
	"strings"
)

// ScheduleRecord is a class schedule entry as returned by GET /schedules.
type ScheduleRecord struct {
	ID         FlexString `json:"id"`
	UserID     FlexString `json:"user_id"`
	CourseName string     `json:"nama_matakuliah"`
	Credits    FlexInt    `json:"sks"`
	Instructor *string    `json:"dosen"`
	Day        string     `json:"hari"`
	StartTime  string     `json:"jam_mulai"`
	EndTime    string     `json:"jam_selesai"`
	Room       *string    `json:"ruangan"`
}

// Schedule is the cache row for a class schedule entry.
type Schedule struct {
	ID         string
	UserID     string
	CourseName string
	Credits    int
	Instructor *string
	Day        string
	// DayIndex is the Monday-first position of Day, used for ordering.
	DayIndex  int
	StartTime string
	EndTime   string
	Room      *string
}

// ScheduleFromRecord converts a wire record to a cache row.
func ScheduleFromRecord(r ScheduleRecord) Schedule {
	return Schedule{
		ID:         r.ID.String(),
		UserID:     r.UserID.String(),
		CourseName: strings.TrimSpace(r.CourseName),
		Credits:    int(r.Credits),
		Instructor: optional(r.Instructor),
		Day:        strings.TrimSpace(r.Day),
		DayIndex:   DayIndex(r.Day),
		StartTime:  strings.TrimSpace(r.StartTime),
		EndTime:    strings.TrimSpace(r.EndTime),
		Room:       optional(r.Room),
	}
}

// ScheduleView is the presentation projection of a schedule row.
type ScheduleView struct {
	ID         string `json:"id" yaml:"id"`
	CourseName string `json:"course" yaml:"course"`
	Credits    int    `json:"credits" yaml:"credits"`
	Instructor string `json:"instructor" yaml:"instructor"`
	Day        string `json:"day" yaml:"day"`
	TimeRange  string `json:"time" yaml:"time"`
	Room       string `json:"room" yaml:"room"`
}

// View projects the row for display. Missing optional fields render as "-".
func (s Schedule) View() ScheduleView {
	return ScheduleView{
		ID:         s.ID,
		CourseName: s.CourseName,
		Credits:    s.Credits,
		Instructor: orDash(s.Instructor),
		Day:        DayLabel(s.Day),
		TimeRange:  fmt.Sprintf("%s - %s", ShortClock(s.StartTime), ShortClock(s.EndTime)),
		Room:       orDash(s.Room),
	}
}

// ScheduleInput holds user-editable schedule fields.
type ScheduleInput struct {
	CourseName string
	Credits    int
	Instructor string
	Day        string
	StartTime  string
	EndTime    string
	Room       string
}

// ScheduleRequest is the POST/PUT /schedules body.
type ScheduleRequest struct {
	CourseName string  `json:"nama_matakuliah"`
	Credits    int     `json:"sks"`
	Instructor *string `json:"dosen"`
	Day        string  `json:"hari"`
	StartTime  string  `json:"jam_mulai"`
	EndTime    string  `json:"jam_selesai"`
	Room       *string `json:"ruangan"`
}

// Validate checks the fields the API requires.
func (in ScheduleInput) Validate() error {
	if strings.TrimSpace(in.CourseName) == "" {
		return fmt.Errorf("course name is required")
	}
	if _, ok := ParseDay(in.Day); !ok {
		return fmt.Errorf("unrecognized day %q", in.Day)
	}
	if in.StartTime == "" || in.EndTime == "" {
		return fmt.Errorf("start and end time are required")
	}
	if in.Credits < 0 {
		return fmt.Errorf("credits must not be negative (got %d)", in.Credits)
	}
	return nil
}

// Request builds the wire body for this input.
func (in ScheduleInput) Request() ScheduleRequest {
	instructor, room := in.Instructor, in.Room
	return ScheduleRequest{
		CourseName: strings.TrimSpace(in.CourseName),
		Credits:    in.Credits,
		Instructor: optional(&instructor),
		Day:        strings.TrimSpace(in.Day),
		StartTime:  NormalizeClock(in.StartTime),
		EndTime:    NormalizeClock(in.EndTime),
		Room:       optional(&room),
	}
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

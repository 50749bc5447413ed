package schedule

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Session is a contiguous working-hours block within a day, expressed
// in minutes since midnight with a half-open [Start, End) meaning.
type Session struct {
	Start int
	End   int
}

// AppointmentType describes one bookable visit kind.
type AppointmentType struct {
	Name            string
	DurationMinutes int
}

// Template is the clinic's static weekly schedule: working sessions per
// weekday, closures, appointment durations, and the buffer enforced
// between consecutive slots. Immutable after Load.
type Template struct {
	sessions map[time.Weekday][]Session
	holidays map[string]struct{}
	blocked  map[string]string // date -> reason
	types    map[string]AppointmentType
	buffer   int
}

type templateFile struct {
	WorkingHours map[string]struct {
		Sessions []struct {
			Start string `json:"start"`
			End   string `json:"end"`
		} `json:"sessions"`
	} `json:"working_hours"`
	Holidays     []string `json:"holidays"`
	BlockedDates []struct {
		Date   string `json:"date"`
		Reason string `json:"reason"`
	} `json:"blocked_dates"`
	AppointmentTypes map[string]struct {
		Name            string `json:"name"`
		DurationMinutes int    `json:"duration_minutes"`
	} `json:"appointment_types"`
	BufferMinutes int `json:"buffer_minutes"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Load reads and validates the schedule template artifact.
func Load(path string) (*Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule template: %w", err)
	}

	var file templateFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode schedule template: %w", err)
	}

	return newTemplate(file)
}

func newTemplate(file templateFile) (*Template, error) {
	t := &Template{
		sessions: make(map[time.Weekday][]Session),
		holidays: make(map[string]struct{}),
		blocked:  make(map[string]string),
		types:    make(map[string]AppointmentType),
		buffer:   file.BufferMinutes,
	}

	if t.buffer < 0 {
		return nil, fmt.Errorf("buffer_minutes must be >= 0, got %d", t.buffer)
	}

	for name, day := range file.WorkingHours {
		weekday, ok := weekdayNames[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q in working_hours", name)
		}
		var sessions []Session
		for _, s := range day.Sessions {
			start, err := ParseClock(s.Start)
			if err != nil {
				return nil, fmt.Errorf("weekday %s: %w", name, err)
			}
			end, err := ParseClock(s.End)
			if err != nil {
				return nil, fmt.Errorf("weekday %s: %w", name, err)
			}
			if end <= start {
				return nil, fmt.Errorf("weekday %s: session %s-%s ends before it starts", name, s.Start, s.End)
			}
			sessions = append(sessions, Session{Start: start, End: end})
		}
		t.sessions[weekday] = sessions
	}

	for _, h := range file.Holidays {
		if _, err := ParseDate(h); err != nil {
			return nil, fmt.Errorf("holiday: %w", err)
		}
		t.holidays[h] = struct{}{}
	}
	for _, b := range file.BlockedDates {
		if _, err := ParseDate(b.Date); err != nil {
			return nil, fmt.Errorf("blocked date: %w", err)
		}
		t.blocked[b.Date] = b.Reason
	}

	for tag, at := range file.AppointmentTypes {
		if at.DurationMinutes <= 0 {
			return nil, fmt.Errorf("appointment type %q: duration must be positive", tag)
		}
		t.types[tag] = AppointmentType{Name: at.Name, DurationMinutes: at.DurationMinutes}
	}
	if len(t.types) == 0 {
		return nil, fmt.Errorf("schedule template defines no appointment types")
	}

	return t, nil
}

// SessionsOn returns the working sessions for a date, or nil when the
// clinic is closed (holiday, blocked date, or sessionless weekday).
func (t *Template) SessionsOn(date time.Time) []Session {
	key := FormatDate(date)
	if _, ok := t.holidays[key]; ok {
		return nil
	}
	if _, ok := t.blocked[key]; ok {
		return nil
	}
	return t.sessions[date.Weekday()]
}

// IsWorkingDay reports whether any session exists on the date.
func (t *Template) IsWorkingDay(date time.Time) bool {
	return len(t.SessionsOn(date)) > 0
}

// Type looks up an appointment type by its tag.
func (t *Template) Type(tag string) (AppointmentType, bool) {
	at, ok := t.types[tag]
	return at, ok
}

// TypeTags returns the configured appointment-type tags.
func (t *Template) TypeTags() []string {
	tags := make([]string, 0, len(t.types))
	for tag := range t.types {
		tags = append(tags, tag)
	}
	return tags
}

// BufferMinutes is the idle gap enforced after every slot.
func (t *Template) BufferMinutes() int {
	return t.buffer
}

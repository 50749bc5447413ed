package schedule

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// ParseClock converts "HH:MM" (24-hour) to minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock converts minutes since midnight back to "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// FormatClock12 renders minutes since midnight as e.g. "2:30 PM".
// Used for slot displays handed to the conversational layer.
func FormatClock12(minutes int) string {
	h := minutes / 60
	m := minutes % 60
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, m, suffix)
}

// ParseDate validates a "YYYY-MM-DD" calendar date and returns it at
// midnight local time.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

// FormatDate renders a time as "YYYY-MM-DD".
func FormatDate(d time.Time) string {
	return d.Format(dateLayout)
}

// DayName returns the capitalized weekday name for a date, e.g. "Monday".
func DayName(d time.Time) string {
	return d.Weekday().String()
}

// Today truncates the given instant to its local calendar date.
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

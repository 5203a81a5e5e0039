// Package timetable implements the weekly lesson schedule and the pure
// time-of-day arithmetic it is built on. All time-of-day math is done in
// integer minutes since midnight; lessons never span midnight.
package timetable

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedTime indicates a time-of-day string could not be parsed or is
// outside the 00:00–23:59 range.
var ErrMalformedTime = errors.New("timetable: malformed time of day")

// TimeOfDay is a clock time expressed as whole minutes since local midnight.
type TimeOfDay int

const minutesPerDay = 24 * 60

// ParseTimeOfDay parses a zero-padded "HH:MM" string. Both fields must be
// exactly two decimal digits; hours outside 00–23 and minutes outside 00–59
// are rejected alongside structurally malformed input.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	trimmed := strings.TrimSpace(s)
	parts := strings.Split(trimmed, ":")
	if len(parts) != 2 || !twoDigits(parts[0]) || !twoDigits(parts[1]) {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}

	hour, _ := strconv.Atoi(parts[0])
	minute, _ := strconv.Atoi(parts[1])
	if hour > 23 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}

	return TimeOfDay(hour*60 + minute), nil
}

func twoDigits(s string) bool {
	if len(s) != 2 {
		return false
	}
	return s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}

// TimeOfDayOf truncates an absolute timestamp to its local time-of-day.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// Hour returns the hour component (0–23).
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component (0–59).
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Valid reports whether the value lies within a single day.
func (t TimeOfDay) Valid() bool { return t >= 0 && t < minutesPerDay }

// String renders the time as zero-padded "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Compare orders two times of day, returning -1, 0, or +1.
func (t TimeOfDay) Compare(other TimeOfDay) int {
	switch {
	case t < other:
		return -1
	case t > other:
		return 1
	default:
		return 0
	}
}

// Before reports whether t is strictly earlier than other.
func (t TimeOfDay) Before(other TimeOfDay) bool { return t < other }

// After reports whether t is strictly later than other.
func (t TimeOfDay) After(other TimeOfDay) bool { return t > other }

// Contains reports whether t falls within [start, end]. The interval is
// closed on both ends so a lesson stays active through its final minute.
func Contains(t, start, end TimeOfDay) bool {
	return t >= start && t <= end
}

// MinutesBetween returns the signed minute distance from a to b.
func MinutesBetween(a, b TimeOfDay) int { return int(b) - int(a) }

// At anchors the time-of-day onto the calendar date of ref, in ref's
// location, producing an absolute timestamp with zeroed seconds.
func (t TimeOfDay) At(ref time.Time) time.Time {
	y, m, d := ref.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, ref.Location())
}

// ParseWeekday accepts weekday names ("sunday" through "saturday", any case)
// and numeric labels "0"–"6" with Sunday as zero, matching the import format.
func ParseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sunday", "0":
		return time.Sunday, nil
	case "monday", "1":
		return time.Monday, nil
	case "tuesday", "2":
		return time.Tuesday, nil
	case "wednesday", "3":
		return time.Wednesday, nil
	case "thursday", "4":
		return time.Thursday, nil
	case "friday", "5":
		return time.Friday, nil
	case "saturday", "6":
		return time.Saturday, nil
	}
	return time.Sunday, fmt.Errorf("timetable: unknown weekday %q", s)
}

package timetable

import "time"

// Resolution is the outcome of resolving a schedule against an instant.
// Current is set when the instant falls inside a lesson window; Next is the
// first lesson starting later the same day. Next never carries over to the
// following day.
type Resolution struct {
	Current *Lesson
	Next    *Lesson

	// RemainingMinutes counts whole minutes until Current ends; zero when
	// there is no current lesson.
	RemainingMinutes int
	// ProgressPercent is how far the current lesson has advanced, 0–100.
	ProgressPercent int
	// MinutesUntilNext counts whole minutes until Next starts; zero when
	// there is no next lesson.
	MinutesUntilNext int
}

// Resolve computes the current and next lesson for the weekday and
// time-of-day of now, using now's location for the calendar lookup.
//
// The day's lessons are already ordered by start time with a deterministic
// period tie-break, so the first containing window wins and the first
// future start is the next lesson. A current lesson does not suppress the
// next one.
func Resolve(s *Schedule, now time.Time) Resolution {
	var res Resolution
	if s == nil {
		return res
	}

	tod := TimeOfDayOf(now)
	for _, lesson := range s.days[now.Weekday()] {
		if res.Current == nil && lesson.Contains(tod) {
			current := lesson
			res.Current = &current
			res.RemainingMinutes = MinutesBetween(tod, lesson.End)
			res.ProgressPercent = progressPercent(tod, lesson)
		}
		if res.Next == nil && lesson.Start.After(tod) {
			next := lesson
			res.Next = &next
			res.MinutesUntilNext = MinutesBetween(tod, lesson.Start)
		}
		if res.Current != nil && res.Next != nil {
			break
		}
	}
	return res
}

func progressPercent(tod TimeOfDay, lesson Lesson) int {
	total := lesson.DurationMinutes()
	if total <= 0 {
		return 0
	}
	pct := MinutesBetween(lesson.Start, tod) * 100 / total
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

package timetable

import "time"

// MinLessonMinutes is the shortest lesson window accepted at schedule load.
const MinLessonMinutes = 5

// MaxPeriod bounds the period number at schedule load. Downstream trigger
// keys reserve two decimal digits for it.
const MaxPeriod = 99

// Lesson is one scheduled class period. Lessons are immutable once a
// schedule has been built; the period number is a display ordering hint.
type Lesson struct {
	Day         time.Weekday
	Period      int
	Start       TimeOfDay
	End         TimeOfDay
	ClassName   string
	SubjectName string
}

// DurationMinutes returns the lesson length in whole minutes.
func (l Lesson) DurationMinutes() int {
	return MinutesBetween(l.Start, l.End)
}

// Contains reports whether t falls inside the lesson window, inclusive of
// both boundaries.
func (l Lesson) Contains(t TimeOfDay) bool {
	return Contains(t, l.Start, l.End)
}

// Overlaps reports whether two lessons on the same day intersect.
// Lessons on different days never overlap.
func (l Lesson) Overlaps(other Lesson) bool {
	if l.Day != other.Day {
		return false
	}
	return l.Start < other.End && other.Start < l.End
}

// Key identifies a lesson for deduplication: two inputs with the same day,
// window, and period describe the same lesson.
func (l Lesson) Key() LessonKey {
	return LessonKey{Day: l.Day, Period: l.Period, Start: l.Start, End: l.End}
}

// LessonKey is the comparable identity of a lesson within a schedule.
type LessonKey struct {
	Day    time.Weekday
	Period int
	Start  TimeOfDay
	End    TimeOfDay
}

// LessonInput is an untrusted lesson record as read from an import document
// or the store. Times are raw strings; ToLesson validates them.
type LessonInput struct {
	Day         string
	Period      int
	StartTime   string
	EndTime     string
	ClassName   string
	SubjectName string
}

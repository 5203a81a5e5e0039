package timetable

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// ErrOverlappingLessons indicates two lessons on the same day intersect.
// The whole schedule build is rejected; callers keep their previous schedule.
var ErrOverlappingLessons = errors.New("timetable: overlapping lessons")

// Schedule is an immutable weekly timetable. It is built wholesale from
// untrusted lesson inputs and replaced wholesale on re-import; every build
// carries a version so downstream consumers can detect staleness.
type Schedule struct {
	version     uint64
	teacherName string
	schoolName  string
	days        map[time.Weekday][]Lesson
}

// BuildOptions carries the metadata attached to a schedule build.
type BuildOptions struct {
	Version     uint64
	TeacherName string
	SchoolName  string
	Logger      *slog.Logger
}

// NewSchedule validates and assembles a weekly schedule.
//
// Import data is untrusted, so the build is resilient per lesson: entries
// with unparsable days or times, inverted windows, or windows shorter than
// MinLessonMinutes are skipped and logged rather than failing the build.
// Exact duplicates (same day, window, and period) collapse to one lesson.
// Overlapping lessons on the same day reject the entire schedule with
// ErrOverlappingLessons.
func NewSchedule(inputs []LessonInput, opts BuildOptions) (*Schedule, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	days := make(map[time.Weekday][]Lesson)
	seen := make(map[LessonKey]struct{})

	for _, input := range inputs {
		lesson, err := buildLesson(input)
		if err != nil {
			logger.Warn("skipping invalid lesson",
				"day", input.Day,
				"period", input.Period,
				"start", input.StartTime,
				"end", input.EndTime,
				"error", err)
			continue
		}
		if _, dup := seen[lesson.Key()]; dup {
			logger.Debug("skipping duplicate lesson", "day", input.Day, "period", input.Period)
			continue
		}
		seen[lesson.Key()] = struct{}{}
		days[lesson.Day] = append(days[lesson.Day], lesson)
	}

	for day, lessons := range days {
		sort.Slice(lessons, func(i, j int) bool {
			if lessons[i].Start == lessons[j].Start {
				return lessons[i].Period < lessons[j].Period
			}
			return lessons[i].Start < lessons[j].Start
		})
		for i := 1; i < len(lessons); i++ {
			if lessons[i-1].Overlaps(lessons[i]) {
				return nil, fmt.Errorf("%w: %s %s–%s and %s–%s", ErrOverlappingLessons,
					day, lessons[i-1].Start, lessons[i-1].End, lessons[i].Start, lessons[i].End)
			}
		}
		days[day] = lessons
	}

	return &Schedule{
		version:     opts.Version,
		teacherName: opts.TeacherName,
		schoolName:  opts.SchoolName,
		days:        days,
	}, nil
}

// Empty returns a schedule with no lessons at the given version.
func Empty(version uint64) *Schedule {
	return &Schedule{version: version, days: make(map[time.Weekday][]Lesson)}
}

func buildLesson(input LessonInput) (Lesson, error) {
	day, err := ParseWeekday(input.Day)
	if err != nil {
		return Lesson{}, err
	}
	start, err := ParseTimeOfDay(input.StartTime)
	if err != nil {
		return Lesson{}, err
	}
	end, err := ParseTimeOfDay(input.EndTime)
	if err != nil {
		return Lesson{}, err
	}
	if !end.After(start) {
		return Lesson{}, fmt.Errorf("timetable: end %s not after start %s", end, start)
	}
	if MinutesBetween(start, end) < MinLessonMinutes {
		return Lesson{}, fmt.Errorf("timetable: lesson shorter than %d minutes", MinLessonMinutes)
	}
	// Trigger keys pack the period into two decimal digits, so anything
	// above 99 would collide with another day's registrations.
	if input.Period <= 0 || input.Period > MaxPeriod {
		return Lesson{}, fmt.Errorf("timetable: period must be between 1 and %d, got %d", MaxPeriod, input.Period)
	}
	return Lesson{
		Day:         day,
		Period:      input.Period,
		Start:       start,
		End:         end,
		ClassName:   input.ClassName,
		SubjectName: input.SubjectName,
	}, nil
}

// Version returns the monotonically increasing build tag.
func (s *Schedule) Version() uint64 { return s.version }

// TeacherName returns the owning teacher's display name.
func (s *Schedule) TeacherName() string { return s.teacherName }

// SchoolName returns the school display name, possibly empty.
func (s *Schedule) SchoolName() string { return s.schoolName }

// Day returns the lessons for one weekday ordered by start time. The
// returned slice is a copy.
func (s *Schedule) Day(day time.Weekday) []Lesson {
	lessons := s.days[day]
	if len(lessons) == 0 {
		return nil
	}
	out := make([]Lesson, len(lessons))
	copy(out, lessons)
	return out
}

// Lessons returns every lesson ordered by weekday then start time.
func (s *Schedule) Lessons() []Lesson {
	var out []Lesson
	for day := time.Sunday; day <= time.Saturday; day++ {
		out = append(out, s.days[day]...)
	}
	return out
}

// Len returns the total lesson count.
func (s *Schedule) Len() int {
	total := 0
	for _, lessons := range s.days {
		total += len(lessons)
	}
	return total
}

// IsEmpty reports whether the schedule holds no lessons at all.
func (s *Schedule) IsEmpty() bool { return s.Len() == 0 }

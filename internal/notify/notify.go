// Package notify defines the notification sink boundary. Calls are
// fire-and-forget: the engine never awaits completion or retries a failed
// delivery.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mohhhamed/tebell/internal/logging"
	"github.com/mohhhamed/tebell/internal/timetable"
)

// Notifier receives lesson and presence side effects.
type Notifier interface {
	LessonStarted(ctx context.Context, lesson timetable.Lesson)
	LessonEnded(ctx context.Context, lesson timetable.Lesson, next *timetable.Lesson)
	PresenceChanged(ctx context.Context, inside bool, distanceMeters float64)
}

// LogNotifier renders notifications as structured log records. It stands in
// for the platform notification and bell-sound surface on a headless host.
type LogNotifier struct {
	logger      *slog.Logger
	teacherName string
	schoolName  string
}

// NewLogNotifier builds a notifier writing through the given logger. Blank
// teacher and school names fall back to generic wording.
func NewLogNotifier(logger *slog.Logger, teacherName, schoolName string) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	if teacherName == "" {
		teacherName = "teacher"
	}
	if schoolName == "" {
		schoolName = "school"
	}
	return &LogNotifier{logger: logger, teacherName: teacherName, schoolName: schoolName}
}

// LessonStarted announces the beginning of a lesson.
func (n *LogNotifier) LessonStarted(ctx context.Context, lesson timetable.Lesson) {
	n.loggerFor(ctx).InfoContext(ctx, "lesson started",
		"period", lesson.Period,
		"class", lesson.ClassName,
		"subject", lesson.SubjectName,
		"ends_at", lesson.End.String())
}

// LessonEnded announces the end of a lesson, naming the next one when the
// day still has one.
func (n *LogNotifier) LessonEnded(ctx context.Context, lesson timetable.Lesson, next *timetable.Lesson) {
	attrs := []any{
		"period", lesson.Period,
		"class", lesson.ClassName,
		"subject", lesson.SubjectName,
	}
	if next != nil {
		attrs = append(attrs, "next_period", next.Period, "next_starts_at", next.Start.String())
	}
	n.loggerFor(ctx).InfoContext(ctx, "lesson ended", attrs...)
}

// PresenceChanged announces arrival at or departure from the school.
func (n *LogNotifier) PresenceChanged(ctx context.Context, inside bool, distanceMeters float64) {
	if inside {
		n.loggerFor(ctx).InfoContext(ctx, fmt.Sprintf("welcome %s, you have arrived at %s", n.teacherName, n.schoolName),
			"distance_m", distanceMeters)
		return
	}
	n.loggerFor(ctx).InfoContext(ctx, fmt.Sprintf("goodbye, you have left %s", n.schoolName),
		"distance_m", distanceMeters)
}

func (n *LogNotifier) loggerFor(ctx context.Context) *slog.Logger {
	return logging.Component(ctx, n.logger, "notify")
}

// Nop discards every notification. Useful for tools that only read state.
type Nop struct{}

func (Nop) LessonStarted(context.Context, timetable.Lesson)                  {}
func (Nop) LessonEnded(context.Context, timetable.Lesson, *timetable.Lesson) {}
func (Nop) PresenceChanged(context.Context, bool, float64)                   {}

package testfixtures

import (
	"testing"

	"github.com/mohhhamed/tebell/internal/store"
	"github.com/mohhhamed/tebell/internal/timetable"
)

// SampleDocument returns the canonical import document used across tests:
// two Sunday lessons separated by a five minute break plus one Monday lesson.
func SampleDocument() store.Document {
	return store.Document{
		TeacherName: "Mohammed",
		SchoolName:  "Al-Noor School",
		Schedule: []store.DocumentLesson{
			{Day: "Sunday", Period: 1, StartTime: "08:00", EndTime: "08:40", ClassName: "5A", SubjectName: "Math"},
			{Day: "Sunday", Period: 2, StartTime: "08:45", EndTime: "09:25", ClassName: "5B", SubjectName: "Science"},
			{Day: "Monday", Period: 1, StartTime: "09:00", EndTime: "09:40", ClassName: "6A", SubjectName: "Math"},
		},
	}
}

// MustSchedule builds a timetable from SampleDocument at the given version,
// failing the test on any build error.
func MustSchedule(t *testing.T, version uint64) *timetable.Schedule {
	t.Helper()
	doc := SampleDocument()
	sched, err := timetable.NewSchedule(doc.LessonInputs(), timetable.BuildOptions{
		Version:     version,
		TeacherName: doc.TeacherName,
		SchoolName:  doc.SchoolName,
	})
	if err != nil {
		t.Fatalf("build sample schedule: %v", err)
	}
	return sched
}

package store

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mohhhamed/tebell/internal/timetable"
)

// Document is the JSON serialization contract for a weekly schedule import.
// Field names match the interchange format the mobile clients produce.
type Document struct {
	TeacherName string           `json:"teacher_name"`
	SchoolName  string           `json:"school_name,omitempty"`
	Schedule    []DocumentLesson `json:"schedule"`
}

// DocumentLesson is one lesson record inside an import document. Times stay
// raw strings here; validation happens when the timetable is built.
type DocumentLesson struct {
	Day         string `json:"day"`
	Period      int    `json:"period"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	ClassName   string `json:"class_name,omitempty"`
	SubjectName string `json:"subject_name,omitempty"`
}

// DecodeDocument reads one schedule document from r.
func DecodeDocument(r io.Reader) (Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("store: decode schedule document: %w", err)
	}
	return doc, nil
}

// LessonInputs converts the document's lesson records into untrusted
// timetable inputs.
func (d Document) LessonInputs() []timetable.LessonInput {
	inputs := make([]timetable.LessonInput, 0, len(d.Schedule))
	for _, l := range d.Schedule {
		inputs = append(inputs, timetable.LessonInput{
			Day:         l.Day,
			Period:      l.Period,
			StartTime:   l.StartTime,
			EndTime:     l.EndTime,
			ClassName:   l.ClassName,
			SubjectName: l.SubjectName,
		})
	}
	return inputs
}

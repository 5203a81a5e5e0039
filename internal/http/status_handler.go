package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mohhhamed/tebell/internal/bell"
	"github.com/mohhhamed/tebell/internal/timetable"
)

type statusService interface {
	Status(ctx context.Context) bell.Status
}

type StatusHandler struct {
	service   statusService
	responder responder
}

func NewStatusHandler(service statusService, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{service: service, responder: newResponder(logger)}
}

func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	st := h.service.Status(r.Context())
	h.responder.writeJSON(r.Context(), w, http.StatusOK, statusResponse{
		Version:          st.Version,
		TeacherName:      st.TeacherName,
		SchoolName:       st.SchoolName,
		LessonCount:      st.LessonCount,
		Presence:         st.Presence.String(),
		ManualMode:       st.ManualMode,
		SoundEnabled:     st.SoundEnabled,
		ArmedTriggers:    st.ArmedTriggers,
		Current:          lessonToDTO(st.Current),
		Next:             lessonToDTO(st.Next),
		RemainingMinutes: st.RemainingMinutes,
		ProgressPercent:  st.ProgressPercent,
		MinutesUntilNext: st.MinutesUntilNext,
	})
}

type statusResponse struct {
	Version          uint64     `json:"version"`
	TeacherName      string     `json:"teacher_name,omitempty"`
	SchoolName       string     `json:"school_name,omitempty"`
	LessonCount      int        `json:"lesson_count"`
	Presence         string     `json:"presence"`
	ManualMode       bool       `json:"manual_mode"`
	SoundEnabled     bool       `json:"sound_enabled"`
	ArmedTriggers    int        `json:"armed_triggers"`
	Current          *lessonDTO `json:"current,omitempty"`
	Next             *lessonDTO `json:"next,omitempty"`
	RemainingMinutes int        `json:"remaining_minutes"`
	ProgressPercent  int        `json:"progress_percent"`
	MinutesUntilNext int        `json:"minutes_until_next"`
}

type lessonDTO struct {
	Day         string `json:"day"`
	Period      int    `json:"period"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	ClassName   string `json:"class_name,omitempty"`
	SubjectName string `json:"subject_name,omitempty"`
}

func lessonToDTO(l *timetable.Lesson) *lessonDTO {
	if l == nil {
		return nil
	}
	return &lessonDTO{
		Day:         l.Day.String(),
		Period:      l.Period,
		StartTime:   l.Start.String(),
		EndTime:     l.End.String(),
		ClassName:   l.ClassName,
		SubjectName: l.SubjectName,
	}
}

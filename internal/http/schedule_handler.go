package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mohhhamed/tebell/internal/store"
	"github.com/mohhhamed/tebell/internal/timetable"
)

type scheduleService interface {
	ImportSchedule(ctx context.Context, doc store.Document) (*timetable.Schedule, error)
	ExportDocument(ctx context.Context) (store.LoadedSchedule, error)
}

type ScheduleHandler struct {
	service   scheduleService
	responder responder
}

func NewScheduleHandler(service scheduleService, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{service: service, responder: newResponder(logger)}
}

// Import replaces the active schedule with the posted document.
func (h *ScheduleHandler) Import(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	doc, err := store.DecodeDocument(r.Body)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	sched, err := h.service.ImportSchedule(r.Context(), doc)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, importResponse{
		Version:     sched.Version(),
		LessonCount: sched.Len(),
	})
}

// Export returns the persisted schedule document with its import metadata.
func (h *ScheduleHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	loaded, err := h.service.ExportDocument(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, exportResponse{
		Document:   loaded.Document,
		Version:    loaded.Version,
		ImportID:   loaded.ImportID,
		ImportedAt: loaded.ImportedAt,
	})
}

type importResponse struct {
	Version     uint64 `json:"version"`
	LessonCount int    `json:"lesson_count"`
}

type exportResponse struct {
	store.Document
	Version    uint64    `json:"version"`
	ImportID   string    `json:"import_id,omitempty"`
	ImportedAt time.Time `json:"imported_at"`
}

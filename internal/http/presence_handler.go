package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/mohhhamed/tebell/internal/presence"
)

type presenceCoordinator interface {
	Observe(ctx context.Context, event presence.Event) bool
	State() presence.State
}

type PresenceHandler struct {
	coordinator presenceCoordinator
	now         func() time.Time
	responder   responder
}

func NewPresenceHandler(coordinator presenceCoordinator, now func() time.Time, logger *slog.Logger) *PresenceHandler {
	if now == nil {
		now = time.Now
	}
	return &PresenceHandler{coordinator: coordinator, now: now, responder: newResponder(logger)}
}

// Observe feeds one geofence transition into the coordinator.
func (h *PresenceHandler) Observe(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.coordinator == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req presenceEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	var kind presence.EventKind
	switch req.Kind {
	case "enter":
		kind = presence.Enter
	case "exit":
		kind = presence.Exit
	default:
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errUnknownEvent)
		return
	}

	at := h.now()
	if req.ObservedAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ObservedAt)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadObservedTime)
			return
		}
		at = parsed
	}

	transitioned := h.coordinator.Observe(r.Context(), presence.Event{
		Kind:           kind,
		DistanceMeters: req.DistanceMeters,
		At:             at,
	})

	h.responder.writeJSON(r.Context(), w, http.StatusOK, presenceEventResponse{
		State:        h.coordinator.State().String(),
		Transitioned: transitioned,
	})
}

type presenceEventRequest struct {
	Kind           string  `json:"kind"`
	DistanceMeters float64 `json:"distance_meters,omitempty"`
	ObservedAt     string  `json:"observed_at,omitempty"`
}

type presenceEventResponse struct {
	State        string `json:"state"`
	Transitioned bool   `json:"transitioned"`
}

package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/routiner/internal/calendar"
	"github.com/dukerupert/routiner/internal/model"
	"github.com/dukerupert/routiner/internal/realtime"
	"github.com/dukerupert/routiner/internal/schedule"
	"github.com/dukerupert/routiner/internal/websocket"
)

// CompletionHandler serves completion reads, toggles and the rendered month.
type CompletionHandler struct {
	svc    *realtime.Service
	hub    *websocket.Hub
	logger *slog.Logger
	now    func() time.Time
}

func NewCompletionHandler(svc *realtime.Service, hub *websocket.Hub, logger *slog.Logger) *CompletionHandler {
	return &CompletionHandler{svc: svc, hub: hub, logger: logger, now: time.Now}
}

// List handles GET /api/completions?year=&month=
func (h *CompletionHandler) List(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := h.svc.Completions(month)
	if err != nil {
		h.logger.Error("load completions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load completions")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type toggleRequest struct {
	Date      string `json:"date"`
	RoutineID string `json:"routine_id"`
}

// Toggle handles POST /api/completions/toggle. The current value is read from
// the store and its negation written.
func (h *CompletionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if _, err := schedule.ParseDate(req.Date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if req.RoutineID == "" {
		writeError(w, http.StatusBadRequest, "routine_id is required")
		return
	}

	done, err := h.svc.IsDone(req.Date, req.RoutineID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read completion")
		return
	}

	err = h.svc.ToggleCompletion(r.Context(), req.Date, req.RoutineID, done)
	if errors.Is(err, realtime.ErrRoutineNotFound) {
		writeError(w, http.StatusNotFound, "routine not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to toggle completion")
		return
	}

	resp := map[string]any{"date": req.Date, "routine_id": req.RoutineID, "done": !done}
	broadcast(h.hub, websocket.NewMessage("completion", "toggled", model.CompletionKey(req.Date, req.RoutineID), resp))
	writeJSON(w, http.StatusOK, resp)
}

// Calendar handles GET /api/calendar?year=&month=
func (h *CompletionHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	routines, err := h.svc.Routines()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list routines")
		return
	}
	completions, err := h.svc.Completions(month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load completions")
		return
	}
	writeJSON(w, http.StatusOK, calendar.Render(month, routines, completions, h.now()))
}

// SyncStatus handles GET /api/sync
func (h *CompletionHandler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.SyncStatus())
}

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/dukerupert/routiner/internal/model"
	"github.com/dukerupert/routiner/internal/realtime"
	"github.com/dukerupert/routiner/internal/websocket"
)

const (
	maxNameLen        = 80
	maxDescriptionLen = 1000
)

type RoutineHandler struct {
	svc    *realtime.Service
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewRoutineHandler(svc *realtime.Service, hub *websocket.Hub, logger *slog.Logger) *RoutineHandler {
	return &RoutineHandler{svc: svc, hub: hub, logger: logger}
}

type routineRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Color       string          `json:"color"`
	Icon        string          `json:"icon"`
	Days        json.RawMessage `json:"days"`
	TimeOfDay   model.TimeOfDay `json:"time_of_day"`
}

// fields validates the request and fills palette defaults.
func (req routineRequest) fields() (model.RoutineFields, error) {
	f := model.RoutineFields{
		Name:        plainText(req.Name),
		Description: sanitizeDescription(req.Description),
		Color:       req.Color,
		Icon:        req.Icon,
		TimeOfDay:   req.TimeOfDay,
	}
	if f.Name == "" {
		return f, errors.New("name is required")
	}
	if utf8.RuneCountInString(f.Name) > maxNameLen {
		return f, fmt.Errorf("name must be at most %d characters", maxNameLen)
	}
	if utf8.RuneCountInString(f.Description) > maxDescriptionLen {
		return f, fmt.Errorf("description must be at most %d characters", maxDescriptionLen)
	}

	if f.Color == "" {
		f.Color = model.Colors[0]
	}
	if !hexColorRegexp.MatchString(f.Color) {
		return f, errors.New("color must be a hex color (e.g. #34d399)")
	}
	if f.Icon == "" {
		f.Icon = model.Icons[0]
	}
	if utf8.RuneCountInString(f.Icon) > 4 {
		return f, errors.New("icon must be a single emoji")
	}

	days, err := parseDays(req.Days)
	if err != nil {
		return f, err
	}
	f.Days = model.NewWeekdays(days...)

	switch f.TimeOfDay {
	case "", model.TimeMorning, model.TimeAllDay, model.TimeEvening, model.TimeNight:
	default:
		return f, fmt.Errorf("unknown time_of_day %q", f.TimeOfDay)
	}
	return f, nil
}

// List handles GET /api/routines
func (h *RoutineHandler) List(w http.ResponseWriter, r *http.Request) {
	routines, err := h.svc.Routines()
	if err != nil {
		h.logger.Error("list routines", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list routines")
		return
	}
	if routines == nil {
		routines = []model.Routine{}
	}
	writeJSON(w, http.StatusOK, routines)
}

// Get handles GET /api/routines/{id}
func (h *RoutineHandler) Get(w http.ResponseWriter, r *http.Request) {
	routine, err := h.svc.Routine(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get routine")
		return
	}
	if routine == nil {
		writeError(w, http.StatusNotFound, "routine not found")
		return
	}
	writeJSON(w, http.StatusOK, routine)
}

// Create handles POST /api/routines
func (h *RoutineHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req routineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	f, err := req.fields()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	routine, err := h.svc.CreateRoutine(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create routine")
		return
	}

	broadcast(h.hub, websocket.NewMessage("routine", "created", routine.ID, nil))
	writeJSON(w, http.StatusCreated, routine)
}

// Update handles PUT /api/routines/{id}
func (h *RoutineHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req routineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	f, err := req.fields()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	routine, err := h.svc.UpdateRoutine(r.Context(), id, f)
	if errors.Is(err, realtime.ErrRoutineNotFound) {
		writeError(w, http.StatusNotFound, "routine not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update routine")
		return
	}

	broadcast(h.hub, websocket.NewMessage("routine", "updated", routine.ID, nil))
	writeJSON(w, http.StatusOK, routine)
}

// Delete handles DELETE /api/routines/{id}
func (h *RoutineHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	err := h.svc.DeleteRoutine(r.Context(), id)
	if errors.Is(err, realtime.ErrRoutineNotFound) {
		writeError(w, http.StatusNotFound, "routine not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete routine")
		return
	}

	broadcast(h.hub, websocket.NewMessage("routine", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// parseDays accepts an absent or null list as no schedule and rejects
// anything that is not an array of weekday numbers 0-6.
func parseDays(raw json.RawMessage) ([]int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var days []int
	if err := json.Unmarshal(raw, &days); err != nil {
		return nil, errors.New("days must be an array of weekday numbers 0-6")
	}
	for _, d := range days {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("day %d out of range 0-6", d)
		}
	}
	return days, nil
}

// Package api exposes the UI events of the workout map over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"example.com/workoutlog/internal/domain"
	"example.com/workoutlog/internal/presenter"
	"example.com/workoutlog/internal/view"
)

// Handler translates HTTP requests into coordinator events.
type Handler struct {
	coordinator *presenter.Coordinator
	screen      *view.Screen
	logger      zerolog.Logger
}

// NewHandler builds a Handler.
func NewHandler(coordinator *presenter.Coordinator, screen *view.Screen, logger zerolog.Logger) *Handler {
	return &Handler{coordinator: coordinator, screen: screen, logger: logger}
}

// RegisterRoutes wires endpoints to the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", healthz)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/map/locate", h.locate)
		r.Post("/map/click", h.mapClick)
		r.Post("/form/submit", h.submitForm)
		r.Post("/form/cancel", h.cancelForm)
		r.Post("/keys", h.keyPress)
		r.Get("/view", h.screenState)
		r.Post("/notices/drain", h.drainNotices)

		r.Get("/workouts", h.listWorkouts)
		r.Post("/workouts/delete-all", h.requestDeleteAll)
		r.Post("/workouts/delete-all/confirm", h.confirmDeleteAll)
		r.Post("/workouts/delete-all/cancel", h.cancelDeleteAll)
		r.Post("/workouts/{id}/select", h.selectWorkout)
		r.Post("/workouts/{id}/edit", h.beginEdit)
		r.Post("/workouts/{id}/edit/submit", h.submitEdit)
		r.Post("/workouts/{id}/edit/cancel", h.cancelEdit)
		r.Delete("/workouts/{id}", h.deleteWorkout)
	})
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// LocateRequest carries the browser's geolocation result.
type LocateRequest struct {
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
	Error string   `json:"error,omitempty"`
}

func (h *Handler) locate(w http.ResponseWriter, r *http.Request) {
	var req LocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	provider := presenter.PositionFunc(func(ctx context.Context) (domain.Coords, error) {
		if req.Error != "" {
			return domain.Coords{}, errors.New(req.Error)
		}
		if req.Lat == nil || req.Lng == nil {
			return domain.Coords{}, errors.New("position missing")
		}
		return domain.Coords{*req.Lat, *req.Lng}, nil
	})

	if err := h.coordinator.Locate(r.Context(), provider); err != nil {
		h.writeEventError(w, err)
		return
	}
	h.writeScreen(w, http.StatusOK)
}

// CoordsRequest is a map position.
type CoordsRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (h *Handler) mapClick(w http.ResponseWriter, r *http.Request) {
	var req CoordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := h.coordinator.MapClick(domain.Coords{req.Lat, req.Lng}); err != nil {
		h.writeEventError(w, err)
		return
	}
	h.writeScreen(w, http.StatusOK)
}

func (h *Handler) submitForm(w http.ResponseWriter, r *http.Request) {
	var req presenter.FormInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	workout, err := h.coordinator.SubmitForm(r.Context(), req)
	if err != nil {
		h.writeEventError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWorkoutView(workout))
}

func (h *Handler) cancelForm(w http.ResponseWriter, r *http.Request) {
	h.coordinator.CancelForm()
	h.writeScreen(w, http.StatusOK)
}

// KeyRequest is a key press forwarded by the browser.
type KeyRequest struct {
	Key string `json:"key"`
}

func (h *Handler) keyPress(w http.ResponseWriter, r *http.Request) {
	var req KeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	h.coordinator.KeyPress(req.Key)
	h.writeScreen(w, http.StatusOK)
}

func (h *Handler) screenState(w http.ResponseWriter, r *http.Request) {
	h.writeScreen(w, http.StatusOK)
}

// NoticesResponse carries the alerts the browser has not shown yet.
type NoticesResponse struct {
	Notices []string `json:"notices"`
}

func (h *Handler) drainNotices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NoticesResponse{Notices: h.screen.DrainNotices()})
}

func (h *Handler) listWorkouts(w http.ResponseWriter, r *http.Request) {
	workouts := h.coordinator.Workouts()
	items := make([]WorkoutView, 0, len(workouts))
	for _, wk := range workouts {
		items = append(items, toWorkoutView(wk))
	}
	writeJSON(w, http.StatusOK, ListWorkoutsResponse{Items: items})
}

func (h *Handler) selectWorkout(w http.ResponseWriter, r *http.Request) {
	workout, ok := h.coordinator.Select(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "workout not found")
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutView(workout))
}

func (h *Handler) beginEdit(w http.ResponseWriter, r *http.Request) {
	if !h.coordinator.BeginEdit(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "not_found", "workout not found")
		return
	}
	h.writeScreen(w, http.StatusOK)
}

func (h *Handler) submitEdit(w http.ResponseWriter, r *http.Request) {
	var req presenter.FormInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	workout, err := h.coordinator.SubmitEdit(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeEventError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutView(workout))
}

func (h *Handler) cancelEdit(w http.ResponseWriter, r *http.Request) {
	h.coordinator.CancelEdit()
	h.writeScreen(w, http.StatusOK)
}

func (h *Handler) deleteWorkout(w http.ResponseWriter, r *http.Request) {
	if err := h.coordinator.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeEventError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) requestDeleteAll(w http.ResponseWriter, r *http.Request) {
	h.coordinator.RequestDeleteAll()
	h.writeScreen(w, http.StatusOK)
}

func (h *Handler) confirmDeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.coordinator.ConfirmDeleteAll(r.Context())
	if err != nil {
		h.writeEventError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteAllResponse{Removed: n})
}

func (h *Handler) cancelDeleteAll(w http.ResponseWriter, r *http.Request) {
	h.coordinator.CancelDeleteAll()
	h.writeScreen(w, http.StatusOK)
}

// WorkoutView exposes full details about a workout.
type WorkoutView struct {
	ID          string        `json:"id"`
	Type        string        `json:"type"`
	Coords      domain.Coords `json:"coords"`
	Distance    float64       `json:"distance"`
	Duration    float64       `json:"duration"`
	Cadence     *int          `json:"cadence,omitempty"`
	Elevation   *float64      `json:"elevation,omitempty"`
	Pace        *float64      `json:"pace,omitempty"`
	Speed       *float64      `json:"speed,omitempty"`
	Description string        `json:"description"`
	Date        time.Time     `json:"date"`
	Click       int           `json:"click"`
}

// ListWorkoutsResponse packages list results.
type ListWorkoutsResponse struct {
	Items []WorkoutView `json:"items"`
}

// DeleteAllResponse reports how many workouts were removed.
type DeleteAllResponse struct {
	Removed int `json:"removed"`
}

// ScreenResponse merges the headless screen with the interaction state.
type ScreenResponse struct {
	view.State
	Mode      string `json:"mode"`
	MapReady  bool   `json:"map_ready"`
	EditingID string `json:"editing_id,omitempty"`
}

func (h *Handler) writeScreen(w http.ResponseWriter, status int) {
	st := h.coordinator.State()
	writeJSON(w, status, ScreenResponse{
		State:     h.screen.State(),
		Mode:      st.Mode.String(),
		MapReady:  st.MapReady,
		EditingID: st.EditingID,
	})
}

// writeEventError maps coordinator errors to statuses. The user-facing notice
// was already raised on the screen.
func (h *Handler) writeEventError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, presenter.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, presenter.ErrMapUnavailable):
		writeError(w, http.StatusConflict, "map_unavailable", err.Error())
	default:
		h.logger.Error().Err(err).Msg("event failed")
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toWorkoutView(wk domain.Workout) WorkoutView {
	v := WorkoutView{
		ID:          wk.ID,
		Type:        string(wk.Kind),
		Coords:      wk.Coords,
		Distance:    wk.Distance,
		Duration:    wk.Duration,
		Description: wk.Description,
		Date:        wk.Date,
		Click:       wk.Clicks,
	}
	switch wk.Kind {
	case domain.KindRunning:
		cadence, pace := wk.Cadence, wk.Pace()
		v.Cadence, v.Pace = &cadence, &pace
	case domain.KindCycling:
		elevation, speed := wk.Elevation, wk.Speed()
		v.Elevation, v.Speed = &elevation, &speed
	}
	return v
}

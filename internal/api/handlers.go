// Package api exposes HTTP handlers for the workouts service.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"example.com/workouts/internal/auth"
	"example.com/workouts/internal/domain"
)

// StorageWarningHeader is set when a change was applied in memory but could not be persisted.
const StorageWarningHeader = "X-Storage-Warning"

// Handler coordinates HTTP requests with the workout session.
type Handler struct {
	service *domain.Service
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/workouts", h.workouts)
	mux.HandleFunc("/v1/workouts/", h.workoutByID)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) workouts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listWorkouts(w, r)
	case http.MethodPost:
		h.createWorkout(w, r)
	case http.MethodDelete:
		h.resetWorkouts(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) workoutByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/workouts/"), "/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing workout id")
		return
	}

	if id, ok := strings.CutSuffix(rest, "/clicks"); ok {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		h.clickWorkout(w, r, id)
		return
	}
	if strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, "not_found", "unknown route")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getWorkout(w, r, rest)
	case http.MethodPatch:
		h.updateWorkout(w, r, rest)
	case http.MethodDelete:
		h.deleteWorkout(w, r, rest)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) createWorkout(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, auth.ScopeWorkoutsWrite) {
		return
	}

	var req CreateWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	coords := domain.Coordinates{Lat: req.Coordinates[0], Lng: req.Coordinates[1]}
	var (
		workout domain.Workout
		err     error
	)
	switch domain.Kind(req.Kind) {
	case domain.KindRunning:
		workout, err = h.service.LogRunning(r.Context(), domain.CreateRunningInput{
			Distance:    *req.Distance,
			Duration:    *req.Duration,
			Coordinates: coords,
			Cadence:     *req.Cadence,
		})
	case domain.KindCycling:
		workout, err = h.service.LogCycling(r.Context(), domain.CreateCyclingInput{
			Distance:      *req.Distance,
			Duration:      *req.Duration,
			Coordinates:   coords,
			ElevationGain: *req.ElevationGain,
		})
	}
	if !handleMutationError(w, workout.ID, err) {
		return
	}
	writeJSON(w, http.StatusCreated, toWorkoutView(workout))
}

func (h *Handler) listWorkouts(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, auth.ScopeWorkoutsRead) {
		return
	}

	workouts := h.service.List(r.Context())
	items := make([]WorkoutView, 0, len(workouts))
	for _, wo := range workouts {
		items = append(items, toWorkoutView(wo))
	}
	writeJSON(w, http.StatusOK, ListWorkoutsResponse{Items: items})
}

func (h *Handler) getWorkout(w http.ResponseWriter, r *http.Request, id string) {
	if !requireScope(w, r, auth.ScopeWorkoutsRead) {
		return
	}

	workout, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutView(workout))
}

func (h *Handler) updateWorkout(w http.ResponseWriter, r *http.Request, id string) {
	if !requireScope(w, r, auth.ScopeWorkoutsWrite) {
		return
	}

	var req UpdateWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	changes := req.Changes()
	if changes.Empty() {
		writeError(w, http.StatusBadRequest, "validation_failed", "no fields to update")
		return
	}

	workout, err := h.service.Edit(r.Context(), id, changes)
	if !handleMutationError(w, workout.ID, err) {
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutView(workout))
}

func (h *Handler) clickWorkout(w http.ResponseWriter, r *http.Request, id string) {
	if !requireScope(w, r, auth.ScopeWorkoutsWrite) {
		return
	}

	workout, err := h.service.Click(r.Context(), id)
	if !handleMutationError(w, workout.ID, err) {
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutView(workout))
}

func (h *Handler) deleteWorkout(w http.ResponseWriter, r *http.Request, id string) {
	if !requireScope(w, r, auth.ScopeWorkoutsWrite) {
		return
	}

	removed, err := h.service.Delete(r.Context(), id)
	if !handleMutationError(w, removed.ID, err) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) resetWorkouts(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, auth.ScopeWorkoutsWrite) {
		return
	}

	if err := h.service.Reset(r.Context()); err != nil {
		w.Header().Set(StorageWarningHeader, err.Error())
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMutationError writes an error response unless the change was applied.
// It returns true when the caller should write the success body.
func handleMutationError(w http.ResponseWriter, appliedID string, err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, domain.ErrStorageUnavailable) && appliedID != "" {
		w.Header().Set(StorageWarningHeader, err.Error())
		return true
	}
	writeServiceError(w, err)
	return false
}

func requireScope(w http.ResponseWriter, r *http.Request, scope string) bool {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return false
	}
	if !claims.HasScope(scope) {
		writeError(w, http.StatusForbidden, "forbidden", fmt.Sprintf("scope %s required", scope))
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "workout not found")
	case errors.Is(err, domain.ErrDuplicateID):
		writeError(w, http.StatusConflict, "duplicate_id", err.Error())
	case errors.Is(err, domain.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

// CreateWorkoutRequest is the payload for POST /v1/workouts.
type CreateWorkoutRequest struct {
	Kind          string    `json:"kind"`
	Distance      *float64  `json:"distance"`
	Duration      *float64  `json:"duration"`
	Coordinates   []float64 `json:"coordinates"`
	Cadence       *float64  `json:"cadence,omitempty"`
	ElevationGain *float64  `json:"elevation_gain,omitempty"`
}

// Validate checks that every field the kind needs is present. Range checks
// happen in the domain.
func (r CreateWorkoutRequest) Validate() error {
	if r.Distance == nil {
		return errors.New("distance is required")
	}
	if r.Duration == nil {
		return errors.New("duration is required")
	}
	if len(r.Coordinates) != 2 {
		return errors.New("coordinates must be [lat, lng]")
	}
	switch domain.Kind(r.Kind) {
	case domain.KindRunning:
		if r.Cadence == nil {
			return errors.New("cadence is required for running")
		}
		if r.ElevationGain != nil {
			return errors.New("elevation_gain does not apply to running")
		}
	case domain.KindCycling:
		if r.ElevationGain == nil {
			return errors.New("elevation_gain is required for cycling")
		}
		if r.Cadence != nil {
			return errors.New("cadence does not apply to cycling")
		}
	default:
		return fmt.Errorf("kind must be %q or %q", domain.KindRunning, domain.KindCycling)
	}
	return nil
}

// UpdateWorkoutRequest is the payload for PATCH /v1/workouts/{id}.
type UpdateWorkoutRequest struct {
	Distance      *float64 `json:"distance,omitempty"`
	Duration      *float64 `json:"duration,omitempty"`
	Cadence       *float64 `json:"cadence,omitempty"`
	ElevationGain *float64 `json:"elevation_gain,omitempty"`
}

// Changes converts the request into a domain change set.
func (r UpdateWorkoutRequest) Changes() domain.WorkoutChanges {
	return domain.WorkoutChanges{
		Distance:      r.Distance,
		Duration:      r.Duration,
		Cadence:       r.Cadence,
		ElevationGain: r.ElevationGain,
	}
}

// WorkoutView exposes a workout with its derived metrics.
type WorkoutView struct {
	ID            string     `json:"id"`
	Kind          string     `json:"kind"`
	Description   string     `json:"description"`
	CreatedAt     time.Time  `json:"created_at"`
	Distance      float64    `json:"distance"`
	Duration      float64    `json:"duration"`
	Coordinates   [2]float64 `json:"coordinates"`
	ClickCount    int        `json:"click_count"`
	Cadence       *float64   `json:"cadence,omitempty"`
	Pace          *float64   `json:"pace,omitempty"`
	ElevationGain *float64   `json:"elevation_gain,omitempty"`
	Speed         *float64   `json:"speed,omitempty"`
	DisplayMetric string     `json:"display_metric"`
}

// ListWorkoutsResponse packages list results in display order.
type ListWorkoutsResponse struct {
	Items []WorkoutView `json:"items"`
}

func toWorkoutView(w domain.Workout) WorkoutView {
	view := WorkoutView{
		ID:          w.ID,
		Kind:        string(w.Kind),
		Description: w.Description,
		CreatedAt:   w.CreatedAt,
		Distance:    w.Distance,
		Duration:    w.Duration,
		Coordinates: [2]float64{w.Coordinates.Lat, w.Coordinates.Lng},
		ClickCount:  w.ClickCount,
	}
	switch w.Kind {
	case domain.KindRunning:
		if w.Running != nil {
			cadence, pace := w.Running.Cadence, w.Running.Pace
			view.Cadence, view.Pace = &cadence, &pace
			view.DisplayMetric = fmt.Sprintf("%d min/km", int(math.Floor(pace)))
		}
	case domain.KindCycling:
		if w.Cycling != nil {
			gain, speed := w.Cycling.ElevationGain, w.Cycling.Speed
			view.ElevationGain, view.Speed = &gain, &speed
			view.DisplayMetric = fmt.Sprintf("%.1f km/h", speed)
		}
	}
	return view
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

// Package api exposes the workout commands over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/luno/jettison/log"

	"example.com/workouts/internal/auth"
	"example.com/workouts/internal/controller"
	"example.com/workouts/internal/domain"
	"example.com/workouts/internal/mapview"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// MapSource reports the current state of the map.
type MapSource interface {
	Snapshot() mapview.Snapshot
}

// Handler coordinates HTTP requests with the controller.
type Handler struct {
	ctrl  *controller.Controller
	board MapSource
}

// NewHandler builds a Handler.
func NewHandler(ctrl *controller.Controller, board MapSource) *Handler {
	return &Handler{ctrl: ctrl, board: board}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/workouts", h.workouts)
	mux.HandleFunc("/v1/workouts/", h.workoutByID)
	mux.HandleFunc("/v1/map", h.mapSnapshot)
	mux.HandleFunc("/healthz", healthz)
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) workouts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.submitWorkout(w, r)
	case http.MethodGet:
		h.listWorkouts(w, r)
	case http.MethodDelete:
		h.reset(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) workoutByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/workouts/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing workout id")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.getWorkout(w, r, domain.ID(id))
	case action == "views" && r.Method == http.MethodPost:
		h.selectWorkout(w, r, domain.ID(id))
	case action != "" && action != "views":
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

// authorize writes the error response and returns false when the caller lacks every scope.
func authorize(w http.ResponseWriter, r *http.Request, scopes ...string) bool {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return false
	}
	if !claims.HasScope(scopes...) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scopes[0]+" required")
		return false
	}
	return true
}

func (h *Handler) submitWorkout(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, auth.ScopeWorkoutsWrite) {
		return
	}

	var req SubmitWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	view, err := h.ctrl.SubmitWorkout(r.Context(), req.submission())
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
			Type:   "validation_failed",
			Detail: verr.Error(),
			Rule:   string(verr.Rule),
			Field:  verr.Field,
		})
		return
	} else if err != nil {
		log.Error(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, toWorkoutView(view))
}

func (h *Handler) listWorkouts(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, auth.ScopeWorkoutsRead, auth.ScopeWorkoutsWrite) {
		return
	}

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = min(parsed, maxLimit)
		}
	}

	cursor, err := DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid cursor")
		return
	}

	all := h.ctrl.Workouts()
	start := 0
	if cursor != nil {
		start = -1
		for i, v := range all {
			if v.ID == cursor.ID {
				start = i + 1
				break
			}
		}
		if start < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "cursor does not match a workout")
			return
		}
	}

	end := min(start+limit, len(all))
	page := all[start:end]
	resp := ListWorkoutsResponse{Items: make([]WorkoutView, 0, len(page))}
	for _, v := range page {
		resp.Items = append(resp.Items, toWorkoutView(v))
	}
	if end < len(all) && len(page) > 0 {
		last := page[len(page)-1]
		resp.NextCursor = EncodeCursor(&Cursor{Date: last.Date, ID: last.ID})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getWorkout(w http.ResponseWriter, r *http.Request, id domain.ID) {
	if !authorize(w, r, auth.ScopeWorkoutsRead, auth.ScopeWorkoutsWrite) {
		return
	}

	view, ok := h.ctrl.Workout(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "workout not found")
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutView(view))
}

func (h *Handler) selectWorkout(w http.ResponseWriter, r *http.Request, id domain.ID) {
	if !authorize(w, r, auth.ScopeWorkoutsWrite) {
		return
	}

	view, err := h.ctrl.SelectWorkout(r.Context(), id)
	if errors.Is(err, domain.ErrWorkoutNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "workout not found")
		return
	} else if err != nil {
		log.Error(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutView(view))
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, auth.ScopeWorkoutsWrite) {
		return
	}

	report, err := h.ctrl.Reset(r.Context())
	if err != nil {
		log.Error(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ResetResponse{Loaded: report.Loaded, Skipped: len(report.Skipped)})
}

func (h *Handler) mapSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !authorize(w, r, auth.ScopeWorkoutsRead, auth.ScopeWorkoutsWrite) {
		return
	}
	writeJSON(w, http.StatusOK, h.board.Snapshot())
}

// FormValue is a form field as typed. It accepts a JSON string or number.
type FormValue string

// UnmarshalJSON implements json.Unmarshaler.
func (v *FormValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = FormValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = FormValue(n.String())
	return nil
}

// SubmitWorkoutRequest is the payload for POST /v1/workouts.
type SubmitWorkoutRequest struct {
	Type          string    `json:"type"`
	Distance      FormValue `json:"distance"`
	Duration      FormValue `json:"duration"`
	Cadence       FormValue `json:"cadence"`
	ElevationGain FormValue `json:"elevation_gain"`
	Lat           *float64  `json:"lat"`
	Lng           *float64  `json:"lng"`
}

// Validate ensures request correctness. Field values are checked by the controller.
func (r SubmitWorkoutRequest) Validate() error {
	if strings.TrimSpace(r.Type) == "" {
		return errors.New("type is required")
	}
	if r.Lat == nil || r.Lng == nil {
		return errors.New("lat and lng are required")
	}
	return nil
}

func (r SubmitWorkoutRequest) submission() controller.Submission {
	return controller.Submission{
		Coords: domain.Coords{Lat: *r.Lat, Lng: *r.Lng},
		Raw: domain.RawInput{
			Type:          r.Type,
			Distance:      string(r.Distance),
			Duration:      string(r.Duration),
			Cadence:       string(r.Cadence),
			ElevationGain: string(r.ElevationGain),
		},
	}
}

// MetricView is a derived metric or detail field with its unit.
type MetricView struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// WorkoutView exposes a workout as rendered in the list.
type WorkoutView struct {
	ID       string     `json:"id"`
	Type     string     `json:"type"`
	Title    string     `json:"title"`
	Emoji    string     `json:"emoji"`
	Date     time.Time  `json:"date"`
	Coords   [2]float64 `json:"coords"`
	Distance float64    `json:"distance"`
	Duration float64    `json:"duration"`
	Clicks   int        `json:"clicks"`
	Metric   MetricView `json:"metric"`
	Detail   MetricView `json:"detail"`
}

// ListWorkoutsResponse packages list results.
type ListWorkoutsResponse struct {
	Items      []WorkoutView `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// ResetResponse reports the state after a reset.
type ResetResponse struct {
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}

// ValidationErrorResponse is returned with 422.
type ValidationErrorResponse struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
	Rule   string `json:"rule"`
	Field  string `json:"field"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toWorkoutView(v controller.View) WorkoutView {
	return WorkoutView{
		ID:       v.ID.String(),
		Type:     string(v.Type),
		Title:    v.Title,
		Emoji:    v.Emoji,
		Date:     v.Date,
		Coords:   [2]float64{v.Coords.Lat, v.Coords.Lng},
		Distance: v.Distance,
		Duration: v.Duration,
		Clicks:   v.Clicks,
		Metric:   MetricView(v.Metric),
		Detail:   MetricView(v.Detail),
	}
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"example.com/workouts/internal/auth"
	"example.com/workouts/internal/controller"
	"example.com/workouts/internal/domain"
	"example.com/workouts/internal/geolocation"
	"example.com/workouts/internal/mapview"
	"example.com/workouts/internal/persistence/memory"
)

var home = domain.Coords{Lat: 40.7, Lng: -74}

func newTestHandler(t *testing.T) (*Handler, *controller.Controller) {
	t.Helper()
	clk := clocktesting.NewFakePassiveClock(time.Date(2024, time.October, 19, 8, 30, 0, 0, time.UTC))
	factory := domain.NewFactory(&domain.SequenceGenerator{Prefix: "w"}, clk)
	store := domain.NewStore(memory.NewBlobStore(), domain.WithCodec(domain.NewCodec(factory, domain.PreserveIdentity)))
	board := mapview.NewBoard()
	ctrl := controller.New(store, factory, board, geolocation.Static{Coords: home}, controller.WithClock(clk))
	ctrl.Start(context.Background())
	select {
	case <-ctrl.MapReady():
	case <-time.After(5 * time.Second):
		t.Fatal("map was not initialised")
	}
	return NewHandler(ctrl, board), ctrl
}

func serve(h *Handler, req *http.Request, scopes ...string) *httptest.ResponseRecorder {
	if scopes != nil {
		claims := &auth.Claims{
			Subject:   "tester",
			Scopes:    map[string]struct{}{},
			ExpiresAt: time.Now().Add(time.Hour),
		}
		for _, s := range scopes {
			claims.Scopes[s] = struct{}{}
		}
		req = req.WithContext(auth.WithClaims(req.Context(), claims))
	}
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func submit(t *testing.T, h *Handler, body string) WorkoutView {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/workouts", strings.NewReader(body))
	rr := serve(h, req, auth.ScopeWorkoutsWrite)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var view WorkoutView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	return view
}

func TestSubmitWorkout(t *testing.T) {
	h, _ := newTestHandler(t)

	view := submit(t, h, `{"type":"running","distance":"5","duration":"25","cadence":"180","lat":40.71,"lng":-74.01}`)
	require.Equal(t, "w1", view.ID)
	require.Equal(t, "running", view.Type)
	require.Equal(t, "Running on October 19", view.Title)
	require.Equal(t, [2]float64{40.71, -74.01}, view.Coords)
	require.Equal(t, MetricView{Name: "pace", Value: 5, Unit: "min/km"}, view.Metric)
	require.Equal(t, MetricView{Name: "cadence", Value: 180, Unit: "spm"}, view.Detail)

	view = submit(t, h, `{"type":"cycling","distance":20,"duration":60,"elevation_gain":150,"lat":40.7,"lng":-74}`)
	require.Equal(t, MetricView{Name: "speed", Value: 0.33, Unit: "km/h"}, view.Metric)
}

func TestSubmitWorkoutValidationFailure(t *testing.T) {
	h, ctrl := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/workouts",
		strings.NewReader(`{"type":"cycling","distance":"10","duration":"0","elevation_gain":"100","lat":40.7,"lng":-74}`))
	rr := serve(h, req, auth.ScopeWorkoutsWrite)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var resp ValidationErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "validation_failed", resp.Type)
	require.Equal(t, string(domain.RuleNonPositive), resp.Rule)
	require.Equal(t, "duration", resp.Field)
	require.Empty(t, ctrl.Workouts())
}

func TestSubmitWorkoutBadRequests(t *testing.T) {
	h, _ := newTestHandler(t)

	for _, body := range []string{
		`not json`,
		`{"distance":"5","duration":"25","cadence":"180","lat":1,"lng":1}`,
		`{"type":"running","distance":"5","duration":"25","cadence":"180"}`,
		`{"type":"running","distance":true,"lat":1,"lng":1}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/v1/workouts", strings.NewReader(body))
		rr := serve(h, req, auth.ScopeWorkoutsWrite)
		require.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
}

func TestScopesAreEnforced(t *testing.T) {
	h, _ := newTestHandler(t)

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/v1/workouts", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	body := `{"type":"running","distance":"5","duration":"25","cadence":"180","lat":1,"lng":1}`
	rr = serve(h, httptest.NewRequest(http.MethodPost, "/v1/workouts", strings.NewReader(body)), auth.ScopeWorkoutsRead)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = serve(h, httptest.NewRequest(http.MethodDelete, "/v1/workouts", nil), auth.ScopeWorkoutsRead)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/v1/workouts", nil), auth.ScopeWorkoutsWrite)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestListWorkoutsPaginatesNewestFirst(t *testing.T) {
	h, _ := newTestHandler(t)
	for _, d := range []string{"1", "2", "3"} {
		submit(t, h, `{"type":"running","distance":"`+d+`","duration":"25","cadence":"180","lat":1,"lng":1}`)
	}

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/v1/workouts?limit=2", nil), auth.ScopeWorkoutsRead)
	require.Equal(t, http.StatusOK, rr.Code)
	var page ListWorkoutsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.Len(t, page.Items, 2)
	require.Equal(t, "w3", page.Items[0].ID)
	require.Equal(t, "w2", page.Items[1].ID)
	require.NotEmpty(t, page.NextCursor)

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/v1/workouts?limit=2&cursor="+page.NextCursor, nil), auth.ScopeWorkoutsRead)
	require.Equal(t, http.StatusOK, rr.Code)
	page = ListWorkoutsResponse{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	require.Equal(t, "w1", page.Items[0].ID)
	require.Empty(t, page.NextCursor)

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/v1/workouts?cursor=***", nil), auth.ScopeWorkoutsRead)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	stale := EncodeCursor(&Cursor{Date: time.Now(), ID: "gone"})
	rr = serve(h, httptest.NewRequest(http.MethodGet, "/v1/workouts?cursor="+stale, nil), auth.ScopeWorkoutsRead)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetAndSelectWorkout(t *testing.T) {
	h, _ := newTestHandler(t)
	created := submit(t, h, `{"type":"cycling","distance":"20","duration":"60","elevation_gain":"150","lat":51.5,"lng":-0.12}`)

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/v1/workouts/"+created.ID, nil), auth.ScopeWorkoutsRead)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(h, httptest.NewRequest(http.MethodPost, "/v1/workouts/"+created.ID+"/views", nil), auth.ScopeWorkoutsWrite)
	require.Equal(t, http.StatusOK, rr.Code)
	var view WorkoutView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	require.Equal(t, 1, view.Clicks)

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/v1/map", nil), auth.ScopeWorkoutsRead)
	require.Equal(t, http.StatusOK, rr.Code)
	var snap mapview.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	require.True(t, snap.Ready)
	require.Equal(t, controller.FocusZoom, snap.Zoom)
	require.Equal(t, domain.Coords{Lat: 51.5, Lng: -0.12}, *snap.Center)
	require.Len(t, snap.Markers, 1)

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/v1/workouts/missing", nil), auth.ScopeWorkoutsRead)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(h, httptest.NewRequest(http.MethodPost, "/v1/workouts/missing/views", nil), auth.ScopeWorkoutsWrite)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(h, httptest.NewRequest(http.MethodPut, "/v1/workouts/"+created.ID, nil), auth.ScopeWorkoutsWrite)
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestReset(t *testing.T) {
	h, ctrl := newTestHandler(t)
	submit(t, h, `{"type":"running","distance":"5","duration":"25","cadence":"180","lat":1,"lng":1}`)

	rr := serve(h, httptest.NewRequest(http.MethodDelete, "/v1/workouts", nil), auth.ScopeWorkoutsWrite)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp ResetResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Zero(t, resp.Loaded)
	require.Empty(t, ctrl.Workouts())
}

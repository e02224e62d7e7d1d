package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/workouts/internal/auth"
	"example.com/workouts/internal/domain"
	"example.com/workouts/internal/persistence"
	"example.com/workouts/internal/persistence/memory"
)

type testServer struct {
	mux     *http.ServeMux
	slots   *memory.SlotStore
	service *domain.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	slots := memory.NewSlotStore()
	service := domain.NewService(
		persistence.NewAdapter(slots, persistence.DefaultSlot),
		domain.WithLogger(log.New(io.Discard, "", 0)),
	)
	require.NoError(t, service.Open(context.Background()))

	mux := http.NewServeMux()
	NewHandler(service).RegisterRoutes(mux)
	return &testServer{mux: mux, slots: slots, service: service}
}

func (s *testServer) do(t *testing.T, method, path string, body any, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if claims != nil {
		req = req.WithContext(auth.WithClaims(req.Context(), claims))
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func runningBody() map[string]any {
	return map[string]any{
		"kind":        "running",
		"distance":    5,
		"duration":    30,
		"coordinates": []float64{10, 20},
		"cadence":     160,
	}
}

func cyclingBody() map[string]any {
	return map[string]any{
		"kind":           "cycling",
		"distance":       20,
		"duration":       60,
		"coordinates":    []float64{45.1, 7.6},
		"elevation_gain": 0,
	}
}

func TestCreateAndListWorkouts(t *testing.T) {
	srv := newTestServer(t)
	claims := auth.Anonymous()

	rec := srv.do(t, http.MethodPost, "/v1/workouts", runningBody(), claims)
	require.Equal(t, http.StatusCreated, rec.Code)
	run := decode[WorkoutView](t, rec)
	require.Equal(t, "running", run.Kind)
	require.NotNil(t, run.Pace)
	require.Equal(t, 6.0, *run.Pace)
	require.Equal(t, "6 min/km", run.DisplayMetric)
	require.Contains(t, run.Description, "Running")
	require.Empty(t, rec.Header().Get(StorageWarningHeader))

	rec = srv.do(t, http.MethodPost, "/v1/workouts", cyclingBody(), claims)
	require.Equal(t, http.StatusCreated, rec.Code)
	ride := decode[WorkoutView](t, rec)
	require.Equal(t, 20.0, *ride.Speed)
	require.Equal(t, "20.0 km/h", ride.DisplayMetric)
	require.Nil(t, ride.Cadence)

	rec = srv.do(t, http.MethodGet, "/v1/workouts", nil, claims)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[ListWorkoutsResponse](t, rec)
	require.Len(t, list.Items, 2)
	require.Equal(t, run.ID, list.Items[0].ID)
	require.Equal(t, ride.ID, list.Items[1].ID)

	stored, err := persistence.NewAdapter(srv.slots, persistence.DefaultSlot).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 2)
}

func TestCreateWorkoutValidation(t *testing.T) {
	srv := newTestServer(t)
	claims := auth.Anonymous()

	zeroDistance := runningBody()
	zeroDistance["distance"] = 0
	missingCadence := runningBody()
	delete(missingCadence, "cadence")
	crossField := cyclingBody()
	crossField["cadence"] = 80
	badKind := runningBody()
	badKind["kind"] = "swimming"
	badCoords := cyclingBody()
	badCoords["coordinates"] = []float64{1}
	negativeGain := cyclingBody()
	negativeGain["elevation_gain"] = -10

	for name, body := range map[string]map[string]any{
		"zero distance":   zeroDistance,
		"missing cadence": missingCadence,
		"cross field":     crossField,
		"bad kind":        badKind,
		"bad coordinates": badCoords,
		"negative gain":   negativeGain,
	} {
		t.Run(name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPost, "/v1/workouts", body, claims)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, "validation_failed", decode[map[string]string](t, rec)["type"])
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/workouts", bytes.NewBufferString("{"))
	req = req.WithContext(auth.WithClaims(req.Context(), claims))
	rec := httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	require.Empty(t, srv.service.List(context.Background()))
}

func TestGetUpdateClickDelete(t *testing.T) {
	srv := newTestServer(t)
	claims := auth.Anonymous()

	created := decode[WorkoutView](t, srv.do(t, http.MethodPost, "/v1/workouts", runningBody(), claims))
	path := "/v1/workouts/" + created.ID

	rec := srv.do(t, http.MethodGet, path, nil, claims)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, created.ID, decode[WorkoutView](t, rec).ID)

	rec = srv.do(t, http.MethodPatch, path, map[string]any{"distance": 10}, claims)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 3.0, *decode[WorkoutView](t, rec).Pace)

	rec = srv.do(t, http.MethodPatch, path, map[string]any{"distance": 0}, claims)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPatch, path, map[string]any{"elevation_gain": 10}, claims)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPatch, path, map[string]any{}, claims)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, path+"/clicks", nil, claims)
	require.Equal(t, http.StatusOK, rec.Code)
	clicked := decode[WorkoutView](t, rec)
	require.Equal(t, 1, clicked.ClickCount)
	require.Equal(t, 10.0, clicked.Distance)

	rec = srv.do(t, http.MethodDelete, path, nil, claims)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodDelete, path, nil, claims)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "not_found", decode[map[string]string](t, rec)["type"])

	rec = srv.do(t, http.MethodGet, path, nil, claims)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodPost, path+"/clicks", nil, claims)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResetWorkouts(t *testing.T) {
	srv := newTestServer(t)
	claims := auth.Anonymous()

	srv.do(t, http.MethodPost, "/v1/workouts", runningBody(), claims)
	srv.do(t, http.MethodPost, "/v1/workouts", cyclingBody(), claims)

	rec := srv.do(t, http.MethodDelete, "/v1/workouts", nil, claims)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, srv.service.List(context.Background()))

	_, err := srv.slots.Get(context.Background(), persistence.DefaultSlot)
	require.ErrorIs(t, err, persistence.ErrSlotAbsent)
}

func TestStorageFailureKeepsChangeAndWarns(t *testing.T) {
	srv := newTestServer(t)
	claims := auth.Anonymous()
	srv.slots.Disable()

	rec := srv.do(t, http.MethodPost, "/v1/workouts", runningBody(), claims)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotEmpty(t, rec.Header().Get(StorageWarningHeader))

	rec = srv.do(t, http.MethodGet, "/v1/workouts", nil, claims)
	require.Len(t, decode[ListWorkoutsResponse](t, rec).Items, 1)

	rec = srv.do(t, http.MethodDelete, "/v1/workouts", nil, claims)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotEmpty(t, rec.Header().Get(StorageWarningHeader))
}

func TestScopesAreEnforced(t *testing.T) {
	srv := newTestServer(t)
	readOnly := &auth.Claims{Subject: "viewer", Scopes: map[string]struct{}{auth.ScopeWorkoutsRead: {}}}

	rec := srv.do(t, http.MethodPost, "/v1/workouts", runningBody(), readOnly)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, http.MethodGet, "/v1/workouts", nil, readOnly)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/v1/workouts", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClickRequiresWriteScope(t *testing.T) {
	srv := newTestServer(t)
	readOnly := &auth.Claims{Subject: "viewer", Scopes: map[string]struct{}{auth.ScopeWorkoutsRead: {}}}

	rec := srv.do(t, http.MethodPost, "/v1/workouts", runningBody(), auth.Anonymous())
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[WorkoutView](t, rec)

	rec = srv.do(t, http.MethodPost, "/v1/workouts/"+created.ID+"/clicks", nil, readOnly)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, http.MethodGet, "/v1/workouts/"+created.ID, nil, readOnly)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, decode[WorkoutView](t, rec).ClickCount)

	rec = srv.do(t, http.MethodPost, "/v1/workouts/"+created.ID+"/clicks", nil, auth.Anonymous())
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, decode[WorkoutView](t, rec).ClickCount)
}

func TestUpdateAcceptsPatchOnly(t *testing.T) {
	srv := newTestServer(t)
	claims := auth.Anonymous()

	rec := srv.do(t, http.MethodPost, "/v1/workouts", runningBody(), claims)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[WorkoutView](t, rec)

	rec = srv.do(t, http.MethodPut, "/v1/workouts/"+created.ID, map[string]any{"distance": 7}, claims)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = srv.do(t, http.MethodGet, "/v1/workouts/"+created.ID, nil, claims)
	require.Equal(t, created.Distance, decode[WorkoutView](t, rec).Distance)
}

func TestRoutingEdgeCases(t *testing.T) {
	srv := newTestServer(t)
	claims := auth.Anonymous()

	require.Equal(t, http.StatusMethodNotAllowed, srv.do(t, http.MethodPut, "/v1/workouts", nil, claims).Code)
	require.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodGet, "/v1/workouts/", nil, claims).Code)
	require.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/v1/workouts/a/b", nil, claims).Code)
	require.Equal(t, http.StatusMethodNotAllowed, srv.do(t, http.MethodGet, "/v1/workouts/a/clicks", nil, claims).Code)

	rec := srv.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

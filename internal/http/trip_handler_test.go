package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"autodrive-bridge/internal/models"
	"autodrive-bridge/internal/repository"
	"autodrive-bridge/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCoordinator struct {
	activeTrip *models.Trip
	trips      []*models.Trip
	startErr   error
	endErr     error
	cancelErr  error
	lastStart  service.StartTripRequest
}

func (f *fakeCoordinator) StartTrip(_ context.Context, req service.StartTripRequest) (*models.Trip, error) {
	f.lastStart = req
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &models.Trip{
		TripID:    "trip-1",
		VehicleID: req.VehicleID,
		Mode:      req.Mode,
		Status:    models.TripStatusActive,
		StartTime: time.Now(),
	}, nil
}

func (f *fakeCoordinator) EndTrip(_ context.Context, tripID, vehicleID string, summary models.TripSummary) (*models.Trip, error) {
	if f.endErr != nil {
		return nil, f.endErr
	}
	now := time.Now()
	duration := int64(60)
	return &models.Trip{
		TripID:           tripID,
		VehicleID:        vehicleID,
		Status:           models.TripStatusCompleted,
		EndTime:          &now,
		DistanceTraveled: &summary.DistanceTraveled,
		DurationSeconds:  &duration,
	}, nil
}

func (f *fakeCoordinator) CancelTrip(_ context.Context, tripID, vehicleID string) (*models.Trip, error) {
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	now := time.Now()
	return &models.Trip{
		TripID:    tripID,
		VehicleID: vehicleID,
		Status:    models.TripStatusCancelled,
		EndTime:   &now,
	}, nil
}

func (f *fakeCoordinator) GetActiveTrip(_ context.Context, vehicleID string) (*models.Trip, error) {
	if f.activeTrip == nil {
		return nil, repository.ErrNotFound
	}
	return f.activeTrip, nil
}

func (f *fakeCoordinator) ListTrips(_ context.Context, vehicleID string, page, size int) ([]*models.Trip, int, error) {
	return f.trips, len(f.trips), nil
}

type fakeTripReader struct {
	trip *models.Trip
}

func (f *fakeTripReader) GetTrip(_ context.Context, tripID string) (*models.Trip, error) {
	if f.trip == nil {
		return nil, repository.ErrNotFound
	}
	return f.trip, nil
}

func newTripRouter(coordinator *fakeCoordinator, reader *fakeTripReader) *Router {
	router := NewRouter(zap.NewNop())
	router.RegisterTripRoutes(NewTripHandler(coordinator, reader, "1", zap.NewNop()))
	return router
}

func decodeResult[T any](t *testing.T, body []byte) Result[T] {
	t.Helper()
	var res Result[T]
	require.NoError(t, json.Unmarshal(body, &res))
	return res
}

func TestStartTripRoute_Success(t *testing.T) {
	coordinator := &fakeCoordinator{}
	router := newTripRouter(coordinator, &fakeTripReader{})

	req := httptest.NewRequest(http.MethodPost, "/bridge/api/v1/trips/start",
		strings.NewReader(`{"mode": "manual"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeResult[*models.Trip](t, rec.Body.Bytes())
	assert.Equal(t, ResultSuccess, res.Code)
	assert.Equal(t, "trip-1", res.Result.TripID)

	// vehicle_id 缺省取部署绑定的车辆
	assert.Equal(t, "1", coordinator.lastStart.VehicleID)
	assert.Equal(t, "manual", coordinator.lastStart.Mode)
}

func TestStartTripRoute_Conflict(t *testing.T) {
	coordinator := &fakeCoordinator{startErr: service.ErrActiveTripExists}
	router := newTripRouter(coordinator, &fakeTripReader{})

	req := httptest.NewRequest(http.MethodPost, "/bridge/api/v1/trips/start", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	res := decodeResult[any](t, rec.Body.Bytes())
	assert.Equal(t, ResultError, res.Code)
}

func TestStartTripRoute_UnknownWaypoint(t *testing.T) {
	coordinator := &fakeCoordinator{startErr: service.ErrWaypointNotFound}
	router := newTripRouter(coordinator, &fakeTripReader{})

	req := httptest.NewRequest(http.MethodPost, "/bridge/api/v1/trips/start",
		strings.NewReader(`{"start_waypoint_id": 404}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartTripRoute_MethodNotAllowed(t *testing.T) {
	router := newTripRouter(&fakeCoordinator{}, &fakeTripReader{})

	req := httptest.NewRequest(http.MethodGet, "/bridge/api/v1/trips/start", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestEndTripRoute_Success(t *testing.T) {
	router := newTripRouter(&fakeCoordinator{}, &fakeTripReader{})

	req := httptest.NewRequest(http.MethodPost, "/bridge/api/v1/trips/trip-1/end",
		strings.NewReader(`{"distance_traveled": 120, "avg_speed": 8, "max_speed": 15}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeResult[*models.Trip](t, rec.Body.Bytes())
	assert.Equal(t, models.TripStatusCompleted, res.Result.Status)
	require.NotNil(t, res.Result.DistanceTraveled)
	assert.Equal(t, 120.0, *res.Result.DistanceTraveled)
}

func TestEndTripRoute_NotFound(t *testing.T) {
	coordinator := &fakeCoordinator{endErr: repository.ErrNotFound}
	router := newTripRouter(coordinator, &fakeTripReader{})

	req := httptest.NewRequest(http.MethodPost, "/bridge/api/v1/trips/missing/end", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelTripRoute_Success(t *testing.T) {
	router := newTripRouter(&fakeCoordinator{}, &fakeTripReader{})

	req := httptest.NewRequest(http.MethodPost, "/bridge/api/v1/trips/trip-1/cancel", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeResult[*models.Trip](t, rec.Body.Bytes())
	assert.Equal(t, models.TripStatusCancelled, res.Result.Status)
}

func TestGetActiveTripRoute_NotFound(t *testing.T) {
	router := newTripRouter(&fakeCoordinator{}, &fakeTripReader{})

	req := httptest.NewRequest(http.MethodGet, "/bridge/api/v1/trips/active", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTripRoute_Success(t *testing.T) {
	reader := &fakeTripReader{trip: &models.Trip{TripID: "trip-9", VehicleID: "1", Status: models.TripStatusCompleted}}
	router := newTripRouter(&fakeCoordinator{}, reader)

	req := httptest.NewRequest(http.MethodGet, "/bridge/api/v1/trips/trip-9", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeResult[*models.Trip](t, rec.Body.Bytes())
	assert.Equal(t, "trip-9", res.Result.TripID)
}

func TestListTripsRoute_Success(t *testing.T) {
	coordinator := &fakeCoordinator{trips: []*models.Trip{
		{TripID: "trip-1", VehicleID: "1", Status: models.TripStatusCompleted},
		{TripID: "trip-2", VehicleID: "1", Status: models.TripStatusActive},
	}}
	router := newTripRouter(coordinator, &fakeTripReader{})

	req := httptest.NewRequest(http.MethodGet, "/bridge/api/v1/trips?page=1&size=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeResult[TripListModel](t, rec.Body.Bytes())
	assert.Equal(t, 2, res.Result.Total)
	assert.Len(t, res.Result.Items, 2)
}

func TestExportTripsRoute_ReturnsExcel(t *testing.T) {
	coordinator := &fakeCoordinator{trips: []*models.Trip{
		{TripID: "trip-1", VehicleID: "1", Mode: "auto", Status: models.TripStatusCompleted, StartTime: time.Now()},
	}}
	router := newTripRouter(coordinator, &fakeTripReader{})

	req := httptest.NewRequest(http.MethodGet, "/bridge/api/v1/trips/export", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Body.Bytes())
	// xlsx 是 zip 容器，校验魔数
	assert.Equal(t, []byte{'P', 'K'}, rec.Body.Bytes()[:2])
}

package httpapi

import (
	"context"
	"errors"
	"net/http"

	"autodrive-bridge/internal/models"
	"autodrive-bridge/internal/repository"
	"autodrive-bridge/internal/service"

	"go.uber.org/zap"
)

// TripCoordinator 行程生命周期操作（由行程服务实现）
type TripCoordinator interface {
	StartTrip(ctx context.Context, req service.StartTripRequest) (*models.Trip, error)
	EndTrip(ctx context.Context, tripID, vehicleID string, summary models.TripSummary) (*models.Trip, error)
	CancelTrip(ctx context.Context, tripID, vehicleID string) (*models.Trip, error)
	GetActiveTrip(ctx context.Context, vehicleID string) (*models.Trip, error)
	ListTrips(ctx context.Context, vehicleID string, page, size int) ([]*models.Trip, int, error)
}

// TripReader 按 trip_id 查询
type TripReader interface {
	GetTrip(ctx context.Context, tripID string) (*models.Trip, error)
}

// TripHandler 行程 API
type TripHandler struct {
	coordinator TripCoordinator
	trips       TripReader
	vehicleID   string // 本部署绑定的车辆ID（请求缺省时使用）
	logger      *zap.Logger
}

func NewTripHandler(coordinator TripCoordinator, trips TripReader, vehicleID string, logger *zap.Logger) *TripHandler {
	return &TripHandler{
		coordinator: coordinator,
		trips:       trips,
		vehicleID:   vehicleID,
		logger:      logger,
	}
}

// TripListModel 行程列表响应
type TripListModel struct {
	Items []*models.Trip `json:"items"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}

// POST /bridge/api/v1/trips/start
func (h *TripHandler) StartTrip(w http.ResponseWriter, r *http.Request) {
	var req service.StartTripRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if req.VehicleID == "" {
		req.VehicleID = h.vehicleID
	}

	trip, err := h.coordinator.StartTrip(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrActiveTripExists):
			writeJSON(w, http.StatusConflict, Fail("vehicle already has an active trip"))
		case errors.Is(err, service.ErrWaypointNotFound):
			writeJSON(w, http.StatusNotFound, Fail("waypoint not found"))
		default:
			h.logger.Error("Failed to start trip", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, Fail("failed to start trip"))
		}
		return
	}

	writeJSON(w, http.StatusOK, Ok(trip))
}

// POST /bridge/api/v1/trips/{id}/end
func (h *TripHandler) EndTrip(w http.ResponseWriter, r *http.Request, tripID string) {
	var req struct {
		VehicleID string `json:"vehicle_id"`
		models.TripSummary
	}
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if req.VehicleID == "" {
		req.VehicleID = h.vehicleID
	}

	trip, err := h.coordinator.EndTrip(r.Context(), tripID, req.VehicleID, req.TripSummary)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("no active trip with this id"))
			return
		}
		h.logger.Error("Failed to end trip", zap.String("trip_id", tripID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to end trip"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(trip))
}

// POST /bridge/api/v1/trips/{id}/cancel
func (h *TripHandler) CancelTrip(w http.ResponseWriter, r *http.Request, tripID string) {
	var req struct {
		VehicleID string `json:"vehicle_id"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if req.VehicleID == "" {
		req.VehicleID = h.vehicleID
	}

	trip, err := h.coordinator.CancelTrip(r.Context(), tripID, req.VehicleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("no active trip with this id"))
			return
		}
		h.logger.Error("Failed to cancel trip", zap.String("trip_id", tripID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to cancel trip"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(trip))
}

// GET /bridge/api/v1/trips/active
func (h *TripHandler) GetActiveTrip(w http.ResponseWriter, r *http.Request) {
	vehicleID := r.URL.Query().Get("vehicle_id")
	if vehicleID == "" {
		vehicleID = h.vehicleID
	}

	trip, err := h.coordinator.GetActiveTrip(r.Context(), vehicleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("no active trip"))
			return
		}
		h.logger.Error("Failed to get active trip", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to get active trip"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(trip))
}

// GET /bridge/api/v1/trips/{id}
func (h *TripHandler) GetTrip(w http.ResponseWriter, r *http.Request, tripID string) {
	trip, err := h.trips.GetTrip(r.Context(), tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("trip not found"))
			return
		}
		h.logger.Error("Failed to get trip", zap.String("trip_id", tripID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to get trip"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(trip))
}

// GET /bridge/api/v1/trips
// params: vehicle_id? page? size?
func (h *TripHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	vehicleID := r.URL.Query().Get("vehicle_id")
	if vehicleID == "" {
		vehicleID = h.vehicleID
	}
	page := parseInt(r.URL.Query().Get("page"), 1)
	size := parseInt(r.URL.Query().Get("size"), 20)

	trips, total, err := h.coordinator.ListTrips(r.Context(), vehicleID, page, size)
	if err != nil {
		h.logger.Error("Failed to list trips", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list trips"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(TripListModel{
		Items: trips,
		Total: total,
		Page:  page,
		Size:  size,
	}))
}

// GET /bridge/api/v1/trips/export
// 导出行程历史 Excel（全部页）
func (h *TripHandler) ExportTrips(w http.ResponseWriter, r *http.Request) {
	vehicleID := r.URL.Query().Get("vehicle_id")
	if vehicleID == "" {
		vehicleID = h.vehicleID
	}

	trips, _, err := h.coordinator.ListTrips(r.Context(), vehicleID, 1, exportPageSize)
	if err != nil {
		h.logger.Error("Failed to list trips for export", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to export trips"))
		return
	}

	data, err := GenerateTripExport(trips)
	if err != nil {
		h.logger.Error("Failed to generate trip export", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to export trips"))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="trips.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"autodrive-bridge/internal/models"
	"autodrive-bridge/internal/repository"

	"go.uber.org/zap"
)

// VehicleStore 车辆状态读写
type VehicleStore interface {
	GetVehicle(ctx context.Context, vehicleID string) (*models.Vehicle, error)
	UpsertStatus(ctx context.Context, vehicleID, status string, lastSeen time.Time) error
}

// StatusBroadcaster 状态变更推送给在线会话
type StatusBroadcaster interface {
	BroadcastStatus(vehicleID, status string)
}

// VehicleHandler 车辆状态 API
type VehicleHandler struct {
	vehicles    VehicleStore
	broadcaster StatusBroadcaster
	logger      *zap.Logger
}

func NewVehicleHandler(vehicles VehicleStore, broadcaster StatusBroadcaster, logger *zap.Logger) *VehicleHandler {
	return &VehicleHandler{
		vehicles:    vehicles,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// GET /bridge/api/v1/vehicles/{id}
func (h *VehicleHandler) GetVehicle(w http.ResponseWriter, r *http.Request, vehicleID string) {
	vehicle, err := h.vehicles.GetVehicle(r.Context(), vehicleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("vehicle not found"))
			return
		}
		h.logger.Error("Failed to get vehicle", zap.String("vehicle_id", vehicleID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to get vehicle"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(vehicle))
}

// PUT /bridge/api/v1/vehicles/{id}/status
// 运维手工改状态（如标记 offline/maintenance）；变更同步推送给在线会话
func (h *VehicleHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, vehicleID string) {
	var req struct {
		Status string `json:"status"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, Fail("status is required"))
		return
	}

	if err := h.vehicles.UpsertStatus(r.Context(), vehicleID, req.Status, time.Now()); err != nil {
		h.logger.Error("Failed to update vehicle status",
			zap.String("vehicle_id", vehicleID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("failed to update vehicle status"))
		return
	}

	if h.broadcaster != nil {
		h.broadcaster.BroadcastStatus(vehicleID, req.Status)
	}

	writeJSON(w, http.StatusOK, Ok(map[string]string{
		"vehicle_id": vehicleID,
		"status":     req.Status,
	}))
}

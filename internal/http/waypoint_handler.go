package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"autodrive-bridge/internal/models"
	"autodrive-bridge/internal/repository"

	"go.uber.org/zap"
)

// WaypointStore 路径点 CRUD
type WaypointStore interface {
	CreateWaypoint(ctx context.Context, wp *models.Waypoint) (int64, error)
	GetWaypoint(ctx context.Context, waypointID int64) (*models.Waypoint, error)
	ListWaypoints(ctx context.Context) ([]*models.Waypoint, error)
	UpdateWaypoint(ctx context.Context, wp *models.Waypoint) error
	DeleteWaypoint(ctx context.Context, waypointID int64) error
}

// WaypointHandler 路径点 API
type WaypointHandler struct {
	waypoints WaypointStore
	logger    *zap.Logger
}

func NewWaypointHandler(waypoints WaypointStore, logger *zap.Logger) *WaypointHandler {
	return &WaypointHandler{waypoints: waypoints, logger: logger}
}

// POST /bridge/api/v1/waypoints
func (h *WaypointHandler) CreateWaypoint(w http.ResponseWriter, r *http.Request) {
	var wp models.Waypoint
	if err := readBodyJSON(r, maxBodyBytes, &wp); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if wp.Name == "" {
		writeJSON(w, http.StatusBadRequest, Fail("name is required"))
		return
	}

	id, err := h.waypoints.CreateWaypoint(r.Context(), &wp)
	if err != nil {
		h.logger.Error("Failed to create waypoint", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to create waypoint"))
		return
	}

	wp.WaypointID = id
	writeJSON(w, http.StatusOK, Ok(&wp))
}

// GET /bridge/api/v1/waypoints
func (h *WaypointHandler) ListWaypoints(w http.ResponseWriter, r *http.Request) {
	waypoints, err := h.waypoints.ListWaypoints(r.Context())
	if err != nil {
		h.logger.Error("Failed to list waypoints", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list waypoints"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(waypoints))
}

// GET /bridge/api/v1/waypoints/{id}
func (h *WaypointHandler) GetWaypoint(w http.ResponseWriter, r *http.Request, id string) {
	waypointID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid waypoint id"))
		return
	}

	wp, err := h.waypoints.GetWaypoint(r.Context(), waypointID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("waypoint not found"))
			return
		}
		h.logger.Error("Failed to get waypoint", zap.Int64("waypoint_id", waypointID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to get waypoint"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(wp))
}

// PUT /bridge/api/v1/waypoints/{id}
func (h *WaypointHandler) UpdateWaypoint(w http.ResponseWriter, r *http.Request, id string) {
	waypointID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid waypoint id"))
		return
	}

	var wp models.Waypoint
	if err := readBodyJSON(r, maxBodyBytes, &wp); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if wp.Name == "" {
		writeJSON(w, http.StatusBadRequest, Fail("name is required"))
		return
	}
	wp.WaypointID = waypointID

	if err := h.waypoints.UpdateWaypoint(r.Context(), &wp); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("waypoint not found"))
			return
		}
		h.logger.Error("Failed to update waypoint", zap.Int64("waypoint_id", waypointID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to update waypoint"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(&wp))
}

// DELETE /bridge/api/v1/waypoints/{id}
func (h *WaypointHandler) DeleteWaypoint(w http.ResponseWriter, r *http.Request, id string) {
	waypointID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid waypoint id"))
		return
	}

	if err := h.waypoints.DeleteWaypoint(r.Context(), waypointID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("waypoint not found"))
			return
		}
		h.logger.Error("Failed to delete waypoint", zap.Int64("waypoint_id", waypointID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to delete waypoint"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": waypointID}))
}

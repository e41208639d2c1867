package httpapi

import (
	"context"
	"errors"
	"net/http"

	"autodrive-bridge/internal/cache"
	"autodrive-bridge/internal/models"
	"autodrive-bridge/internal/repository"

	"go.uber.org/zap"
)

// TelemetryReader 遥测历史查询
type TelemetryReader interface {
	GetLatestSample(ctx context.Context, vehicleID string) (*models.TelemetrySample, error)
	GetStats(ctx context.Context, vehicleID string, windowHours int) (*models.TelemetryStats, error)
}

// LatestCacheReader 最新遥测缓存读取
type LatestCacheReader interface {
	GetLatest(ctx context.Context, vehicleID string) (*models.TelemetrySample, error)
}

// TelemetryHandler 遥测查询 API
// latest 先走缓存，未命中回落到数据库
type TelemetryHandler struct {
	telemetry TelemetryReader
	cache     LatestCacheReader
	vehicleID string
	logger    *zap.Logger
}

func NewTelemetryHandler(telemetry TelemetryReader, latestCache LatestCacheReader, vehicleID string, logger *zap.Logger) *TelemetryHandler {
	return &TelemetryHandler{
		telemetry: telemetry,
		cache:     latestCache,
		vehicleID: vehicleID,
		logger:    logger,
	}
}

// GET /bridge/api/v1/telemetry/latest
// params: vehicle_id?
func (h *TelemetryHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vehicleID := r.URL.Query().Get("vehicle_id")
	if vehicleID == "" {
		vehicleID = h.vehicleID
	}

	if h.cache != nil {
		sample, err := h.cache.GetLatest(ctx, vehicleID)
		if err == nil {
			writeJSON(w, http.StatusOK, Ok(sample))
			return
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			// 缓存故障回落数据库，不报错
			h.logger.Warn("Latest telemetry cache read failed, falling back to database", zap.Error(err))
		}
	}

	sample, err := h.telemetry.GetLatestSample(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("no telemetry for vehicle"))
			return
		}
		h.logger.Error("Failed to get latest telemetry", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to get latest telemetry"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(sample))
}

// GET /bridge/api/v1/telemetry/stats
// params: vehicle_id? window_hours? (default 24)
func (h *TelemetryHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	vehicleID := r.URL.Query().Get("vehicle_id")
	if vehicleID == "" {
		vehicleID = h.vehicleID
	}
	windowHours := parseInt(r.URL.Query().Get("window_hours"), 24)

	stats, err := h.telemetry.GetStats(r.Context(), vehicleID, windowHours)
	if err != nil {
		h.logger.Error("Failed to get telemetry stats", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to get telemetry stats"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(stats))
}

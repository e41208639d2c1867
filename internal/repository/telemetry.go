package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"autodrive-bridge/internal/models"

	"go.uber.org/zap"
)

// TelemetryRepository 遥测历史仓库
// 纯请求/响应操作，不做重试；重试策略由调用方决定
type TelemetryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTelemetryRepository 创建遥测仓库
func NewTelemetryRepository(db *sql.DB, logger *zap.Logger) *TelemetryRepository {
	return &TelemetryRepository{
		db:     db,
		logger: logger,
	}
}

// InsertSample 追加一条遥测记录
func (r *TelemetryRepository) InsertSample(ctx context.Context, sample *models.TelemetrySample) error {
	if sample == nil {
		return fmt.Errorf("sample is required")
	}
	if sample.VehicleID == "" {
		return fmt.Errorf("vehicle_id is required")
	}

	query := `
		INSERT INTO telemetry_history (
			vehicle_id,
			speed,
			x_position,
			y_position,
			heading,
			distance_front,
			distance_left,
			distance_right,
			timestamp
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		sample.VehicleID,
		sample.Speed,
		sample.XPosition,
		sample.YPosition,
		sample.Heading,
		sample.DistanceFront,
		sample.DistanceLeft,
		sample.DistanceRight,
		sample.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to insert telemetry sample: %w", err)
	}

	return nil
}

// GetLatestSample 获取车辆最近一条遥测记录
func (r *TelemetryRepository) GetLatestSample(ctx context.Context, vehicleID string) (*models.TelemetrySample, error) {
	if vehicleID == "" {
		return nil, fmt.Errorf("vehicle_id is required")
	}

	query := `
		SELECT
			id,
			vehicle_id,
			speed,
			x_position,
			y_position,
			heading,
			distance_front,
			distance_left,
			distance_right,
			timestamp
		FROM telemetry_history
		WHERE vehicle_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`

	var sample models.TelemetrySample
	err := r.db.QueryRowContext(ctx, query, vehicleID).Scan(
		&sample.ID,
		&sample.VehicleID,
		&sample.Speed,
		&sample.XPosition,
		&sample.YPosition,
		&sample.Heading,
		&sample.DistanceFront,
		&sample.DistanceLeft,
		&sample.DistanceRight,
		&sample.Timestamp,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest telemetry: %w", err)
	}

	return &sample, nil
}

// GetStats 获取时间窗口内的遥测聚合统计
func (r *TelemetryRepository) GetStats(ctx context.Context, vehicleID string, windowHours int) (*models.TelemetryStats, error) {
	if vehicleID == "" {
		return nil, fmt.Errorf("vehicle_id is required")
	}
	if windowHours <= 0 {
		windowHours = 24
	}

	since := time.Now().Add(-time.Duration(windowHours) * time.Hour).UnixMilli()

	query := `
		SELECT
			COUNT(*),
			COALESCE(AVG(speed), 0),
			COALESCE(MAX(speed), 0)
		FROM telemetry_history
		WHERE vehicle_id = $1
		  AND timestamp >= $2
	`

	stats := models.TelemetryStats{
		VehicleID:   vehicleID,
		WindowHours: windowHours,
	}
	err := r.db.QueryRowContext(ctx, query, vehicleID, since).Scan(
		&stats.SampleCount,
		&stats.AvgSpeed,
		&stats.MaxSpeed,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get telemetry stats: %w", err)
	}

	return &stats, nil
}

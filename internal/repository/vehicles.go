package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"autodrive-bridge/internal/models"

	"go.uber.org/zap"
)

// VehicleRepository 车辆状态仓库
type VehicleRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVehicleRepository 创建车辆仓库
func NewVehicleRepository(db *sql.DB, logger *zap.Logger) *VehicleRepository {
	return &VehicleRepository{
		db:     db,
		logger: logger,
	}
}

// UpsertStatus 更新车辆状态和 last_seen
// status 为 last-writer-wins；last_seen 用 GREATEST 保证单调不减
func (r *VehicleRepository) UpsertStatus(ctx context.Context, vehicleID, status string, lastSeen time.Time) error {
	if vehicleID == "" {
		return fmt.Errorf("vehicle_id is required")
	}
	if status == "" {
		return fmt.Errorf("status is required")
	}

	query := `
		INSERT INTO vehicles (id, status, last_seen)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    last_seen = GREATEST(vehicles.last_seen, EXCLUDED.last_seen)
	`

	_, err := r.db.ExecContext(ctx, query, vehicleID, status, lastSeen)
	if err != nil {
		return fmt.Errorf("failed to upsert vehicle status: %w", err)
	}

	return nil
}

// GetVehicle 获取车辆当前状态
func (r *VehicleRepository) GetVehicle(ctx context.Context, vehicleID string) (*models.Vehicle, error) {
	if vehicleID == "" {
		return nil, fmt.Errorf("vehicle_id is required")
	}

	query := `
		SELECT id, status, last_seen
		FROM vehicles
		WHERE id = $1
	`

	var vehicle models.Vehicle
	err := r.db.QueryRowContext(ctx, query, vehicleID).Scan(
		&vehicle.VehicleID,
		&vehicle.Status,
		&vehicle.LastSeen,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}

	return &vehicle, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"autodrive-bridge/internal/models"

	"go.uber.org/zap"
)

// WaypointRepository 路径点仓库
type WaypointRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWaypointRepository 创建路径点仓库
func NewWaypointRepository(db *sql.DB, logger *zap.Logger) *WaypointRepository {
	return &WaypointRepository{
		db:     db,
		logger: logger,
	}
}

// CreateWaypoint 创建路径点，返回生成的ID
func (r *WaypointRepository) CreateWaypoint(ctx context.Context, wp *models.Waypoint) (int64, error) {
	if wp == nil {
		return 0, fmt.Errorf("waypoint is required")
	}
	if wp.Name == "" {
		return 0, fmt.Errorf("name is required")
	}

	query := `
		INSERT INTO waypoints (name, x_position, y_position, kind)
		VALUES ($1, $2, $3, $4)
		RETURNING waypoint_id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, wp.Name, wp.XPosition, wp.YPosition, wp.Kind).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create waypoint: %w", err)
	}

	return id, nil
}

// GetWaypoint 获取路径点
func (r *WaypointRepository) GetWaypoint(ctx context.Context, waypointID int64) (*models.Waypoint, error) {
	query := `
		SELECT waypoint_id, name, x_position, y_position, kind, created_at
		FROM waypoints
		WHERE waypoint_id = $1
	`

	var wp models.Waypoint
	err := r.db.QueryRowContext(ctx, query, waypointID).Scan(
		&wp.WaypointID,
		&wp.Name,
		&wp.XPosition,
		&wp.YPosition,
		&wp.Kind,
		&wp.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get waypoint: %w", err)
	}

	return &wp, nil
}

// Exists 检查路径点是否存在（行程起止点外键校验用）
func (r *WaypointRepository) Exists(ctx context.Context, waypointID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM waypoints WHERE waypoint_id = $1)`,
		waypointID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check waypoint existence: %w", err)
	}
	return exists, nil
}

// ListWaypoints 全部路径点（按创建时间正序）
func (r *WaypointRepository) ListWaypoints(ctx context.Context) ([]*models.Waypoint, error) {
	query := `
		SELECT waypoint_id, name, x_position, y_position, kind, created_at
		FROM waypoints
		ORDER BY created_at ASC, waypoint_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query waypoints: %w", err)
	}
	defer rows.Close()

	waypoints := []*models.Waypoint{}
	for rows.Next() {
		var wp models.Waypoint
		if err := rows.Scan(
			&wp.WaypointID,
			&wp.Name,
			&wp.XPosition,
			&wp.YPosition,
			&wp.Kind,
			&wp.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan waypoint: %w", err)
		}
		waypoints = append(waypoints, &wp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate waypoints: %w", err)
	}

	return waypoints, nil
}

// UpdateWaypoint 更新路径点
func (r *WaypointRepository) UpdateWaypoint(ctx context.Context, wp *models.Waypoint) error {
	if wp == nil {
		return fmt.Errorf("waypoint is required")
	}

	query := `
		UPDATE waypoints
		SET name = $1,
		    x_position = $2,
		    y_position = $3,
		    kind = $4
		WHERE waypoint_id = $5
	`

	result, err := r.db.ExecContext(ctx, query, wp.Name, wp.XPosition, wp.YPosition, wp.Kind, wp.WaypointID)
	if err != nil {
		return fmt.Errorf("failed to update waypoint: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteWaypoint 删除路径点
func (r *WaypointRepository) DeleteWaypoint(ctx context.Context, waypointID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM waypoints WHERE waypoint_id = $1`, waypointID)
	if err != nil {
		return fmt.Errorf("failed to delete waypoint: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

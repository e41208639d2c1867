package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"autodrive-bridge/internal/models"

	"go.uber.org/zap"
)

// TripRepository 行程仓库
// 终态迁移用条件 UPDATE 表达：WHERE status='active' 命中 0 行即视为不存在，
// 对已终态/不存在的行程不做任何变更
type TripRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTripRepository 创建行程仓库
func NewTripRepository(db *sql.DB, logger *zap.Logger) *TripRepository {
	return &TripRepository{
		db:     db,
		logger: logger,
	}
}

const tripColumns = `
	trip_id,
	vehicle_id,
	start_waypoint_id,
	end_waypoint_id,
	mode,
	status,
	start_time,
	end_time,
	distance_traveled,
	avg_speed,
	max_speed,
	duration_seconds
`

// scanTrip 扫描一行行程记录（可空字段处理）
func scanTrip(row interface{ Scan(...any) error }) (*models.Trip, error) {
	var trip models.Trip
	var startWaypointID, endWaypointID, durationSeconds sql.NullInt64
	var endTime sql.NullTime
	var distance, avgSpeed, maxSpeed sql.NullFloat64

	err := row.Scan(
		&trip.TripID,
		&trip.VehicleID,
		&startWaypointID,
		&endWaypointID,
		&trip.Mode,
		&trip.Status,
		&trip.StartTime,
		&endTime,
		&distance,
		&avgSpeed,
		&maxSpeed,
		&durationSeconds,
	)
	if err != nil {
		return nil, err
	}

	if startWaypointID.Valid {
		trip.StartWaypointID = &startWaypointID.Int64
	}
	if endWaypointID.Valid {
		trip.EndWaypointID = &endWaypointID.Int64
	}
	if endTime.Valid {
		trip.EndTime = &endTime.Time
	}
	if distance.Valid {
		trip.DistanceTraveled = &distance.Float64
	}
	if avgSpeed.Valid {
		trip.AvgSpeed = &avgSpeed.Float64
	}
	if maxSpeed.Valid {
		trip.MaxSpeed = &maxSpeed.Float64
	}
	if durationSeconds.Valid {
		trip.DurationSeconds = &durationSeconds.Int64
	}

	return &trip, nil
}

// CreateTrip 创建行程（active 状态）
func (r *TripRepository) CreateTrip(ctx context.Context, trip *models.Trip) error {
	if trip == nil {
		return fmt.Errorf("trip is required")
	}
	if trip.TripID == "" {
		return fmt.Errorf("trip_id is required")
	}
	if trip.VehicleID == "" {
		return fmt.Errorf("vehicle_id is required")
	}

	query := `
		INSERT INTO trips (
			trip_id,
			vehicle_id,
			start_waypoint_id,
			end_waypoint_id,
			mode,
			status,
			start_time
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		trip.TripID,
		trip.VehicleID,
		trip.StartWaypointID,
		trip.EndWaypointID,
		trip.Mode,
		trip.Status,
		trip.StartTime,
	)

	if err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}

	return nil
}

// GetTrip 根据 trip_id 获取行程
func (r *TripRepository) GetTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	if tripID == "" {
		return nil, fmt.Errorf("trip_id is required")
	}

	query := fmt.Sprintf(`SELECT %s FROM trips WHERE trip_id = $1`, tripColumns)

	trip, err := scanTrip(r.db.QueryRowContext(ctx, query, tripID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	return trip, nil
}

// GetActiveTrip 获取车辆当前 active 行程
func (r *TripRepository) GetActiveTrip(ctx context.Context, vehicleID string) (*models.Trip, error) {
	if vehicleID == "" {
		return nil, fmt.Errorf("vehicle_id is required")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM trips
		WHERE vehicle_id = $1
		  AND status = 'active'
		ORDER BY start_time DESC
		LIMIT 1
	`, tripColumns)

	trip, err := scanTrip(r.db.QueryRowContext(ctx, query, vehicleID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active trip: %w", err)
	}

	return trip, nil
}

// CompleteTrip 结束行程：active → completed
// duration_seconds 在 SQL 内按结束时刻与 start_time 的差值计算，
// 条件更新保证对同一行程只会成功一次
func (r *TripRepository) CompleteTrip(ctx context.Context, tripID, vehicleID string, summary models.TripSummary, endTime time.Time) (*models.Trip, error) {
	if tripID == "" {
		return nil, fmt.Errorf("trip_id is required")
	}
	if vehicleID == "" {
		return nil, fmt.Errorf("vehicle_id is required")
	}

	query := fmt.Sprintf(`
		UPDATE trips
		SET status = 'completed',
		    end_time = $1,
		    distance_traveled = $2,
		    avg_speed = $3,
		    max_speed = $4,
		    duration_seconds = FLOOR(EXTRACT(EPOCH FROM ($1::timestamptz - start_time)))::bigint
		WHERE trip_id = $5
		  AND vehicle_id = $6
		  AND status = 'active'
		RETURNING %s
	`, tripColumns)

	trip, err := scanTrip(r.db.QueryRowContext(ctx, query,
		endTime,
		summary.DistanceTraveled,
		summary.AvgSpeed,
		summary.MaxSpeed,
		tripID,
		vehicleID,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to complete trip: %w", err)
	}

	return trip, nil
}

// CancelTrip 取消行程：active → cancelled（不要求汇总指标）
func (r *TripRepository) CancelTrip(ctx context.Context, tripID, vehicleID string, endTime time.Time) (*models.Trip, error) {
	if tripID == "" {
		return nil, fmt.Errorf("trip_id is required")
	}
	if vehicleID == "" {
		return nil, fmt.Errorf("vehicle_id is required")
	}

	query := fmt.Sprintf(`
		UPDATE trips
		SET status = 'cancelled',
		    end_time = $1,
		    duration_seconds = FLOOR(EXTRACT(EPOCH FROM ($1::timestamptz - start_time)))::bigint
		WHERE trip_id = $2
		  AND vehicle_id = $3
		  AND status = 'active'
		RETURNING %s
	`, tripColumns)

	trip, err := scanTrip(r.db.QueryRowContext(ctx, query, endTime, tripID, vehicleID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to cancel trip: %w", err)
	}

	return trip, nil
}

// ListTrips 行程历史（分页，按开始时间倒序）
func (r *TripRepository) ListTrips(ctx context.Context, vehicleID string, page, size int) ([]*models.Trip, int, error) {
	if vehicleID == "" {
		return []*models.Trip{}, 0, nil
	}

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trips WHERE vehicle_id = $1`,
		vehicleID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count trips: %w", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`
		SELECT %s
		FROM trips
		WHERE vehicle_id = $1
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3
	`, tripColumns)

	rows, err := r.db.QueryContext(ctx, query, vehicleID, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query trips: %w", err)
	}
	defer rows.Close()

	trips := []*models.Trip{}
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, trip)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate trips: %w", err)
	}

	return trips, total, nil
}

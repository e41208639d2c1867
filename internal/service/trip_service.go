package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autodrive-bridge/internal/models"
	"autodrive-bridge/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrActiveTripExists 同一车辆已有 active 行程
	ErrActiveTripExists = errors.New("vehicle already has an active trip")
	// ErrWaypointNotFound 行程起止点引用的路径点不存在
	ErrWaypointNotFound = errors.New("waypoint not found")
)

// TripStore 行程存储
type TripStore interface {
	CreateTrip(ctx context.Context, trip *models.Trip) error
	GetTrip(ctx context.Context, tripID string) (*models.Trip, error)
	GetActiveTrip(ctx context.Context, vehicleID string) (*models.Trip, error)
	CompleteTrip(ctx context.Context, tripID, vehicleID string, summary models.TripSummary, endTime time.Time) (*models.Trip, error)
	CancelTrip(ctx context.Context, tripID, vehicleID string, endTime time.Time) (*models.Trip, error)
	ListTrips(ctx context.Context, vehicleID string, page, size int) ([]*models.Trip, int, error)
}

// WaypointStore 路径点存在性校验
type WaypointStore interface {
	Exists(ctx context.Context, waypointID int64) (bool, error)
}

// TripNotifier 行程生命周期变更推送
type TripNotifier interface {
	BroadcastTrip(trip *models.Trip)
}

// StartTripRequest 开始行程请求
type StartTripRequest struct {
	VehicleID       string `json:"vehicle_id"`
	StartWaypointID *int64 `json:"start_waypoint_id,omitempty"`
	EndWaypointID   *int64 `json:"end_waypoint_id,omitempty"`
	Mode            string `json:"mode"`
}

// TripService 行程协调器
// 状态机：active → completed（end，要求汇总指标）或 active → cancelled（cancel）
// 终态只进入一次；对不存在或已终态的行程操作返回 NotFound，不做任何变更
type TripService struct {
	trips     TripStore
	waypoints WaypointStore
	notifier  TripNotifier
	logger    *zap.Logger
}

// NewTripService 创建行程协调器
func NewTripService(trips TripStore, waypoints WaypointStore, notifier TripNotifier, logger *zap.Logger) *TripService {
	return &TripService{
		trips:     trips,
		waypoints: waypoints,
		notifier:  notifier,
		logger:    logger,
	}
}

// StartTrip 开始行程
// 同一车辆同时只允许一个 active 行程；起止点引用必须是有效路径点或缺省
func (s *TripService) StartTrip(ctx context.Context, req StartTripRequest) (*models.Trip, error) {
	if req.VehicleID == "" {
		return nil, fmt.Errorf("vehicle_id is required")
	}

	mode := req.Mode
	if mode == "" {
		mode = "auto"
	}

	existing, err := s.trips.GetActiveTrip(ctx, req.VehicleID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check active trip: %w", err)
	}
	if existing != nil {
		return nil, ErrActiveTripExists
	}

	for _, wpID := range []*int64{req.StartWaypointID, req.EndWaypointID} {
		if wpID == nil {
			continue
		}
		exists, err := s.waypoints.Exists(ctx, *wpID)
		if err != nil {
			return nil, fmt.Errorf("failed to validate waypoint: %w", err)
		}
		if !exists {
			return nil, ErrWaypointNotFound
		}
	}

	trip := &models.Trip{
		TripID:          uuid.New().String(),
		VehicleID:       req.VehicleID,
		StartWaypointID: req.StartWaypointID,
		EndWaypointID:   req.EndWaypointID,
		Mode:            mode,
		Status:          models.TripStatusActive,
		StartTime:       time.Now(),
	}

	if err := s.trips.CreateTrip(ctx, trip); err != nil {
		return nil, fmt.Errorf("failed to create trip: %w", err)
	}

	s.logger.Info("Trip started",
		zap.String("trip_id", trip.TripID),
		zap.String("vehicle_id", trip.VehicleID),
		zap.String("mode", trip.Mode),
	)

	if s.notifier != nil {
		s.notifier.BroadcastTrip(trip)
	}

	return trip, nil
}

// EndTrip 结束行程：active → completed
// duration 按结束时刻与开始时刻的墙钟差值计算
func (s *TripService) EndTrip(ctx context.Context, tripID, vehicleID string, summary models.TripSummary) (*models.Trip, error) {
	trip, err := s.trips.CompleteTrip(ctx, tripID, vehicleID, summary, time.Now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("Trip completed",
		zap.String("trip_id", trip.TripID),
		zap.Float64("distance_traveled", summary.DistanceTraveled),
	)

	if s.notifier != nil {
		s.notifier.BroadcastTrip(trip)
	}

	return trip, nil
}

// CancelTrip 取消行程：active → cancelled（不要求汇总指标）
func (s *TripService) CancelTrip(ctx context.Context, tripID, vehicleID string) (*models.Trip, error) {
	trip, err := s.trips.CancelTrip(ctx, tripID, vehicleID, time.Now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("Trip cancelled", zap.String("trip_id", trip.TripID))

	if s.notifier != nil {
		s.notifier.BroadcastTrip(trip)
	}

	return trip, nil
}

// GetActiveTrip 获取车辆当前 active 行程
func (s *TripService) GetActiveTrip(ctx context.Context, vehicleID string) (*models.Trip, error) {
	return s.trips.GetActiveTrip(ctx, vehicleID)
}

// ListTrips 行程历史
func (s *TripService) ListTrips(ctx context.Context, vehicleID string, page, size int) ([]*models.Trip, int, error) {
	return s.trips.ListTrips(ctx, vehicleID, page, size)
}

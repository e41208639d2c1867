package models

import "time"

// Trip 状态（active 创建，终态只允许进入一次）
const (
	TripStatusActive    = "active"
	TripStatusCompleted = "completed"
	TripStatusCancelled = "cancelled"
)

// Trip 一次行程（车辆从开始到结束/取消之间的运行区间）
type Trip struct {
	TripID          string     `json:"trip_id"`
	VehicleID       string     `json:"vehicle_id"`
	StartWaypointID *int64     `json:"start_waypoint_id,omitempty"`
	EndWaypointID   *int64     `json:"end_waypoint_id,omitempty"`
	Mode            string     `json:"mode"`
	Status          string     `json:"status"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DistanceTraveled *float64  `json:"distance_traveled,omitempty"`
	AvgSpeed        *float64   `json:"avg_speed,omitempty"`
	MaxSpeed        *float64   `json:"max_speed,omitempty"`
	DurationSeconds *int64     `json:"duration_seconds,omitempty"`
}

// IsTerminal 是否已处于终态
func (t *Trip) IsTerminal() bool {
	return t.Status == TripStatusCompleted || t.Status == TripStatusCancelled
}

// TripSummary 结束行程时提交的汇总指标
type TripSummary struct {
	DistanceTraveled float64 `json:"distance_traveled"`
	AvgSpeed         float64 `json:"avg_speed"`
	MaxSpeed         float64 `json:"max_speed"`
}

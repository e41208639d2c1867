package models

import "time"

// Waypoint 路径点（行程起止点引用的坐标）
type Waypoint struct {
	WaypointID int64     `json:"waypoint_id"`
	Name       string    `json:"name"`
	XPosition  float64   `json:"x"`
	YPosition  float64   `json:"y"`
	Kind       string    `json:"kind"` // 如 "station"、"charging"、"parking"
	CreatedAt  time.Time `json:"created_at"`
}

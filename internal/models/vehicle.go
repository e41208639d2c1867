package models

import "time"

// 车辆状态常量（总线上报的其它状态字符串原样接受）
const (
	VehicleStatusOnline  = "online"
	VehicleStatusOffline = "offline"
)

// Vehicle 车辆当前状态（每辆车一行）
// last_seen 单调不减；status 为 last-writer-wins
type Vehicle struct {
	VehicleID string    `json:"vehicle_id"`
	Status    string    `json:"status"`
	LastSeen  time.Time `json:"last_seen"`
}

package models

import "encoding/json"

// 推送给仪表盘会话的帧类型
const (
	FrameTypeTelemetry = "telemetry"
	FrameTypeStatus    = "status"
	FrameTypeTrip      = "trip"
	FrameTypeControl   = "control"
)

// LiveFrame 仪表盘会话的推送帧
type LiveFrame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// StatusEvent 状态帧内容
type StatusEvent struct {
	VehicleID string `json:"vehicle_id"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"` // Unix 毫秒时间戳
}

// InboundFrame 仪表盘会话上行帧（目前只有 control）
type InboundFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ControlCommand 下发给车辆的控制命令（只是消息，不落库）
type ControlCommand struct {
	Command   string          `json:"command"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"` // Unix 毫秒时间戳
}

package models

// TelemetrySample 一条遥测记录（车辆上报的单次采样）
// 入库后不可变；字段与 MQTT 遥测报文一一对应，缺失的数值字段默认为 0
type TelemetrySample struct {
	ID            int64   `json:"id,omitempty"`
	VehicleID     string  `json:"vehicle_id"`
	Speed         float64 `json:"speed"`
	XPosition     float64 `json:"x"`
	YPosition     float64 `json:"y"`
	Heading       float64 `json:"heading"`
	DistanceFront float64 `json:"distFront"`
	DistanceLeft  float64 `json:"distLeft"`
	DistanceRight float64 `json:"distRight"`
	Timestamp     int64   `json:"timestamp"` // Unix 毫秒时间戳
}

// TelemetryStats 遥测聚合统计（按时间窗口）
type TelemetryStats struct {
	VehicleID   string  `json:"vehicle_id"`
	SampleCount int64   `json:"sample_count"`
	AvgSpeed    float64 `json:"avg_speed"`
	MaxSpeed    float64 `json:"max_speed"`
	WindowHours int     `json:"window_hours"`
}

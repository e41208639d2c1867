package relay

import (
	"context"
	"encoding/json"
	"time"

	"autodrive-bridge/internal/config"
	"autodrive-bridge/internal/metrics"
	"autodrive-bridge/internal/models"

	"go.uber.org/zap"
)

// TelemetryStore 遥测写入
type TelemetryStore interface {
	InsertSample(ctx context.Context, sample *models.TelemetrySample) error
}

// VehicleStore 车辆状态写入
type VehicleStore interface {
	UpsertStatus(ctx context.Context, vehicleID, status string, lastSeen time.Time) error
}

// LatestCache 最新遥测缓存写入
type LatestCache interface {
	SetLatest(ctx context.Context, sample *models.TelemetrySample) error
}

// Broadcaster 会话广播
type Broadcaster interface {
	Broadcast(payload []byte)
}

// Publisher 总线发布
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Message 一条总线消息
type Message struct {
	Topic   string
	Payload []byte
}

// Relay 遥测中继：逐条消费总线消息，入库、更新车辆状态、广播给会话
// 入库失败只记日志和计数，不阻断广播——存储降级时仪表盘必须保持可用
type Relay struct {
	vehicleID      string
	telemetryTopic string
	statusTopic    string
	controlTopic   string

	telemetry TelemetryStore
	vehicles  VehicleStore
	cache     LatestCache
	hub       Broadcaster
	bus       Publisher

	queue   chan Message
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewRelay 创建遥测中继
func NewRelay(
	cfg *config.Config,
	telemetry TelemetryStore,
	vehicles VehicleStore,
	cache LatestCache,
	hub Broadcaster,
	bus Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Relay {
	queueSize := cfg.Bridge.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Relay{
		vehicleID:      cfg.Bridge.VehicleID,
		telemetryTopic: cfg.Bridge.Topics.Telemetry,
		statusTopic:    cfg.Bridge.Topics.Status,
		controlTopic:   cfg.Bridge.Topics.Control,
		telemetry:      telemetry,
		vehicles:       vehicles,
		cache:          cache,
		hub:            hub,
		bus:            bus,
		queue:          make(chan Message, queueSize),
		metrics:        m,
		logger:         logger,
	}
}

// HandleBusMessage 总线回调入口：入队后立即返回，不在 paho 的网络协程里做处理
// 队列满时丢弃（尽力而为投递）
func (r *Relay) HandleBusMessage(topic string, payload []byte) error {
	select {
	case r.queue <- Message{Topic: topic, Payload: payload}:
	default:
		r.metrics.QueueDrops.Inc()
		r.logger.Warn("Relay queue full, dropping bus message", zap.String("topic", topic))
	}
	return nil
}

// Run 消费队列直到 ctx 取消
func (r *Relay) Run(ctx context.Context) {
	r.logger.Info("Telemetry relay started",
		zap.String("telemetry_topic", r.telemetryTopic),
		zap.String("status_topic", r.statusTopic),
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Telemetry relay stopped")
			return
		case msg := <-r.queue:
			r.process(ctx, msg)
		}
	}
}

func (r *Relay) process(ctx context.Context, msg Message) {
	switch msg.Topic {
	case r.telemetryTopic:
		r.handleTelemetry(ctx, msg.Payload)
	case r.statusTopic:
		r.handleStatus(ctx, msg.Payload)
	default:
		r.logger.Debug("Ignoring message on unexpected topic", zap.String("topic", msg.Topic))
	}
}

// handleTelemetry 处理遥测报文
// 缺失的数值字段默认为 0（刻意的宽松解析策略，不算错误）
func (r *Relay) handleTelemetry(ctx context.Context, payload []byte) {
	r.metrics.BusMessages.WithLabelValues("telemetry").Inc()

	var sample models.TelemetrySample
	if err := json.Unmarshal(payload, &sample); err != nil {
		r.metrics.ParseDrops.Inc()
		r.logger.Warn("Dropping malformed telemetry payload", zap.Error(err))
		return
	}

	now := time.Now()
	sample.ID = 0
	sample.VehicleID = r.vehicleID
	sample.Timestamp = now.UnixMilli()

	if err := r.telemetry.InsertSample(ctx, &sample); err != nil {
		r.metrics.StoreFailures.Inc()
		r.logger.Warn("Failed to persist telemetry sample, broadcasting anyway", zap.Error(err))
	}

	if err := r.vehicles.UpsertStatus(ctx, r.vehicleID, models.VehicleStatusOnline, now); err != nil {
		r.metrics.StoreFailures.Inc()
		r.logger.Warn("Failed to update vehicle status", zap.Error(err))
	}

	if err := r.cache.SetLatest(ctx, &sample); err != nil {
		r.logger.Warn("Failed to cache latest telemetry", zap.Error(err))
	}

	r.broadcastFrame(models.FrameTypeTelemetry, sample)
}

// handleStatus 处理状态报文（状态字符串原样接受）
func (r *Relay) handleStatus(ctx context.Context, payload []byte) {
	r.metrics.BusMessages.WithLabelValues("status").Inc()

	var event struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		r.metrics.ParseDrops.Inc()
		r.logger.Warn("Dropping malformed status payload", zap.Error(err))
		return
	}
	if event.Status == "" {
		r.metrics.ParseDrops.Inc()
		r.logger.Warn("Dropping status payload without status field")
		return
	}

	now := time.Now()
	if err := r.vehicles.UpsertStatus(ctx, r.vehicleID, event.Status, now); err != nil {
		r.metrics.StoreFailures.Inc()
		r.logger.Warn("Failed to update vehicle status", zap.Error(err))
	}

	r.broadcastFrame(models.FrameTypeStatus, models.StatusEvent{
		VehicleID: r.vehicleID,
		Status:    event.Status,
		Timestamp: now.UnixMilli(),
	})
}

// HandleControl 转发仪表盘下发的控制命令到控制主题
// 命令语义不做本地校验（由车辆自行校验）
func (r *Relay) HandleControl(payload json.RawMessage) {
	var cmd struct {
		Command string          `json:"command"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &cmd); err != nil {
		r.logger.Warn("Dropping malformed control payload", zap.Error(err))
		return
	}

	outbound, err := json.Marshal(models.ControlCommand{
		Command:   cmd.Command,
		Data:      cmd.Data,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		r.logger.Warn("Failed to marshal control command", zap.Error(err))
		return
	}

	if err := r.bus.Publish(r.controlTopic, outbound); err != nil {
		r.logger.Error("Failed to publish control command", zap.Error(err))
		return
	}

	r.metrics.CommandsPublished.Inc()
	r.logger.Info("Control command forwarded", zap.String("command", cmd.Command))
}

// BroadcastTrip 行程生命周期变更推送（开始/结束/取消时由行程服务调用）
func (r *Relay) BroadcastTrip(trip *models.Trip) {
	r.broadcastFrame(models.FrameTypeTrip, trip)
}

// BroadcastStatus 状态变更推送（运维接口手工改状态时调用）
func (r *Relay) BroadcastStatus(vehicleID, status string) {
	r.broadcastFrame(models.FrameTypeStatus, models.StatusEvent{
		VehicleID: vehicleID,
		Status:    status,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (r *Relay) broadcastFrame(frameType string, data any) {
	frame, err := json.Marshal(models.LiveFrame{Type: frameType, Data: data})
	if err != nil {
		r.logger.Error("Failed to marshal live frame", zap.Error(err))
		return
	}
	r.hub.Broadcast(frame)
}

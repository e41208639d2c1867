package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"autodrive-bridge/internal/cache"
	"autodrive-bridge/internal/models"
	"autodrive-bridge/internal/repository"
	"autodrive-bridge/internal/ws"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ControlForwarder 会话下发的控制帧转发
type ControlForwarder interface {
	HandleControl(payload json.RawMessage)
}

// LiveHandler 仪表盘实时会话接入
// 新会话注册后立即补发一帧最新遥测（缓存未命中回落数据库），
// 仪表盘不必等下一条总线消息才有画面
type LiveHandler struct {
	hub       *ws.Hub
	control   ControlForwarder
	cache     LatestCacheReader
	telemetry TelemetryReader
	vehicleID string
	logger    *zap.Logger
}

var liveUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 仪表盘与桥接服务不同源部署
	CheckOrigin: func(r *http.Request) bool { return true },
}

func NewLiveHandler(
	hub *ws.Hub,
	control ControlForwarder,
	latestCache LatestCacheReader,
	telemetry TelemetryReader,
	vehicleID string,
	logger *zap.Logger,
) *LiveHandler {
	return &LiveHandler{
		hub:       hub,
		control:   control,
		cache:     latestCache,
		telemetry: telemetry,
		vehicleID: vehicleID,
		logger:    logger,
	}
}

// GET /bridge/api/v1/live
func (h *LiveHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade live session", zap.Error(err))
		return
	}

	var onControl ws.InboundHandler
	if h.control != nil {
		onControl = h.control.HandleControl
	}

	session := ws.NewSession(h.hub, conn, onControl, h.logger)
	h.hub.Register(session)
	session.Start()

	if sample := h.latestSample(r.Context()); sample != nil {
		frame, err := json.Marshal(models.LiveFrame{Type: models.FrameTypeTelemetry, Data: sample})
		if err == nil {
			session.Send(frame)
		}
	}
}

// latestSample 取最新遥测用于接入补发；没有历史数据返回 nil
func (h *LiveHandler) latestSample(ctx context.Context) *models.TelemetrySample {
	if h.cache != nil {
		sample, err := h.cache.GetLatest(ctx, h.vehicleID)
		if err == nil {
			return sample
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			h.logger.Warn("Latest telemetry cache read failed on session join", zap.Error(err))
		}
	}

	if h.telemetry == nil {
		return nil
	}
	sample, err := h.telemetry.GetLatestSample(ctx, h.vehicleID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			h.logger.Warn("Failed to load latest telemetry on session join", zap.Error(err))
		}
		return nil
	}
	return sample
}

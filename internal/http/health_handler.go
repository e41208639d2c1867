package httpapi

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

// HealthHandler /healthz
// 任一依赖不可用时整体为 degraded（HTTP 仍是 200，桥接服务按可用性优先继续服务）
type HealthHandler struct {
	CheckDB      func(ctx context.Context) error
	CheckCache   func(ctx context.Context) error
	BusConnected func() bool

	logger *zap.Logger
}

func NewHealthHandler(
	checkDB func(ctx context.Context) error,
	checkCache func(ctx context.Context) error,
	busConnected func() bool,
	logger *zap.Logger,
) *HealthHandler {
	return &HealthHandler{
		CheckDB:      checkDB,
		CheckCache:   checkCache,
		BusConnected: busConnected,
		logger:       logger,
	}
}

type healthModel struct {
	Status   string `json:"status"` // "ok" 或 "degraded"
	Database string `json:"database"`
	Cache    string `json:"cache"`
	Bus      string `json:"bus"`
}

// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	health := healthModel{Status: "ok", Database: "up", Cache: "up", Bus: "up"}

	if h.CheckDB != nil {
		if err := h.CheckDB(ctx); err != nil {
			health.Database = "down"
			health.Status = "degraded"
		}
	}
	if h.CheckCache != nil {
		if err := h.CheckCache(ctx); err != nil {
			health.Cache = "down"
			health.Status = "degraded"
		}
	}
	if h.BusConnected != nil && !h.BusConnected() {
		health.Bus = "down"
		health.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, health)
}

package ws

import (
	"context"
	"sync"
	"time"

	"autodrive-bridge/internal/metrics"

	"go.uber.org/zap"
)

// Hub 在线会话注册表
// 广播时先在读锁下拍快照再发送，注册/注销/扫描与广播并发互不破坏迭代
type Hub struct {
	logger  *zap.Logger
	metrics *metrics.Metrics

	sweepInterval time.Duration
	maxMisses     int

	mu       sync.RWMutex
	sessions map[*Session]struct{}
}

// NewHub 创建会话注册表
// maxMisses: 连续未响应多少次探测后剔除
func NewHub(sweepInterval time.Duration, maxMisses int, m *metrics.Metrics, logger *zap.Logger) *Hub {
	if sweepInterval <= 0 {
		sweepInterval = 30 * time.Second
	}
	if maxMisses <= 0 {
		maxMisses = 2
	}
	return &Hub{
		logger:        logger,
		metrics:       m,
		sweepInterval: sweepInterval,
		maxMisses:     maxMisses,
		sessions:      make(map[*Session]struct{}),
	}
}

// Register 注册会话
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	count := len(h.sessions)
	h.mu.Unlock()

	h.metrics.SessionsConnected.Set(float64(count))
	h.logger.Info("Live session registered", zap.Int("sessions", count))
}

// Unregister 注销会话（幂等）
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	_, ok := h.sessions[s]
	if ok {
		delete(h.sessions, s)
	}
	count := len(h.sessions)
	h.mu.Unlock()

	if ok {
		h.metrics.SessionsConnected.Set(float64(count))
		h.logger.Info("Live session unregistered", zap.Int("sessions", count))
	}
}

// Count 当前在线会话数
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Broadcast 向所有在线会话广播一帧
// 已关闭的会话跳过；发送缓冲满的会话视为跟不上，直接剔除
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	snapshot := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		snapshot = append(snapshot, s)
	}
	h.mu.RUnlock()

	for _, s := range snapshot {
		if s.Closed() {
			continue
		}
		if !s.Send(payload) {
			h.logger.Warn("Dropping slow live session")
			h.Unregister(s)
			s.Close()
			continue
		}
		h.metrics.BroadcastFrames.Inc()
	}
}

// Run 周期性存活扫描，直到 ctx 取消
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.Sweep()
		}
	}
}

// Sweep 执行一轮存活扫描：
// 上一轮发出的探测仍未得到 pong 的会话累计一次 miss，
// 超过阈值的会话强制关闭并移除；幸存者收到新一轮探测
func (h *Hub) Sweep() {
	h.mu.RLock()
	snapshot := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		snapshot = append(snapshot, s)
	}
	h.mu.RUnlock()

	for _, s := range snapshot {
		if s.Closed() {
			h.Unregister(s)
			continue
		}

		misses := s.misses.Add(1)
		if int(misses) > h.maxMisses {
			h.logger.Info("Evicting unresponsive live session",
				zap.Int32("missed_probes", misses-1),
			)
			h.metrics.SessionsEvicted.Inc()
			h.Unregister(s)
			s.Close()
			continue
		}

		if err := s.ping(); err != nil {
			h.Unregister(s)
			s.Close()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	snapshot := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		snapshot = append(snapshot, s)
	}
	h.sessions = make(map[*Session]struct{})
	h.mu.Unlock()

	for _, s := range snapshot {
		s.Close()
	}
	h.metrics.SessionsConnected.Set(0)
}

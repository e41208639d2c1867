package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"autodrive-bridge/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
	sendBufferSize = 32
)

// InboundHandler 会话上行帧回调（目前只有 control 帧）
type InboundHandler func(payload json.RawMessage)

// Session 一个已连接的仪表盘会话
// 存活标记由 pong 回调清零、由存活扫描累加；不落库
type Session struct {
	hub    *Hub
	conn   *websocket.Conn
	logger *zap.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// 连续未响应探测的次数（pong 清零）
	misses atomic.Int32

	onControl InboundHandler
}

// NewSession 创建会话
func NewSession(hub *Hub, conn *websocket.Conn, onControl InboundHandler, logger *zap.Logger) *Session {
	return &Session{
		hub:       hub,
		conn:      conn,
		logger:    logger,
		send:      make(chan []byte, sendBufferSize),
		done:      make(chan struct{}),
		onControl: onControl,
	}
}

// Start 启动读写泵
func (s *Session) Start() {
	go s.writePump()
	go s.readPump()
}

// Send 尝试投递一帧；缓冲满时返回 false（由调用方决定剔除）
func (s *Session) Send(payload []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

// Close 关闭会话（幂等）
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// Closed 会话是否已关闭
func (s *Session) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// ping 发送存活探测（与 writePump 并发安全，WriteControl 允许并发调用）
func (s *Session) ping() error {
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (s *Session) readPump() {
	defer func() {
		s.hub.Unregister(s)
		s.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetPongHandler(func(string) error {
		s.misses.Store(0)
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("Session read error", zap.Error(err))
			}
			return
		}

		var frame models.InboundFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			// 非法上行帧直接丢弃，不影响会话
			s.logger.Warn("Dropping malformed session frame", zap.Error(err))
			continue
		}

		if frame.Type == models.FrameTypeControl && s.onControl != nil {
			s.onControl(frame.Payload)
		}
	}
}

func (s *Session) writePump() {
	defer s.Close()

	for {
		select {
		case <-s.done:
			return
		case message := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.hub.Unregister(s)
				return
			}
		}
	}
}

package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"autodrive-bridge/internal/metrics"
	"autodrive-bridge/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newTestHub 启动一个注册所有连接的测试服务器
func newTestHub(t *testing.T, onControl InboundHandler) (*Hub, string) {
	hub := NewHub(30*time.Second, 2, metrics.New(), zap.NewNop())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		session := NewSession(hub, conn, onControl, zap.NewNop())
		hub.Register(session)
		session.Start()
	}))
	t.Cleanup(server.Close)

	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dialTestHub(t *testing.T, url string) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSessions(t *testing.T, hub *Hub, want int) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Count() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, want, hub.Count())
}

func TestHub_BroadcastDeliversToOpenSession(t *testing.T) {
	hub, url := newTestHub(t, nil)
	conn := dialTestHub(t, url)
	waitForSessions(t, hub, 1)

	frame, err := json.Marshal(models.LiveFrame{
		Type: models.FrameTypeTelemetry,
		Data: models.TelemetrySample{VehicleID: "1", Speed: 5},
	})
	require.NoError(t, err)

	hub.Broadcast(frame)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var got models.LiveFrame
	require.NoError(t, json.Unmarshal(message, &got))
	assert.Equal(t, models.FrameTypeTelemetry, got.Type)
}

func TestHub_BroadcastSkipsClosedSession(t *testing.T) {
	hub, url := newTestHub(t, nil)

	open := dialTestHub(t, url)
	closed := dialTestHub(t, url)
	waitForSessions(t, hub, 2)

	// 客户端直接断开（模拟静默死亡之外的正常关闭路径）
	closed.Close()
	waitForSessions(t, hub, 1)

	frame, _ := json.Marshal(models.LiveFrame{Type: models.FrameTypeStatus, Data: models.StatusEvent{Status: "online"}})
	hub.Broadcast(frame)

	open.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := open.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(message), "online")

	// 扫描后注册表里不应残留已关闭会话
	hub.Sweep()
	assert.Equal(t, 1, hub.Count())
}

func TestHub_EvictsSessionAfterTwoMissedProbes(t *testing.T) {
	hub, url := newTestHub(t, nil)
	conn := dialTestHub(t, url)
	waitForSessions(t, hub, 1)

	// 吞掉 ping，不回 pong（模拟静默死亡的连接）
	conn.SetPingHandler(func(string) error { return nil })
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	hub.Sweep() // 探测 1，未响应
	hub.Sweep() // 探测 2，未响应
	assert.Equal(t, 1, hub.Count())

	hub.Sweep() // 连续两次未响应，剔除
	waitForSessions(t, hub, 0)
}

func TestHub_PongKeepsSessionAlive(t *testing.T) {
	hub, url := newTestHub(t, nil)
	conn := dialTestHub(t, url)
	waitForSessions(t, hub, 1)

	// 默认 ping handler 会自动回 pong，只要读循环在跑
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for i := 0; i < 4; i++ {
		hub.Sweep()
		time.Sleep(100 * time.Millisecond) // 等 pong 回来清零计数
	}

	assert.Equal(t, 1, hub.Count())
}

func TestSession_ControlFrameInvokesHandler(t *testing.T) {
	received := make(chan json.RawMessage, 1)
	hub, url := newTestHub(t, func(payload json.RawMessage) {
		received <- payload
	})

	conn := dialTestHub(t, url)
	waitForSessions(t, hub, 1)

	err := conn.WriteJSON(map[string]any{
		"type":    "control",
		"payload": map[string]any{"command": "stop"},
	})
	require.NoError(t, err)

	select {
	case payload := <-received:
		assert.Contains(t, string(payload), "stop")
	case <-time.After(2 * time.Second):
		t.Fatal("control frame was not delivered")
	}
}

func TestSession_MalformedFrameDoesNotKillSession(t *testing.T) {
	hub, url := newTestHub(t, nil)
	conn := dialTestHub(t, url)
	waitForSessions(t, hub, 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 1, hub.Count())

	// 会话仍然能收到广播
	frame, _ := json.Marshal(models.LiveFrame{Type: models.FrameTypeStatus, Data: models.StatusEvent{Status: "ok"}})
	hub.Broadcast(frame)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(message), "ok")
}

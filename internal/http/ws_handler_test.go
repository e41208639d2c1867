package httpapi

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"autodrive-bridge/internal/metrics"
	"autodrive-bridge/internal/models"
	"autodrive-bridge/internal/ws"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeControlForwarder struct {
	received chan json.RawMessage
}

func (f *fakeControlForwarder) HandleControl(payload json.RawMessage) {
	f.received <- payload
}

func newLiveServer(t *testing.T, latestCache *fakeLatestCache, reader *fakeTelemetryReader, control *fakeControlForwarder) (string, *ws.Hub) {
	t.Helper()

	hub := ws.NewHub(30*time.Second, 2, metrics.New(), zap.NewNop())
	handler := NewLiveHandler(hub, control, latestCache, reader, "1", zap.NewNop())

	router := NewRouter(zap.NewNop())
	router.RegisterLiveRoutes(handler)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http") + "/bridge/api/v1/live", hub
}

func TestLiveRoute_SendsInitialTelemetryFromCache(t *testing.T) {
	latestCache := &fakeLatestCache{latest: &models.TelemetrySample{VehicleID: "1", Speed: 7}}
	url, _ := newLiveServer(t, latestCache, &fakeTelemetryReader{}, nil)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame models.LiveFrame
	require.NoError(t, json.Unmarshal(message, &frame))
	assert.Equal(t, models.FrameTypeTelemetry, frame.Type)
	assert.Contains(t, string(message), `"speed":7`)
}

func TestLiveRoute_NoInitialFrameWithoutHistory(t *testing.T) {
	url, hub := newLiveServer(t, &fakeLatestCache{}, &fakeTelemetryReader{}, nil)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// 没有历史遥测：不补发，会话照常注册
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Count() == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 1, hub.Count())

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err) // 超时，说明没有补发帧
}

func TestLiveRoute_ControlFrameForwarded(t *testing.T) {
	control := &fakeControlForwarder{received: make(chan json.RawMessage, 1)}
	url, _ := newLiveServer(t, &fakeLatestCache{}, &fakeTelemetryReader{}, control)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    "control",
		"payload": map[string]any{"command": "set_speed", "data": map[string]any{"value": 5}},
	}))

	select {
	case payload := <-control.received:
		assert.Contains(t, string(payload), "set_speed")
	case <-time.After(2 * time.Second):
		t.Fatal("control frame was not forwarded")
	}
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 桥接服务指标
// 遥测路径的入库失败是吞掉不上抛的，必须在这里可观测
type Metrics struct {
	registry *prometheus.Registry

	BusMessages       *prometheus.CounterVec // 收到的总线消息数（按类型）
	ParseDrops        prometheus.Counter     // 因解析失败丢弃的消息数
	StoreFailures     prometheus.Counter     // 被吞掉的入库失败数
	BroadcastFrames   prometheus.Counter     // 推送给会话的帧数
	QueueDrops        prometheus.Counter     // 队列满丢弃的消息数
	CommandsPublished prometheus.Counter     // 转发到控制主题的命令数
	SessionsConnected prometheus.Gauge       // 当前在线会话数
	SessionsEvicted   prometheus.Counter     // 存活扫描剔除的会话数
}

// New 创建指标集（独立 registry，便于测试隔离）
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		BusMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_bus_messages_total",
			Help: "Total inbound bus messages by kind.",
		}, []string{"kind"}),
		ParseDrops: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_parse_drops_total",
			Help: "Inbound messages dropped because the payload could not be parsed.",
		}),
		StoreFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_store_failures_total",
			Help: "Persistence failures swallowed on the telemetry path.",
		}),
		BroadcastFrames: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_broadcast_frames_total",
			Help: "Frames broadcast to live sessions.",
		}),
		QueueDrops: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_queue_drops_total",
			Help: "Bus messages dropped because the relay queue was full.",
		}),
		CommandsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_commands_published_total",
			Help: "Control commands republished to the bus.",
		}),
		SessionsConnected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_sessions_connected",
			Help: "Currently connected live sessions.",
		}),
		SessionsEvicted: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_sessions_evicted_total",
			Help: "Sessions evicted by the liveness sweep.",
		}),
	}
}

// Handler /metrics 的 HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

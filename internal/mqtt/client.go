package mqtt

import (
	"fmt"
	"sync"

	"autodrive-bridge/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MessageHandler 消息处理函数类型
type MessageHandler func(topic string, payload []byte) error

// Client MQTT客户端封装
// 连接失败和掉线都按固定间隔无限重试，绝不让进程退出；
// 重连成功后自动恢复全部订阅
type Client struct {
	client mqtt.Client
	config *config.MQTTConfig
	logger *zap.Logger

	mu       sync.Mutex
	handlers map[string]MessageHandler
}

// NewClient 创建MQTT客户端（不等待连接完成，后台重试）
func NewClient(cfg *config.MQTTConfig, logger *zap.Logger) *Client {
	c := &Client{
		config:   cfg,
		logger:   logger,
		handlers: make(map[string]MessageHandler),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	// 固定重试间隔（不做指数退避）
	opts.SetConnectRetryInterval(cfg.RetryInterval)
	opts.SetMaxReconnectInterval(cfg.RetryInterval)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.logger.Info("MQTT connected", zap.String("broker", cfg.Broker))
		c.resubscribe()
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.logger.Warn("MQTT connection lost, reconnecting",
			zap.String("broker", cfg.Broker),
			zap.Error(err),
		)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// Connect 发起连接（失败只记日志，paho 会持续重试）
func (c *Client) Connect() {
	token := c.client.Connect()
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			c.logger.Error("MQTT connect failed", zap.Error(err))
		}
	}()
}

// Handle 注册主题处理函数（连接建立后自动订阅）
func (c *Client) Handle(topic string, handler MessageHandler) {
	c.mu.Lock()
	c.handlers[topic] = handler
	c.mu.Unlock()

	if c.client.IsConnected() {
		c.subscribe(topic, handler)
	}
}

// resubscribe 恢复全部订阅（OnConnect 时调用）
func (c *Client) resubscribe() {
	c.mu.Lock()
	handlers := make(map[string]MessageHandler, len(c.handlers))
	for topic, handler := range c.handlers {
		handlers[topic] = handler
	}
	c.mu.Unlock()

	for topic, handler := range handlers {
		c.subscribe(topic, handler)
	}
}

func (c *Client) subscribe(topic string, handler MessageHandler) {
	token := c.client.Subscribe(topic, c.config.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			// 记录错误，但不中断后续消息处理
			c.logger.Error("Error handling MQTT message",
				zap.String("topic", msg.Topic()),
				zap.Error(err),
			)
		}
	})
	if token.Wait() && token.Error() != nil {
		c.logger.Error("Failed to subscribe to topic",
			zap.String("topic", topic),
			zap.Error(token.Error()),
		)
	}
}

// Publish 发布消息
func (c *Client) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, c.config.QoS, false, payload)
	token.Wait()

	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}

	return nil
}

// Disconnect 断开连接
func (c *Client) Disconnect() {
	c.client.Disconnect(250) // 250ms等待时间
}

// IsConnected 检查连接状态
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker        string
	ClientID      string
	Username      string
	Password      string
	QoS           byte
	RetryInterval time.Duration // 连接/重连的固定重试间隔
}

// Config 桥接服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	// 桥接服务特定配置
	Bridge struct {
		VehicleID string // 本部署绑定的车辆ID
		Topics    struct {
			Telemetry string // 遥测主题，如 "autodrive/telemetry/1"
			Status    string // 状态主题，如 "autodrive/status/1"
			Control   string // 控制主题，如 "autodrive/control/1"
		}
		QueueSize     int           // 总线消息缓冲队列长度
		SweepInterval time.Duration // 会话存活扫描间隔
		MaxPingMisses int           // 连续未响应多少次探测后剔除会话
		CacheTTL      time.Duration // 最新遥测缓存TTL
		CachePrefix   string        // 缓存键前缀
	}

	HTTP struct {
		Addr string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置（环境变量，带默认值）
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "autodrive")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "autodrive-bridge")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))
	cfg.MQTT.RetryInterval = getEnvDuration("MQTT_RETRY_INTERVAL", 5*time.Second)

	cfg.Bridge.VehicleID = getEnv("BRIDGE_VEHICLE_ID", "1")
	cfg.Bridge.Topics.Telemetry = getEnv("BRIDGE_TOPIC_TELEMETRY", "autodrive/telemetry/"+cfg.Bridge.VehicleID)
	cfg.Bridge.Topics.Status = getEnv("BRIDGE_TOPIC_STATUS", "autodrive/status/"+cfg.Bridge.VehicleID)
	cfg.Bridge.Topics.Control = getEnv("BRIDGE_TOPIC_CONTROL", "autodrive/control/"+cfg.Bridge.VehicleID)
	cfg.Bridge.QueueSize = getEnvInt("BRIDGE_QUEUE_SIZE", 256)
	cfg.Bridge.SweepInterval = getEnvDuration("BRIDGE_SWEEP_INTERVAL", 30*time.Second)
	cfg.Bridge.MaxPingMisses = getEnvInt("BRIDGE_MAX_PING_MISSES", 2)
	cfg.Bridge.CacheTTL = getEnvDuration("BRIDGE_CACHE_TTL", 10*time.Minute)
	cfg.Bridge.CachePrefix = getEnv("BRIDGE_CACHE_PREFIX", "autodrive:telemetry:latest:")

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

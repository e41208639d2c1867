package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"autodrive-bridge/internal/config"
	"autodrive-bridge/internal/models"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

// NewRedisClient 创建Redis客户端
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping 测试Redis连接
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// TelemetryCache 最新遥测缓存
// 每辆车保存最近一条遥测采样，供会话接入和 latest 查询走快路径
type TelemetryCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewTelemetryCache 创建遥测缓存
func NewTelemetryCache(client *redis.Client, keyPrefix string, ttl time.Duration) *TelemetryCache {
	return &TelemetryCache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

func (c *TelemetryCache) key(vehicleID string) string {
	return c.keyPrefix + vehicleID
}

// SetLatest 写入最新遥测（带 TTL）
func (c *TelemetryCache) SetLatest(ctx context.Context, sample *models.TelemetrySample) error {
	jsonData, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to marshal telemetry sample: %w", err)
	}

	if err := c.client.Set(ctx, c.key(sample.VehicleID), jsonData, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set latest telemetry: %w", err)
	}

	return nil
}

// GetLatest 读取最新遥测；未命中返回 ErrCacheMiss
func (c *TelemetryCache) GetLatest(ctx context.Context, vehicleID string) (*models.TelemetrySample, error) {
	val, err := c.client.Get(ctx, c.key(vehicleID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get latest telemetry: %w", err)
	}

	var sample models.TelemetrySample
	if err := json.Unmarshal([]byte(val), &sample); err != nil {
		return nil, fmt.Errorf("failed to unmarshal telemetry sample: %w", err)
	}

	return &sample, nil
}

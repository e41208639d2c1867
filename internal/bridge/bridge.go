package bridge

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"autodrive-bridge/internal/cache"
	"autodrive-bridge/internal/config"
	"autodrive-bridge/internal/database"
	httpapi "autodrive-bridge/internal/http"
	"autodrive-bridge/internal/metrics"
	"autodrive-bridge/internal/mqtt"
	"autodrive-bridge/internal/relay"
	"autodrive-bridge/internal/repository"
	"autodrive-bridge/internal/service"
	"autodrive-bridge/internal/ws"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// BridgeService 桥接服务：组装全部组件并管理生命周期
type BridgeService struct {
	config *config.Config
	logger *zap.Logger

	db         *sql.DB
	redis      *redis.Client
	mqttClient *mqtt.Client

	hub        *ws.Hub
	relay      *relay.Relay
	httpServer *http.Server

	cancel context.CancelFunc
}

// NewBridgeService 创建桥接服务
func NewBridgeService(cfg *config.Config, logger *zap.Logger) (*BridgeService, error) {
	// 初始化数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 初始化Redis
	redisClient := cache.NewRedisClient(&cfg.Redis)
	if err := cache.Ping(context.Background(), redisClient); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	// 初始化MQTT（不等连接，后台重试）
	mqttClient := mqtt.NewClient(&cfg.MQTT, logger)

	m := metrics.New()

	// Repository
	telemetryRepo := repository.NewTelemetryRepository(db, logger)
	vehicleRepo := repository.NewVehicleRepository(db, logger)
	tripRepo := repository.NewTripRepository(db, logger)
	waypointRepo := repository.NewWaypointRepository(db, logger)

	telemetryCache := cache.NewTelemetryCache(redisClient, cfg.Bridge.CachePrefix, cfg.Bridge.CacheTTL)

	// 会话注册表与遥测中继
	hub := ws.NewHub(cfg.Bridge.SweepInterval, cfg.Bridge.MaxPingMisses, m, logger)
	telemetryRelay := relay.NewRelay(cfg, telemetryRepo, vehicleRepo, telemetryCache, hub, mqttClient, m, logger)

	// 行程协调器（生命周期变更经由中继推送）
	tripService := service.NewTripService(tripRepo, waypointRepo, telemetryRelay, logger)

	// HTTP 路由
	router := httpapi.NewRouter(logger)
	router.RegisterTripRoutes(httpapi.NewTripHandler(tripService, tripRepo, cfg.Bridge.VehicleID, logger))
	router.RegisterTelemetryRoutes(httpapi.NewTelemetryHandler(telemetryRepo, telemetryCache, cfg.Bridge.VehicleID, logger))
	router.RegisterVehicleRoutes(httpapi.NewVehicleHandler(vehicleRepo, telemetryRelay, logger))
	router.RegisterWaypointRoutes(httpapi.NewWaypointHandler(waypointRepo, logger))
	router.RegisterLiveRoutes(httpapi.NewLiveHandler(hub, telemetryRelay, telemetryCache, telemetryRepo, cfg.Bridge.VehicleID, logger))
	router.RegisterHealthRoutes(httpapi.NewHealthHandler(
		db.PingContext,
		func(ctx context.Context) error { return cache.Ping(ctx, redisClient) },
		mqttClient.IsConnected,
		logger,
	))
	router.HandleHandler("/metrics", m.Handler())

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // WebSocket 长连接共用此 server，不能设写超时
	}

	return &BridgeService{
		config:     cfg,
		logger:     logger,
		db:         db,
		redis:      redisClient,
		mqttClient: mqttClient,
		hub:        hub,
		relay:      telemetryRelay,
		httpServer: httpServer,
	}, nil
}

// Start 启动服务
func (s *BridgeService) Start(ctx context.Context) error {
	s.logger.Info("Starting bridge service components")

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.hub.Run(runCtx)
	go s.relay.Run(runCtx)

	// 订阅总线主题（掉线重连后自动恢复）
	s.mqttClient.Handle(s.config.Bridge.Topics.Telemetry, s.relay.HandleBusMessage)
	s.mqttClient.Handle(s.config.Bridge.Topics.Status, s.relay.HandleBusMessage)
	s.mqttClient.Connect()

	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.config.HTTP.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	s.logger.Info("Bridge service started successfully")
	return nil
}

// Stop 停止服务
func (s *BridgeService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping bridge service")

	// 停止HTTP服务（等在途请求完成）
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("Error shutting down HTTP server", zap.Error(err))
		}
	}

	// 停止中继和会话扫描
	if s.cancel != nil {
		s.cancel()
	}

	// 断开MQTT
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}

	// 关闭Redis
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Error closing redis client", zap.Error(err))
		}
	}

	// 关闭数据库
	if s.db != nil {
		if err := database.Close(s.db); err != nil {
			s.logger.Error("Error closing database", zap.Error(err))
		}
	}

	s.logger.Info("Bridge service stopped")
	return nil
}

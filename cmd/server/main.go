package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/storefront/internal/adapter/handler"
	"github.com/rl1809/storefront/internal/adapter/queue"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/config"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/platform/metrics"
	"github.com/rl1809/storefront/internal/platform/observability"
)

const (
	taskDeliveryTimeout = 10 * time.Second
	shutdownTimeout     = 10 * time.Second
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	// Initialize telemetry
	tp, shutdownTelemetry, err := observability.Setup(ctx, cfg)
	if err != nil {
		zap.NewExample().Fatal("failed to set up telemetry", zap.Error(err))
	}
	logger := observability.NewLogger(cfg.OtelEndpoint != "").With(zap.String("service_id", cfg.ServiceID))
	defer logger.Sync()

	metrics.Register()

	// Initialize MySQL
	db, err := sqlx.ConnectContext(ctx, "mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("failed to connect mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	mysqlAdapter := storage.NewMySQLAdapter(db)
	if err := mysqlAdapter.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to migrate mysql", zap.Error(err))
	}
	logger.Info("connected to mysql")

	// Initialize Postgres
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatal("failed to create postgres pool", zap.Error(err))
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("failed to ping postgres", zap.Error(err))
	}

	eventLog := storage.NewPostgresEventLog(pool)
	if err := eventLog.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to migrate postgres", zap.Error(err))
	}
	logger.Info("connected to postgres")

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	redisAdapter := storage.NewRedisAdapter(rdb)
	logger.Info("connected to redis")

	// Initialize task queue
	taskQueue, err := queue.NewKafkaTaskQueue(cfg.KafkaBrokers, cfg.TaskQueueName, tp)
	if err != nil {
		logger.Fatal("failed to create task queue", zap.Error(err))
	}

	// Initialize services
	emitter := service.NewEventEmitter(taskQueue, cfg.EmitterQueueSize, logger)
	emitter.Start(cfg.EmitterWorkers)

	inventoryService := service.NewInventoryService(mysqlAdapter)
	consumptionService := service.NewConsumptionService(mysqlAdapter, emitter, logger)
	authService := service.NewAuthService(mysqlAdapter, redisAdapter, cfg.JWTSecret, cfg.TokenTTL)
	eventLogService := service.NewEventLogService(eventLog, logger)
	analyticsService := service.NewAnalyticsService(redisAdapter, eventLog, service.AnalyticsConfig{
		EventsTTL:    cfg.EventsCacheTTL,
		AnalyticsTTL: cfg.AnalyticsCacheTTL,
		RecentLimit:  cfg.RecentEventsLimit,
		Window:       cfg.AnalyticsWindow,
	}, logger)

	// Start task consumers
	dispatcher := service.NewTaskDispatcher(
		queue.NewHTTPTaskDeliverer(cfg.TaskEndpointURL, cfg.TaskQueueName, cfg.TaskToken, taskDeliveryTimeout),
		logger,
	)

	consumerCtx, stopConsumers := context.WithCancel(ctx)
	var consumers []*queue.KafkaTaskConsumer
	var wg sync.WaitGroup
	for i := 0; i < cfg.TaskConsumers; i++ {
		consumer := queue.NewKafkaTaskConsumer(cfg.KafkaBrokers, cfg.TaskQueueName, cfg.TaskGroupID, logger.With(zap.Int("consumer", i)))
		consumers = append(consumers, consumer)

		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := consumer.Run(consumerCtx, dispatcher.Dispatch); err != nil {
				logger.Error("task consumer stopped", zap.Int("consumer", id), zap.Error(err))
			}
		}(i)
	}
	logger.Info("started task consumers", zap.Int("count", cfg.TaskConsumers))

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterInventoryServer(grpcServer, handler.NewGRPCHandler(inventoryService, consumptionService, authService))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(config.ServiceName, healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}

	go func() {
		logger.Info("gRPC server listening", zap.String("port", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(handler.Services{
		Inventory:   inventoryService,
		Consumption: consumptionService,
		Analytics:   analyticsService,
		Events:      eventLogService,
		Auth:        authService,
	}, cfg.TaskToken, cfg.AdminSignupToken, logger)

	router := handler.NewRouter(httpHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("port", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Stop HTTP server
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	// Stop gRPC server
	healthServer.Shutdown()
	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	// Flush pending events, then stop consumers
	emitter.Close()
	if err := taskQueue.Close(); err != nil {
		logger.Error("failed to close task queue", zap.Error(err))
	}
	stopConsumers()
	wg.Wait()
	for _, consumer := range consumers {
		if err := consumer.Close(); err != nil {
			logger.Error("failed to close task consumer", zap.Error(err))
		}
	}
	logger.Info("workers stopped")

	// Close connections
	rdb.Close()
	pool.Close()
	db.Close()
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown failed", zap.Error(err))
	}
	logger.Info("connections closed")
}

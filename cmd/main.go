package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mansoorceksport/mentorlink/internal/config"
	"github.com/mansoorceksport/mentorlink/internal/domain"
	"github.com/mansoorceksport/mentorlink/internal/logger"
	"github.com/mansoorceksport/mentorlink/internal/middleware"
	"github.com/mansoorceksport/mentorlink/internal/queue"
	"github.com/mansoorceksport/mentorlink/internal/repository"
	"github.com/mansoorceksport/mentorlink/internal/server"
	"github.com/mansoorceksport/mentorlink/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	log := logger.New(cfg.Env)
	defer log.Sync()

	if err := cfg.ValidateAPI(); err != nil {
		log.Fatal("invalid API configuration", zap.Error(err))
	}

	log.Info("Starting mentorlink API", zap.String("env", cfg.Env), zap.String("store", cfg.Store.Driver))
	ctx := context.Background()

	// Initialize OpenTelemetry
	otelProvider, err := telemetry.Initialize(ctx, telemetry.FromAppConfig(cfg), log)
	if err != nil {
		log.Warn("Failed to initialize OpenTelemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelProvider.Shutdown(shutdownCtx)
	}()

	// Initialize Firebase
	authClient, err := middleware.NewFirebaseAuth(ctx, cfg.Firebase)
	if err != nil {
		log.Fatal("Failed to initialize Firebase", zap.Error(err))
	}
	log.Info("✓ Firebase initialized")

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	log.Info("✓ Redis connected")

	// Profile Store and Booking Repository
	store, err := repository.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			log.Error("Error closing store", zap.Error(err))
		}
	}()
	store.WithCache(repository.NewRedisCache(redisClient), cfg.Cache, log)

	blobs, err := repository.NewS3BlobStore(ctx, cfg.S3)
	if err != nil {
		log.Fatal("Failed to initialize blob store", zap.Error(err))
	}
	log.Info("✓ Blob store ready", zap.String("bucket", cfg.S3.Bucket))

	var publisher domain.EventPublisher
	if cfg.RabbitMQ.Enabled {
		p, err := queue.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, log)
		if err != nil {
			// events are best effort: the API runs without them
			log.Error("Failed to connect to RabbitMQ, events disabled", zap.Error(err))
		} else {
			defer p.Close()
			publisher = p
			log.Info("✓ RabbitMQ connected", zap.String("queue", cfg.RabbitMQ.Queue))
		}
	}

	app := server.NewApp(server.AppDependencies{
		Config:      cfg,
		Store:       store,
		RedisClient: redisClient,
		AuthClient:  authClient,
		Blobs:       blobs,
		Publisher:   publisher,
		Metrics:     telemetry.NewWorkflowMetrics(),
		Logger:      log,
	})

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Info("Shutting down gracefully...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("Shutdown error", zap.Error(err))
		}
	}()

	log.Info("🚀 Server starting", zap.String("port", cfg.Server.Port))
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}

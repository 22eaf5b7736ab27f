package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"realtime-service/internal/bus"
	"realtime-service/internal/config"
	"realtime-service/internal/database"
	"realtime-service/internal/job"
	"realtime-service/internal/metrics"
	"realtime-service/internal/repository"
	"realtime-service/internal/router"
	"realtime-service/internal/service"
	"realtime-service/internal/ws"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("🔧 Starting Relay",
		zap.Int("port", cfg.Server.Port),
		zap.String("base_path", cfg.Server.BasePath),
		zap.String("env", cfg.Server.Env))

	db := connectDatabase(cfg, logger)
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	logger.Info("✅ Database connected and migrated")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	redisBus, err := bus.NewRedisBus(ctx, cfg.Redis)
	cancel()
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	logger.Info("✅ Redis connected")

	m := metrics.New()
	hub := ws.NewHub(logger, m)

	commentRepo := repository.NewCommentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notificationService := service.NewNotificationService(notificationRepo, redisBus, redisBus.Client(), logger)

	relay := service.NewRelayService(redisBus, commentRepo, hub, cfg.Relay.HistoryLimit, logger, m)
	if err := relay.Start(context.Background()); err != nil {
		logger.Fatal("Failed to start relay consumers", zap.Error(err))
	}

	scheduler := cron.New()
	cleanupJob := job.NewCleanupJob(notificationService, cfg.Relay.CleanupDays, logger)
	if _, err := scheduler.AddJob(cfg.Relay.CleanupSchedule, cleanupJob); err != nil {
		logger.Warn("Failed to schedule cleanup job", zap.Error(err))
	} else {
		scheduler.Start()
	}

	r := router.SetupRelay(cfg, db, redisBus.Client(), hub, notificationService, logger, m)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("🚀 Relay started", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down relay")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	scheduler.Stop()
	relay.Shutdown()
	if err := redisBus.Close(); err != nil {
		logger.Error("Bus close error", zap.Error(err))
	}
	logger.Info("Relay stopped")
}

// connectDatabase retries a few times so the relay survives a database
// that comes up after the pod does.
func connectDatabase(cfg *config.Config, logger *zap.Logger) *gorm.DB {
	var db *gorm.DB
	var err error
	for attempt := 1; attempt <= 5; attempt++ {
		db, err = database.New(cfg.Database, cfg.Server.Env)
		if err == nil {
			return db
		}
		logger.Warn("⚠️  Failed to connect to database, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err))
		time.Sleep(5 * time.Second)
	}
	logger.Fatal("Failed to connect to database", zap.Error(err))
	return nil
}

func initLogger(level string) (*zap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zapLevel)
	return zapCfg.Build()
}

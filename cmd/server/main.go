// Package main runs the live event platform HTTP server with WebSocket fan-out
// and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eventstage/backend/config"
	"github.com/eventstage/backend/internal/analytics"
	"github.com/eventstage/backend/internal/events"
	"github.com/eventstage/backend/internal/middleware"
	"github.com/eventstage/backend/internal/questions"
	"github.com/eventstage/backend/internal/realtime"
	"github.com/eventstage/backend/internal/sessions"
	"github.com/eventstage/backend/internal/viewerlog"
	"github.com/eventstage/backend/pkg/database"
	"github.com/eventstage/backend/pkg/redis"
	"github.com/eventstage/backend/pkg/response"
	"github.com/eventstage/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// Redis is optional: without it the broadcast stays instance-local.
	var redisPub realtime.RedisPublisher
	var redisSub realtime.RedisSubscriber
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("redis disabled, broadcast is local only", zap.Error(err))
		} else {
			defer rdb.Close()
			pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
			redisPub, redisSub = pubsub, pubsub
		}
	}

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			CoversBucket:         cfg.AWS.CoversBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	// Events
	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo, s3Client, logger)

	// Sessions
	sessionRepo := sessions.NewRepository(pool)
	sessionHandler := sessions.NewHandler(sessionRepo, eventRepo, logger)

	// Realtime hub: session registry + question broadcast channel
	hub := realtime.NewHub(logger, sessionRepo, redisPub, redisSub)

	// Analytics
	analyticsRepo := analytics.NewRepository(pool)
	aggregator := analytics.NewAggregator(hub, analyticsRepo, logger)
	analyticsHandler := analytics.NewHandler(aggregator, logger)

	// Viewer log (watch time)
	viewerRepo := viewerlog.NewRepository(pool)

	// Every attach/detach refreshes the stored viewer cache, merges the peak,
	// and pushes the live count to attached clients.
	hub.SetAudienceChangeHandler(func(sessionID uuid.UUID, count int) {
		ctx := context.Background()
		if err := aggregator.RecordViewerChange(ctx, sessionID); err != nil {
			logger.Warn("record viewer change", zap.Error(err), zap.String("session_id", sessionID.String()))
		}
		hub.PublishViewerCount(sessionID, count)
	})
	hub.SetViewerLoggers(
		func(sessionID uuid.UUID, connectionID string) {
			if err := viewerRepo.LogJoin(context.Background(), sessionID, connectionID); err != nil {
				logger.Warn("log join", zap.Error(err))
			}
		},
		func(sessionID uuid.UUID, connectionID string) {
			ctx := context.Background()
			if err := viewerRepo.LogLeave(ctx, sessionID, connectionID); err != nil {
				logger.Warn("log leave", zap.Error(err))
				return
			}
			if err := aggregator.RecordWatchTime(ctx, sessionID); err != nil {
				logger.Warn("record watch time", zap.Error(err))
			}
		},
	)

	// Questions
	questionRepo := questions.NewRepository(pool)
	questionHandler := questions.NewHandler(questionRepo, sessionRepo, aggregator, hub, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Events (viewer surface + organizer surface)
	router.GET("/events/allEvents", eventHandler.List)
	router.GET("/events/:eventId", eventHandler.GetByID)
	router.POST("/events", eventHandler.Create)
	router.GET("/events/:eventId/sessions", sessionHandler.ListByEvent)
	router.POST("/events/:eventId/sessions", sessionHandler.Create)
	router.POST("/events/:eventId/cover", eventHandler.UploadCover)
	router.POST("/events/:eventId/cover/generate-upload-url", eventHandler.GenerateCoverUploadURL)

	// Sessions
	router.GET("/sessions/:sessionId", sessionHandler.GetByID)
	router.GET("/sessions/:sessionId/questions", questionHandler.ListBySession)
	router.POST("/sessions/:sessionId/questions", questionHandler.Create)
	router.GET("/sessions/:sessionId/analytics", analyticsHandler.GetBySession)

	// WebSocket (per-session attach; heartbeat reaps silent clients)
	router.GET("/ws", realtime.ServeWs(hub, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}

// Package main runs the meeting recording backend HTTP server with WebSocket
// status streaming and graceful shutdown.
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

	"github.com/meetscribe/backend/config"
	"github.com/meetscribe/backend/internal/audit"
	"github.com/meetscribe/backend/internal/auth"
	"github.com/meetscribe/backend/internal/events"
	"github.com/meetscribe/backend/internal/hosting"
	"github.com/meetscribe/backend/internal/media"
	"github.com/meetscribe/backend/internal/middleware"
	"github.com/meetscribe/backend/internal/organizations"
	notetakerqueue "github.com/meetscribe/backend/internal/queue"
	"github.com/meetscribe/backend/internal/ratelimit"
	"github.com/meetscribe/backend/internal/realtime"
	"github.com/meetscribe/backend/internal/recordings"
	"github.com/meetscribe/backend/internal/shares"
	"github.com/meetscribe/backend/internal/worker"
	"github.com/meetscribe/backend/pkg/database"
	jobqueue "github.com/meetscribe/backend/pkg/queue"
	"github.com/meetscribe/backend/pkg/redis"
	"github.com/meetscribe/backend/pkg/response"
	"github.com/meetscribe/backend/pkg/storage"
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

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Cfg := storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		CapturesBucket:       cfg.AWS.CapturesBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}
	s3Client, err := storage.NewS3(ctx, s3Cfg, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	hostingClient := hosting.NewClient(hosting.Config{
		BaseURL:     cfg.Hosting.BaseURL,
		TokenID:     cfg.Hosting.TokenID,
		TokenSecret: cfg.Hosting.TokenSecret,
	}, logger)

	dispatchLead := time.Duration(cfg.Dispatcher.LeadMinutes) * time.Minute

	// Events (read-only projection maintained by the calendar sync service)
	eventRepo := events.NewRepository(pool)

	// Organizations
	orgRepo := organizations.NewRepository(pool)

	// Recordings
	recordingRepo := recordings.NewRepository(pool)
	pipeline := media.NewPipeline(recordingRepo, s3Client, s3Client.CapturesBucket(), hostingClient, logger)
	sweeper := recordings.NewSweeper(recordingRepo, time.Duration(cfg.Sweeper.StaleHours)*time.Hour, logger)

	// Shares and audit
	auditRepo := audit.NewRepository(pool)
	auditHandler := audit.NewHandler(auditRepo, logger)
	shareRepo := shares.NewRepository(pool)
	shareLimiter := ratelimit.New(cfg.Share.MaxRequests, time.Duration(cfg.Share.WindowSeconds)*time.Second)
	shareService := shares.NewService(shareRepo, recordingRepo, orgRepo, auditRepo, shareLimiter, cfg.Share.PublicOrigin, logger)
	shareHandler := shares.NewHandler(shareService, recordingRepo, eventRepo, logger)

	recordingHandler := recordings.NewHandler(recordingRepo, eventRepo, pipeline, sweeper, s3Client, hub, shareService, logger)

	// Notetaker queue
	queueRepo := notetakerqueue.NewRepository(pool)
	queueHandler := notetakerqueue.NewHandler(queueRepo, eventRepo, dispatchLead, cfg.Dispatcher.MaxAttempts, logger)

	jobQueue := jobqueue.NewQueue(rdb.Client, logger)
	recordingWebhook := recordings.NewWebhookHandler(recordingRepo, queueRepo, jobQueue, hub, dispatchLead, logger)
	mediaProcessor := worker.NewMediaProcessor(pipeline, jobQueue, logger)

	jwtValidate := func(token string) (uuid.UUID, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, err
		}
		return claims.UserID, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public: external share resolution (password via query or header)
	router.GET("/shared/:token", shareHandler.ResolveShared)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Notetaker scheduling
		api.POST("/events/:id/notetaker", queueHandler.Enable)
		api.GET("/events/:id/notetaker", queueHandler.Status)
		api.DELETE("/events/:id/notetaker", queueHandler.Disable)

		// Recordings
		api.GET("/events/:id/recordings", recordingHandler.ListByEvent)
		api.GET("/recordings/:id", recordingHandler.GetByID)
		api.POST("/recordings/:id/refresh", recordingHandler.Refresh)
		api.GET("/recordings/:id/download-url", recordingHandler.GenerateDownloadURL)

		// Shares
		api.POST("/recordings/:id/share", shareHandler.Create)
		api.GET("/recordings/:id/share", shareHandler.List)
		api.DELETE("/recordings/:id/share", shareHandler.Revoke)

		// Admin
		api.POST("/internal/sweep", middleware.RequireRole("admin"), recordingHandler.Sweep)
		api.GET("/internal/audit/:userId", middleware.RequireRole("admin"), auditHandler.ListByUser)
		api.PUT("/internal/captures/:notetakerId", middleware.RequireRole("admin"), recordingHandler.UploadCapture)
		api.DELETE("/internal/captures/:notetakerId", middleware.RequireRole("admin"), recordingHandler.DeleteCapture)
	}

	// Webhooks (no JWT; providers authenticate out of band)
	router.POST("/webhooks/notetaker-status", recordingWebhook.NotetakerStatus)
	router.POST("/webhooks/hosting-asset-ready", recordingHandler.AssetReady)

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Media retrieval also runs in-process so a standalone server still drains
	// the job queue.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go mediaProcessor.Run(workerCtx)
	logger.Info("media worker started")

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
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

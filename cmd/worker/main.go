// Package main runs the background workers: queue dispatch, media retrieval
// and the stale recording sweeper.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/meetscribe/backend/config"
	"github.com/meetscribe/backend/internal/events"
	"github.com/meetscribe/backend/internal/hosting"
	"github.com/meetscribe/backend/internal/media"
	"github.com/meetscribe/backend/internal/notetaker"
	notetakerqueue "github.com/meetscribe/backend/internal/queue"
	"github.com/meetscribe/backend/internal/recordings"
	"github.com/meetscribe/backend/internal/worker"
	"github.com/meetscribe/backend/pkg/database"
	jobqueue "github.com/meetscribe/backend/pkg/queue"
	"github.com/meetscribe/backend/pkg/redis"
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

	hostingClient := hosting.NewClient(hosting.Config{
		BaseURL:     cfg.Hosting.BaseURL,
		TokenID:     cfg.Hosting.TokenID,
		TokenSecret: cfg.Hosting.TokenSecret,
	}, logger)
	notetakerClient := notetaker.NewClient(notetaker.Config{
		BaseURL: cfg.Notetaker.BaseURL,
		APIKey:  cfg.Notetaker.APIKey,
	}, logger)

	eventRepo := events.NewRepository(pool)
	recordingRepo := recordings.NewRepository(pool)
	queueRepo := notetakerqueue.NewRepository(pool)

	jobQueue := jobqueue.NewQueue(rdb.Client, logger)
	pipeline := media.NewPipeline(recordingRepo, s3Client, s3Client.CapturesBucket(), hostingClient, logger)
	processor := worker.NewMediaProcessor(pipeline, jobQueue, logger)

	dispatcher := notetakerqueue.NewDispatcher(queueRepo, eventRepo, notetakerClient, recordingRepo, cfg.Dispatcher.BatchSize, logger)
	sweeper := recordings.NewSweeper(recordingRepo, time.Duration(cfg.Sweeper.StaleHours)*time.Hour, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	go dispatcher.Run(workerCtx, time.Duration(cfg.Dispatcher.PollSeconds)*time.Second)
	go sweeper.Run(workerCtx, time.Duration(cfg.Sweeper.IntervalMinutes)*time.Minute)
	logger.Info("workers started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("workers stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}

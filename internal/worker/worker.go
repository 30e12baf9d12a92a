package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/media"
	"github.com/meetscribe/backend/pkg/queue"
)

// retriever runs one media retrieval attempt (implemented by media.Pipeline).
type retriever interface {
	Retrieve(ctx context.Context, recordingID uuid.UUID, notetakerID string) (string, error)
}

// MediaProcessor processes media retrieval jobs: pull the raw capture from
// object storage and hand it to the hosting service.
type MediaProcessor struct {
	pipeline retriever
	queue    *queue.Queue
	logger   *zap.Logger
}

// NewMediaProcessor creates a media retrieval processor.
func NewMediaProcessor(pipeline retriever, q *queue.Queue, logger *zap.Logger) *MediaProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaProcessor{pipeline: pipeline, queue: q, logger: logger}
}

// Process executes one media retrieval job. A MEDIA_NOT_READY outcome is the
// only retryable failure; everything else is already recorded terminally by
// the pipeline and must not be retried.
func (p *MediaProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeMediaRetrieval {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.MediaRetrievalPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	assetID, err := p.pipeline.Retrieve(ctx, payload.RecordingID, payload.NotetakerID)
	if err != nil {
		if errors.Is(err, media.ErrMediaNotReady) {
			return err
		}
		p.logger.Error("media retrieval failed terminally",
			zap.String("job_id", job.ID),
			zap.String("recording_id", payload.RecordingID.String()),
			zap.Error(err))
		return nil
	}

	p.logger.Info("media retrieval completed",
		zap.String("job_id", job.ID),
		zap.String("recording_id", payload.RecordingID.String()),
		zap.String("asset_id", assetID))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on not-ready.
func (p *MediaProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("media worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Warn("job not ready, retrying", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}

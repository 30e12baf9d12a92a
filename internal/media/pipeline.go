package media

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/hosting"
	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/pkg/storage"
)

// recordingStore is the subset of the recordings repository the pipeline needs.
type recordingStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	SetFailure(ctx context.Context, id uuid.UUID, status, reason string) error
	SetAssetResult(ctx context.Context, id uuid.UUID, assetID string) error
}

// captureStore fetches raw capture objects (implemented by pkg/storage.S3).
type captureStore interface {
	GetObjectStream(ctx context.Context, bucket, key string) (io.ReadCloser, string, int64, error)
}

// assetCreator submits capture bytes to the hosting service (implemented by
// internal/hosting.Client).
type assetCreator interface {
	CreateAsset(ctx context.Context, body io.Reader, contentType string, contentLength int64, passthrough string) (*hosting.Asset, error)
}

// Pipeline moves one recording's raw capture from object storage to the
// hosting service. Invocations are idempotent under concurrency: there is no
// partial/merge state, only full overwrites of mux_asset_id and status, so
// the last successful write wins and no locking is taken.
type Pipeline struct {
	repo    recordingStore
	store   captureStore
	bucket  string
	hosting assetCreator
	logger  *zap.Logger
}

// NewPipeline creates a media retrieval pipeline.
func NewPipeline(repo recordingStore, store captureStore, bucket string, hostingClient assetCreator, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{repo: repo, store: store, bucket: bucket, hosting: hostingClient, logger: logger}
}

// Retrieve runs one retrieval attempt: mark the recording retrieving, pull the
// raw capture, hand it to the hosting service, persist the asset id. No retry
// happens here; retry is the caller's decision. Failure semantics:
//
//   - missing identifiers: ErrMissingIdentifiers, nothing mutated
//   - no such recording: ErrRecordingNotFound, nothing mutated
//   - capture object absent: recording moved to error, ErrCaptureNotFound
//   - hosting still preparing / unavailable: ErrMediaNotReady, status left as
//     retrieving so a later attempt (or the sweeper) can reclaim it
//   - anything else in fetch/upload/persist: recording moved to error
func (p *Pipeline) Retrieve(ctx context.Context, recordingID uuid.UUID, notetakerID string) (assetID string, err error) {
	if recordingID == uuid.Nil || notetakerID == "" {
		return "", ErrMissingIdentifiers
	}

	rec, err := p.repo.GetByID(ctx, recordingID)
	if err != nil {
		return "", fmt.Errorf("load recording: %w", err)
	}
	if rec == nil {
		return "", ErrRecordingNotFound
	}

	// Attempt id correlates logs and the hosting passthrough for this run, so
	// a crashed attempt can be identified instead of blindly re-uploaded.
	attemptID := uuid.New().String()
	logger := p.logger.With(
		zap.String("recording_id", recordingID.String()),
		zap.String("notetaker_id", notetakerID),
		zap.String("attempt_id", attemptID),
	)

	// Durability point: visible to concurrent viewers before any external
	// call, and reclaimable by the sweeper if this process dies here.
	if err := p.repo.SetStatus(ctx, recordingID, models.RecordingStatusRetrieving); err != nil {
		return "", fmt.Errorf("set retrieving: %w", err)
	}

	key := storage.CaptureKey(notetakerID)
	body, contentType, contentLength, err := p.store.GetObjectStream(ctx, p.bucket, key)
	if err != nil {
		if storage.IsNotFound(err) {
			logger.Warn("raw capture missing", zap.String("key", key))
			p.fail(ctx, recordingID, "raw capture not found: "+key)
			return "", ErrCaptureNotFound
		}
		p.fail(ctx, recordingID, "capture fetch failed")
		return "", fmt.Errorf("fetch capture %s: %w", key, err)
	}
	defer body.Close()

	asset, err := p.hosting.CreateAsset(ctx, body, contentType, contentLength, attemptID)
	if err != nil {
		if errors.Is(err, hosting.ErrNotReady) {
			// Transient on the hosting side; leave the recording retrieving so
			// the caller can try again shortly.
			logger.Warn("hosting not ready, leaving recording retrieving", zap.Error(err))
			return "", fmt.Errorf("%w: %v", ErrMediaNotReady, err)
		}
		p.fail(ctx, recordingID, "hosting upload failed")
		return "", fmt.Errorf("create hosting asset: %w", err)
	}

	if err := p.repo.SetAssetResult(ctx, recordingID, asset.ID); err != nil {
		p.fail(ctx, recordingID, "persist asset result failed")
		return "", fmt.Errorf("persist asset result: %w", err)
	}

	logger.Info("capture handed to hosting service", zap.String("asset_id", asset.ID))
	return asset.ID, nil
}

func (p *Pipeline) fail(ctx context.Context, recordingID uuid.UUID, reason string) {
	if err := p.repo.SetFailure(ctx, recordingID, models.RecordingStatusError, reason); err != nil {
		p.logger.Error("mark recording error failed", zap.Error(err), zap.String("recording_id", recordingID.String()))
	}
}

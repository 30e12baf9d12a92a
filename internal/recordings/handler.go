package recordings

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/events"
	"github.com/meetscribe/backend/internal/media"
	"github.com/meetscribe/backend/internal/middleware"
	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/pkg/response"
	"github.com/meetscribe/backend/pkg/storage"
)

// mediaRetriever runs one media retrieval attempt (implemented by media.Pipeline).
type mediaRetriever interface {
	Retrieve(ctx context.Context, recordingID uuid.UUID, notetakerID string) (string, error)
}

// internalAccessChecker answers whether an internal share grants the user
// access to a recording (implemented by shares.Service).
type internalAccessChecker interface {
	CanView(ctx context.Context, recordingID, userID uuid.UUID) (bool, error)
}

// Handler handles recording HTTP endpoints.
type Handler struct {
	repo      *Repository
	eventRepo *events.Repository
	pipeline  mediaRetriever
	sweeper   *Sweeper
	s3        *storage.S3
	broadcast StatusBroadcaster
	access    internalAccessChecker
	logger    *zap.Logger
}

// NewHandler creates a recordings handler. s3, broadcast and access may be nil.
func NewHandler(repo *Repository, eventRepo *events.Repository, pipeline mediaRetriever, sweeper *Sweeper, s3 *storage.S3, broadcast StatusBroadcaster, access internalAccessChecker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, eventRepo: eventRepo, pipeline: pipeline, sweeper: sweeper, s3: s3, broadcast: broadcast, access: access, logger: logger}
}

// ownsEvent reports whether the user owns the recording's event.
func (h *Handler) ownsEvent(ctx context.Context, eventID, userID uuid.UUID) bool {
	ev, err := h.eventRepo.GetByID(ctx, eventID)
	return err == nil && ev != nil && ev.UserID == userID
}

// memberCanView reports whether an internal share lets the user view the
// recording.
func (h *Handler) memberCanView(ctx context.Context, recordingID, userID uuid.UUID) bool {
	if h.access == nil {
		return false
	}
	ok, err := h.access.CanView(ctx, recordingID, userID)
	if err != nil {
		h.logger.Warn("internal share access check failed", zap.Error(err), zap.String("recording_id", recordingID.String()))
		return false
	}
	return ok
}

// ListByEvent handles GET /events/:id/recordings.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if !h.ownsEvent(c.Request.Context(), eventID, userID) {
		response.Forbidden(c, "not authorized to list recordings")
		return
	}
	list, err := h.repo.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("list recordings failed", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to list recordings")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /recordings/:id.
func (h *Handler) GetByID(c *gin.Context) {
	recordingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid recording id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	rec, err := h.repo.GetByID(c.Request.Context(), recordingID)
	if err != nil {
		h.logger.Error("get recording failed", zap.Error(err), zap.String("recording_id", recordingID.String()))
		response.Internal(c, "failed to load recording")
		return
	}
	if rec == nil {
		response.NotFound(c, "recording not found")
		return
	}
	if !h.ownsEvent(c.Request.Context(), rec.EventID, userID) && !h.memberCanView(c.Request.Context(), rec.ID, userID) {
		response.NotFound(c, "recording not found")
		return
	}
	response.OK(c, rec)
}

// Refresh handles POST /recordings/:id/refresh: a user-initiated media
// retrieval run. MEDIA_NOT_READY is surfaced distinctly so the UI can suggest
// retrying shortly.
func (h *Handler) Refresh(c *gin.Context) {
	recordingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid recording id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	rec, err := h.repo.GetByID(c.Request.Context(), recordingID)
	if err != nil {
		h.logger.Error("get recording failed", zap.Error(err), zap.String("recording_id", recordingID.String()))
		response.Internal(c, "failed to load recording")
		return
	}
	if rec == nil || !h.ownsEvent(c.Request.Context(), rec.EventID, userID) {
		response.NotFound(c, "recording not found")
		return
	}
	if rec.NotetakerID == "" {
		response.BadRequest(c, "recording has no notetaker session")
		return
	}

	assetID, err := h.pipeline.Retrieve(c.Request.Context(), rec.ID, rec.NotetakerID)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrMissingIdentifiers):
			response.BadRequest(c, err.Error())
		case errors.Is(err, media.ErrRecordingNotFound), errors.Is(err, media.ErrCaptureNotFound):
			response.ErrorWithCode(c, http.StatusNotFound, "", err.Error(), "")
		case errors.Is(err, media.ErrMediaNotReady):
			response.ErrorWithCode(c, http.StatusConflict, media.CodeMediaNotReady, media.CodeMediaNotReady,
				"the hosting service has not finished processing; try again shortly")
		default:
			h.logger.Error("media retrieval failed", zap.Error(err), zap.String("recording_id", rec.ID.String()))
			response.Internal(c, "media retrieval failed")
		}
		return
	}
	if h.broadcast != nil {
		h.broadcast.BroadcastStatus(rec.ID, models.RecordingStatusProcessing)
	}
	response.OK(c, gin.H{"assetId": assetID})
}

// GenerateDownloadURL handles GET /recordings/:id/download-url: a presigned
// URL for the raw capture of a ready recording.
func (h *Handler) GenerateDownloadURL(c *gin.Context) {
	recordingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid recording id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	rec, err := h.repo.GetByID(c.Request.Context(), recordingID)
	if err != nil || rec == nil {
		response.NotFound(c, "recording not found")
		return
	}
	if !h.ownsEvent(c.Request.Context(), rec.EventID, userID) {
		response.Forbidden(c, "not authorized to download this recording")
		return
	}
	if rec.Status != models.RecordingStatusReady || rec.NotetakerID == "" {
		response.BadRequest(c, "recording not ready for download")
		return
	}
	if h.s3 == nil {
		response.Internal(c, "S3 not configured")
		return
	}
	key := storage.CaptureKey(rec.NotetakerID)
	// Presigning does not touch the object; confirm it exists so the caller
	// gets a 404 here instead of from S3 later.
	if _, err := h.s3.HeadObject(c.Request.Context(), h.s3.CapturesBucket(), key); err != nil {
		if storage.IsNotFound(err) {
			response.NotFound(c, "capture no longer available")
			return
		}
		h.logger.Error("head capture failed", zap.Error(err), zap.String("recording_id", recordingID.String()))
		response.Internal(c, "failed to generate download URL")
		return
	}
	expire := h.s3.PresignExpire()
	url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), h.s3.CapturesBucket(), key, expire)
	if err != nil {
		h.logger.Error("presign capture download failed", zap.Error(err), zap.String("recording_id", recordingID.String()))
		response.Internal(c, "failed to generate download URL")
		return
	}
	response.OK(c, gin.H{"download_url": url, "expires_in": int(expire.Seconds())})
}

// AssetReadyPayload is the hosting service's out-of-band completion webhook.
type AssetReadyPayload struct {
	AssetID     string `json:"asset_id"`
	PlaybackURL string `json:"playback_url"`
	Status      string `json:"status"` // "ready" | "errored"
}

// AssetReady handles POST /webhooks/hosting-asset-ready: the hosting service
// finished (or failed) transcoding an asset.
func (h *Handler) AssetReady(c *gin.Context) {
	var body AssetReadyPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if body.AssetID == "" {
		response.BadRequest(c, "asset_id required")
		return
	}

	ctx := c.Request.Context()
	if body.Status == "errored" {
		rec, err := h.repo.GetByAssetID(ctx, body.AssetID)
		if err != nil {
			h.logger.Error("lookup by asset failed", zap.Error(err), zap.String("asset_id", body.AssetID))
			response.Internal(c, "failed to load recording")
			return
		}
		if rec == nil {
			response.NotFound(c, "no recording for asset")
			return
		}
		if err := h.repo.SetFailure(ctx, rec.ID, models.RecordingStatusError, "hosting transcode errored"); err != nil {
			h.logger.Error("mark transcode error failed", zap.Error(err), zap.String("recording_id", rec.ID.String()))
			response.Internal(c, "failed to update recording")
			return
		}
		if h.broadcast != nil {
			h.broadcast.BroadcastStatus(rec.ID, models.RecordingStatusError)
		}
		response.OK(c, gin.H{"recording_id": rec.ID, "status": models.RecordingStatusError})
		return
	}

	rec, err := h.repo.SetReadyByAsset(ctx, body.AssetID, body.PlaybackURL, body.PlaybackURL)
	if err != nil {
		h.logger.Error("mark recording ready failed", zap.Error(err), zap.String("asset_id", body.AssetID))
		response.Internal(c, "failed to update recording")
		return
	}
	if rec == nil {
		// Unknown asset or already terminal; acknowledge so the provider stops retrying.
		response.Accepted(c, gin.H{"ignored": true})
		return
	}
	if h.broadcast != nil {
		h.broadcast.BroadcastStatus(rec.ID, models.RecordingStatusReady)
	}
	h.logger.Info("recording ready", zap.String("recording_id", rec.ID.String()), zap.String("asset_id", body.AssetID))
	response.OK(c, gin.H{"recording_id": rec.ID, "status": models.RecordingStatusReady})
}

// UploadCapture handles PUT /internal/captures/:notetakerId (admin): backfill
// a raw capture object. The bot normally writes captures directly; this exists
// for recovering a session whose upload was lost.
func (h *Handler) UploadCapture(c *gin.Context) {
	notetakerID := c.Param("notetakerId")
	if notetakerID == "" {
		response.BadRequest(c, "notetaker id required")
		return
	}
	if h.s3 == nil {
		response.Internal(c, "S3 not configured")
		return
	}
	contentType := c.ContentType()
	if contentType == "" {
		contentType = "video/mp4"
	}
	key := storage.CaptureKey(notetakerID)
	location, err := h.s3.Upload(c.Request.Context(), h.s3.CapturesBucket(), key, contentType, c.Request.Body, c.Request.ContentLength)
	if err != nil {
		h.logger.Error("capture backfill failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to store capture")
		return
	}
	h.logger.Info("capture backfilled", zap.String("key", key))
	response.OK(c, gin.H{"location": location})
}

// DeleteCapture handles DELETE /internal/captures/:notetakerId (admin):
// remove a raw capture object once it is no longer needed.
func (h *Handler) DeleteCapture(c *gin.Context) {
	notetakerID := c.Param("notetakerId")
	if notetakerID == "" {
		response.BadRequest(c, "notetaker id required")
		return
	}
	if h.s3 == nil {
		response.Internal(c, "S3 not configured")
		return
	}
	key := storage.CaptureKey(notetakerID)
	if err := h.s3.DeleteObject(c.Request.Context(), h.s3.CapturesBucket(), key); err != nil {
		h.logger.Error("capture delete failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to delete capture")
		return
	}
	h.logger.Info("capture deleted", zap.String("key", key))
	response.OK(c, gin.H{"deleted": key})
}

// Sweep handles POST /internal/sweep (admin): one on-demand sweeper run with
// per-stage diagnostics.
func (h *Handler) Sweep(c *gin.Context) {
	result, err := h.sweeper.Sweep(c.Request.Context())
	if err != nil {
		h.logger.Error("sweep failed", zap.Error(err))
		response.Internal(c, "sweep failed")
		return
	}
	c.JSON(http.StatusOK, result)
}

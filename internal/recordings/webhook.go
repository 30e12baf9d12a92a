package recordings

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/pkg/queue"
	"github.com/meetscribe/backend/pkg/response"
)

// botStatuses are the only statuses the provider may report. Pipeline-owned
// statuses (processing, retrieving, ready, failed, error) never arrive over
// the webhook.
var botStatuses = map[string]bool{
	models.RecordingStatusJoining:             true,
	models.RecordingStatusWaitingForAdmission: true,
	models.RecordingStatusAttending:           true,
	models.RecordingStatusLeaving:             true,
	models.RecordingStatusConcluded:           true,
	models.RecordingStatusFailedEntry:         true,
}

// recordingStore is the subset of the repository the webhook handler needs.
type recordingStore interface {
	GetByNotetakerID(ctx context.Context, notetakerID string) (*models.Recording, error)
	ApplyStatusRanked(ctx context.Context, notetakerID, status string) (bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	ApplyEntryFailure(ctx context.Context, notetakerID, reason string) (bool, error)
}

// scheduleStore lets event-change webhooks adjust pending dispatch entries.
type scheduleStore interface {
	DeleteForEvents(ctx context.Context, eventIDs []uuid.UUID) (int64, error)
	ReschedulePending(ctx context.Context, eventID uuid.UUID, lead time.Duration) error
}

// retrievalEnqueuer hands concluded recordings to the media retrieval worker.
type retrievalEnqueuer interface {
	EnqueueMediaRetrieval(ctx context.Context, payload queue.MediaRetrievalPayload) error
}

// StatusBroadcaster pushes status changes to watching clients. Optional.
type StatusBroadcaster interface {
	BroadcastStatus(recordingID uuid.UUID, status string)
}

// WebhookHandler handles the notetaker provider's webhook union.
type WebhookHandler struct {
	repo         recordingStore
	schedule     scheduleStore
	queue        retrievalEnqueuer
	broadcast    StatusBroadcaster
	dispatchLead time.Duration
	logger       *zap.Logger
}

// NewWebhookHandler creates a webhook handler. broadcast may be nil.
func NewWebhookHandler(repo recordingStore, schedule scheduleStore, q retrievalEnqueuer, broadcast StatusBroadcaster, dispatchLead time.Duration, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{repo: repo, schedule: schedule, queue: q, broadcast: broadcast, dispatchLead: dispatchLead, logger: logger}
}

// NotetakerStatus handles POST /webhooks/notetaker-status. The payload is a
// tagged union; dispatch is exhaustive over the known variants and unknown
// types are acknowledged without action so the provider does not retry them.
func (h *WebhookHandler) NotetakerStatus(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "read body: "+err.Error())
		return
	}
	hook, err := models.DecodeWebhook(raw)
	if err != nil {
		if errors.Is(err, models.ErrUnknownWebhookType) {
			h.logger.Info("ignoring unknown webhook type", zap.Error(err))
			response.Accepted(c, gin.H{"ignored": true})
			return
		}
		response.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	switch hook.Type {
	case models.WebhookNotetakerStatus:
		h.handleStatusUpdate(c, hook.StatusUpdate)
	case models.WebhookNotetakerMedia:
		h.logger.Info("notetaker media state reported",
			zap.String("notetaker_id", hook.Media.NotetakerID),
			zap.String("media_state", hook.Media.MediaState))
		response.OK(c, gin.H{"acknowledged": true})
	case models.WebhookEventUpdated:
		if err := h.schedule.ReschedulePending(ctx, hook.EventChange.EventID, h.dispatchLead); err != nil {
			h.logger.Error("reschedule pending dispatches failed", zap.Error(err), zap.String("event_id", hook.EventChange.EventID.String()))
			response.Internal(c, "failed to reschedule")
			return
		}
		response.OK(c, gin.H{"rescheduled": true})
	case models.WebhookEventDeleted:
		deleted, err := h.schedule.DeleteForEvents(ctx, []uuid.UUID{hook.EventChange.EventID})
		if err != nil {
			h.logger.Error("delete pending dispatches failed", zap.Error(err), zap.String("event_id", hook.EventChange.EventID.String()))
			response.Internal(c, "failed to cancel dispatches")
			return
		}
		response.OK(c, gin.H{"cancelled": deleted})
	case models.WebhookGrantExpired:
		// Grant lifecycle is owned by the calendar-sync collaborator; surfaced
		// here only for visibility.
		h.logger.Warn("calendar grant expired", zap.String("grant_id", hook.Grant.GrantID))
		response.OK(c, gin.H{"acknowledged": true})
	default:
		// DecodeWebhook already rejected unknown types; this is unreachable.
		response.Accepted(c, gin.H{"ignored": true})
	}
}

func (h *WebhookHandler) handleStatusUpdate(c *gin.Context, p *models.StatusUpdatePayload) {
	ctx := c.Request.Context()
	if !botStatuses[p.Status] {
		response.BadRequest(c, "unsupported notetaker status: "+p.Status)
		return
	}

	rec, err := h.repo.GetByNotetakerID(ctx, p.NotetakerID)
	if err != nil {
		h.logger.Error("lookup recording by notetaker failed", zap.Error(err), zap.String("notetaker_id", p.NotetakerID))
		response.Internal(c, "failed to load recording")
		return
	}
	if rec == nil {
		response.NotFound(c, "no recording for notetaker")
		return
	}

	if p.Status == models.RecordingStatusFailedEntry {
		h.handleFailedEntry(c, rec, p.NotetakerID)
		return
	}

	applied, err := h.repo.ApplyStatusRanked(ctx, p.NotetakerID, p.Status)
	if err != nil {
		h.logger.Error("apply status failed", zap.Error(err),
			zap.String("notetaker_id", p.NotetakerID), zap.String("status", p.Status))
		response.Internal(c, "failed to apply status")
		return
	}
	if !applied {
		// Duplicate or late event; the recording is already at or past this state.
		h.logger.Debug("stale status event dropped",
			zap.String("notetaker_id", p.NotetakerID),
			zap.String("status", p.Status),
			zap.String("current", rec.Status))
		response.OK(c, gin.H{"recording_id": rec.ID, "status": rec.Status, "applied": false})
		return
	}

	current := p.Status
	if p.Status == models.RecordingStatusConcluded {
		// Bot session ended: hand the capture to the media pipeline.
		if err := h.repo.SetStatus(ctx, rec.ID, models.RecordingStatusProcessing); err != nil {
			h.logger.Error("set processing failed", zap.Error(err), zap.String("recording_id", rec.ID.String()))
			response.Internal(c, "failed to start processing")
			return
		}
		current = models.RecordingStatusProcessing
		if err := h.queue.EnqueueMediaRetrieval(ctx, queue.MediaRetrievalPayload{
			RecordingID: rec.ID,
			NotetakerID: p.NotetakerID,
		}); err != nil {
			h.logger.Error("enqueue media retrieval failed", zap.Error(err), zap.String("recording_id", rec.ID.String()))
			response.Internal(c, "failed to enqueue retrieval")
			return
		}
	}

	if h.broadcast != nil {
		h.broadcast.BroadcastStatus(rec.ID, current)
	}
	h.logger.Info("notetaker status applied",
		zap.String("recording_id", rec.ID.String()),
		zap.String("notetaker_id", p.NotetakerID),
		zap.String("status", current))
	response.OK(c, gin.H{"recording_id": rec.ID, "status": current, "applied": true})
}

// handleFailedEntry terminally fails a recording whose bot never made it into
// the meeting. Only honored before the bot was admitted; a failed_entry after
// attending is provider noise. The pre-admission check runs inside the update
// statement, so a racing attending write wins over this one.
func (h *WebhookHandler) handleFailedEntry(c *gin.Context, rec *models.Recording, notetakerID string) {
	applied, err := h.repo.ApplyEntryFailure(c.Request.Context(), notetakerID, "bot could not join the meeting")
	if err != nil {
		h.logger.Error("set failed_entry failed", zap.Error(err), zap.String("recording_id", rec.ID.String()))
		response.Internal(c, "failed to record entry failure")
		return
	}
	if !applied {
		response.OK(c, gin.H{"recording_id": rec.ID, "status": rec.Status, "applied": false})
		return
	}
	if h.broadcast != nil {
		h.broadcast.BroadcastStatus(rec.ID, models.RecordingStatusFailedEntry)
	}
	h.logger.Info("notetaker entry failed", zap.String("recording_id", rec.ID.String()))
	response.OK(c, gin.H{"recording_id": rec.ID, "status": models.RecordingStatusFailedEntry, "applied": true})
}

package queue

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/events"
	"github.com/meetscribe/backend/internal/middleware"
	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/pkg/response"
)

// Handler exposes the enable/disable notetaker endpoints.
type Handler struct {
	repo        *Repository
	eventRepo   *events.Repository
	lead        time.Duration
	maxAttempts int
	logger      *zap.Logger
}

// NewHandler creates a queue handler.
func NewHandler(repo *Repository, eventRepo *events.Repository, lead time.Duration, maxAttempts int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, eventRepo: eventRepo, lead: lead, maxAttempts: maxAttempts, logger: logger}
}

type enableRequest struct {
	Recurring bool `json:"recurring"`
}

// Enable handles POST /events/:id/notetaker: schedule a bot dispatch for the
// event, or for every future instance of its series when recurring is set.
func (h *Handler) Enable(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var body enableRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}

	ctx := c.Request.Context()
	ev, err := h.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		h.logger.Error("load event failed", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to load event")
		return
	}
	if ev == nil {
		response.NotFound(c, "event not found")
		return
	}
	if ev.UserID != userID {
		response.Forbidden(c, "not authorized to manage this event")
		return
	}

	targets := []*models.CalendarEvent{ev}
	if body.Recurring {
		targets, err = h.eventRepo.ListFutureSeriesInstances(ctx, eventID)
		if err != nil {
			h.logger.Error("list series instances failed", zap.Error(err), zap.String("event_id", eventID.String()))
			response.Internal(c, "failed to load series")
			return
		}
		if len(targets) == 0 {
			targets = []*models.CalendarEvent{ev}
		}
	}

	scheduled := make([]models.NotetakerQueueEntry, 0, len(targets))
	for _, target := range targets {
		if target.MeetingURL == "" {
			h.logger.Debug("skipping event without meeting url", zap.String("event_id", target.ID.String()))
			continue
		}
		entry := models.NotetakerQueueEntry{
			EventID:      target.ID,
			UserID:       userID,
			ScheduledFor: target.StartsAt.Add(-h.lead),
			Status:       models.QueueStatusPending,
			MaxAttempts:  h.maxAttempts,
		}
		if err := h.repo.Enqueue(ctx, &entry); err != nil {
			h.logger.Error("enqueue dispatch failed", zap.Error(err), zap.String("event_id", target.ID.String()))
			response.Internal(c, "failed to schedule notetaker")
			return
		}
		scheduled = append(scheduled, entry)
	}
	if len(scheduled) == 0 {
		response.BadRequest(c, "no schedulable events: missing meeting url")
		return
	}

	h.logger.Info("notetaker enabled",
		zap.String("event_id", eventID.String()),
		zap.Bool("recurring", body.Recurring),
		zap.Int("scheduled", len(scheduled)))
	response.Created(c, gin.H{"scheduled": scheduled})
}

// Status handles GET /events/:id/notetaker: the event's queue entries, newest
// first, so a client can show whether a dispatch is scheduled, done or failed.
func (h *Handler) Status(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	ctx := c.Request.Context()
	ev, err := h.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		h.logger.Error("load event failed", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to load event")
		return
	}
	if ev == nil {
		response.NotFound(c, "event not found")
		return
	}
	if ev.UserID != userID {
		response.Forbidden(c, "not authorized to manage this event")
		return
	}

	entries, err := h.repo.ListForEvent(ctx, eventID)
	if err != nil {
		h.logger.Error("list queue entries failed", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to list queue entries")
		return
	}
	response.OK(c, gin.H{"entries": entries})
}

type disableRequest struct {
	Recurring bool `json:"recurring"`
}

// Disable handles DELETE /events/:id/notetaker: remove the event's queue
// entries, or the whole series' when recurring is set.
func (h *Handler) Disable(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var body disableRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}

	ctx := c.Request.Context()
	ev, err := h.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		h.logger.Error("load event failed", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to load event")
		return
	}
	if ev == nil {
		response.NotFound(c, "event not found")
		return
	}
	if ev.UserID != userID {
		response.Forbidden(c, "not authorized to manage this event")
		return
	}

	targetIDs := []uuid.UUID{eventID}
	if body.Recurring {
		targetIDs, err = h.eventRepo.SeriesEventIDs(ctx, eventID)
		if err != nil {
			h.logger.Error("list series ids failed", zap.Error(err), zap.String("event_id", eventID.String()))
			response.Internal(c, "failed to load series")
			return
		}
	}

	deleted, err := h.repo.DeleteForEvents(ctx, targetIDs)
	if err != nil {
		h.logger.Error("delete dispatches failed", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to disable notetaker")
		return
	}

	h.logger.Info("notetaker disabled",
		zap.String("event_id", eventID.String()),
		zap.Bool("recurring", body.Recurring),
		zap.Int64("removed", deleted))
	response.OK(c, gin.H{"removed": deleted})
}

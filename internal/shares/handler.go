package shares

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/events"
	"github.com/meetscribe/backend/internal/middleware"
	"github.com/meetscribe/backend/internal/recordings"
	"github.com/meetscribe/backend/pkg/response"
)

// Handler exposes the share endpoints.
type Handler struct {
	service       *Service
	recordingRepo *recordings.Repository
	eventRepo     *events.Repository
	logger        *zap.Logger
}

// NewHandler creates a shares handler.
func NewHandler(service *Service, recordingRepo *recordings.Repository, eventRepo *events.Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, recordingRepo: recordingRepo, eventRepo: eventRepo, logger: logger}
}

// ownsRecording reports whether the user owns the recording's event.
func (h *Handler) ownsRecording(c *gin.Context, recordingID, userID uuid.UUID) bool {
	rec, err := h.recordingRepo.GetByID(c.Request.Context(), recordingID)
	if err != nil || rec == nil {
		return false
	}
	ev, err := h.eventRepo.GetByID(c.Request.Context(), rec.EventID)
	return err == nil && ev != nil && ev.UserID == userID
}

type createShareRequest struct {
	IsInternal  bool   `json:"isInternal"`
	IsExternal  bool   `json:"isExternal"`
	HasPassword bool   `json:"hasPassword"`
	Password    string `json:"password,omitempty"`
}

// Create handles POST /recordings/:id/share.
func (h *Handler) Create(c *gin.Context) {
	recordingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid recording id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if !h.ownsRecording(c, recordingID, userID) {
		response.NotFound(c, "recording not found")
		return
	}

	var body createShareRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	password := ""
	if body.HasPassword {
		password = body.Password
	}
	result, err := h.service.Create(c.Request.Context(), CreateInput{
		RecordingID: recordingID,
		UserID:      userID,
		Internal:    body.IsInternal,
		External:    body.IsExternal,
		Password:    password,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrRateLimited):
			response.TooManyRequests(c, err.Error())
		case errors.Is(err, ErrRecordingNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, ErrRecordingNotReady), errors.Is(err, ErrNothingToShare):
			response.BadRequest(c, err.Error())
		default:
			h.logger.Error("create share failed", zap.Error(err), zap.String("recording_id", recordingID.String()))
			response.Internal(c, "failed to create share")
		}
		return
	}
	response.Created(c, result)
}

// List handles GET /recordings/:id/share.
func (h *Handler) List(c *gin.Context) {
	recordingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid recording id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if !h.ownsRecording(c, recordingID, userID) {
		response.NotFound(c, "recording not found")
		return
	}
	list, err := h.service.List(c.Request.Context(), recordingID)
	if err != nil {
		h.logger.Error("list shares failed", zap.Error(err), zap.String("recording_id", recordingID.String()))
		response.Internal(c, "failed to list shares")
		return
	}
	response.OK(c, list)
}

// Revoke handles DELETE /recordings/:id/share.
func (h *Handler) Revoke(c *gin.Context) {
	recordingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid recording id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if !h.ownsRecording(c, recordingID, userID) {
		response.NotFound(c, "recording not found")
		return
	}
	revoked, err := h.service.Revoke(c.Request.Context(), recordingID, userID)
	if err != nil {
		h.logger.Error("revoke shares failed", zap.Error(err), zap.String("recording_id", recordingID.String()))
		response.Internal(c, "failed to revoke shares")
		return
	}
	response.OK(c, gin.H{"revoked": revoked})
}

// sharedRecordingView is the public projection of a shared recording. Internal
// identifiers and provider handles stay private.
type sharedRecordingView struct {
	Title        string `json:"title,omitempty"`
	Status       string `json:"status"`
	VideoURL     string `json:"video_url,omitempty"`
	RecordingURL string `json:"recording_url,omitempty"`
	ViewCount    int    `json:"view_count"`
}

// ResolveShared handles GET /shared/:token, the unauthenticated external share
// endpoint. The password (if any) arrives as a query parameter or an
// X-Share-Password header.
func (h *Handler) ResolveShared(c *gin.Context) {
	token := c.Param("token")
	password := c.Query("password")
	if password == "" {
		password = c.GetHeader("X-Share-Password")
	}

	rec, share, err := h.service.Resolve(c.Request.Context(), token, password)
	if err != nil {
		switch {
		case errors.Is(err, ErrShareNotFound):
			response.NotFound(c, "share not found")
		case errors.Is(err, ErrPasswordRequired):
			response.Unauthorized(c, "password required")
		case errors.Is(err, ErrInvalidPassword):
			response.Unauthorized(c, "invalid password")
		default:
			h.logger.Error("resolve share failed", zap.Error(err))
			response.Internal(c, "failed to resolve share")
		}
		return
	}

	view := sharedRecordingView{
		Status:       rec.Status,
		VideoURL:     rec.VideoURL,
		RecordingURL: rec.RecordingURL,
		ViewCount:    share.ViewCount,
	}
	if ev, err := h.eventRepo.GetByID(c.Request.Context(), rec.EventID); err == nil && ev != nil {
		view.Title = ev.Title
	}
	response.OK(c, view)
}

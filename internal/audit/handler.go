package audit

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/pkg/response"
)

// Handler exposes the audit read side for operators.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates an audit handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// ListByUser handles GET /internal/audit/:userId (admin): a user's trail,
// newest first, capped by ?limit.
func (h *Handler) ListByUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	entries, err := h.repo.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		h.logger.Error("list audit entries failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "failed to list audit entries")
		return
	}
	response.OK(c, gin.H{"entries": entries})
}

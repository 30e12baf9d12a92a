package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction values for sensitive operations.
const (
	AuditActionShareCreated        = "share_created"
	AuditActionShareRevoked        = "share_revoked"
	AuditActionShareViewed         = "share_viewed"
	AuditActionSharePasswordDenied = "share_password_denied"
)

// AuditLogEntry is an append-only record of a sensitive action. Details are
// sanitized before write: secrets (password, token) never reach the row.
type AuditLogEntry struct {
	ID        uuid.UUID              `json:"id"`
	UserID    *uuid.UUID             `json:"user_id,omitempty"` // nil for unauthenticated share views
	Action    string                 `json:"action"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

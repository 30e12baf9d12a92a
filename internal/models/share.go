package models

import (
	"time"

	"github.com/google/uuid"
)

// ShareType values for a video share grant.
const (
	ShareTypeInternal = "internal"
	ShareTypeExternal = "external"
)

// VideoShare is a distribution grant for one recording. At most one row per
// (recording, share type) exists at a time: re-sharing replaces, never appends.
type VideoShare struct {
	ID             uuid.UUID  `json:"id"`
	RecordingID    uuid.UUID  `json:"recording_id"`
	ShareType      string     `json:"share_type"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"` // internal shares only
	ExternalToken  string     `json:"external_token,omitempty"`  // external shares only
	PasswordHash   string     `json:"-"`
	SharedBy       uuid.UUID  `json:"shared_by"`
	ViewCount      int        `json:"view_count"`
	CreatedAt      time.Time  `json:"created_at"`
}

// PasswordProtected reports whether resolving this share requires a password.
func (s *VideoShare) PasswordProtected() bool {
	return s.PasswordHash != ""
}

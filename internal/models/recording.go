package models

import (
	"time"

	"github.com/google/uuid"
)

// RecordingStatus values, in lifecycle order. The bot drives everything up to
// concluded via status webhooks; the media pipeline drives the rest.
const (
	RecordingStatusPending             = "pending"
	RecordingStatusJoining             = "joining"
	RecordingStatusWaitingForAdmission = "waiting_for_admission"
	RecordingStatusAttending           = "attending"
	RecordingStatusLeaving             = "leaving"
	RecordingStatusConcluded           = "concluded"
	RecordingStatusProcessing          = "processing"
	RecordingStatusRetrieving          = "retrieving"
	RecordingStatusReady               = "ready"
	RecordingStatusFailedEntry         = "failed_entry"
	RecordingStatusFailed              = "failed"
	RecordingStatusError               = "error"
)

// statusRank orders statuses so out-of-order webhook delivery can be detected:
// a write is only applied when the incoming rank is strictly higher than the
// current one. Terminal failure statuses share the top rank.
var statusRank = map[string]int{
	RecordingStatusPending:             0,
	RecordingStatusJoining:             1,
	RecordingStatusWaitingForAdmission: 2,
	RecordingStatusAttending:           3,
	RecordingStatusLeaving:             4,
	RecordingStatusConcluded:           5,
	RecordingStatusProcessing:          6,
	RecordingStatusRetrieving:          7,
	RecordingStatusReady:               8,
	RecordingStatusFailedEntry:         9,
	RecordingStatusFailed:              9,
	RecordingStatusError:               9,
}

// StatusRank returns the lifecycle rank of a status, or -1 for unknown statuses.
func StatusRank(status string) int {
	rank, ok := statusRank[status]
	if !ok {
		return -1
	}
	return rank
}

// IsValidStatus reports whether status is a known recording status.
func IsValidStatus(status string) bool {
	_, ok := statusRank[status]
	return ok
}

var terminalStatuses = []string{
	RecordingStatusReady,
	RecordingStatusFailedEntry,
	RecordingStatusFailed,
	RecordingStatusError,
}

// IsTerminalStatus reports whether status is terminal: no transition may ever
// leave it.
func IsTerminalStatus(status string) bool {
	switch status {
	case RecordingStatusReady, RecordingStatusFailedEntry, RecordingStatusFailed, RecordingStatusError:
		return true
	}
	return false
}

// TerminalStatuses returns the terminal status set (for SQL NOT IN guards).
func TerminalStatuses() []string {
	return append([]string(nil), terminalStatuses...)
}

// CanTransition reports whether a recording currently in from may move to to.
// Backward and same-rank moves are rejected (idempotent no-op for the caller),
// as is any move out of a terminal status.
func CanTransition(from, to string) bool {
	if !IsValidStatus(from) || !IsValidStatus(to) {
		return false
	}
	if IsTerminalStatus(from) {
		return false
	}
	return StatusRank(to) > StatusRank(from)
}

// StatusesBelow returns every status with a rank strictly below the given
// status's rank. Used to express the rank guard as a SQL IN-list.
func StatusesBelow(status string) []string {
	rank := StatusRank(status)
	if rank < 0 {
		return nil
	}
	var below []string
	for s, r := range statusRank {
		if r < rank {
			below = append(below, s)
		}
	}
	return below
}

// Recording tracks one meeting capture attempt from bot dispatch through the
// hosted, playable asset.
type Recording struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"event_id"`
	NotetakerID   string     `json:"notetaker_id,omitempty"`
	Status        string     `json:"status"`
	FailureReason string     `json:"failure_reason,omitempty"`
	MuxAssetID    string     `json:"mux_asset_id,omitempty"`
	VideoURL      string     `json:"video_url,omitempty"`
	RecordingURL  string     `json:"recording_url,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Playable reports whether the recording has a hosted asset reference.
// Invariant: Status == ready implies Playable.
func (r *Recording) Playable() bool {
	return r.MuxAssetID != "" || r.VideoURL != "" || r.RecordingURL != ""
}

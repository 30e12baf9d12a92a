package models

import (
	"time"

	"github.com/google/uuid"
)

// NotetakerQueueStatus values for a scheduled bot dispatch.
const (
	QueueStatusPending    = "pending"
	QueueStatusProcessing = "processing"
	QueueStatusCompleted  = "completed"
	QueueStatusFailed     = "failed"
)

// NotetakerQueueEntry schedules one bot dispatch: send a notetaker to the
// event's meeting at scheduled_for. Terminal once completed, or failed with
// the attempt budget spent.
type NotetakerQueueEntry struct {
	ID           uuid.UUID `json:"id"`
	EventID      uuid.UUID `json:"event_id"`
	UserID       uuid.UUID `json:"user_id"`
	ScheduledFor time.Time `json:"scheduled_for"`
	Status       string    `json:"status"`
	Attempts     int       `json:"attempts"`
	MaxAttempts  int       `json:"max_attempts"`
	LastError    string    `json:"last_error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Terminal reports whether the entry will never be dispatched again.
func (e *NotetakerQueueEntry) Terminal() bool {
	if e.Status == QueueStatusCompleted {
		return true
	}
	return e.Status == QueueStatusFailed && e.Attempts >= e.MaxAttempts
}

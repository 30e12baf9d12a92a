package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/internal/notetaker"
)

// errEventGone is recorded as the dispatch failure when the event row has
// disappeared between scheduling and dispatch.
var errEventGone = errors.New("event no longer exists")

// queueStore is the subset of the repository the dispatcher needs.
type queueStore interface {
	ClaimReady(ctx context.Context, now time.Time, limit int) ([]models.NotetakerQueueEntry, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, dispatchErr string) error
}

// eventGetter loads the event a dispatch targets.
type eventGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.CalendarEvent, error)
}

// botService dispatches and cancels bot sessions (implemented by notetaker.Client).
type botService interface {
	Dispatch(ctx context.Context, meetingURL string, joinAt time.Time) (*notetaker.Session, error)
	Cancel(ctx context.Context, notetakerID string) error
}

// recordingCreator creates the pending Recording once a dispatch succeeds.
type recordingCreator interface {
	Create(ctx context.Context, rec *models.Recording) error
}

// Dispatcher drains the notetaker queue: claim ready entries, send the bot,
// and create the recording row. The Recording is created only after the
// dispatch call succeeds, so a dispatch failure never leaves an orphan.
type Dispatcher struct {
	queue      queueStore
	events     eventGetter
	bots       botService
	recordings recordingCreator
	batchSize  int
	logger     *zap.Logger
}

// NewDispatcher creates a queue dispatcher.
func NewDispatcher(queue queueStore, events eventGetter, bots botService, recordings recordingCreator, batchSize int, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Dispatcher{queue: queue, events: events, bots: bots, recordings: recordings, batchSize: batchSize, logger: logger}
}

// DispatchReady claims and dispatches one batch of due entries. Returns how
// many dispatches succeeded.
func (d *Dispatcher) DispatchReady(ctx context.Context, now time.Time) (int, error) {
	entries, err := d.queue.ClaimReady(ctx, now, d.batchSize)
	if err != nil {
		return 0, err
	}
	dispatched := 0
	for i := range entries {
		if err := d.dispatchOne(ctx, &entries[i]); err != nil {
			d.logger.Warn("dispatch failed",
				zap.String("entry_id", entries[i].ID.String()),
				zap.String("event_id", entries[i].EventID.String()),
				zap.Int("attempts", entries[i].Attempts+1),
				zap.Error(err))
			if markErr := d.queue.MarkFailed(ctx, entries[i].ID, err.Error()); markErr != nil {
				d.logger.Error("mark entry failed errored", zap.Error(markErr), zap.String("entry_id", entries[i].ID.String()))
			}
			continue
		}
		if err := d.queue.MarkCompleted(ctx, entries[i].ID); err != nil {
			d.logger.Error("mark entry completed errored", zap.Error(err), zap.String("entry_id", entries[i].ID.String()))
		}
		dispatched++
	}
	return dispatched, nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, entry *models.NotetakerQueueEntry) error {
	ev, err := d.events.GetByID(ctx, entry.EventID)
	if err != nil {
		return err
	}
	if ev == nil {
		return errEventGone
	}

	session, err := d.bots.Dispatch(ctx, ev.MeetingURL, ev.StartsAt)
	if err != nil {
		return err
	}

	rec := &models.Recording{
		EventID:     entry.EventID,
		NotetakerID: session.ID,
		Status:      models.RecordingStatusPending,
	}
	if err := d.recordings.Create(ctx, rec); err != nil {
		// The bot is already on its way; pull it back so the failed entry can
		// be re-dispatched cleanly.
		if cancelErr := d.bots.Cancel(ctx, session.ID); cancelErr != nil {
			d.logger.Error("cancel bot after create failure errored",
				zap.Error(cancelErr), zap.String("notetaker_id", session.ID))
		}
		return err
	}

	d.logger.Info("notetaker dispatched",
		zap.String("entry_id", entry.ID.String()),
		zap.String("event_id", entry.EventID.String()),
		zap.String("notetaker_id", session.ID),
		zap.String("recording_id", rec.ID.String()))
	return nil
}

// Run polls for ready entries until ctx is done.
func (d *Dispatcher) Run(ctx context.Context, pollInterval time.Duration) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping")
			return
		case <-ticker.C:
			if _, err := d.DispatchReady(ctx, time.Now()); err != nil {
				d.logger.Error("dispatch batch failed", zap.Error(err))
			}
		}
	}
}

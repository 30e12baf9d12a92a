package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meetscribe/backend/internal/models"
)

// Repository handles notetaker_queue persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notetaker queue repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const entryColumns = `id, event_id, user_id, scheduled_for, status, attempts, max_attempts, COALESCE(last_error,''), created_at, updated_at`

func scanEntry(row pgx.Row) (*models.NotetakerQueueEntry, error) {
	var e models.NotetakerQueueEntry
	err := row.Scan(&e.ID, &e.EventID, &e.UserID, &e.ScheduledFor, &e.Status, &e.Attempts,
		&e.MaxAttempts, &e.LastError, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Enqueue inserts a scheduled dispatch for an event.
func (r *Repository) Enqueue(ctx context.Context, entry *models.NotetakerQueueEntry) error {
	const q = `INSERT INTO notetaker_queue (id, event_id, user_id, scheduled_for, status, max_attempts)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, attempts, created_at, updated_at`
	if entry.Status == "" {
		entry.Status = models.QueueStatusPending
	}
	if entry.MaxAttempts <= 0 {
		entry.MaxAttempts = 3
	}
	return r.pool.QueryRow(ctx, q, entry.EventID, entry.UserID, entry.ScheduledFor, entry.Status, entry.MaxAttempts).
		Scan(&entry.ID, &entry.Attempts, &entry.CreatedAt, &entry.UpdatedAt)
}

// ClaimReady atomically claims up to limit ready entries (pending,
// scheduled_for passed, oldest first), flipping them to processing in the same
// statement. SKIP LOCKED keeps concurrent dispatchers off each other's rows.
func (r *Repository) ClaimReady(ctx context.Context, now time.Time, limit int) ([]models.NotetakerQueueEntry, error) {
	const q = `UPDATE notetaker_queue SET status = $1, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM notetaker_queue
			WHERE status = $2 AND scheduled_for <= $3
			ORDER BY scheduled_for ASC LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + entryColumns
	rows, err := r.pool.Query(ctx, q, models.QueueStatusProcessing, models.QueueStatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

// MarkCompleted terminally completes an entry.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE notetaker_queue SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, models.QueueStatusCompleted, id)
	return err
}

// MarkFailed records a dispatch failure. Below the attempt budget the entry
// returns to pending for the next poll; at the budget it is terminally failed
// and excluded from future dequeues.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, dispatchErr string) error {
	const q = `UPDATE notetaker_queue
		SET attempts = attempts + 1,
			last_error = $1,
			status = CASE WHEN attempts + 1 >= max_attempts THEN $2 ELSE $3 END,
			updated_at = NOW()
		WHERE id = $4`
	_, err := r.pool.Exec(ctx, q, dispatchErr, models.QueueStatusFailed, models.QueueStatusPending, id)
	return err
}

// DeleteForEvents removes all queue rows for the given events (bulk disable).
// Rows of other events are untouched. Returns the number of deleted rows.
func (r *Repository) DeleteForEvents(ctx context.Context, eventIDs []uuid.UUID) (int64, error) {
	if len(eventIDs) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM notetaker_queue WHERE event_id = ANY($1)`, eventIDs)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ReschedulePending realigns pending entries with the event's (possibly
// changed) start time, keeping the configured dispatch lead.
func (r *Repository) ReschedulePending(ctx context.Context, eventID uuid.UUID, lead time.Duration) error {
	const q = `UPDATE notetaker_queue q
		SET scheduled_for = e.starts_at - $3::interval, updated_at = NOW()
		FROM events e
		WHERE e.id = q.event_id AND q.event_id = $1 AND q.status = $2`
	_, err := r.pool.Exec(ctx, q, eventID, models.QueueStatusPending, lead.String())
	return err
}

// ListForEvent returns all queue entries for an event, newest first.
func (r *Repository) ListForEvent(ctx context.Context, eventID uuid.UUID) ([]models.NotetakerQueueEntry, error) {
	const q = `SELECT ` + entryColumns + ` FROM notetaker_queue WHERE event_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

func collectEntries(rows pgx.Rows) ([]models.NotetakerQueueEntry, error) {
	var list []models.NotetakerQueueEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

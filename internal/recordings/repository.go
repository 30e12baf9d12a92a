package recordings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meetscribe/backend/internal/models"
)

// Repository handles recording persistence. Status writes come in two
// flavors: rank-guarded (webhook-driven transitions, safe under duplicate and
// out-of-order delivery) and pipeline writes (guarded only against leaving a
// terminal status, since the pipeline deliberately moves retrieving back to
// processing after the hosting handoff).
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a recordings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordingColumns = `id, event_id, COALESCE(notetaker_id,''), status, COALESCE(failure_reason,''),
	COALESCE(mux_asset_id,''), COALESCE(video_url,''), COALESCE(recording_url,''), created_at, updated_at`

func scanRecording(row pgx.Row) (*models.Recording, error) {
	var rec models.Recording
	err := row.Scan(&rec.ID, &rec.EventID, &rec.NotetakerID, &rec.Status, &rec.FailureReason,
		&rec.MuxAssetID, &rec.VideoURL, &rec.RecordingURL, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create inserts a new recording (when a notetaker dispatch succeeds).
func (r *Repository) Create(ctx context.Context, rec *models.Recording) error {
	const q = `INSERT INTO recordings (id, event_id, notetaker_id, status)
		VALUES (gen_random_uuid(), $1, NULLIF($2,''), $3)
		RETURNING id, created_at, updated_at`
	if rec.Status == "" {
		rec.Status = models.RecordingStatusPending
	}
	return r.pool.QueryRow(ctx, q, rec.EventID, rec.NotetakerID, rec.Status).
		Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
}

// GetByID returns a recording by ID, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error) {
	rec, err := scanRecording(r.pool.QueryRow(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// GetByNotetakerID returns the recording for a bot session, or nil when absent.
func (r *Repository) GetByNotetakerID(ctx context.Context, notetakerID string) (*models.Recording, error) {
	rec, err := scanRecording(r.pool.QueryRow(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE notetaker_id = $1`, notetakerID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// GetByAssetID returns the recording holding a hosting asset id, or nil.
func (r *Repository) GetByAssetID(ctx context.Context, assetID string) (*models.Recording, error) {
	rec, err := scanRecording(r.pool.QueryRow(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE mux_asset_id = $1`, assetID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// ListByEvent returns all recordings for an event, newest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Recording, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE event_id = $1 ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *rec)
	}
	return list, rows.Err()
}

// ApplyStatusRanked writes a webhook-driven status transition for the bot
// session. The write only lands when the current status ranks strictly below
// the new one, so replayed or out-of-order events degrade to a no-op. Returns
// whether a row changed.
func (r *Repository) ApplyStatusRanked(ctx context.Context, notetakerID, status string) (bool, error) {
	below := models.StatusesBelow(status)
	if len(below) == 0 {
		return false, nil
	}
	const q = `UPDATE recordings SET status = $1, updated_at = NOW()
		WHERE notetaker_id = $2 AND status = ANY($3)`
	tag, err := r.pool.Exec(ctx, q, status, notetakerID, below)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetStatus writes a pipeline-driven status. Terminal rows are never touched.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	const q = `UPDATE recordings SET status = $1, updated_at = NOW()
		WHERE id = $2 AND NOT (status = ANY($3))`
	_, err := r.pool.Exec(ctx, q, status, id, models.TerminalStatuses())
	return err
}

// SetFailure marks a recording terminally failed with a reason. status must be
// one of failed, failed_entry, error. Terminal rows are never touched, so the
// first failure reason wins.
func (r *Repository) SetFailure(ctx context.Context, id uuid.UUID, status, reason string) error {
	const q = `UPDATE recordings SET status = $1, failure_reason = $2, updated_at = NOW()
		WHERE id = $3 AND NOT (status = ANY($4))`
	_, err := r.pool.Exec(ctx, q, status, reason, id, models.TerminalStatuses())
	return err
}

// ApplyEntryFailure terminally fails a bot session that never entered the
// meeting. The pre-admission guard runs inside the update, so a concurrent
// attending write cannot be clobbered between a handler's read and this
// write. Returns whether a row changed.
func (r *Repository) ApplyEntryFailure(ctx context.Context, notetakerID, reason string) (bool, error) {
	const q = `UPDATE recordings SET status = $1, failure_reason = $2, updated_at = NOW()
		WHERE notetaker_id = $3 AND status = ANY($4)`
	preAdmission := []string{
		models.RecordingStatusPending,
		models.RecordingStatusJoining,
		models.RecordingStatusWaitingForAdmission,
	}
	tag, err := r.pool.Exec(ctx, q, models.RecordingStatusFailedEntry, reason, notetakerID, preAdmission)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetAssetResult records the hosting asset id after a successful upload and
// moves the recording to processing (the hosting service owns it from here).
func (r *Repository) SetAssetResult(ctx context.Context, id uuid.UUID, assetID string) error {
	const q = `UPDATE recordings SET mux_asset_id = $1, status = $2, updated_at = NOW()
		WHERE id = $3 AND NOT (status = ANY($4))`
	_, err := r.pool.Exec(ctx, q, assetID, models.RecordingStatusProcessing, id, models.TerminalStatuses())
	return err
}

// SetReadyByAsset records the playable URLs for a hosted asset and moves the
// recording to ready. Returns the updated recording, or nil when no
// non-terminal row holds the asset.
func (r *Repository) SetReadyByAsset(ctx context.Context, assetID, videoURL, recordingURL string) (*models.Recording, error) {
	const q = `UPDATE recordings SET status = $1, video_url = NULLIF($2,''), recording_url = NULLIF($3,''), updated_at = NOW()
		WHERE mux_asset_id = $4 AND NOT (status = ANY($5))
		RETURNING ` + recordingColumns
	rec, err := scanRecording(r.pool.QueryRow(ctx, q, models.RecordingStatusReady, videoURL, recordingURL, assetID, models.TerminalStatuses()))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// CountNullAsset returns how many recordings have no hosting asset yet.
func (r *Repository) CountNullAsset(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM recordings WHERE mux_asset_id IS NULL`).Scan(&n)
	return n, err
}

// CountNullAssetOlderThan returns how many asset-less recordings predate cutoff.
func (r *Repository) CountNullAssetOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM recordings WHERE mux_asset_id IS NULL AND created_at < $1`, cutoff).Scan(&n)
	return n, err
}

// CountSweepCandidates returns how many asset-less recordings predate cutoff
// and are not already failed.
func (r *Repository) CountSweepCandidates(ctx context.Context, cutoff time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM recordings
		 WHERE mux_asset_id IS NULL AND created_at < $1 AND status != $2`,
		cutoff, models.RecordingStatusFailed).Scan(&n)
	return n, err
}

// FailStale force-fails every asset-less recording older than cutoff that is
// not already failed, returning the updated rows. The status guard makes an
// immediate second run update zero rows.
func (r *Repository) FailStale(ctx context.Context, cutoff time.Time, reason string) ([]models.Recording, error) {
	const q = `UPDATE recordings SET status = $1, failure_reason = $2, updated_at = NOW()
		WHERE mux_asset_id IS NULL AND created_at < $3 AND status != $1
		RETURNING ` + recordingColumns
	rows, err := r.pool.Query(ctx, q, models.RecordingStatusFailed, reason, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var updated []models.Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		updated = append(updated, *rec)
	}
	return updated, rows.Err()
}

package shares

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meetscribe/backend/internal/models"
)

// Repository handles video_shares persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a shares repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const shareColumns = `id, recording_id, share_type, organization_id, COALESCE(external_token,''), COALESCE(password_hash,''), shared_by, view_count, created_at`

func scanShare(row pgx.Row) (*models.VideoShare, error) {
	var s models.VideoShare
	err := row.Scan(&s.ID, &s.RecordingID, &s.ShareType, &s.OrganizationID, &s.ExternalToken,
		&s.PasswordHash, &s.SharedBy, &s.ViewCount, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Replace installs the given shares as the recording's complete share set.
// Existing shares for the recording are removed first, so re-sharing always
// replaces rather than accumulates.
func (r *Repository) Replace(ctx context.Context, recordingID uuid.UUID, shares []*models.VideoShare) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM video_shares WHERE recording_id = $1`, recordingID); err != nil {
		return err
	}
	const q = `INSERT INTO video_shares (id, recording_id, share_type, organization_id, external_token, password_hash, shared_by)
		VALUES (gen_random_uuid(), $1, $2, $3, NULLIF($4,''), NULLIF($5,''), $6)
		RETURNING id, view_count, created_at`
	for _, s := range shares {
		err := r.pool.QueryRow(ctx, q, recordingID, s.ShareType, s.OrganizationID, s.ExternalToken, s.PasswordHash, s.SharedBy).
			Scan(&s.ID, &s.ViewCount, &s.CreatedAt)
		if err != nil {
			return err
		}
		s.RecordingID = recordingID
	}
	return nil
}

// GetByToken returns the external share with the given token, or nil.
func (r *Repository) GetByToken(ctx context.Context, token string) (*models.VideoShare, error) {
	s, err := scanShare(r.pool.QueryRow(ctx,
		`SELECT `+shareColumns+` FROM video_shares WHERE external_token = $1`, token))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// ListForRecording returns the recording's current shares.
func (r *Repository) ListForRecording(ctx context.Context, recordingID uuid.UUID) ([]models.VideoShare, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+shareColumns+` FROM video_shares WHERE recording_id = $1 ORDER BY share_type`, recordingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.VideoShare
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// IncrementViewCount bumps a share's view counter.
func (r *Repository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE video_shares SET view_count = view_count + 1 WHERE id = $1`, id)
	return err
}

// DeleteForRecording revokes every share of a recording. Returns the number of
// revoked shares.
func (r *Repository) DeleteForRecording(ctx context.Context, recordingID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM video_shares WHERE recording_id = $1`, recordingID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

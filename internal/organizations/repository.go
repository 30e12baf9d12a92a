package organizations

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles organization membership lookups. Membership management
// itself is owned by the account service; internal shares only need to know
// which org the sharer belongs to.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an organizations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// PrimaryOrganizationID returns the id of the user's earliest-joined
// organization, or uuid.Nil when the user belongs to none.
func (r *Repository) PrimaryOrganizationID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	const q = `SELECT organization_id FROM organization_users
		WHERE user_id = $1 ORDER BY created_at ASC LIMIT 1`
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, q, userID).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return uuid.Nil, nil
		}
		return uuid.Nil, err
	}
	return id, nil
}

// IsMember reports whether the user belongs to the organization (internal
// share viewing).
func (r *Repository) IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	const q = `SELECT 1 FROM organization_users WHERE organization_id = $1 AND user_id = $2`
	var one int
	err := r.pool.QueryRow(ctx, q, orgID, userID).Scan(&one)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

package audit

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meetscribe/backend/internal/models"
)

// Repository writes the append-only audit trail. There is no update or delete
// path on purpose.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an audit repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record appends one audit entry. Details are sanitized before storage so
// secrets never land in the trail.
func (r *Repository) Record(ctx context.Context, userID *uuid.UUID, action string, details map[string]interface{}) error {
	raw, err := json.Marshal(SanitizeDetails(details))
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, user_id, action, details) VALUES (gen_random_uuid(), $1, $2, $3)`,
		userID, action, raw)
	return err
}

// ListByUser returns a user's audit entries, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, action, details, created_at FROM audit_logs
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.AuditLogEntry
	for rows.Next() {
		var e models.AuditLogEntry
		var raw []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &raw, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &e.Details)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// sensitiveFragments in a detail key mean the value must not be stored.
var sensitiveFragments = []string{"password", "token", "secret"}

// SanitizeDetails drops keys that could carry credentials. The original map is
// not modified.
func SanitizeDetails(details map[string]interface{}) map[string]interface{} {
	clean := make(map[string]interface{}, len(details))
	for k, v := range details {
		lower := strings.ToLower(k)
		sensitive := false
		for _, frag := range sensitiveFragments {
			if strings.Contains(lower, frag) {
				sensitive = true
				break
			}
		}
		if sensitive {
			continue
		}
		clean[k] = v
	}
	return clean
}

package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meetscribe/backend/internal/models"
)

// Repository reads the synced calendar event projection. Writes belong to the
// external calendar-sync collaborator.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, user_id, title, starts_at, ends_at, COALESCE(meeting_url,''), master_event_id, organizer, participants, created_at, updated_at`

func scanEvent(row pgx.Row) (*models.CalendarEvent, error) {
	var ev models.CalendarEvent
	var organizerRaw, participantsRaw []byte
	err := row.Scan(&ev.ID, &ev.UserID, &ev.Title, &ev.StartsAt, &ev.EndsAt, &ev.MeetingURL,
		&ev.MasterEventID, &organizerRaw, &participantsRaw, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return nil, err
	}
	// Participants and organizer are typed here, once, at the storage boundary.
	ev.Participants = models.ParticipantsFromJSON(participantsRaw)
	if len(organizerRaw) > 0 {
		var org models.Participant
		if err := json.Unmarshal(organizerRaw, &org); err == nil && org.Email != "" {
			ev.Organizer = &org
		}
	}
	return &ev, nil
}

// GetByID returns an event by ID, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.CalendarEvent, error) {
	ev, err := scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return ev, nil
}

// SeriesEventIDs returns the ids of every instance of the event's recurring
// series, including the master. For a non-recurring event it returns just the
// event's own id.
func (r *Repository) SeriesEventIDs(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error) {
	ev, err := r.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, nil
	}
	masterID := ev.ID
	if ev.MasterEventID != nil {
		masterID = *ev.MasterEventID
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM events WHERE id = $1 OR master_event_id = $1`, masterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListFutureSeriesInstances returns future instances of the event's series
// (used when enabling recurring recording).
func (r *Repository) ListFutureSeriesInstances(ctx context.Context, eventID uuid.UUID) ([]*models.CalendarEvent, error) {
	ev, err := r.GetByID(ctx, eventID)
	if err != nil || ev == nil {
		return nil, err
	}
	masterID := ev.ID
	if ev.MasterEventID != nil {
		masterID = *ev.MasterEventID
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE (id = $1 OR master_event_id = $1) AND starts_at > NOW()
		 ORDER BY starts_at`, masterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.CalendarEvent
	for rows.Next() {
		instance, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, instance)
	}
	return list, rows.Err()
}

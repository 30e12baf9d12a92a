package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Participant is one attendee or organizer of a calendar event. Constructed
// once at the storage boundary with defaulted fields; handlers never probe
// raw provider JSON.
type Participant struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ParticipantsFromJSON decodes the provider's participant blob into value
// types. Entries without an email are dropped; a missing name defaults to the
// email's local part.
func ParticipantsFromJSON(raw []byte) []Participant {
	if len(raw) == 0 {
		return nil
	}
	var decoded []Participant
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil
	}
	out := decoded[:0]
	for _, p := range decoded {
		p.Email = strings.TrimSpace(p.Email)
		if p.Email == "" {
			continue
		}
		if strings.TrimSpace(p.Name) == "" {
			p.Name = strings.SplitN(p.Email, "@", 2)[0]
		}
		out = append(out, p)
	}
	return out
}

// CalendarEvent is the synced calendar event a notetaker can be scheduled
// against. Sync itself is owned by an external collaborator; this is the
// read-side projection.
type CalendarEvent struct {
	ID            uuid.UUID     `json:"id"`
	UserID        uuid.UUID     `json:"user_id"`
	Title         string        `json:"title"`
	StartsAt      time.Time     `json:"starts_at"`
	EndsAt        *time.Time    `json:"ends_at,omitempty"`
	MeetingURL    string        `json:"meeting_url,omitempty"`
	MasterEventID *uuid.UUID    `json:"master_event_id,omitempty"` // set on recurring-series instances
	Organizer     *Participant  `json:"organizer,omitempty"`
	Participants  []Participant `json:"participants,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

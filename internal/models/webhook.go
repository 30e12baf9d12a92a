package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// WebhookType discriminates the notetaker provider's webhook payload union.
type WebhookType string

const (
	WebhookNotetakerStatus WebhookType = "notetaker.status_update"
	WebhookNotetakerMedia  WebhookType = "notetaker.media"
	WebhookEventUpdated    WebhookType = "event.updated"
	WebhookEventDeleted    WebhookType = "event.deleted"
	WebhookGrantExpired    WebhookType = "grant.expired"
)

// ErrUnknownWebhookType is returned for a discriminator this version does not
// know. Callers acknowledge and ignore: the provider adds types out-of-band.
var ErrUnknownWebhookType = errors.New("unknown webhook type")

// StatusUpdatePayload reports bot lifecycle progress for one session.
type StatusUpdatePayload struct {
	NotetakerID string `json:"notetaker_id"`
	Status      string `json:"status"`
}

// MediaPayload reports the bot's media availability for one session.
type MediaPayload struct {
	NotetakerID string `json:"notetaker_id"`
	MediaState  string `json:"media_state"` // "available" | "processing" | "missing"
}

// EventChangePayload identifies a calendar event the provider changed.
type EventChangePayload struct {
	EventID uuid.UUID `json:"event_id"`
}

// GrantPayload identifies a calendar grant that changed state.
type GrantPayload struct {
	GrantID string `json:"grant_id"`
}

// NotetakerWebhook is the decoded tagged union. Exactly one variant pointer is
// non-nil, matching Type.
type NotetakerWebhook struct {
	Type         WebhookType
	StatusUpdate *StatusUpdatePayload
	Media        *MediaPayload
	EventChange  *EventChangePayload
	Grant        *GrantPayload
}

// DecodeWebhook parses a provider webhook body into its variant. The variant
// shape is validated here so dispatch sites can switch on Type exhaustively
// without re-probing fields.
func DecodeWebhook(raw []byte) (*NotetakerWebhook, error) {
	var envelope struct {
		Type WebhookType     `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode webhook envelope: %w", err)
	}
	if envelope.Type == "" {
		return nil, errors.New("webhook missing type")
	}

	hook := &NotetakerWebhook{Type: envelope.Type}
	switch envelope.Type {
	case WebhookNotetakerStatus:
		var p StatusUpdatePayload
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", envelope.Type, err)
		}
		if p.NotetakerID == "" || p.Status == "" {
			return nil, fmt.Errorf("%s: notetaker_id and status required", envelope.Type)
		}
		hook.StatusUpdate = &p
	case WebhookNotetakerMedia:
		var p MediaPayload
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", envelope.Type, err)
		}
		if p.NotetakerID == "" {
			return nil, fmt.Errorf("%s: notetaker_id required", envelope.Type)
		}
		hook.Media = &p
	case WebhookEventUpdated, WebhookEventDeleted:
		var p EventChangePayload
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", envelope.Type, err)
		}
		if p.EventID == uuid.Nil {
			return nil, fmt.Errorf("%s: event_id required", envelope.Type)
		}
		hook.EventChange = &p
	case WebhookGrantExpired:
		var p GrantPayload
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", envelope.Type, err)
		}
		hook.Grant = &p
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownWebhookType, envelope.Type)
	}
	return hook, nil
}

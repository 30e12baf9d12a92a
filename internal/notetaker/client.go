package notetaker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrNoMeetingURL means the event has no joinable meeting link.
var ErrNoMeetingURL = errors.New("event has no meeting url")

// Config holds the external bot service connection settings.
type Config struct {
	BaseURL string
	APIKey  string
}

// Session is the bot service's handle for one dispatched notetaker.
type Session struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Client calls the external meeting-bot service. The bot itself (browser
// automation, capture) is entirely the service's concern.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a notetaker service client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

type dispatchRequest struct {
	MeetingURL string    `json:"meeting_url"`
	JoinAt     time.Time `json:"join_at"`
	BotName    string    `json:"bot_name,omitempty"`
}

// Dispatch asks the bot service to join a meeting. Returns the bot session;
// subsequent progress arrives via the status webhook.
func (c *Client) Dispatch(ctx context.Context, meetingURL string, joinAt time.Time) (*Session, error) {
	if meetingURL == "" {
		return nil, ErrNoMeetingURL
	}
	payload, err := json.Marshal(dispatchRequest{MeetingURL: meetingURL, JoinAt: joinAt, BotName: "MeetScribe Notetaker"})
	if err != nil {
		return nil, fmt.Errorf("marshal dispatch: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/notetakers", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dispatch notetaker: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("dispatch notetaker status: %d", resp.StatusCode)
	}
	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if session.ID == "" {
		return nil, errors.New("bot service returned no session id")
	}
	return &session, nil
}

// Cancel asks the bot service to abort a session (e.g. recording disabled
// after dispatch). A 404 is treated as already gone.
func (c *Client) Cancel(ctx context.Context, notetakerID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.cfg.BaseURL+"/v1/notetakers/"+notetakerID, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cancel notetaker: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("cancel notetaker status: %d", resp.StatusCode)
	}
	return nil
}

package hosting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrNotReady means the hosting service accepted the request but has not
// finished processing yet (or is momentarily unable to). Retryable.
var ErrNotReady = errors.New("hosting service not ready")

// Asset statuses reported by the hosting service.
const (
	AssetStatusPreparing = "preparing"
	AssetStatusReady     = "ready"
	AssetStatusErrored   = "errored"
)

// Asset is the hosting service's view of one uploaded capture.
type Asset struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	PlaybackURL string `json:"playback_url,omitempty"`
	Passthrough string `json:"passthrough,omitempty"`
}

// Config holds hosting service connection settings.
type Config struct {
	BaseURL     string
	TokenID     string
	TokenSecret string
}

// Client calls the external video hosting / transcoding service's asset API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a hosting service client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 10 * time.Minute}, // uploads stream large captures
		logger: logger,
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// CreateAsset streams a raw capture to the hosting service as a new asset.
// passthrough is echoed back on the asset (used to carry the attempt id).
func (c *Client) CreateAsset(ctx context.Context, body io.Reader, contentType string, contentLength int64, passthrough string) (*Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/video/v1/assets", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.cfg.TokenID, c.cfg.TokenSecret)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Passthrough", passthrough)
	if contentLength > 0 {
		req.ContentLength = contentLength
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create asset: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusAccepted:
		var asset Asset
		if err := json.NewDecoder(resp.Body).Decode(&asset); err != nil {
			return nil, fmt.Errorf("decode asset: %w", err)
		}
		if asset.ID == "" {
			return nil, errors.New("hosting service returned no asset id")
		}
		return &asset, nil
	case retryableStatus(resp.StatusCode):
		return nil, fmt.Errorf("%w: create asset status %d", ErrNotReady, resp.StatusCode)
	default:
		return nil, fmt.Errorf("create asset status %d: %s", resp.StatusCode, readError(resp.Body))
	}
}

// GetAsset fetches the current state of an asset.
func (c *Client) GetAsset(ctx context.Context, assetID string) (*Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/video/v1/assets/"+assetID, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.cfg.TokenID, c.cfg.TokenSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var asset Asset
		if err := json.NewDecoder(resp.Body).Decode(&asset); err != nil {
			return nil, fmt.Errorf("decode asset: %w", err)
		}
		return &asset, nil
	case retryableStatus(resp.StatusCode):
		return nil, fmt.Errorf("%w: get asset status %d", ErrNotReady, resp.StatusCode)
	default:
		return nil, fmt.Errorf("get asset status %d: %s", resp.StatusCode, readError(resp.Body))
	}
}

// retryableStatus covers "come back later" responses from the hosting service.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func readError(r io.Reader) string {
	var body errorBody
	if err := json.NewDecoder(io.LimitReader(r, 4096)).Decode(&body); err == nil && body.Error != "" {
		return body.Error
	}
	return "unknown error"
}

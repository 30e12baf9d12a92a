package hosting

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAsset(t *testing.T) {
	var gotAuthUser, gotPassthrough, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/video/v1/assets", r.URL.Path)
		gotAuthUser, _, _ = r.BasicAuth()
		gotPassthrough = r.Header.Get("X-Passthrough")
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"asset-1","status":"preparing","passthrough":"attempt-7"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, TokenID: "tid", TokenSecret: "ts"}, nil)
	asset, err := c.CreateAsset(context.Background(), strings.NewReader("bytes"), "video/mp4", 5, "attempt-7")
	require.NoError(t, err)
	assert.Equal(t, "asset-1", asset.ID)
	assert.Equal(t, AssetStatusPreparing, asset.Status)
	assert.Equal(t, "tid", gotAuthUser)
	assert.Equal(t, "attempt-7", gotPassthrough)
	assert.Equal(t, "video/mp4", gotContentType)
}

func TestCreateAssetRetryableStatuses(t *testing.T) {
	for _, code := range []int{http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))
		c := NewClient(Config{BaseURL: srv.URL}, nil)
		_, err := c.CreateAsset(context.Background(), strings.NewReader("x"), "video/mp4", 1, "a")
		assert.ErrorIs(t, err, ErrNotReady, "status %d", code)
		srv.Close()
	}
}

func TestCreateAssetHardError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"unsupported container"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	_, err := c.CreateAsset(context.Background(), strings.NewReader("x"), "video/mp4", 1, "a")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotReady)
	assert.Contains(t, err.Error(), "unsupported container")
}

func TestCreateAssetMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"preparing"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	_, err := c.CreateAsset(context.Background(), strings.NewReader("x"), "video/mp4", 1, "a")
	assert.Error(t, err)
}

func TestGetAsset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/video/v1/assets/asset-1", r.URL.Path)
		w.Write([]byte(`{"id":"asset-1","status":"ready","playback_url":"https://stream.example.com/a.m3u8"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	asset, err := c.GetAsset(context.Background(), "asset-1")
	require.NoError(t, err)
	assert.Equal(t, AssetStatusReady, asset.Status)
	assert.Equal(t, "https://stream.example.com/a.m3u8", asset.PlaybackURL)
}

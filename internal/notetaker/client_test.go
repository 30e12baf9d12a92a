package notetaker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch(t *testing.T) {
	var gotAuth string
	var gotBody dispatchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/notetakers", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"nt-1","status":"scheduled"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "key-1"}, nil)
	joinAt := time.Now().Add(time.Minute).UTC().Truncate(time.Second)
	session, err := c.Dispatch(context.Background(), "https://meet.example.com/abc", joinAt)
	require.NoError(t, err)
	assert.Equal(t, "nt-1", session.ID)
	assert.Equal(t, "Bearer key-1", gotAuth)
	assert.Equal(t, "https://meet.example.com/abc", gotBody.MeetingURL)
	assert.True(t, gotBody.JoinAt.Equal(joinAt))
}

func TestDispatchNoMeetingURL(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://unused"}, nil)
	_, err := c.Dispatch(context.Background(), "", time.Now())
	assert.ErrorIs(t, err, ErrNoMeetingURL)
}

func TestDispatchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	_, err := c.Dispatch(context.Background(), "https://meet.example.com/abc", time.Now())
	assert.Error(t, err)
}

func TestDispatchMissingSessionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"scheduled"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	_, err := c.Dispatch(context.Background(), "https://meet.example.com/abc", time.Now())
	assert.Error(t, err)
}

func TestCancel(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"no content", http.StatusNoContent, false},
		{"already gone", http.StatusNotFound, false},
		{"server error", http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodDelete, r.Method)
				require.Equal(t, "/v1/notetakers/nt-1", r.URL.Path)
				w.WriteHeader(tt.code)
			}))
			defer srv.Close()

			c := NewClient(Config{BaseURL: srv.URL, APIKey: "key-1"}, nil)
			err := c.Cancel(context.Background(), "nt-1")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

package recordings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/pkg/queue"
)

type fakeWebhookStore struct {
	rec      *models.Recording
	statuses []string
	failure  string
	afterGet func() // runs after a successful lookup, before the write lands
}

func (f *fakeWebhookStore) GetByNotetakerID(_ context.Context, notetakerID string) (*models.Recording, error) {
	if f.rec != nil && f.rec.NotetakerID == notetakerID {
		snapshot := *f.rec
		if f.afterGet != nil {
			f.afterGet()
		}
		return &snapshot, nil
	}
	return nil, nil
}

func (f *fakeWebhookStore) ApplyStatusRanked(_ context.Context, _, status string) (bool, error) {
	if !models.CanTransition(f.rec.Status, status) {
		return false, nil
	}
	f.rec.Status = status
	f.statuses = append(f.statuses, status)
	return true, nil
}

func (f *fakeWebhookStore) SetStatus(_ context.Context, _ uuid.UUID, status string) error {
	f.rec.Status = status
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeWebhookStore) ApplyEntryFailure(_ context.Context, notetakerID, reason string) (bool, error) {
	if f.rec == nil || f.rec.NotetakerID != notetakerID {
		return false, nil
	}
	switch f.rec.Status {
	case models.RecordingStatusPending, models.RecordingStatusJoining, models.RecordingStatusWaitingForAdmission:
	default:
		return false, nil
	}
	f.rec.Status = models.RecordingStatusFailedEntry
	f.failure = reason
	f.statuses = append(f.statuses, models.RecordingStatusFailedEntry)
	return true, nil
}

type fakeScheduleStore struct {
	deleted     []uuid.UUID
	rescheduled []uuid.UUID
}

func (f *fakeScheduleStore) DeleteForEvents(_ context.Context, eventIDs []uuid.UUID) (int64, error) {
	f.deleted = append(f.deleted, eventIDs...)
	return int64(len(eventIDs)), nil
}

func (f *fakeScheduleStore) ReschedulePending(_ context.Context, eventID uuid.UUID, _ time.Duration) error {
	f.rescheduled = append(f.rescheduled, eventID)
	return nil
}

type fakeEnqueuer struct {
	payloads []queue.MediaRetrievalPayload
}

func (f *fakeEnqueuer) EnqueueMediaRetrieval(_ context.Context, p queue.MediaRetrievalPayload) error {
	f.payloads = append(f.payloads, p)
	return nil
}

func postWebhook(t *testing.T, h *WebhookHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/webhooks/notetaker-status", h.NotetakerStatus)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/notetaker-status", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestWebhookStatusProgression(t *testing.T) {
	store := &fakeWebhookStore{rec: &models.Recording{ID: uuid.New(), NotetakerID: "nt-1", Status: models.RecordingStatusJoining}}
	h := NewWebhookHandler(store, &fakeScheduleStore{}, &fakeEnqueuer{}, nil, time.Minute, nil)

	w := postWebhook(t, h, `{"type":"notetaker.status_update","data":{"notetaker_id":"nt-1","status":"attending"}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RecordingStatusAttending, store.rec.Status)
}

func TestWebhookOutOfOrderDropped(t *testing.T) {
	store := &fakeWebhookStore{rec: &models.Recording{ID: uuid.New(), NotetakerID: "nt-1", Status: models.RecordingStatusAttending}}
	h := NewWebhookHandler(store, &fakeScheduleStore{}, &fakeEnqueuer{}, nil, time.Minute, nil)

	w := postWebhook(t, h, `{"type":"notetaker.status_update","data":{"notetaker_id":"nt-1","status":"joining"}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"applied":false`)
	assert.Equal(t, models.RecordingStatusAttending, store.rec.Status, "late event must not regress the status")
}

func TestWebhookConcludedStartsRetrieval(t *testing.T) {
	rec := &models.Recording{ID: uuid.New(), NotetakerID: "nt-1", Status: models.RecordingStatusLeaving}
	store := &fakeWebhookStore{rec: rec}
	enq := &fakeEnqueuer{}
	h := NewWebhookHandler(store, &fakeScheduleStore{}, enq, nil, time.Minute, nil)

	w := postWebhook(t, h, `{"type":"notetaker.status_update","data":{"notetaker_id":"nt-1","status":"concluded"}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RecordingStatusProcessing, rec.Status)
	require.Len(t, enq.payloads, 1)
	assert.Equal(t, rec.ID, enq.payloads[0].RecordingID)
	assert.Equal(t, "nt-1", enq.payloads[0].NotetakerID)
}

func TestWebhookFailedEntry(t *testing.T) {
	tests := []struct {
		name       string
		current    string
		wantStatus string
	}{
		{"honored while joining", models.RecordingStatusJoining, models.RecordingStatusFailedEntry},
		{"honored while waiting", models.RecordingStatusWaitingForAdmission, models.RecordingStatusFailedEntry},
		{"ignored after admission", models.RecordingStatusAttending, models.RecordingStatusAttending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeWebhookStore{rec: &models.Recording{ID: uuid.New(), NotetakerID: "nt-1", Status: tt.current}}
			h := NewWebhookHandler(store, &fakeScheduleStore{}, &fakeEnqueuer{}, nil, time.Minute, nil)

			w := postWebhook(t, h, `{"type":"notetaker.status_update","data":{"notetaker_id":"nt-1","status":"failed_entry"}}`)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantStatus, store.rec.Status)
		})
	}
}

func TestWebhookFailedEntryLosesToConcurrentAdmission(t *testing.T) {
	store := &fakeWebhookStore{rec: &models.Recording{ID: uuid.New(), NotetakerID: "nt-1", Status: models.RecordingStatusJoining}}
	// The bot is admitted between the handler's read and its write.
	store.afterGet = func() { store.rec.Status = models.RecordingStatusAttending }
	h := NewWebhookHandler(store, &fakeScheduleStore{}, &fakeEnqueuer{}, nil, time.Minute, nil)

	w := postWebhook(t, h, `{"type":"notetaker.status_update","data":{"notetaker_id":"nt-1","status":"failed_entry"}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"applied":false`)
	assert.Equal(t, models.RecordingStatusAttending, store.rec.Status, "admitted bot must not be failed by a late entry report")
	assert.Empty(t, store.failure)
}

func TestWebhookUnknownNotetaker(t *testing.T) {
	h := NewWebhookHandler(&fakeWebhookStore{}, &fakeScheduleStore{}, &fakeEnqueuer{}, nil, time.Minute, nil)

	w := postWebhook(t, h, `{"type":"notetaker.status_update","data":{"notetaker_id":"nt-unknown","status":"attending"}}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookUnknownTypeAccepted(t *testing.T) {
	h := NewWebhookHandler(&fakeWebhookStore{}, &fakeScheduleStore{}, &fakeEnqueuer{}, nil, time.Minute, nil)

	w := postWebhook(t, h, `{"type":"notetaker.screenshot","data":{}}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestWebhookEventDeleted(t *testing.T) {
	schedule := &fakeScheduleStore{}
	h := NewWebhookHandler(&fakeWebhookStore{}, schedule, &fakeEnqueuer{}, nil, time.Minute, nil)

	eventID := uuid.New()
	w := postWebhook(t, h, `{"type":"event.deleted","data":{"event_id":"`+eventID.String()+`"}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []uuid.UUID{eventID}, schedule.deleted)
}

func TestWebhookEventUpdated(t *testing.T) {
	schedule := &fakeScheduleStore{}
	h := NewWebhookHandler(&fakeWebhookStore{}, schedule, &fakeEnqueuer{}, nil, time.Minute, nil)

	eventID := uuid.New()
	w := postWebhook(t, h, `{"type":"event.updated","data":{"event_id":"`+eventID.String()+`"}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []uuid.UUID{eventID}, schedule.rescheduled)
}

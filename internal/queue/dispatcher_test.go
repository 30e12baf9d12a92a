package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/internal/notetaker"
)

type fakeQueueStore struct {
	ready     []models.NotetakerQueueEntry
	completed []uuid.UUID
	failed    map[uuid.UUID]string
}

func (f *fakeQueueStore) ClaimReady(_ context.Context, _ time.Time, limit int) ([]models.NotetakerQueueEntry, error) {
	if len(f.ready) > limit {
		return f.ready[:limit], nil
	}
	return f.ready, nil
}

func (f *fakeQueueStore) MarkCompleted(_ context.Context, id uuid.UUID) error {
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeQueueStore) MarkFailed(_ context.Context, id uuid.UUID, dispatchErr string) error {
	if f.failed == nil {
		f.failed = make(map[uuid.UUID]string)
	}
	f.failed[id] = dispatchErr
	return nil
}

type fakeEventGetter struct {
	events map[uuid.UUID]*models.CalendarEvent
}

func (f *fakeEventGetter) GetByID(_ context.Context, id uuid.UUID) (*models.CalendarEvent, error) {
	return f.events[id], nil
}

type fakeBotService struct {
	session     *notetaker.Session
	dispatchErr error
	dispatched  []string
	cancelled   []string
}

func (f *fakeBotService) Dispatch(_ context.Context, meetingURL string, _ time.Time) (*notetaker.Session, error) {
	if f.dispatchErr != nil {
		return nil, f.dispatchErr
	}
	f.dispatched = append(f.dispatched, meetingURL)
	return f.session, nil
}

func (f *fakeBotService) Cancel(_ context.Context, notetakerID string) error {
	f.cancelled = append(f.cancelled, notetakerID)
	return nil
}

type fakeRecordingCreator struct {
	created []*models.Recording
	err     error
}

func (f *fakeRecordingCreator) Create(_ context.Context, rec *models.Recording) error {
	if f.err != nil {
		return f.err
	}
	rec.ID = uuid.New()
	f.created = append(f.created, rec)
	return nil
}

func testEntry(eventID uuid.UUID) models.NotetakerQueueEntry {
	return models.NotetakerQueueEntry{
		ID:           uuid.New(),
		EventID:      eventID,
		UserID:       uuid.New(),
		ScheduledFor: time.Now().Add(-time.Minute),
		Status:       models.QueueStatusProcessing,
		MaxAttempts:  3,
	}
}

func TestDispatchReadySuccess(t *testing.T) {
	eventID := uuid.New()
	entry := testEntry(eventID)
	store := &fakeQueueStore{ready: []models.NotetakerQueueEntry{entry}}
	events := &fakeEventGetter{events: map[uuid.UUID]*models.CalendarEvent{
		eventID: {ID: eventID, MeetingURL: "https://meet.example.com/abc", StartsAt: time.Now().Add(time.Minute)},
	}}
	bots := &fakeBotService{session: &notetaker.Session{ID: "nt-1", Status: "scheduled"}}
	recs := &fakeRecordingCreator{}
	d := NewDispatcher(store, events, bots, recs, 10, nil)

	n, err := d.DispatchReady(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []uuid.UUID{entry.ID}, store.completed)
	require.Len(t, recs.created, 1)
	assert.Equal(t, "nt-1", recs.created[0].NotetakerID)
	assert.Equal(t, models.RecordingStatusPending, recs.created[0].Status)
	assert.Empty(t, bots.cancelled)
}

func TestDispatchFailureCreatesNoRecording(t *testing.T) {
	eventID := uuid.New()
	entry := testEntry(eventID)
	store := &fakeQueueStore{ready: []models.NotetakerQueueEntry{entry}}
	events := &fakeEventGetter{events: map[uuid.UUID]*models.CalendarEvent{
		eventID: {ID: eventID, MeetingURL: "https://meet.example.com/abc", StartsAt: time.Now()},
	}}
	bots := &fakeBotService{dispatchErr: errors.New("bot service unavailable")}
	recs := &fakeRecordingCreator{}
	d := NewDispatcher(store, events, bots, recs, 10, nil)

	n, err := d.DispatchReady(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, recs.created, "a failed dispatch must not leave an orphan recording")
	assert.Equal(t, "bot service unavailable", store.failed[entry.ID])
	assert.Empty(t, store.completed)
}

func TestDispatchCreateFailureCancelsBot(t *testing.T) {
	eventID := uuid.New()
	entry := testEntry(eventID)
	store := &fakeQueueStore{ready: []models.NotetakerQueueEntry{entry}}
	events := &fakeEventGetter{events: map[uuid.UUID]*models.CalendarEvent{
		eventID: {ID: eventID, MeetingURL: "https://meet.example.com/abc", StartsAt: time.Now()},
	}}
	bots := &fakeBotService{session: &notetaker.Session{ID: "nt-9"}}
	recs := &fakeRecordingCreator{err: errors.New("insert failed")}
	d := NewDispatcher(store, events, bots, recs, 10, nil)

	_, err := d.DispatchReady(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"nt-9"}, bots.cancelled, "the bot must be recalled when the recording row cannot be created")
	assert.Contains(t, store.failed[entry.ID], "insert failed")
}

func TestDispatchMissingEventFails(t *testing.T) {
	entry := testEntry(uuid.New())
	store := &fakeQueueStore{ready: []models.NotetakerQueueEntry{entry}}
	d := NewDispatcher(store, &fakeEventGetter{events: map[uuid.UUID]*models.CalendarEvent{}}, &fakeBotService{}, &fakeRecordingCreator{}, 10, nil)

	n, err := d.DispatchReady(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NotEmpty(t, store.failed[entry.ID])
}

func TestDispatchRespectsBatchSize(t *testing.T) {
	eventID := uuid.New()
	store := &fakeQueueStore{ready: []models.NotetakerQueueEntry{testEntry(eventID), testEntry(eventID), testEntry(eventID)}}
	events := &fakeEventGetter{events: map[uuid.UUID]*models.CalendarEvent{
		eventID: {ID: eventID, MeetingURL: "https://meet.example.com/abc", StartsAt: time.Now()},
	}}
	bots := &fakeBotService{session: &notetaker.Session{ID: "nt-1"}}
	d := NewDispatcher(store, events, bots, &fakeRecordingCreator{}, 2, nil)

	n, err := d.DispatchReady(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

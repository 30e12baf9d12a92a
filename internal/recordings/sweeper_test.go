package recordings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/backend/internal/models"
)

type fakeSweepStore struct {
	stale  []models.Recording
	reason string
	runs   int
}

func (f *fakeSweepStore) CountNullAsset(context.Context) (int, error) { return 5, nil }

func (f *fakeSweepStore) CountNullAssetOlderThan(context.Context, time.Time) (int, error) {
	return 3, nil
}

func (f *fakeSweepStore) CountSweepCandidates(context.Context, time.Time) (int, error) {
	return len(f.stale), nil
}

func (f *fakeSweepStore) FailStale(_ context.Context, _ time.Time, reason string) ([]models.Recording, error) {
	f.runs++
	f.reason = reason
	updated := f.stale
	// Once failed, the guard excludes them from later sweeps.
	f.stale = nil
	return updated, nil
}

func TestSweep(t *testing.T) {
	store := &fakeSweepStore{stale: []models.Recording{
		{ID: uuid.New(), Status: models.RecordingStatusRetrieving},
		{ID: uuid.New(), Status: models.RecordingStatusProcessing},
	}}
	s := NewSweeper(store, 12*time.Hour, nil)

	result, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.UpdatedRecordings, 2)
	assert.Equal(t, 5, result.Diagnostics.TotalNullMux)
	assert.Equal(t, 3, result.Diagnostics.OlderThanWindow)
	assert.Equal(t, 2, result.Diagnostics.NotAlreadyFailed)
	assert.Contains(t, store.reason, "12h")
}

func TestSweepIdempotent(t *testing.T) {
	store := &fakeSweepStore{stale: []models.Recording{{ID: uuid.New()}}}
	s := NewSweeper(store, 12*time.Hour, nil)

	first, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Len(t, first.UpdatedRecordings, 1)

	second, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second.UpdatedRecordings, "immediate second run updates nothing")
	assert.Equal(t, 2, store.runs)
}

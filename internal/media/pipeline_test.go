package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/backend/internal/hosting"
	"github.com/meetscribe/backend/internal/models"
)

type fakeRecordingStore struct {
	recordings map[uuid.UUID]*models.Recording
	statuses   []string
	failReason string
	assetID    string
}

func newFakeRecordingStore(rec *models.Recording) *fakeRecordingStore {
	return &fakeRecordingStore{recordings: map[uuid.UUID]*models.Recording{rec.ID: rec}}
}

func (f *fakeRecordingStore) GetByID(_ context.Context, id uuid.UUID) (*models.Recording, error) {
	return f.recordings[id], nil
}

func (f *fakeRecordingStore) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	f.statuses = append(f.statuses, status)
	f.recordings[id].Status = status
	return nil
}

func (f *fakeRecordingStore) SetFailure(_ context.Context, id uuid.UUID, status, reason string) error {
	f.statuses = append(f.statuses, status)
	f.failReason = reason
	f.recordings[id].Status = status
	return nil
}

func (f *fakeRecordingStore) SetAssetResult(_ context.Context, id uuid.UUID, assetID string) error {
	f.assetID = assetID
	f.recordings[id].Status = models.RecordingStatusProcessing
	f.recordings[id].MuxAssetID = assetID
	return nil
}

type fakeCaptureStore struct {
	body string
	err  error
	key  string
}

func (f *fakeCaptureStore) GetObjectStream(_ context.Context, _, key string) (io.ReadCloser, string, int64, error) {
	f.key = key
	if f.err != nil {
		return nil, "", 0, f.err
	}
	return io.NopCloser(strings.NewReader(f.body)), "video/mp4", int64(len(f.body)), nil
}

type fakeAssetCreator struct {
	asset       *hosting.Asset
	err         error
	passthrough string
}

func (f *fakeAssetCreator) CreateAsset(_ context.Context, _ io.Reader, _ string, _ int64, passthrough string) (*hosting.Asset, error) {
	f.passthrough = passthrough
	if f.err != nil {
		return nil, f.err
	}
	return f.asset, nil
}

func TestRetrieveSuccess(t *testing.T) {
	rec := &models.Recording{ID: uuid.New(), Status: models.RecordingStatusProcessing}
	repo := newFakeRecordingStore(rec)
	store := &fakeCaptureStore{body: "capture-bytes"}
	creator := &fakeAssetCreator{asset: &hosting.Asset{ID: "asset-42", Status: hosting.AssetStatusPreparing}}
	p := NewPipeline(repo, store, "captures", creator, nil)

	assetID, err := p.Retrieve(context.Background(), rec.ID, "nt-1")
	require.NoError(t, err)
	assert.Equal(t, "asset-42", assetID)
	assert.Equal(t, "asset-42", repo.assetID)
	assert.Equal(t, "captures/nt-1.mp4", store.key)
	assert.Equal(t, []string{models.RecordingStatusRetrieving}, repo.statuses)
	assert.NotEmpty(t, creator.passthrough, "attempt id must travel as passthrough")
}

func TestRetrieveMissingIdentifiers(t *testing.T) {
	p := NewPipeline(newFakeRecordingStore(&models.Recording{ID: uuid.New()}), &fakeCaptureStore{}, "captures", &fakeAssetCreator{}, nil)

	_, err := p.Retrieve(context.Background(), uuid.Nil, "nt-1")
	assert.ErrorIs(t, err, ErrMissingIdentifiers)
	_, err = p.Retrieve(context.Background(), uuid.New(), "")
	assert.ErrorIs(t, err, ErrMissingIdentifiers)
}

func TestRetrieveRecordingNotFound(t *testing.T) {
	repo := &fakeRecordingStore{recordings: map[uuid.UUID]*models.Recording{}}
	p := NewPipeline(repo, &fakeCaptureStore{}, "captures", &fakeAssetCreator{}, nil)

	_, err := p.Retrieve(context.Background(), uuid.New(), "nt-1")
	assert.ErrorIs(t, err, ErrRecordingNotFound)
}

func TestRetrieveCaptureAbsent(t *testing.T) {
	rec := &models.Recording{ID: uuid.New(), Status: models.RecordingStatusProcessing}
	repo := newFakeRecordingStore(rec)
	store := &fakeCaptureStore{err: &types.NoSuchKey{}}
	p := NewPipeline(repo, store, "captures", &fakeAssetCreator{}, nil)

	_, err := p.Retrieve(context.Background(), rec.ID, "nt-1")
	assert.ErrorIs(t, err, ErrCaptureNotFound)
	assert.Equal(t, models.RecordingStatusError, rec.Status)
	assert.Contains(t, repo.failReason, "raw capture not found")
}

func TestRetrieveHostingNotReady(t *testing.T) {
	rec := &models.Recording{ID: uuid.New(), Status: models.RecordingStatusProcessing}
	repo := newFakeRecordingStore(rec)
	creator := &fakeAssetCreator{err: hosting.ErrNotReady}
	p := NewPipeline(repo, &fakeCaptureStore{body: "x"}, "captures", creator, nil)

	_, err := p.Retrieve(context.Background(), rec.ID, "nt-1")
	assert.ErrorIs(t, err, ErrMediaNotReady)
	// Retryable: the recording stays retrieving, not failed.
	assert.Equal(t, models.RecordingStatusRetrieving, rec.Status)
	assert.Empty(t, repo.failReason)
}

func TestRetrieveHostingHardError(t *testing.T) {
	rec := &models.Recording{ID: uuid.New(), Status: models.RecordingStatusProcessing}
	repo := newFakeRecordingStore(rec)
	creator := &fakeAssetCreator{err: errors.New("400 bad request")}
	p := NewPipeline(repo, &fakeCaptureStore{body: "x"}, "captures", creator, nil)

	_, err := p.Retrieve(context.Background(), rec.ID, "nt-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMediaNotReady)
	assert.Equal(t, models.RecordingStatusError, rec.Status)
}

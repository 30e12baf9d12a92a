package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusRank(t *testing.T) {
	assert.Equal(t, 0, StatusRank(RecordingStatusPending))
	assert.Equal(t, 5, StatusRank(RecordingStatusConcluded))
	assert.Equal(t, 8, StatusRank(RecordingStatusReady))
	assert.Equal(t, -1, StatusRank("bogus"))

	// Terminal failures share the top rank so none can supersede another.
	assert.Equal(t, StatusRank(RecordingStatusFailed), StatusRank(RecordingStatusError))
	assert.Equal(t, StatusRank(RecordingStatusFailed), StatusRank(RecordingStatusFailedEntry))
}

func TestIsTerminalStatus(t *testing.T) {
	for _, s := range []string{RecordingStatusReady, RecordingStatusFailedEntry, RecordingStatusFailed, RecordingStatusError} {
		assert.True(t, IsTerminalStatus(s), s)
	}
	for _, s := range []string{RecordingStatusPending, RecordingStatusAttending, RecordingStatusConcluded, RecordingStatusRetrieving} {
		assert.False(t, IsTerminalStatus(s), s)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"forward move", RecordingStatusJoining, RecordingStatusAttending, true},
		{"skip intermediate states", RecordingStatusPending, RecordingStatusConcluded, true},
		{"backward move rejected", RecordingStatusAttending, RecordingStatusJoining, false},
		{"same status rejected", RecordingStatusAttending, RecordingStatusAttending, false},
		{"out of terminal rejected", RecordingStatusReady, RecordingStatusError, false},
		{"out of failure rejected", RecordingStatusFailed, RecordingStatusAttending, false},
		{"into failure allowed", RecordingStatusLeaving, RecordingStatusFailed, true},
		{"unknown from", "bogus", RecordingStatusAttending, false},
		{"unknown to", RecordingStatusAttending, "bogus", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStatusesBelow(t *testing.T) {
	below := StatusesBelow(RecordingStatusConcluded)
	assert.ElementsMatch(t, []string{
		RecordingStatusPending,
		RecordingStatusJoining,
		RecordingStatusWaitingForAdmission,
		RecordingStatusAttending,
		RecordingStatusLeaving,
	}, below)

	// Everything non-terminal sits below the failure rank.
	assert.Len(t, StatusesBelow(RecordingStatusError), 9)
	assert.Nil(t, StatusesBelow("bogus"))
	assert.Empty(t, StatusesBelow(RecordingStatusPending))
}

func TestPlayable(t *testing.T) {
	assert.False(t, (&Recording{Status: RecordingStatusProcessing}).Playable())
	assert.True(t, (&Recording{Status: RecordingStatusReady, MuxAssetID: "asset-1"}).Playable())
	assert.True(t, (&Recording{VideoURL: "https://stream.example.com/x.m3u8"}).Playable())
}

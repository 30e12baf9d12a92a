package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowWithinWindow(t *testing.T) {
	l := New(10, time.Minute)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("share_r1"), "hit %d", i+1)
	}
	assert.False(t, l.Allow("share_r1"), "11th hit must be rejected")

	// Other keys are independent.
	assert.True(t, l.Allow("share_r2"))
}

func TestWindowReset(t *testing.T) {
	l := New(2, time.Minute)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("k"))
	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))

	now = now.Add(time.Minute)
	assert.True(t, l.Allow("k"), "fresh window starts at 1")
	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))
}

func TestReset(t *testing.T) {
	l := New(1, time.Minute)
	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))
	l.Reset("k")
	assert.True(t, l.Allow("k"))
}

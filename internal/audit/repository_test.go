package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeDetails(t *testing.T) {
	in := map[string]interface{}{
		"recording_id":   "rec-1",
		"share_types":    []string{"external"},
		"password":       "hunter2",
		"Password":       "hunter2",
		"external_token": "tok",
		"client_secret":  "s",
		"view_count":     3,
	}
	out := SanitizeDetails(in)

	assert.Equal(t, "rec-1", out["recording_id"])
	assert.Equal(t, 3, out["view_count"])
	assert.Contains(t, out, "share_types")
	assert.NotContains(t, out, "password")
	assert.NotContains(t, out, "Password")
	assert.NotContains(t, out, "external_token")
	assert.NotContains(t, out, "client_secret")

	// Input map untouched.
	assert.Contains(t, in, "password")
}

func TestSanitizeDetailsEmpty(t *testing.T) {
	assert.Empty(t, SanitizeDetails(nil))
	assert.Empty(t, SanitizeDetails(map[string]interface{}{}))
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParticipantsFromJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Participant
	}{
		{
			name: "complete entries",
			raw:  `[{"name":"Ada","email":"ada@example.com"},{"name":"Grace","email":"grace@example.com"}]`,
			want: []Participant{{Name: "Ada", Email: "ada@example.com"}, {Name: "Grace", Email: "grace@example.com"}},
		},
		{
			name: "name defaults to email local part",
			raw:  `[{"email":"ada.lovelace@example.com"}]`,
			want: []Participant{{Name: "ada.lovelace", Email: "ada.lovelace@example.com"}},
		},
		{
			name: "entries without email dropped",
			raw:  `[{"name":"Ghost"},{"email":"  "},{"email":"real@example.com"}]`,
			want: []Participant{{Name: "real", Email: "real@example.com"}},
		},
		{name: "malformed blob", raw: `{not json`, want: nil},
		{name: "empty blob", raw: ``, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParticipantsFromJSON([]byte(tt.raw))
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

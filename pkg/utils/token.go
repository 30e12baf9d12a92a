package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// shareTokenBytes gives 256 bits of entropy per token (43 url-safe chars).
const shareTokenBytes = 32

// GenerateShareToken returns an unguessable url-safe token for external shares.
func GenerateShareToken() (string, error) {
	buf := make([]byte, shareTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ShareTokenLength is the number of hex characters in a share token.
const ShareTokenLength = 32

// NewShareToken returns an unguessable identifier for publicly shared
// analysis results. Random bytes are hashed so the token reveals nothing
// about the CSPRNG state, then truncated to a stable length.
func NewShareToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:ShareTokenLength], nil
}

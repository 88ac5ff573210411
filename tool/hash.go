package tool

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

func GenerateRandomUUID() string {
	return uuid.New().String()
}

// GenerateBatchID returns 8 lowercase hex chars. The id ends up in the /start payload of
// a deep link, which the Bot API caps at 64 chars, so a full uuid is not used.
// Uniqueness is enforced by the session store, not here.
func GenerateBatchID() string {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err == nil {
		return hex.EncodeToString(buf[:])
	}
	return strings.ReplaceAll(GenerateRandomUUID(), "-", "")[:8]
}

package generator

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

func UUID() string {
	newUUID, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return newUUID.String()
}

// Fingerprint returns the hex encoded SHA-256 of a token so it can be used as a lookup key
// without keeping the token itself.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

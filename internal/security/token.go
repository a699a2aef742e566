package security

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewSessionToken returns a fresh opaque bearer token. Tokens carry no
// claims; the session store is the only authority on their meaning.
func NewSessionToken() string {
	return uuid.NewString()
}

// Fingerprint derives a stable identifier from the device identity string
// a client declares at login. Equal inputs always map to the same
// fingerprint; the declared string itself is never stored.
func Fingerprint(deviceID string) string {
	sum := sha256.Sum256([]byte(deviceID))
	return hex.EncodeToString(sum[:])
}

package utils

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA-256 hashing for API keys and reset tokens
	"encoding/hex"  // hex encoding
	"strings"
)

// APIKeyPrefix is the fixed marker every Inkhouse API key starts with.
// Presented keys without it are rejected before any database round-trip.
const APIKeyPrefix = "ink_"

// apiKeyDisplayLen is how many characters of the full key are kept as the
// display prefix (marker plus the first hex characters).
const apiKeyDisplayLen = 12

// GeneratedKey holds the one-time plaintext of a freshly minted API key
// alongside what gets persisted: the SHA-256 digest and a short display
// prefix. The plaintext is returned to the caller exactly once.
type GeneratedKey struct {
	Plain     string
	Hash      string
	KeyPrefix string
}

// NewAPIKey mints 256 bits of randomness as "ink_" + 64 hex chars.
func NewAPIKey() (GeneratedKey, error) {
	raw, err := RandomHex(32)
	if err != nil {
		return GeneratedKey{}, err
	}
	plain := APIKeyPrefix + raw
	return GeneratedKey{
		Plain:     plain,
		Hash:      HashAPIKey(plain),
		KeyPrefix: plain[:apiKeyDisplayLen],
	}, nil
}

// HashAPIKey returns the SHA-256 hex digest of the full presented key.
// Lookup happens by this digest; the plaintext never touches the database.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// HasAPIKeyPrefix is the cheap pre-database rejection for presented keys.
func HasAPIKeyPrefix(key string) bool {
	return strings.HasPrefix(key, APIKeyPrefix)
}

// NewResetToken returns a 256-bit random token as 64 hex characters, used
// for password resets.
func NewResetToken() (string, error) {
	return RandomHex(32)
}

// RandomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

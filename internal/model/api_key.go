package model

import "time"

// API key status values.
const (
	KeyStatusActive  = "active"
	KeyStatusRevoked = "revoked"
)

// MaxActiveKeysPerUser caps how many simultaneously-active keys one user
// may hold.
const MaxActiveKeysPerUser = 5

// APIKey mirrors the `api_keys` table. The raw key is never stored; only
// its SHA-256 hex digest plus a short display prefix. The plaintext secret
// is returned to the caller exactly once, at creation.
type APIKey struct {
	ID         uint64
	UserID     uint64
	Name       string
	KeyHash    string
	KeyPrefix  string
	Status     string
	ExpiresAt  *time.Time
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

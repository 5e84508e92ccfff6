package model

import "time"

// Session models a row in the `sessions` table. Each row binds one issued
// refresh token to its owner so the token can be revoked or rotated
// server-side. The signed refresh token itself carries a 30-day expiry, but
// ExpiresAt on the row is what governs revocation: a row found expired at
// lookup time is deleted and the token treated as invalid. There is no
// background sweep.
//
// Fields:
//  ID           – primary key identifier.
//  UserID       – owner of the session.
//  RefreshToken – the signed refresh token string, unique.
//  ExpiresAt    – server-side expiry; sooner than the signature expiry on login.
//  UserAgent    – client User-Agent captured at login/signup.
//  IPAddress    – client IP captured at login/signup.
//  CreatedAt    – timestamp of creation.
type Session struct {
	ID           uint64
	UserID       uint64
	RefreshToken string
	ExpiresAt    time.Time
	UserAgent    string
	IPAddress    string
	CreatedAt    time.Time
}

// PasswordResetToken models a row in the `password_reset_tokens` table.
// Tokens are 256-bit random hex, live one hour, and are single-use: UsedAt
// is set when consumed and never cleared. At most one unused token exists
// per user; creating a new one deletes prior unused tokens.
type PasswordResetToken struct {
	ID        uint64
	UserID    uint64
	Token     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

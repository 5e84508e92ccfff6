package model

import "time"

// Audit event names recorded in the `audit_log` table. Login failures keep
// their internal cause here (user_not_found vs invalid_password) even though
// the HTTP response is identical for both.
const (
	AuditLoginSuccess  = "login.success"
	AuditLoginFailed   = "login.failed"
	AuditSignup        = "user.signup"
	AuditLogout        = "user.logout"
	AuditPasswordReset = "password.reset"
	AuditUserModerated = "user.moderated"
	AuditBroadcastSent = "email.broadcast"
	AuditAPIKeyCreated = "apikey.created"
	AuditAPIKeyRevoked = "apikey.revoked"
)

// AuditEntry is one row in `audit_log`. ID is a UUID string; UserID is nil
// for events with no resolved identity (e.g. login.failed user_not_found).
type AuditEntry struct {
	ID        string
	Event     string
	UserID    *uint64
	IPAddress string
	Detail    string
	CreatedAt time.Time
}

package model

import "time"

// Role values stored in users.role. Checks throughout the codebase are
// explicit set-membership per capability, not rank comparison: some
// capabilities belong to super_admin alone even though admin sits between
// writer and super_admin in the hierarchy.
const (
	RoleReader     = "reader"
	RoleWriter     = "writer"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// Status values stored in users.status. Only active users may authenticate.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusDeleted   = "deleted"
)

// Capability role sets. Routes are gated with these exact sets rather than
// a numeric rank so that, for example, audit-log viewing stays restricted
// to super_admin without admin inheriting it.
var (
	// AnyRole covers every authenticated active user.
	AnyRole = []string{RoleReader, RoleWriter, RoleAdmin, RoleSuperAdmin}
	// WriterRoles gates post authoring, API-key management and suggestion
	// voting.
	WriterRoles = []string{RoleWriter, RoleAdmin, RoleSuperAdmin}
	// AdminRoles gates user moderation and platform stats.
	AdminRoles = []string{RoleAdmin, RoleSuperAdmin}
	// SuperAdminOnly gates audit-log viewing, email broadcast, feature
	// updates and newsletter sends.
	SuperAdminOnly = []string{RoleSuperAdmin}
)

// ValidRole reports whether s is one of the known role values.
func ValidRole(s string) bool {
	switch s {
	case RoleReader, RoleWriter, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// ValidStatus reports whether s is one of the known status values.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusSuspended, StatusDeleted:
		return true
	}
	return false
}

// User mirrors the 'users' table. Email and username are stored lowercased
// so uniqueness is case-insensitive. PasswordHash never leaves the server;
// handlers build separate response types.
type User struct {
	ID           uint64
	Email        string
	Username     string
	DisplayName  string
	PasswordHash string
	Role         string
	Status       string
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

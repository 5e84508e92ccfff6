// Package repository defines error types reused across repositories. These
// sentinel values let handlers distinguish failure scenarios without parsing
// driver errors: ErrForbidden marks an operation on a resource the caller
// does not own, ErrKeyLimit marks the active-API-key cap, and so on.
package repository

import "errors"

// ErrNotFound is returned when a row does not exist (or, for tokens, exists
// but is no longer valid). Handlers translate it into 401 or 404 depending
// on the resource.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when a signup collides on the email column.
var ErrEmailExists = errors.New("email already exists")

// ErrUsernameExists is returned when a signup collides on the username column.
var ErrUsernameExists = errors.New("username already exists")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate this into HTTP 403, or into
// the same response as not-found where ownership must not leak.
var ErrForbidden = errors.New("forbidden")

// ErrKeyLimit is returned when creating an API key would exceed the
// per-user cap on simultaneously active keys.
var ErrKeyLimit = errors.New("active api key limit reached")

// ErrTokenUsed is returned when a password-reset token has already been
// consumed.
var ErrTokenUsed = errors.New("token already used")

// ErrTokenExpired is returned when a password-reset token is past its
// expiry. Externally both ErrTokenUsed and ErrTokenExpired surface as the
// same generic message; the distinction exists for logging only.
var ErrTokenExpired = errors.New("token expired")

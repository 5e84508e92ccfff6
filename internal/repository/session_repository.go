package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/inkhouse/inkhouse/internal/model"
)

// SessionRepo persists refresh-token-to-user bindings. A session row is
// what makes a refresh token revocable: the signed token alone is useless
// once its row is gone or rotated away.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create inserts a session row for a freshly issued refresh token.
func (r *SessionRepo) Create(ctx context.Context, s model.Session) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (user_id, refresh_token, expires_at, user_agent, ip_address) VALUES (?,?,?,?,?)",
		s.UserID, s.RefreshToken, s.ExpiresAt, s.UserAgent, s.IPAddress)
	return err
}

// GetByToken looks up a session by exact refresh-token value. Expiry is not
// checked here; callers enforce it at use time so an expired row can be
// deleted in the same breath.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (model.Session, error) {
	var s model.Session
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,refresh_token,expires_at,user_agent,ip_address,created_at FROM sessions WHERE refresh_token=? LIMIT 1",
		token).Scan(&s.ID, &s.UserID, &s.RefreshToken, &s.ExpiresAt, &s.UserAgent, &s.IPAddress, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

// Rotate atomically swaps oldToken for newToken on the session row and
// stamps a fresh expiry. The conditional update keyed on the old token plus
// the rows-affected check makes rotation linearizable: of two concurrent
// refreshes presenting the same token, exactly one wins and the loser gets
// ErrNotFound.
func (r *SessionRepo) Rotate(ctx context.Context, oldToken, newToken string, expiresAt time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET refresh_token=?, expires_at=? WHERE refresh_token=?",
		newToken, expiresAt, oldToken)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByToken removes the session bound to the given refresh token.
func (r *SessionRepo) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM sessions WHERE refresh_token=?", token)
	return err
}

// DeleteByID removes a session row found invalid at use time.
func (r *SessionRepo) DeleteByID(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM sessions WHERE id=?", id)
	return err
}

// DeleteAllForUser drops every session a user holds, forcing
// re-authentication everywhere. Called on password reset.
func (r *SessionRepo) DeleteAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM sessions WHERE user_id=?", userID)
	return err
}

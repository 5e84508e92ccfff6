package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/inkhouse/inkhouse/internal/model"
)

// ResetTokenRepo manages the single-use, time-boxed password-reset tokens.
// These are deliberately decoupled from the session system: holding a reset
// token grants one password change, nothing else.
type ResetTokenRepo struct{ DB *sql.DB }

func NewResetTokenRepo(db *sql.DB) *ResetTokenRepo { return &ResetTokenRepo{DB: db} }

// Replace deletes any unused tokens the user still has and inserts a fresh
// one, keeping the at-most-one-unused-token invariant.
func (r *ResetTokenRepo) Replace(ctx context.Context, userID uint64, token string, expiresAt time.Time) error {
	if _, err := r.DB.ExecContext(ctx,
		"DELETE FROM password_reset_tokens WHERE user_id=? AND used_at IS NULL", userID); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO password_reset_tokens (user_id, token, expires_at) VALUES (?,?,?)",
		userID, token, expiresAt)
	return err
}

// Get fetches a token row by value regardless of validity; Consume decides
// what the state means.
func (r *ResetTokenRepo) Get(ctx context.Context, token string) (model.PasswordResetToken, error) {
	var t model.PasswordResetToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,token,expires_at,used_at,created_at FROM password_reset_tokens WHERE token=? LIMIT 1",
		token).Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

// Consume validates and irreversibly spends a token. The three failure
// causes (missing, used, expired) come back as distinct errors for logging;
// callers collapse them into one external message.
func (r *ResetTokenRepo) Consume(ctx context.Context, token string) (model.PasswordResetToken, error) {
	t, err := r.Get(ctx, token)
	if err != nil {
		return t, err
	}
	if t.UsedAt != nil {
		return t, ErrTokenUsed
	}
	if time.Now().UTC().After(t.ExpiresAt) {
		return t, ErrTokenExpired
	}
	// Conditional update so two concurrent consumers cannot both spend it.
	res, err := r.DB.ExecContext(ctx,
		"UPDATE password_reset_tokens SET used_at=? WHERE id=? AND used_at IS NULL",
		time.Now().UTC(), t.ID)
	if err != nil {
		return t, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return t, err
	}
	if n == 0 {
		return t, ErrTokenUsed
	}
	return t, nil
}

package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/inkhouse/inkhouse/internal/model"
)

// APIKeyRepo persists long-lived bearer credentials. Only the SHA-256
// digest of a key is stored; lookup happens by digest, never by scanning
// plaintext.
type APIKeyRepo struct{ DB *sql.DB }

func NewAPIKeyRepo(db *sql.DB) *APIKeyRepo { return &APIKeyRepo{DB: db} }

const keyCols = "id,user_id,name,key_hash,key_prefix,status,expires_at,last_used_at,created_at"

// Create inserts a key row after enforcing the per-user active-key cap.
func (r *APIKeyRepo) Create(ctx context.Context, k model.APIKey) (uint64, error) {
	var active int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM api_keys WHERE user_id=? AND status=?",
		k.UserID, model.KeyStatusActive).Scan(&active); err != nil {
		return 0, err
	}
	if active >= model.MaxActiveKeysPerUser {
		return 0, ErrKeyLimit
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO api_keys (user_id, name, key_hash, key_prefix, status, expires_at) VALUES (?,?,?,?,?,?)",
		k.UserID, k.Name, k.KeyHash, k.KeyPrefix, model.KeyStatusActive, k.ExpiresAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByHash looks up a key by the digest of the presented plaintext.
func (r *APIKeyRepo) GetByHash(ctx context.Context, hash string) (model.APIKey, error) {
	var k model.APIKey
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+keyCols+" FROM api_keys WHERE key_hash=? LIMIT 1",
		hash).Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Status,
		&k.ExpiresAt, &k.LastUsedAt, &k.CreatedAt)
	if err == sql.ErrNoRows {
		return k, ErrNotFound
	}
	return k, err
}

// ListForUser returns all keys a user owns, newest first.
func (r *APIKeyRepo) ListForUser(ctx context.Context, userID uint64) ([]model.APIKey, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+keyCols+" FROM api_keys WHERE user_id=? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []model.APIKey{}
	for rows.Next() {
		var k model.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Status,
			&k.ExpiresAt, &k.LastUsedAt, &k.CreatedAt); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Revoke soft-deletes a key after verifying ownership. A key owned by
// someone else returns ErrForbidden so the handler can collapse it with
// not-found externally.
func (r *APIKeyRepo) Revoke(ctx context.Context, keyID, requestingUserID uint64) error {
	var ownerID uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id FROM api_keys WHERE id=? LIMIT 1", keyID).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if ownerID != requestingUserID {
		return ErrForbidden
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE api_keys SET status=? WHERE id=?", model.KeyStatusRevoked, keyID)
	return err
}

// TouchLastUsed stamps last_used_at. Called fire-and-forget from the
// bearer-auth path; its failure must not fail the request.
func (r *APIKeyRepo) TouchLastUsed(ctx context.Context, keyID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE api_keys SET last_used_at=? WHERE id=?", time.Now().UTC(), keyID)
	return err
}

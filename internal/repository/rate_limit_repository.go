package repository

import (
	"context"
	"database/sql"
	"time"
)

// RateLimitRepo stores fixed-window request counters per API key. One row
// per (key, aligned window start), created lazily by the upsert. Increments
// are last-write-wins with no optimistic-concurrency retry; under heavy
// concurrency the count can drift low, an accepted imprecision for a coarse
// abuse-prevention mechanism.
type RateLimitRepo struct{ DB *sql.DB }

func NewRateLimitRepo(db *sql.DB) *RateLimitRepo { return &RateLimitRepo{DB: db} }

// Count returns the request count recorded for the key in the given window,
// zero when no row exists yet.
func (r *RateLimitRepo) Count(ctx context.Context, apiKeyID uint64, windowStart time.Time) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT request_count FROM rate_limit_windows WHERE api_key_id=? AND window_start=? LIMIT 1",
		apiKeyID, windowStart).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}

// Increment bumps the counter for the key's current window, inserting the
// row with count 1 on first use of the bucket.
func (r *RateLimitRepo) Increment(ctx context.Context, apiKeyID uint64, windowStart time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO rate_limit_windows (api_key_id, window_start, request_count) VALUES (?,?,1)
		 ON DUPLICATE KEY UPDATE request_count = request_count + 1`,
		apiKeyID, windowStart)
	return err
}

package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkhouse/inkhouse/internal/model"
	"github.com/inkhouse/inkhouse/internal/repository"
	"github.com/inkhouse/inkhouse/internal/utils"
)

type stubKeyStore struct {
	mu      sync.Mutex
	byHash  map[string]model.APIKey
	touched []uint64
}

func (s *stubKeyStore) GetByHash(ctx context.Context, hash string) (model.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.byHash[hash]
	if !ok {
		return model.APIKey{}, repository.ErrNotFound
	}
	return k, nil
}

func (s *stubKeyStore) TouchLastUsed(ctx context.Context, keyID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = append(s.touched, keyID)
	return nil
}

type stubWindowStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func windowKey(apiKeyID uint64, start time.Time) string {
	return fmt.Sprintf("%d/%d", apiKeyID, start.Unix())
}

func (s *stubWindowStore) Count(ctx context.Context, apiKeyID uint64, windowStart time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[windowKey(apiKeyID, windowStart)], nil
}

func (s *stubWindowStore) Increment(ctx context.Context, apiKeyID uint64, windowStart time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[windowKey(apiKeyID, windowStart)]++
	return nil
}

type stubUserStore struct {
	users map[uint64]model.User
}

func (s *stubUserStore) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

type apiKeyFixture struct {
	keys    *stubKeyStore
	windows *stubWindowStore
	users   *stubUserStore
	plain   string
}

func newAPIKeyFixture(t *testing.T) *apiKeyFixture {
	t.Helper()
	gen, err := utils.NewAPIKey()
	require.NoError(t, err)

	f := &apiKeyFixture{
		keys:    &stubKeyStore{byHash: map[string]model.APIKey{}},
		windows: &stubWindowStore{counts: map[string]int64{}},
		users:   &stubUserStore{users: map[uint64]model.User{}},
		plain:   gen.Plain,
	}
	f.keys.byHash[gen.Hash] = model.APIKey{
		ID: 1, UserID: 10, Name: "test", KeyHash: gen.Hash,
		KeyPrefix: gen.KeyPrefix, Status: model.KeyStatusActive,
	}
	f.users.users[10] = model.User{
		ID: 10, Email: "owner@x.com", Username: "owner",
		Role: model.RoleWriter, Status: model.StatusActive,
	}
	return f
}

func (f *apiKeyFixture) do(t *testing.T, limit int64, window time.Duration, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := APIKeyAuth(f.keys, f.windows, f.users, limit, window)
	handler := mw(func(c echo.Context) error {
		claims := CurrentClaims(c)
		return c.JSON(http.StatusOK, echo.Map{"success": true, "user_id": claims.UserID})
	})
	require.NoError(t, handler(c))
	return rec
}

func TestAPIKeyAuthRejectsBeforeLookup(t *testing.T) {
	f := newAPIKeyFixture(t)

	// Missing header.
	rec := f.do(t, 100, time.Hour, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong marker is rejected without touching the store counter.
	rec = f.do(t, 100, time.Hour, "sk_"+f.plain)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.windows.counts)
}

func TestAPIKeyAuthResolvesOwnerIdentity(t *testing.T) {
	f := newAPIKeyFixture(t)

	rec := f.do(t, 100, time.Hour, f.plain)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(10), body["user_id"])

	assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "99", rec.Header().Get("X-RateLimit-Remaining"))
	reset, err := time.Parse(time.RFC3339, rec.Header().Get("X-RateLimit-Reset"))
	require.NoError(t, err)
	assert.True(t, reset.After(time.Now().UTC()))
}

func TestAPIKeyAuthFixedWindowLimit(t *testing.T) {
	f := newAPIKeyFixture(t)
	const limit = 3

	for i := 0; i < limit; i++ {
		rec := f.do(t, limit, time.Hour, f.plain)
		require.Equal(t, http.StatusOK, rec.Code, "request %d within the window", i+1)
	}

	rec := f.do(t, limit, time.Hour, f.plain)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Rate limit exceeded", body["error"])

	// Rejections do not consume counter slots.
	start := WindowStart(time.Now(), time.Hour)
	n, err := f.windows.Count(context.Background(), 1, start)
	require.NoError(t, err)
	assert.Equal(t, int64(limit), n)

	// The counter is keyed by window start, so the next window begins at
	// zero and the first request in it succeeds.
	next := start.Add(time.Hour)
	n, err = f.windows.Count(context.Background(), 1, next)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestAPIKeyAuthRejectsRevokedExpiredAndInactiveOwner(t *testing.T) {
	f := newAPIKeyFixture(t)
	hash := utils.HashAPIKey(f.plain)

	k := f.keys.byHash[hash]
	k.Status = model.KeyStatusRevoked
	f.keys.byHash[hash] = k
	rec := f.do(t, 100, time.Hour, f.plain)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	past := time.Now().UTC().Add(-time.Minute)
	k.Status = model.KeyStatusActive
	k.ExpiresAt = &past
	f.keys.byHash[hash] = k
	rec = f.do(t, 100, time.Hour, f.plain)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	k.ExpiresAt = nil
	f.keys.byHash[hash] = k
	u := f.users.users[10]
	u.Status = model.StatusSuspended
	f.users.users[10] = u
	rec = f.do(t, 100, time.Hour, f.plain)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWindowStartTruncation(t *testing.T) {
	mid := time.Date(2025, 6, 1, 14, 37, 12, 0, time.UTC)
	start := WindowStart(mid, time.Hour)
	assert.Equal(t, time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC), start)

	// All instants within the hour share a bucket.
	assert.Equal(t, start, WindowStart(mid.Add(22*time.Minute), time.Hour))

	// The next hour is a fresh bucket.
	assert.Equal(t, start.Add(time.Hour), WindowStart(mid.Add(25*time.Minute), time.Hour))

	// Non-UTC inputs land in the same bucket as their UTC equivalent.
	loc := time.FixedZone("plus2", 2*3600)
	assert.Equal(t, start, WindowStart(mid.In(loc), time.Hour))
}

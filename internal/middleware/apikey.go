package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/inkhouse/inkhouse/internal/model"
	"github.com/inkhouse/inkhouse/internal/utils"
)

// APIKeyIDKey is the context key under which the authenticated key's ID is
// stored for handlers that need it.
const APIKeyIDKey = "api_key_id"

// KeyStore is the slice of the API-key repository the middleware needs.
type KeyStore interface {
	GetByHash(ctx context.Context, hash string) (model.APIKey, error)
	TouchLastUsed(ctx context.Context, keyID uint64) error
}

// WindowStore is the slice of the rate-limit repository the middleware
// needs: fixed-window counters per key.
type WindowStore interface {
	Count(ctx context.Context, apiKeyID uint64, windowStart time.Time) (int64, error)
	Increment(ctx context.Context, apiKeyID uint64, windowStart time.Time) error
}

// KeyUserStore resolves the key owner so role-gated API routes see the same
// identity shape as cookie sessions.
type KeyUserStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// APIKeyAuth authenticates programmatic requests via an
// "Authorization: Bearer <key>" header and applies the per-key fixed-window
// limit. Validation order is cheap-first: header shape and key prefix are
// rejected before any database round-trip, then hash lookup, status and
// expiry, then the window counter. On success the key's last_used_at is
// stamped fire-and-forget and the owner's identity is stored in context.
func APIKeyAuth(keys KeyStore, windows WindowStore, users KeyUserStore, limit int64, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false, "error": "Authorization header must be 'Bearer <key>'",
				})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")
			if !utils.HasAPIKeyPrefix(raw) {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false, "error": "Invalid API key",
				})
			}

			ctx := c.Request().Context()
			key, err := keys.GetByHash(ctx, utils.HashAPIKey(raw))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false, "error": "Invalid API key",
				})
			}
			if key.Status != model.KeyStatusActive {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false, "error": "Invalid API key",
				})
			}
			if key.ExpiresAt != nil && time.Now().UTC().After(*key.ExpiresAt) {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false, "error": "Invalid API key",
				})
			}

			now := time.Now()
			start := WindowStart(now, window)
			reset := start.Add(window)

			count, err := windows.Count(ctx, key.ID, start)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{
					"success": false, "error": "Internal server error",
				})
			}
			if count >= limit {
				SetRateHeaders(c, limit, 0, reset)
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"success": false, "error": "Rate limit exceeded",
				})
			}
			if err := windows.Increment(ctx, key.ID, start); err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{
					"success": false, "error": "Internal server error",
				})
			}
			SetRateHeaders(c, limit, limit-count-1, reset)

			u, err := users.GetByID(ctx, key.UserID)
			if err != nil || u.Status != model.StatusActive {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false, "error": "Invalid API key",
				})
			}

			utils.BestEffort("apikey.touch", func(ctx context.Context) error {
				return keys.TouchLastUsed(ctx, key.ID)
			})

			c.Set(ClaimsKey, &utils.Claims{
				UserID:   u.ID,
				Email:    u.Email,
				Username: u.Username,
				Role:     u.Role,
			})
			c.Set(APIKeyIDKey, key.ID)
			return next(c)
		}
	}
}

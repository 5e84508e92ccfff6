package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/inkhouse/inkhouse/internal/utils"
)

// Context keys under which authenticated identity is stored. Handlers read
// these via CurrentClaims rather than touching the raw keys.
const (
	ClaimsKey = "auth_claims"
	// AccessCookie and RefreshCookie are the cookie names carrying the two
	// tokens. Both are httpOnly, SameSite=Lax, path "/".
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// CookieAuth returns middleware that authenticates via the access-token
// cookie. An absent or invalid cookie yields a generic 401; the middleware
// never distinguishes missing from expired from tampered externally.
func CookieAuth(accessSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ck, err := c.Cookie(AccessCookie)
			if err != nil || ck.Value == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false, "error": "Not authenticated",
				})
			}
			claims := utils.VerifyToken(accessSecret, ck.Value)
			if claims == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false, "error": "Not authenticated",
				})
			}
			c.Set(ClaimsKey, claims)
			return next(c)
		}
	}
}

// CurrentClaims returns the verified identity stored by CookieAuth or
// APIKeyAuth, or nil when the request is unauthenticated.
func CurrentClaims(c echo.Context) *utils.Claims {
	if v, ok := c.Get(ClaimsKey).(*utils.Claims); ok {
		return v
	}
	return nil
}

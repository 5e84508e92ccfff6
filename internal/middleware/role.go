package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole enforces that the authenticated user's role is one of the
// given set. Capabilities are gated by explicit allowed-role sets (see
// model.WriterRoles and friends), never by rank comparison: super_admin-only
// capabilities exist that admin must not inherit. Assumes CookieAuth or
// APIKeyAuth already populated the context; a missing identity is treated
// the same as a disallowed role.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	// Build a set of allowed roles for constant-time lookups.
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := CurrentClaims(c)
			if claims == nil || !allowed[claims.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{
					"success": false, "error": "Access denied",
				})
			}
			return next(c)
		}
	}
}

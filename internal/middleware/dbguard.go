package middleware

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireDB short-circuits every request with 503 when the service came up
// without a database connection. Connection details never reach the client.
func RequireDB(db *sql.DB) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if db == nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{
					"success": false, "error": "Database not configured",
				})
			}
			return next(c)
		}
	}
}

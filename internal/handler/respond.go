package handler

import (
	"github.com/labstack/echo/v4"
)

// Every endpoint answers with the same JSON envelope:
// {success, data?, error?, message?}; list endpoints add pagination.

// Pagination is the metadata block attached to paginated responses.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes the metadata for one page.
func NewPagination(page, limit, total int) Pagination {
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// OK writes a success envelope.
func OK(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}

// OKMessage writes a success envelope carrying only a message.
func OKMessage(c echo.Context, status int, message string) error {
	return c.JSON(status, echo.Map{"success": true, "message": message})
}

// Paginated writes a success envelope with pagination metadata.
func Paginated(c echo.Context, status int, data interface{}, p Pagination) error {
	return c.JSON(status, echo.Map{"success": true, "data": data, "pagination": p})
}

// Fail writes a failure envelope. The message must already be safe for the
// client; anything sensitive is logged server-side before calling this.
func Fail(c echo.Context, status int, errMsg string) error {
	return c.JSON(status, echo.Map{"success": false, "error": errMsg})
}

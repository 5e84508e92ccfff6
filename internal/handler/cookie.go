package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/inkhouse/inkhouse/internal/config"
	"github.com/inkhouse/inkhouse/internal/middleware"
)

// Auth cookies are httpOnly, SameSite=Lax, path "/", and Secure in
// production. Both are always set and cleared together except on the /me
// opportunistic path, which re-issues only the access cookie.

func authCookie(cfg config.Config, name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.Production(),
		SameSite: http.SameSiteLaxMode,
	}
}

func setAccessCookie(c echo.Context, cfg config.Config, token string) {
	c.SetCookie(authCookie(cfg, middleware.AccessCookie, token, int(cfg.AccessTTL/time.Second)))
}

func setAuthCookies(c echo.Context, cfg config.Config, access, refresh string) {
	setAccessCookie(c, cfg, access)
	c.SetCookie(authCookie(cfg, middleware.RefreshCookie, refresh, int(cfg.RefreshSigningTTL/time.Second)))
}

// clearAuthCookies drops both cookies. Logout and every refresh failure
// path call this unconditionally; stale cookies must never survive a
// backend error.
func clearAuthCookies(c echo.Context, cfg config.Config) {
	c.SetCookie(authCookie(cfg, middleware.AccessCookie, "", -1))
	c.SetCookie(authCookie(cfg, middleware.RefreshCookie, "", -1))
}

func readCookie(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}

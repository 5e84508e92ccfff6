package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/inkhouse/inkhouse/internal/handler"
	"github.com/inkhouse/inkhouse/internal/model"
)

// RegisterRoutes registers routes that need neither authentication nor the
// database. Currently that is only the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the session and password-reset endpoints under
// /v1/auth. The unauthenticated entry points (login, signup, reset request)
// carry the IP fixed-window limiters; the rest rely on the tokens they are
// handed. dbGuard answers 503 for every route when the service came up
// without a database.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, pr *handler.PasswordResetHandler,
	dbGuard, loginLimit, signupLimit echo.MiddlewareFunc) {

	g := e.Group("/v1/auth", dbGuard)
	g.POST("/signup", a.Signup, signupLimit)
	g.POST("/login", a.Login, loginLimit)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	// Reset requests share the login limiter's budget shape but their own
	// counter, keyed per action.
	g.POST("/request-reset", pr.RequestReset, signupLimit)
	g.POST("/reset-password", pr.ResetPassword)

	// /me does its own token reading: it falls back to the refresh cookie
	// and opportunistically re-issues the access cookie, which the shared
	// CookieAuth middleware deliberately never does.
	e.GET("/v1/me", a.Me, dbGuard)
}

// RegisterAccount registers the cookie-session-protected surface. Each
// capability names its allowed-role set explicitly.
func RegisterAccount(e *echo.Echo, keys *handler.APIKeyHandler, posts *handler.PostHandler,
	admin *handler.AdminHandler, dbGuard, cookieAuth echo.MiddlewareFunc,
	requireRole func(roles ...string) echo.MiddlewareFunc) {

	v1 := e.Group("/v1", dbGuard, cookieAuth)

	// API keys and post authoring: writer and up.
	k := v1.Group("/keys", requireRole(model.WriterRoles...))
	k.POST("", keys.Create)
	k.GET("", keys.List)
	k.DELETE("/:id", keys.Revoke)

	p := v1.Group("/posts", requireRole(model.WriterRoles...))
	p.POST("", posts.Create)
	p.GET("", posts.ListMine)
	p.GET("/:id", posts.Get)
	p.PUT("/:id", posts.Update)

	// User moderation and stats: admin and up.
	adm := v1.Group("/admin", requireRole(model.AdminRoles...))
	adm.GET("/users", admin.ListUsers)
	adm.PATCH("/users/:id", admin.ModerateUser)
	adm.GET("/stats", admin.Stats)

	// Audit log and broadcast: super_admin alone. admin is not a subset
	// here, which is why capabilities carry explicit sets instead of ranks.
	sup := v1.Group("/admin", requireRole(model.SuperAdminOnly...))
	sup.GET("/audit", admin.AuditTrail)
	sup.POST("/broadcast", admin.Broadcast)
}

// RegisterAPI registers the programmatic surface authenticated by API key.
// The bearer middleware resolves the key owner into the same identity shape
// cookie sessions use, so the role sets compose unchanged.
func RegisterAPI(e *echo.Echo, posts *handler.PostHandler,
	dbGuard, apiKeyAuth echo.MiddlewareFunc,
	requireRole func(roles ...string) echo.MiddlewareFunc) {

	api := e.Group("/api/v1", dbGuard, apiKeyAuth)

	p := api.Group("/posts", requireRole(model.WriterRoles...))
	p.POST("", posts.Create)
	p.GET("", posts.ListMine)
	p.GET("/:id", posts.Get)
	p.PUT("/:id", posts.Update)
}

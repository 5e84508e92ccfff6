package handler

import (
	"context"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/inkhouse/inkhouse/internal/config"
	"github.com/inkhouse/inkhouse/internal/middleware"
	"github.com/inkhouse/inkhouse/internal/model"
	"github.com/inkhouse/inkhouse/internal/repository"
	"github.com/inkhouse/inkhouse/internal/utils"
)

// UserStore is the slice of the user repository the auth endpoints need.
type UserStore interface {
	Create(ctx context.Context, email, username, displayName, passwordHash string) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	TouchLastLogin(ctx context.Context, id uint64) error
}

// SessionStore persists refresh-token bindings.
type SessionStore interface {
	Create(ctx context.Context, s model.Session) error
	GetByToken(ctx context.Context, token string) (model.Session, error)
	Rotate(ctx context.Context, oldToken, newToken string, expiresAt time.Time) error
	DeleteByToken(ctx context.Context, token string) error
	DeleteByID(ctx context.Context, id uint64) error
	DeleteAllForUser(ctx context.Context, userID uint64) error
}

// AuditStore records security events; writes are best-effort.
type AuditStore interface {
	Insert(ctx context.Context, e model.AuditEntry) error
}

// AuthHandler bundles dependencies for the session endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    UserStore
	Sessions SessionStore
	Audit    AuditStore
}

func NewAuthHandler(cfg config.Config, u UserStore, s SessionStore, a AuditStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Sessions: s, Audit: a}
}

// ----- DTOs -----

type signupReq struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userPart is what a user record looks like on the wire: never the hash.
type userPart struct {
	ID          uint64 `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Status      string `json:"status"`
}

func toUserPart(u model.User) userPart {
	return userPart{ID: u.ID, Email: u.Email, Username: u.Username,
		DisplayName: u.DisplayName, Role: u.Role, Status: u.Status}
}

var (
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	usernameRe = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)
)

func (h *AuthHandler) audit(event string, userID *uint64, ip, detail string) {
	utils.BestEffort("audit", func(ctx context.Context) error {
		return h.Audit.Insert(ctx, model.AuditEntry{
			Event: event, UserID: userID, IPAddress: ip, Detail: detail,
		})
	})
}

// issueSession signs both tokens, persists the session row and sets the
// cookies. sessionTTL is the server-side row expiry, which on login is
// shorter than the refresh signature's own lifetime; the row governs
// revocation.
func (h *AuthHandler) issueSession(ctx context.Context, c echo.Context, u model.User, sessionTTL time.Duration) error {
	access, err := utils.NewAccessToken(h.Cfg.AccessSecret, u.ID, u.Email, u.Username, u.Role, h.Cfg.AccessTTL)
	if err != nil {
		return err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshSecret, u.ID, u.Email, u.Username, u.Role, h.Cfg.RefreshSigningTTL)
	if err != nil {
		return err
	}
	if err := h.Sessions.Create(ctx, model.Session{
		UserID:       u.ID,
		RefreshToken: refresh.Token,
		ExpiresAt:    time.Now().UTC().Add(sessionTTL),
		UserAgent:    c.Request().UserAgent(),
		IPAddress:    c.RealIP(),
	}); err != nil {
		return err
	}
	setAuthCookies(c, h.Cfg, access.Token, refresh.Token)
	return nil
}

// Signup creates a reader account and logs it straight in.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return Fail(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.DisplayName = strings.TrimSpace(req.DisplayName)

	// Validation failures are safe to be specific, unlike auth failures.
	// Length caps match the column widths; anything longer must fail here
	// as a 400, not at the database as a 500.
	if len(req.Email) > 255 || !emailRe.MatchString(req.Email) {
		return Fail(c, http.StatusBadRequest, "A valid email address is required")
	}
	if !usernameRe.MatchString(req.Username) {
		return Fail(c, http.StatusBadRequest, "Username must be 3-30 characters: lowercase letters, digits, underscore")
	}
	if len(req.DisplayName) > 128 {
		return Fail(c, http.StatusBadRequest, "Display name must be at most 128 characters")
	}
	if len(req.Password) < 8 {
		return Fail(c, http.StatusBadRequest, "Password must be at least 8 characters")
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		log.Printf("signup: hash failed: %v", err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Username, req.DisplayName, hash)
	if err != nil {
		switch err {
		case repository.ErrEmailExists:
			return Fail(c, http.StatusBadRequest, "Email already registered")
		case repository.ErrUsernameExists:
			return Fail(c, http.StatusBadRequest, "Username already taken")
		}
		log.Printf("signup: create user failed: %v", err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}

	u := model.User{ID: uid, Email: req.Email, Username: req.Username,
		DisplayName: req.DisplayName, Role: model.RoleReader, Status: model.StatusActive}
	if err := h.issueSession(ctx, c, u, h.Cfg.RefreshTTLSignup); err != nil {
		log.Printf("signup: issue session failed: %v", err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}

	h.audit(model.AuditSignup, &uid, c.RealIP(), "")
	return OK(c, http.StatusCreated, echo.Map{"user": toUserPart(u)})
}

// Login verifies credentials and opens a session. User-not-found and
// wrong-password answer identically; the real cause goes to the audit log.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return Fail(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return Fail(c, http.StatusBadRequest, "Email and password are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == repository.ErrNotFound {
			h.audit(model.AuditLoginFailed, nil, c.RealIP(), "user_not_found")
			return Fail(c, http.StatusUnauthorized, "Invalid credentials")
		}
		log.Printf("login: query failed: %v", err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		h.audit(model.AuditLoginFailed, &u.ID, c.RealIP(), "invalid_password")
		return Fail(c, http.StatusUnauthorized, "Invalid credentials")
	}
	if u.Status != model.StatusActive {
		h.audit(model.AuditLoginFailed, &u.ID, c.RealIP(), "user_inactive")
		return Fail(c, http.StatusUnauthorized, "Invalid credentials")
	}

	if err := h.issueSession(ctx, c, u, h.Cfg.RefreshTTLLogin); err != nil {
		log.Printf("login: issue session failed: %v", err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}

	utils.BestEffort("login.touch", func(ctx context.Context) error {
		return h.Users.TouchLastLogin(ctx, u.ID)
	})
	h.audit(model.AuditLoginSuccess, &u.ID, c.RealIP(), "")
	return OK(c, http.StatusOK, echo.Map{"user": toUserPart(u)})
}

// Refresh rotates the refresh token: the presented token is verified,
// matched against its session row, and swapped in place for a new one. The
// old token string is dead the instant rotation succeeds, so a stolen token
// cannot be replayed after the legitimate client refreshes. Every failure
// path clears both cookies.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := readCookie(c, middleware.RefreshCookie)
	claims := utils.VerifyToken(h.Cfg.RefreshSecret, raw)
	if raw == "" || claims == nil {
		clearAuthCookies(c, h.Cfg)
		return Fail(c, http.StatusUnauthorized, "Not authenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Sessions.GetByToken(ctx, raw)
	if err != nil {
		// Rotated away or revoked.
		clearAuthCookies(c, h.Cfg)
		return Fail(c, http.StatusUnauthorized, "Not authenticated")
	}
	if time.Now().UTC().After(sess.ExpiresAt) {
		// Expiry is enforced here at lookup time; there is no sweep.
		_ = h.Sessions.DeleteByID(ctx, sess.ID)
		clearAuthCookies(c, h.Cfg)
		return Fail(c, http.StatusUnauthorized, "Not authenticated")
	}

	u, err := h.Users.GetByID(ctx, sess.UserID)
	if err != nil || u.Status != model.StatusActive {
		_ = h.Sessions.DeleteByID(ctx, sess.ID)
		clearAuthCookies(c, h.Cfg)
		return Fail(c, http.StatusUnauthorized, "Not authenticated")
	}

	access, err := utils.NewAccessToken(h.Cfg.AccessSecret, u.ID, u.Email, u.Username, u.Role, h.Cfg.AccessTTL)
	if err != nil {
		log.Printf("refresh: issue access failed: %v", err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}
	next, err := utils.NewRefreshToken(h.Cfg.RefreshSecret, u.ID, u.Email, u.Username, u.Role, h.Cfg.RefreshSigningTTL)
	if err != nil {
		log.Printf("refresh: issue refresh failed: %v", err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}

	// Conditional update keyed on the old token; of two concurrent
	// refreshes exactly one lands.
	if err := h.Sessions.Rotate(ctx, raw, next.Token, time.Now().UTC().Add(h.Cfg.RefreshTTLLogin)); err != nil {
		clearAuthCookies(c, h.Cfg)
		if err == repository.ErrNotFound {
			return Fail(c, http.StatusUnauthorized, "Not authenticated")
		}
		log.Printf("refresh: rotate failed: %v", err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}

	setAuthCookies(c, h.Cfg, access.Token, next.Token)
	return OK(c, http.StatusOK, echo.Map{"user": toUserPart(u)})
}

// Logout deletes the session bound to the refresh cookie when the token
// still verifies, and clears both cookies unconditionally: a backend error
// must never leave stale cookies behind.
func (h *AuthHandler) Logout(c echo.Context) error {
	raw := readCookie(c, middleware.RefreshCookie)
	if claims := utils.VerifyToken(h.Cfg.RefreshSecret, raw); claims != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if err := h.Sessions.DeleteByToken(ctx, raw); err != nil {
			log.Printf("logout: delete session failed: %v", err)
		} else {
			h.audit(model.AuditLogout, &claims.UserID, c.RealIP(), "")
		}
	}
	clearAuthCookies(c, h.Cfg)
	return OKMessage(c, http.StatusOK, "Logged out")
}

// Me returns the authenticated user. When the access cookie is missing or
// stale it falls back to the refresh token and, on success, re-issues a
// fresh access cookie. It is the one read path allowed to do so.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if claims := utils.VerifyToken(h.Cfg.AccessSecret, readCookie(c, middleware.AccessCookie)); claims != nil {
		u, err := h.Users.GetByID(ctx, claims.UserID)
		if err != nil || u.Status != model.StatusActive {
			return Fail(c, http.StatusUnauthorized, "Not authenticated")
		}
		return OK(c, http.StatusOK, echo.Map{"user": toUserPart(u)})
	}

	raw := readCookie(c, middleware.RefreshCookie)
	if claims := utils.VerifyToken(h.Cfg.RefreshSecret, raw); claims != nil {
		sess, err := h.Sessions.GetByToken(ctx, raw)
		if err == nil {
			if time.Now().UTC().After(sess.ExpiresAt) {
				// Expiry is enforced at lookup time here too; there is no
				// sweep.
				_ = h.Sessions.DeleteByID(ctx, sess.ID)
				return Fail(c, http.StatusUnauthorized, "Not authenticated")
			}
			u, err := h.Users.GetByID(ctx, sess.UserID)
			if err == nil && u.Status == model.StatusActive {
				access, err := utils.NewAccessToken(h.Cfg.AccessSecret, u.ID, u.Email, u.Username, u.Role, h.Cfg.AccessTTL)
				if err == nil {
					setAccessCookie(c, h.Cfg, access.Token)
					return OK(c, http.StatusOK, echo.Map{"user": toUserPart(u)})
				}
			}
		}
	}
	return Fail(c, http.StatusUnauthorized, "Not authenticated")
}

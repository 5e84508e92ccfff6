package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/inkhouse/inkhouse/internal/config"
	"github.com/inkhouse/inkhouse/internal/mail"
	"github.com/inkhouse/inkhouse/internal/model"
	"github.com/inkhouse/inkhouse/internal/repository"
	"github.com/inkhouse/inkhouse/internal/utils"
)

// resetTokenTTL is how long a reset token stays valid.
const resetTokenTTL = time.Hour

// ResetStore manages the single-use reset tokens.
type ResetStore interface {
	Replace(ctx context.Context, userID uint64, token string, expiresAt time.Time) error
	Consume(ctx context.Context, token string) (model.PasswordResetToken, error)
}

// ResetUserStore is the slice of the user repository the reset flow needs.
type ResetUserStore interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	UpdatePassword(ctx context.Context, id uint64, passwordHash string) error
}

// PasswordResetHandler implements the reset lifecycle: request a token by
// email, then spend it exactly once to set a new password.
type PasswordResetHandler struct {
	Cfg      config.Config
	Users    ResetUserStore
	Tokens   ResetStore
	Sessions SessionStore
	Audit    AuditStore
	Mailer   mail.Publisher
}

func NewPasswordResetHandler(cfg config.Config, u ResetUserStore, t ResetStore, s SessionStore, a AuditStore, m mail.Publisher) *PasswordResetHandler {
	return &PasswordResetHandler{Cfg: cfg, Users: u, Tokens: t, Sessions: s, Audit: a, Mailer: m}
}

type requestResetReq struct {
	Email string `json:"email"`
}
type resetPasswordReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// resetAccepted is the one message RequestReset ever returns on success;
// identical whether or not the email exists, so the endpoint cannot be used
// to enumerate accounts.
const resetAccepted = "If that email is registered, a reset link has been sent"

// RequestReset starts the reset flow. Whatever happens internally (unknown
// email, inactive account, even a mail dispatch failure) the caller sees
// the same generic success.
func (h *PasswordResetHandler) RequestReset(c echo.Context) error {
	var req requestResetReq
	if err := c.Bind(&req); err != nil {
		return Fail(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		return Fail(c, http.StatusBadRequest, "Email is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil || u.Status != model.StatusActive {
		if err != nil && err != repository.ErrNotFound {
			log.Printf("request-reset: lookup failed: %v", err)
		}
		return OKMessage(c, http.StatusOK, resetAccepted)
	}

	token, err := utils.NewResetToken()
	if err != nil {
		log.Printf("request-reset: token generation failed: %v", err)
		return OKMessage(c, http.StatusOK, resetAccepted)
	}
	// Replace keeps at most one unused token per user.
	if err := h.Tokens.Replace(ctx, u.ID, token, time.Now().UTC().Add(resetTokenTTL)); err != nil {
		log.Printf("request-reset: store token failed: %v", err)
		return OKMessage(c, http.StatusOK, resetAccepted)
	}

	// Mail dispatch is fire-and-forget; delivery failure is logged inside
	// the publisher and never surfaces here.
	email := u.Email
	utils.BestEffort("request-reset.mail", func(ctx context.Context) error {
		return h.Mailer.Publish(ctx, mail.Event{
			Type: mail.TypePasswordReset, To: email, Token: token,
		})
	})
	return OKMessage(c, http.StatusOK, resetAccepted)
}

// ResetPassword spends a token. Not-found, already-used and expired are
// three internal causes behind one external message; which one it was is
// only logged. On success the token is consumed irreversibly and every
// session the user holds is deleted.
func (h *PasswordResetHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil {
		return Fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.Token == "" {
		return Fail(c, http.StatusBadRequest, "Token is required")
	}
	if len(req.Password) < 8 {
		return Fail(c, http.StatusBadRequest, "Password must be at least 8 characters")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tokens.Consume(ctx, req.Token)
	if err != nil {
		switch err {
		case repository.ErrNotFound, repository.ErrTokenExpired:
			log.Printf("reset-password: rejected token: %v", err)
			return Fail(c, http.StatusBadRequest, "Invalid or expired reset token")
		case repository.ErrTokenUsed:
			log.Printf("reset-password: token already used")
			return Fail(c, http.StatusBadRequest, "This reset token has already been used")
		}
		log.Printf("reset-password: consume failed: %v", err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		log.Printf("reset-password: hash failed: %v", err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}
	if err := h.Users.UpdatePassword(ctx, t.UserID, hash); err != nil {
		// The token is already spent at this point; that is deliberate.
		log.Printf("reset-password: update failed: %v", err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}

	// Force re-authentication everywhere.
	if err := h.Sessions.DeleteAllForUser(ctx, t.UserID); err != nil {
		log.Printf("reset-password: session purge failed: %v", err)
	}

	uid := t.UserID
	utils.BestEffort("audit", func(ctx context.Context) error {
		return h.Audit.Insert(ctx, model.AuditEntry{
			Event: model.AuditPasswordReset, UserID: &uid, IPAddress: c.RealIP(),
		})
	})
	return OKMessage(c, http.StatusOK, "Password updated, please log in again")
}

package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/inkhouse/inkhouse/internal/middleware"
	"github.com/inkhouse/inkhouse/internal/model"
	"github.com/inkhouse/inkhouse/internal/repository"
	"github.com/inkhouse/inkhouse/internal/utils"
)

// KeyStore is the slice of the API-key repository the management endpoints
// need.
type KeyStore interface {
	Create(ctx context.Context, k model.APIKey) (uint64, error)
	ListForUser(ctx context.Context, userID uint64) ([]model.APIKey, error)
	Revoke(ctx context.Context, keyID, requestingUserID uint64) error
}

// APIKeyHandler manages a user's long-lived bearer credentials.
type APIKeyHandler struct {
	Keys  KeyStore
	Audit AuditStore
}

func NewAPIKeyHandler(k KeyStore, a AuditStore) *APIKeyHandler {
	return &APIKeyHandler{Keys: k, Audit: a}
}

type createKeyReq struct {
	Name          string `json:"name"`
	ExpiresInDays int    `json:"expires_in_days"`
}

// keyPart exposes key metadata; the hash stays server-side and the
// plaintext appears only in the creation response.
type keyPart struct {
	ID         uint64     `json:"id"`
	Name       string     `json:"name"`
	KeyPrefix  string     `json:"key_prefix"`
	Status     string     `json:"status"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toKeyPart(k model.APIKey) keyPart {
	return keyPart{ID: k.ID, Name: k.Name, KeyPrefix: k.KeyPrefix, Status: k.Status,
		ExpiresAt: k.ExpiresAt, LastUsedAt: k.LastUsedAt, CreatedAt: k.CreatedAt}
}

// Create mints a key. The plaintext secret is returned in this response and
// never again; only its digest is stored.
func (h *APIKeyHandler) Create(c echo.Context) error {
	claims := middleware.CurrentClaims(c)
	var req createKeyReq
	if err := c.Bind(&req); err != nil {
		return Fail(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return Fail(c, http.StatusBadRequest, "Key name is required")
	}
	if req.ExpiresInDays < 0 {
		return Fail(c, http.StatusBadRequest, "expires_in_days cannot be negative")
	}

	gen, err := utils.NewAPIKey()
	if err != nil {
		log.Printf("apikey: generation failed: %v", err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}

	k := model.APIKey{
		UserID:    claims.UserID,
		Name:      req.Name,
		KeyHash:   gen.Hash,
		KeyPrefix: gen.KeyPrefix,
		Status:    model.KeyStatusActive,
	}
	if req.ExpiresInDays > 0 {
		exp := time.Now().UTC().Add(time.Duration(req.ExpiresInDays) * 24 * time.Hour)
		k.ExpiresAt = &exp
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Keys.Create(ctx, k)
	if err != nil {
		if err == repository.ErrKeyLimit {
			return Fail(c, http.StatusBadRequest, "Maximum of 5 active API keys reached")
		}
		log.Printf("apikey: create failed: %v", err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}
	k.ID = id
	k.CreatedAt = time.Now().UTC()

	uid := claims.UserID
	utils.BestEffort("audit", func(ctx context.Context) error {
		return h.Audit.Insert(ctx, model.AuditEntry{
			Event: model.AuditAPIKeyCreated, UserID: &uid, IPAddress: c.RealIP(), Detail: k.KeyPrefix,
		})
	})

	return OK(c, http.StatusCreated, echo.Map{
		"key": toKeyPart(k),
		// Shown exactly once.
		"secret": gen.Plain,
	})
}

// List returns the caller's keys, metadata only.
func (h *APIKeyHandler) List(c echo.Context) error {
	claims := middleware.CurrentClaims(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	keys, err := h.Keys.ListForUser(ctx, claims.UserID)
	if err != nil {
		log.Printf("apikey: list failed: %v", err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}
	parts := make([]keyPart, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, toKeyPart(k))
	}
	return OK(c, http.StatusOK, echo.Map{"keys": parts})
}

// Revoke soft-deletes a key. A key owned by someone else answers exactly
// like one that does not exist; ownership information must not leak.
func (h *APIKeyHandler) Revoke(c echo.Context) error {
	claims := middleware.CurrentClaims(c)
	keyID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return Fail(c, http.StatusBadRequest, "Invalid key id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Keys.Revoke(ctx, keyID, claims.UserID); err != nil {
		switch err {
		case repository.ErrNotFound, repository.ErrForbidden:
			return Fail(c, http.StatusNotFound, "API key not found")
		}
		log.Printf("apikey: revoke failed: %v", err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}

	uid := claims.UserID
	utils.BestEffort("audit", func(ctx context.Context) error {
		return h.Audit.Insert(ctx, model.AuditEntry{
			Event: model.AuditAPIKeyRevoked, UserID: &uid, IPAddress: c.RealIP(),
			Detail: strconv.FormatUint(keyID, 10),
		})
	})
	return OKMessage(c, http.StatusOK, "API key revoked")
}

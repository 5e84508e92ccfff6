package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/inkhouse/inkhouse/internal/mail"
	"github.com/inkhouse/inkhouse/internal/middleware"
	"github.com/inkhouse/inkhouse/internal/model"
	"github.com/inkhouse/inkhouse/internal/utils"
)

// AdminUserStore is the slice of the user repository moderation needs.
type AdminUserStore interface {
	List(ctx context.Context, page, limit int) ([]model.User, int, error)
	UpdateRoleStatus(ctx context.Context, id uint64, role, status string) error
	CountByStatus(ctx context.Context) (map[string]int, error)
	ActiveEmails(ctx context.Context) ([]string, error)
}

// AuditLister pages through the audit log; super_admin only.
type AuditLister interface {
	List(ctx context.Context, page, limit int) ([]model.AuditEntry, int, error)
}

// AdminHandler covers user moderation and stats (admin+) and the audit log
// and email broadcast (super_admin only). The role split is enforced by the
// router's RequireRole sets, not here.
type AdminHandler struct {
	Users    AdminUserStore
	AuditLog AuditLister
	Audit    AuditStore
	Mailer   mail.Publisher
}

func NewAdminHandler(u AdminUserStore, al AuditLister, a AuditStore, m mail.Publisher) *AdminHandler {
	return &AdminHandler{Users: u, AuditLog: al, Audit: a, Mailer: m}
}

func pageParams(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// ListUsers returns one page of users.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	page, limit := pageParams(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, total, err := h.Users.List(ctx, page, limit)
	if err != nil {
		log.Printf("admin: list users failed: %v", err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}
	parts := make([]userPart, 0, len(users))
	for _, u := range users {
		parts = append(parts, toUserPart(u))
	}
	return Paginated(c, http.StatusOK, echo.Map{"users": parts}, NewPagination(page, limit, total))
}

type moderateReq struct {
	Role   string `json:"role"`
	Status string `json:"status"`
}

// ModerateUser applies a role and/or status change.
func (h *AdminHandler) ModerateUser(c echo.Context) error {
	claims := middleware.CurrentClaims(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return Fail(c, http.StatusBadRequest, "Invalid user id")
	}
	var req moderateReq
	if err := c.Bind(&req); err != nil {
		return Fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.Role == "" && req.Status == "" {
		return Fail(c, http.StatusBadRequest, "Provide a role or a status to change")
	}
	if req.Role != "" && !model.ValidRole(req.Role) {
		return Fail(c, http.StatusBadRequest, "Unknown role")
	}
	if req.Status != "" && !model.ValidStatus(req.Status) {
		return Fail(c, http.StatusBadRequest, "Unknown status")
	}
	// Granting super_admin is itself a super_admin capability.
	if req.Role == model.RoleSuperAdmin && claims.Role != model.RoleSuperAdmin {
		return Fail(c, http.StatusForbidden, "Access denied")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.UpdateRoleStatus(ctx, id, req.Role, req.Status); err != nil {
		log.Printf("admin: moderate user %d failed: %v", id, err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}

	actor := claims.UserID
	detail := strings.TrimSpace("role=" + req.Role + " status=" + req.Status + " target=" + strconv.FormatUint(id, 10))
	utils.BestEffort("audit", func(ctx context.Context) error {
		return h.Audit.Insert(ctx, model.AuditEntry{
			Event: model.AuditUserModerated, UserID: &actor, IPAddress: c.RealIP(), Detail: detail,
		})
	})
	return OKMessage(c, http.StatusOK, "User updated")
}

// Stats returns user counts by status.
func (h *AdminHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	counts, err := h.Users.CountByStatus(ctx)
	if err != nil {
		log.Printf("admin: stats failed: %v", err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}
	return OK(c, http.StatusOK, echo.Map{"users_by_status": counts})
}

// AuditTrail pages through the audit log.
func (h *AdminHandler) AuditTrail(c echo.Context) error {
	page, limit := pageParams(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, total, err := h.AuditLog.List(ctx, page, limit)
	if err != nil {
		log.Printf("admin: audit list failed: %v", err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}
	return Paginated(c, http.StatusOK, echo.Map{"entries": entries}, NewPagination(page, limit, total))
}

type broadcastReq struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Broadcast queues an email to every active user. The handler only
// enqueues; the mail worker fans out sequentially with its fixed pacing and
// counts per-recipient failures without aborting the batch.
func (h *AdminHandler) Broadcast(c echo.Context) error {
	claims := middleware.CurrentClaims(c)
	var req broadcastReq
	if err := c.Bind(&req); err != nil {
		return Fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Body) == "" {
		return Fail(c, http.StatusBadRequest, "Subject and body are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	recipients, err := h.Users.ActiveEmails(ctx)
	if err != nil {
		log.Printf("admin: broadcast recipient query failed: %v", err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}

	ev := mail.Event{Type: mail.TypeBroadcast, Subject: req.Subject, Body: req.Body, Recipients: recipients}
	utils.BestEffort("broadcast.mail", func(ctx context.Context) error {
		return h.Mailer.Publish(ctx, ev)
	})

	actor := claims.UserID
	utils.BestEffort("audit", func(ctx context.Context) error {
		return h.Audit.Insert(ctx, model.AuditEntry{
			Event: model.AuditBroadcastSent, UserID: &actor, IPAddress: c.RealIP(),
			Detail: "recipients=" + strconv.Itoa(len(recipients)),
		})
	})
	return OK(c, http.StatusAccepted, echo.Map{"queued_recipients": len(recipients)})
}

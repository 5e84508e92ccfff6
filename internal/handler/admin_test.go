package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkhouse/inkhouse/internal/mail"
	"github.com/inkhouse/inkhouse/internal/model"
)

func newAdminHandler() (*AdminHandler, *mockUserStore, *mockPublisher) {
	users := newMockUserStore()
	mailer := &mockPublisher{}
	audit := &mockAuditStore{}
	return NewAdminHandler(users, audit, audit, mailer), users, mailer
}

func TestModerateUserValidation(t *testing.T) {
	h, users, _ := newAdminHandler()
	target := addActiveUser(t, users, "target@x.com", "longenough1", model.RoleReader)

	cases := []struct {
		name string
		body map[string]interface{}
		want string
	}{
		{"empty", map[string]interface{}{}, "Provide a role or a status to change"},
		{"bad role", map[string]interface{}{"role": "emperor"}, "Unknown role"},
		{"bad status", map[string]interface{}{"status": "frozen"}, "Unknown status"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newTestContext(http.MethodPatch, "/v1/admin/users/1", tc.body)
			c.SetParamNames("id")
			c.SetParamValues("1")
			asUser(c, 99, model.RoleAdmin)
			require.NoError(t, h.ModerateUser(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.want, decodeBody(rec)["error"])
		})
	}

	u, err := users.GetByID(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleReader, u.Role)
}

func TestModerateUserSuperAdminGrantNeedsSuperAdmin(t *testing.T) {
	h, users, _ := newAdminHandler()
	target := addActiveUser(t, users, "target@x.com", "longenough1", model.RoleWriter)

	body := map[string]interface{}{"role": model.RoleSuperAdmin}

	c, rec := newTestContext(http.MethodPatch, "/v1/admin/users/1", body)
	c.SetParamNames("id")
	c.SetParamValues("1")
	asUser(c, 99, model.RoleAdmin)
	require.NoError(t, h.ModerateUser(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied", decodeBody(rec)["error"])

	c, rec = newTestContext(http.MethodPatch, "/v1/admin/users/1", body)
	c.SetParamNames("id")
	c.SetParamValues("1")
	asUser(c, 99, model.RoleSuperAdmin)
	require.NoError(t, h.ModerateUser(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	u, err := users.GetByID(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleSuperAdmin, u.Role)
}

func TestModerateUserSuspends(t *testing.T) {
	h, users, _ := newAdminHandler()
	target := addActiveUser(t, users, "target@x.com", "longenough1", model.RoleWriter)

	c, rec := newTestContext(http.MethodPatch, "/v1/admin/users/1", map[string]interface{}{
		"status": model.StatusSuspended,
	})
	c.SetParamNames("id")
	c.SetParamValues("1")
	asUser(c, 99, model.RoleAdmin)
	require.NoError(t, h.ModerateUser(c))
	require.Equal(t, http.StatusOK, rec.Code)

	u, err := users.GetByID(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuspended, u.Status)
	assert.Equal(t, model.RoleWriter, u.Role, "status change leaves role alone")
}

func TestBroadcastQueuesActiveRecipientsOnly(t *testing.T) {
	h, users, mailer := newAdminHandler()
	addActiveUser(t, users, "a@x.com", "longenough1", model.RoleReader)
	addActiveUser(t, users, "b@x.com", "longenough1", model.RoleWriter)
	suspended := addActiveUser(t, users, "c@x.com", "longenough1", model.RoleReader)
	require.NoError(t, users.UpdateRoleStatus(context.Background(), suspended.ID, "", model.StatusSuspended))

	c, rec := newTestContext(http.MethodPost, "/v1/admin/broadcast", map[string]interface{}{
		"subject": "Maintenance window",
		"body":    "We will be down briefly.",
	})
	asUser(c, 99, model.RoleSuperAdmin)
	require.NoError(t, h.Broadcast(c))
	require.Equal(t, http.StatusAccepted, rec.Code)

	data := decodeBody(rec)["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["queued_recipients"])

	waitFor(t, func() bool {
		mailer.mu.Lock()
		defer mailer.mu.Unlock()
		return len(mailer.events) == 1
	})
	mailer.mu.Lock()
	ev := mailer.events[0]
	mailer.mu.Unlock()
	assert.Equal(t, mail.TypeBroadcast, ev.Type)
	assert.ElementsMatch(t, []string{"a@x.com", "b@x.com"}, ev.Recipients)
	assert.NotContains(t, ev.Recipients, "c@x.com")
}

func TestBroadcastValidation(t *testing.T) {
	h, _, mailer := newAdminHandler()

	c, rec := newTestContext(http.MethodPost, "/v1/admin/broadcast", map[string]interface{}{
		"subject": "  ", "body": "something",
	})
	asUser(c, 99, model.RoleSuperAdmin)
	require.NoError(t, h.Broadcast(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, mailer.events)
}

func TestListUsersPaginated(t *testing.T) {
	h, users, _ := newAdminHandler()
	for _, n := range []string{"aa", "bb", "cc"} {
		addActiveUser(t, users, n+"@x.com", "longenough1", model.RoleReader)
	}

	c, rec := newTestContext(http.MethodGet, "/v1/admin/users?page=1&limit=2", nil)
	asUser(c, 99, model.RoleAdmin)
	require.NoError(t, h.ListUsers(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(rec)
	listed := body["data"].(map[string]interface{})["users"].([]interface{})
	assert.Len(t, listed, 2)
	pg := body["pagination"].(map[string]interface{})
	assert.Equal(t, float64(3), pg["total"])
	assert.Equal(t, float64(2), pg["totalPages"])
	for _, item := range listed {
		_, leaked := item.(map[string]interface{})["password_hash"]
		assert.False(t, leaked)
	}
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/inkhouse/inkhouse/internal/config"
	"github.com/inkhouse/inkhouse/internal/mail"
	"github.com/inkhouse/inkhouse/internal/model"
	"github.com/inkhouse/inkhouse/internal/repository"
)

func testConfig() config.Config {
	return config.Config{
		Env:               "test",
		AccessSecret:      "access-secret-for-tests",
		RefreshSecret:     "refresh-secret-for-tests",
		BcryptCost:        4, // min cost keeps tests fast
		AccessTTL:         4 * time.Hour,
		RefreshTTLSignup:  30 * 24 * time.Hour,
		RefreshTTLLogin:   7 * 24 * time.Hour,
		RefreshSigningTTL: 30 * 24 * time.Hour,
	}
}

func newTestContext(method, path string, body interface{}) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeBody(rec *httptest.ResponseRecorder) map[string]interface{} {
	var m map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &m)
	return m
}

func cookieValue(rec *httptest.ResponseRecorder, name string) (string, bool) {
	res := &http.Response{Header: rec.Header()}
	for _, ck := range res.Cookies() {
		if ck.Name == name {
			return ck.Value, true
		}
	}
	return "", false
}

// mockUserStore is an in-memory UserStore / ResetUserStore / AdminUserStore.
type mockUserStore struct {
	mu     sync.Mutex
	users  map[uint64]*model.User
	nextID uint64
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: map[uint64]*model.User{}, nextID: 1}
}

func (m *mockUserStore) add(u model.User) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.nextID
		m.nextID++
	}
	cp := u
	m.users[cp.ID] = &cp
	return &cp
}

func (m *mockUserStore) Create(ctx context.Context, email, username, displayName, passwordHash string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
		if u.Username == username {
			return 0, repository.ErrUsernameExists
		}
	}
	id := m.nextID
	m.nextID++
	m.users[id] = &model.User{ID: id, Email: email, Username: username,
		DisplayName: displayName, PasswordHash: passwordHash,
		Role: model.RoleReader, Status: model.StatusActive}
	return id, nil
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *mockUserStore) GetByID(ctx context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return *u, nil
	}
	return model.User{}, repository.ErrNotFound
}

func (m *mockUserStore) TouchLastLogin(ctx context.Context, id uint64) error { return nil }

func (m *mockUserStore) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
		return nil
	}
	return repository.ErrNotFound
}

func (m *mockUserStore) List(ctx context.Context, page, limit int) ([]model.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	off := (page - 1) * limit
	if off >= total {
		return []model.User{}, total, nil
	}
	end := off + limit
	if end > total {
		end = total
	}
	return all[off:end], total, nil
}

func (m *mockUserStore) UpdateRoleStatus(ctx context.Context, id uint64, role, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if role != "" {
		u.Role = role
	}
	if status != "" {
		u.Status = status
	}
	return nil
}

func (m *mockUserStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int{}
	for _, u := range m.users {
		counts[u.Status]++
	}
	return counts, nil
}

func (m *mockUserStore) ActiveEmails(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var emails []string
	for _, u := range m.users {
		if u.Status == model.StatusActive {
			emails = append(emails, u.Email)
		}
	}
	return emails, nil
}

// mockSessionStore is an in-memory SessionStore keyed by refresh token.
type mockSessionStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session
	nextID   uint64
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: map[string]model.Session{}, nextID: 1}
}

func (m *mockSessionStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *mockSessionStore) Create(ctx context.Context, s model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.nextID
	m.nextID++
	m.sessions[s.RefreshToken] = s
	return nil
}

func (m *mockSessionStore) GetByToken(ctx context.Context, token string) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[token]; ok {
		return s, nil
	}
	return model.Session{}, repository.ErrNotFound
}

func (m *mockSessionStore) Rotate(ctx context.Context, oldToken, newToken string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[oldToken]
	if !ok {
		return repository.ErrNotFound
	}
	delete(m.sessions, oldToken)
	s.RefreshToken = newToken
	s.ExpiresAt = expiresAt
	m.sessions[newToken] = s
	return nil
}

func (m *mockSessionStore) DeleteByToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *mockSessionStore) DeleteByID(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for tok, s := range m.sessions {
		if s.ID == id {
			delete(m.sessions, tok)
		}
	}
	return nil
}

func (m *mockSessionStore) DeleteAllForUser(ctx context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for tok, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, tok)
		}
	}
	return nil
}

// mockResetStore mirrors the repository's consume semantics in memory.
type mockResetStore struct {
	mu     sync.Mutex
	tokens map[string]*model.PasswordResetToken
	nextID uint64
}

func newMockResetStore() *mockResetStore {
	return &mockResetStore{tokens: map[string]*model.PasswordResetToken{}, nextID: 1}
}

func (m *mockResetStore) unusedCount(userID uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tokens {
		if t.UserID == userID && t.UsedAt == nil {
			n++
		}
	}
	return n
}

func (m *mockResetStore) has(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tokens[token]
	return ok
}

func (m *mockResetStore) Replace(ctx context.Context, userID uint64, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for v, t := range m.tokens {
		if t.UserID == userID && t.UsedAt == nil {
			delete(m.tokens, v)
		}
	}
	m.tokens[token] = &model.PasswordResetToken{
		ID: m.nextID, UserID: userID, Token: token, ExpiresAt: expiresAt,
	}
	m.nextID++
	return nil
}

func (m *mockResetStore) Consume(ctx context.Context, token string) (model.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return model.PasswordResetToken{}, repository.ErrNotFound
	}
	if t.UsedAt != nil {
		return *t, repository.ErrTokenUsed
	}
	if time.Now().UTC().After(t.ExpiresAt) {
		return *t, repository.ErrTokenExpired
	}
	now := time.Now().UTC()
	t.UsedAt = &now
	return *t, nil
}

// mockKeyStore enforces the active-key cap like the real repository.
type mockKeyStore struct {
	mu     sync.Mutex
	keys   map[uint64]*model.APIKey
	nextID uint64
}

func newMockKeyStore() *mockKeyStore {
	return &mockKeyStore{keys: map[uint64]*model.APIKey{}, nextID: 1}
}

func (m *mockKeyStore) Create(ctx context.Context, k model.APIKey) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := 0
	for _, existing := range m.keys {
		if existing.UserID == k.UserID && existing.Status == model.KeyStatusActive {
			active++
		}
	}
	if active >= model.MaxActiveKeysPerUser {
		return 0, repository.ErrKeyLimit
	}
	id := m.nextID
	m.nextID++
	cp := k
	cp.ID = id
	cp.CreatedAt = time.Now().UTC()
	m.keys[id] = &cp
	return id, nil
}

func (m *mockKeyStore) ListForUser(ctx context.Context, userID uint64) ([]model.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.APIKey{}
	for _, k := range m.keys {
		if k.UserID == userID {
			out = append(out, *k)
		}
	}
	return out, nil
}

func (m *mockKeyStore) Revoke(ctx context.Context, keyID, requestingUserID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[keyID]
	if !ok {
		return repository.ErrNotFound
	}
	if k.UserID != requestingUserID {
		return repository.ErrForbidden
	}
	k.Status = model.KeyStatusRevoked
	return nil
}

// mockAuditStore records entries; audit writes run on detached goroutines
// so the mutex matters.
type mockAuditStore struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

func newMockAuditStore() *mockAuditStore { return &mockAuditStore{} }

func (m *mockAuditStore) Insert(ctx context.Context, e model.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockAuditStore) List(ctx context.Context, page, limit int) ([]model.AuditEntry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]model.AuditEntry{}, m.entries...)
	return out, len(out), nil
}

// mockPublisher records published mail events.
type mockPublisher struct {
	mu     sync.Mutex
	events []mail.Event
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, ev mail.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

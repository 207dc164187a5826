package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/TCoder4k/engmasterai-backend/internal/api/http/handlers"
	"github.com/TCoder4k/engmasterai-backend/internal/auth"
	"github.com/TCoder4k/engmasterai-backend/internal/domain"
	"github.com/TCoder4k/engmasterai-backend/internal/events"
	"github.com/TCoder4k/engmasterai-backend/internal/observability"
	"github.com/TCoder4k/engmasterai-backend/internal/repository"
	"github.com/TCoder4k/engmasterai-backend/internal/service"
)

// memoryUserRepo backs handler tests without a database.
type memoryUserRepo struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	nextID int
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]*domain.User)}
}

func (r *memoryUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	r.nextID++
	user.ID = "user-" + strconv.Itoa(r.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memoryUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memoryUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *memoryUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepo) List(_ context.Context, offset, limit int) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*domain.User, 0, len(r.users))
	for _, user := range r.users {
		clone := *user
		all = append(all, &clone)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memoryUserRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users), nil
}

type testEnv struct {
	app  *fiber.App
	repo *memoryUserRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tokenMgr, err := auth.NewTokenManager("test-secret", 10)
	require.NoError(t, err)
	revoked := auth.NewRevocationList(0)
	t.Cleanup(revoked.Close)

	repo := newMemoryUserRepo()
	logger := zap.NewNop()
	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(repo, tokenMgr, revoked, dispatcher, bcrypt.MinCost)
	userService := service.NewUserService(repo, nil, logger, bcrypt.MinCost)

	app := fiber.New()
	RegisterMiddlewares(app, logger, observability.NewMetrics(), 0)
	RegisterRoutes(app, RouteConfig{
		Health:         nil,
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		AuthMiddleware: auth.NewMiddleware(tokenMgr, revoked),
	})
	return &testEnv{app: app, repo: repo}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req)
	require.NoError(t, err)

	parsed := map[string]any{}
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		_ = json.Unmarshal(data, &parsed)
	}
	return resp, parsed
}

func (e *testEnv) register(t *testing.T, name, email, password string) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": name, "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token, _ := body["accessToken"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestRegisterLoginLogoutFlow(t *testing.T) {
	env := newTestEnv(t)

	token := env.register(t, "Alice", "a@x.com", "secret1")

	// Fresh token is admitted.
	resp, body := env.do(t, http.MethodGet, "/users/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a@x.com", body["email"])
	assert.Equal(t, "USER", body["role"])

	// Logout revokes it.
	resp, _ = env.do(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The same token is rejected afterwards.
	resp, _ = env.do(t, http.MethodGet, "/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Logging out again with the same token still succeeds.
	resp, _ = env.do(t, http.MethodPost, "/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogoutUndecodableTokenForbidden(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/auth/logout", "garbage-token", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRegisterNeverReturnsHash(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Alice", "email": "a@x.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "passwordHash")
	assert.Equal(t, "USER", user["role"])
}

func TestRegisterDuplicateEmailForbidden(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Alice", "a@x.com", "secret1")

	resp, _ := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Bob", "email": "a@x.com", "password": "secret2",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLoginFailuresShareStatus(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Alice", "a@x.com", "secret1")

	payloads := []map[string]string{
		{"email": "nobody@x.com", "password": "secret1"},
		{"email": "a@x.com", "password": "wrong-password"},
		{"email": "a@x.com", "password": "secret1", "role": "ADMIN"},
	}
	var messages []string
	for _, payload := range payloads {
		resp, body := env.do(t, http.MethodPost, "/auth/login", "", payload)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		if errBody, ok := body["error"].(map[string]any); ok {
			message, _ := errBody["message"].(string)
			messages = append(messages, message)
		}
	}
	// Every failure mode produces the identical response message.
	require.Len(t, messages, 3)
	assert.Equal(t, messages[0], messages[1])
	assert.Equal(t, messages[1], messages[2])
}

func TestLoginWithAssertedRole(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Alice", "a@x.com", "secret1")

	resp, body := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@x.com", "password": "secret1", "role": "USER",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["accessToken"])
}

func TestLogoutWithoutTokenUnauthorized(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/auth/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/users/me", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminRoutesForbiddenForUsers(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "Alice", "a@x.com", "secret1")

	resp, _ := env.do(t, http.MethodGet, "/users/", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminCanListUsers(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Alice", "a@x.com", "secret1")

	// Promote a second account to ADMIN directly in the store.
	adminToken := env.register(t, "Root", "root@x.com", "secret1")
	_ = adminToken
	admin, err := env.repo.GetByEmail(context.Background(), "root@x.com")
	require.NoError(t, err)
	admin.Role = domain.RoleAdmin
	require.NoError(t, env.repo.Update(context.Background(), admin))

	// Fresh login so the token carries the ADMIN role claim.
	resp, body := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "root@x.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["accessToken"].(string)

	resp, body = env.do(t, http.MethodGet, "/users/", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, ok := body["data"].([]any)
	require.True(t, ok)
	assert.Len(t, data, 2)
}

func TestUpdateMe(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "Alice", "a@x.com", "secret1")

	resp, body := env.do(t, http.MethodPut, "/users/me", token, map[string]string{
		"name": "Alice B",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Alice B", body["name"])
}

func TestChangePasswordFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "Alice", "a@x.com", "secret1")

	resp, _ := env.do(t, http.MethodPost, "/users/me/password", token, map[string]string{
		"currentPassword": "secret1", "newPassword": "secret2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Old password no longer works; new one does.
	resp, _ = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@x.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@x.com", "password": "secret2",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

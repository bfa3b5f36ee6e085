package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/turtlealbum/internal/auth"
	"github.com/erazemk/turtlealbum/internal/blob"
	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/mating"
	"github.com/erazemk/turtlealbum/internal/metrics"
	"github.com/erazemk/turtlealbum/internal/model"
	"github.com/erazemk/turtlealbum/internal/store"
)

const testJWTSecret = "test-secret"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

type testEnv struct {
	server  *httptest.Server
	token   string
	db      *db.DB
	blobs   *blob.Memory
	metrics *metrics.Metrics
}

func setupTestEnv(t *testing.T, frontend http.Handler) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)
	blobs := blob.NewMemory()
	m := metrics.New()
	router := NewRouter(Options{
		DB:         database,
		Blobs:      blobs,
		Metrics:    m,
		JWTSecret:  testJWTSecret,
		Thresholds: mating.DefaultThresholds,
		Frontend:   frontend,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	t.Cleanup(http.DefaultClient.CloseIdleConnections)

	// Create admin user.
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	_, err := store.CreateUser(context.Background(), database, "admin", string(hash), model.RoleAdmin)
	require.NoError(t, err)

	return &testEnv{
		server:  server,
		token:   login(t, server.URL, "admin", "password"),
		db:      database,
		blobs:   blobs,
		metrics: m,
	}
}

func setupTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	env := setupTestEnv(t, nil)
	return env.server, env.token
}

func login(t *testing.T, baseURL, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(baseURL+"/api/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "login as %s", username)

	var loginResp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loginResp))
	require.NotEmpty(t, loginResp.Token, "empty token from login")
	return loginResp.Token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// call sends a JSON request as the given token and returns the response
// with its body read.
func call(t *testing.T, method, url, token string, body any) (*http.Response, []byte) {
	t.Helper()
	req, err := authRequest(method, url, token, body)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

// as is call with the admin token.
func (e *testEnv) as(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	return call(t, method, e.server.URL+path, e.token, body)
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), "body: %s", data)
	return v
}

func errorMessage(t *testing.T, data []byte) string {
	t.Helper()
	return decode[map[string]string](t, data)["error"]
}

func TestLoginEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	for _, tc := range []struct {
		name string
		body map[string]string
		want int
	}{
		{"bad password", map[string]string{"username": "admin", "password": "wrong"}, http.StatusUnauthorized},
		{"unknown user", map[string]string{"username": "ghost", "password": "password"}, http.StatusUnauthorized},
		{"missing fields", map[string]string{"username": "admin"}, http.StatusBadRequest},
	} {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := call(t, http.MethodPost, server.URL+"/api/auth/login", "", tc.body)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}

	resp, data := call(t, http.MethodPost, server.URL+"/api/auth/login", "",
		map[string]string{"username": " admin ", "password": "password"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[struct {
		Token     string      `json:"token"`
		ExpiresAt time.Time   `json:"expiresAt"`
		User      *model.User `json:"user"`
	}](t, data)
	assert.NotEmpty(t, body.Token)
	assert.WithinDuration(t, time.Now().Add(auth.DefaultTTL), body.ExpiresAt, time.Minute)
	require.NotNil(t, body.User)
	assert.Equal(t, model.RoleAdmin, body.User.Role)
}

func TestUnauthenticatedAccess(t *testing.T) {
	server, _ := setupTestServer(t)

	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodPost, "/api/products"},
		{http.MethodGet, "/api/admin/users"},
		{http.MethodPost, "/api/products/batch-import"},
	} {
		resp, data := call(t, tc.method, server.URL+tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", tc.method, tc.path)
		assert.NotEmpty(t, errorMessage(t, data))
	}

	resp, _ := call(t, http.MethodGet, server.URL+"/api/auth/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRoleBasedAccess(t *testing.T) {
	env := setupTestEnv(t, nil)

	resp, data := env.as(t, http.MethodPost, "/api/admin/users", map[string]string{
		"username": "editor", "password": "editor-pass",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	assert.Equal(t, model.RoleEditor, decode[model.User](t, data).Role)

	resp, _ = env.as(t, http.MethodPost, "/api/admin/users", map[string]string{
		"username": "editor", "password": "editor-pass",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	editor := login(t, env.server.URL, "editor", "editor-pass")

	resp, _ = call(t, http.MethodGet, env.server.URL+"/api/admin/users", editor, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = call(t, http.MethodPost, env.server.URL+"/api/admin/series", editor, map[string]string{"name": "A"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = call(t, http.MethodGet, env.server.URL+"/api/products/batch-import/template", editor, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, data = call(t, http.MethodPost, env.server.URL+"/api/products", editor, map[string]string{"code": "e-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	assert.Equal(t, "E-1", decode[model.Breeder](t, data).Code)
}

func TestMeAndChangePassword(t *testing.T) {
	env := setupTestEnv(t, nil)

	resp, data := env.as(t, http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "admin", decode[model.User](t, data).Username)

	resp, _ = env.as(t, http.MethodPut, "/api/auth/password", map[string]string{
		"current_password": "wrong", "new_password": "new-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.as(t, http.MethodPut, "/api/auth/password", map[string]string{
		"current_password": "password", "new_password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.as(t, http.MethodPut, "/api/auth/password", map[string]string{
		"current_password": "password", "new_password": "new-password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login(t, env.server.URL, "admin", "new-password")
}

func TestLogoutRevokesToken(t *testing.T) {
	env := setupTestEnv(t, nil)

	resp, _ := env.as(t, http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, data := env.as(t, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "token has been revoked", errorMessage(t, data))

	// A fresh login still works.
	fresh := login(t, env.server.URL, "admin", "password")
	resp, _ = call(t, http.MethodGet, env.server.URL+"/api/auth/me", fresh, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUserManagement(t *testing.T) {
	env := setupTestEnv(t, nil)

	resp, data := env.as(t, http.MethodPost, "/api/admin/users", map[string]string{
		"username": "bob", "password": "bob-password", "role": "owner",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(data))

	resp, data = env.as(t, http.MethodPost, "/api/admin/users", map[string]string{
		"username": "bob", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, model.ErrPasswordTooShort.Error(), errorMessage(t, data))

	resp, data = env.as(t, http.MethodPost, "/api/admin/users", map[string]string{
		"username": "bob smith", "password": "bob-password",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, model.ErrUsernameInvalid.Error(), errorMessage(t, data))

	resp, data = env.as(t, http.MethodPost, "/api/admin/users", map[string]string{
		"username": " bob ", "password": "bob-password", "role": model.RoleEditor,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	bob := decode[model.User](t, data)

	resp, data = env.as(t, http.MethodPut, "/api/admin/users/"+bob.ID, map[string]string{"role": model.RoleAdmin})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.RoleAdmin, decode[model.User](t, data).Role)

	resp, _ = env.as(t, http.MethodPut, "/api/admin/users/"+bob.ID+"/password", map[string]string{"password": "reset-password"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login(t, env.server.URL, "bob", "reset-password")

	resp, data = env.as(t, http.MethodGet, "/api/admin/users", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.User](t, data), 2)

	_, data = env.as(t, http.MethodGet, "/api/auth/me", nil)
	me := decode[model.User](t, data)
	resp, _ = env.as(t, http.MethodDelete, "/api/admin/users/"+me.ID, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "self-deletion")
	resp, _ = env.as(t, http.MethodPut, "/api/admin/users/"+me.ID, map[string]string{"role": model.RoleEditor})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "own role change")

	resp, _ = env.as(t, http.MethodDelete, "/api/admin/users/"+bob.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.as(t, http.MethodDelete, "/api/admin/users/"+bob.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	env := setupTestEnv(t, nil)

	resp, data := call(t, http.MethodGet, env.server.URL+"/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, data)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, body["timestamp"])

	resp, data = call(t, http.MethodGet, env.server.URL+"/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `turtlealbum_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestNotFoundAndFrontendFallback(t *testing.T) {
	spa := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "app shell")
	})
	env := setupTestEnv(t, spa)

	resp, data := call(t, http.MethodGet, env.server.URL+"/breeders/abc", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "app shell", string(data))

	resp, data = call(t, http.MethodGet, env.server.URL+"/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not found", errorMessage(t, data))

	server, _ := setupTestServer(t)
	resp, _ = call(t, http.MethodGet, server.URL+"/breeders/abc", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSettings(t *testing.T) {
	env := setupTestEnv(t, nil)

	resp, data := call(t, http.MethodGet, env.server.URL+"/api/settings", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	before := decode[model.SiteSettings](t, data)

	resp, _ = env.as(t, http.MethodPut, "/api/admin/settings", map[string]any{"company_nam": "typo"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "unknown field")

	resp, data = env.as(t, http.MethodPut, "/api/admin/settings", map[string]any{"wechat_number": "turtles88"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	after := decode[model.SiteSettings](t, data)
	assert.Equal(t, "turtles88", after.WechatNumber)
	assert.Equal(t, before.CompanyName, after.CompanyName)
}

func TestBearerToken(t *testing.T) {
	for header, want := range map[string]string{
		"Bearer abc":   "abc",
		"bearer abc":   "abc",
		"Bearer  abc ": "abc",
		"Bearer ":      "",
		"Basic abc":    "",
		"abc":          "",
		"":             "",
	} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		got, ok := bearerToken(r)
		assert.Equal(t, want, got, header)
		assert.Equal(t, want != "", ok, header)
	}
}

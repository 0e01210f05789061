package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"blogcms/internal/auth"
	"blogcms/internal/config"
	"blogcms/internal/models"
	"blogcms/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const testAdminPassword = "password123"

type testEnv struct {
	srv        *Server
	app        *fiber.App
	db         *gorm.DB
	admin      *models.Account
	adminToken string
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:                  "test",
		Port:                 "0",
		FrontendURL:          "http://localhost:5173",
		JWTSecret:            "test-secret",
		JWTIssuer:            "blogcms-api",
		JWTAudience:          "blogcms-admin",
		TokenTTLHours:        1,
		UploadDir:            t.TempDir(),
		UploadMaxSizeMB:      1,
		StorageBackend:       "local",
		FeedProvider:         "instagram",
		InstagramAPIURL:      "http://127.0.0.1:1",
		InstagramVerifyToken: "verify-me",
		InstagramMaxPages:    1,
		FeatureFlags:         "registration=on,media_previews=off",
	}
}

// newTestEnv builds a server on a fresh SQLite database with one admin
// account. mutate adjusts the config before wiring.
func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := testConfig(t)
	for _, m := range mutate {
		m(cfg)
	}

	db := testutil.NewTestDB(t)
	srv, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)

	admin, err := srv.authService.CreateAccount(context.Background(), "editor", testAdminPassword, "editor@blog.test")
	require.NoError(t, err)

	return &testEnv{
		srv:        srv,
		app:        srv.App(),
		db:         db,
		admin:      admin,
		adminToken: issueToken(t, srv, admin.ID, admin.Username, admin.Role),
	}
}

func issueToken(t *testing.T, srv *Server, id uint, username, role string) string {
	t.Helper()
	token, _, err := srv.tokens.Issue(auth.Principal{AccountID: id, Username: username, Role: role})
	require.NoError(t, err)
	return token
}

// do sends a request with an optional JSON body and bearer token and returns
// the status and raw body.
func (e *testEnv) do(t *testing.T, method, path string, body any, token string) (int, []byte) {
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
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func newRawRequest(method, path, contentType, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	return req
}

func decodeJSON(t *testing.T, raw []byte, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, dest), "body: %s", raw)
}

func errorMessage(t *testing.T, raw []byte) string {
	t.Helper()
	var body models.ErrorResponse
	decodeJSON(t, raw, &body)
	return body.Error
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	status, raw := env.do(t, http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, status)

	var body struct {
		Status    string            `json:"status"`
		Timestamp string            `json:"timestamp"`
		Checks    map[string]string `json:"checks"`
	}
	decodeJSON(t, raw, &body)
	assert.Equal(t, "OK", body.Status)
	assert.NotEmpty(t, body.Timestamp)
	assert.Equal(t, "healthy", body.Checks["database"])
	assert.Equal(t, "disabled", body.Checks["redis"])
}

func TestHealthCheck_DatabaseDown(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer func() { _ = sqlDB.Close() }()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	srv := &Server{config: testConfig(t), db: db}
	app := fiber.New()
	app.Get("/api/health", srv.HealthCheck)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	env := newTestEnv(t)

	status, raw := env.do(t, http.MethodGet, "/api/does-not-exist", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Route not found", errorMessage(t, raw))
}

func TestSecurityAndCORSHeaders(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.NotEmpty(t, resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestPreflightFromUnknownOriginGetsNoCORSHeaders(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/posts", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestErrorHandler(t *testing.T) {
	srv := &Server{config: testConfig(t)}
	app := fiber.New(fiber.Config{ErrorHandler: srv.errorHandler})
	app.Get("/too-large", func(c *fiber.Ctx) error { return fiber.ErrRequestEntityTooLarge })
	app.Get("/teapot", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("db exploded at 10.0.0.3") })

	tests := []struct {
		path    string
		status  int
		message string
	}{
		{"/too-large", http.StatusBadRequest, "File too large. Maximum 1MB."},
		{"/teapot", http.StatusTeapot, "short and stout"},
		{"/boom", http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.message, errorMessage(t, raw))
		})
	}
}

func TestFeatureFlagsRequireAdmin(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(t, http.MethodGet, "/api/admin/feature-flags", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, raw := env.do(t, http.MethodGet, "/api/admin/feature-flags", nil, env.adminToken)
	require.Equal(t, http.StatusOK, status)

	var body struct {
		Raw       map[string]string `json:"raw"`
		Evaluated map[string]bool   `json:"evaluated"`
	}
	decodeJSON(t, raw, &body)
	assert.Equal(t, "on", body.Raw["registration"])
	assert.True(t, body.Evaluated["registration"])
	assert.False(t, body.Evaluated["media_previews"])
}

func TestScheduler(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.InstagramSyncSchedule = "*/5 * * * *" })
	require.NoError(t, env.srv.startScheduler())
	require.NotNil(t, env.srv.scheduler)
	assert.Len(t, env.srv.scheduler.Entries(), 1)
	env.srv.stopScheduler(context.Background())

	bad := newTestEnv(t, func(c *config.Config) { c.InstagramSyncSchedule = "not a schedule" })
	assert.Error(t, bad.srv.startScheduler())
}

package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"campus-support/backend/internal/testdb"
	"campus-support/backend/pkg/config"
	"campus-support/backend/pkg/di"
	"campus-support/backend/pkg/jwt"
	"campus-support/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, schema string, tweaks ...func(*config.Config)) *Router {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Load()
	cfg.Server.Env = "test"
	cfg.Assistant.OracleAPIKey = ""
	cfg.Notify.KafkaBrokers = nil
	cfg.Notify.SlackWebhookURL = ""
	cfg.Redis.URL = ""
	cfg.Security.AllowedOrigins = []string{"https://portal.school.test"}
	cfg.Security.RateLimit = 1000
	cfg.Security.RateLimitBurst = 1000
	for _, tweak := range tweaks {
		tweak(cfg)
	}

	container, err := di.New(cfg, testdb.New(t), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r := New(ctx, container)
	if schema != "" {
		require.NoError(t, r.AddOpenAPIValidation(schema))
	}
	r.SetupRoutes()
	container.Health.RunChecks(ctx)
	return r
}

func serve(r *Router, method, path, body string) *httptest.ResponseRecorder {
	return serveAs(r, method, path, body, "")
}

func serveAs(r *Router, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://portal.school.test")
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)
	return w
}

func TestProbeRoutes(t *testing.T) {
	r := newRouter(t, "")

	w := serve(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = serve(r, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database"`)

	w = serve(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIRoutes(t *testing.T) {
	r := newRouter(t, "")

	w := serve(r, http.MethodGet, "/api/v1/faq/categories", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/api/v1/tickets", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// No oracle key configured.
	w = serve(r, http.MethodPost, "/api/v1/chat", `{"message":"hello"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "UPSTREAM_UNAVAILABLE")

	w = serve(r, http.MethodGet, "/api/v1/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestRateLimitPerUser(t *testing.T) {
	r := newRouter(t, "", func(cfg *config.Config) {
		cfg.Security.RateLimit = 0.001
		cfg.Security.RateLimitBurst = 1
	})
	alice, err := r.Container.JWTService.GenerateToken("alice", "", jwt.RoleStudent)
	require.NoError(t, err)
	bob, err := r.Container.JWTService.GenerateToken("bob", "", jwt.RoleStudent)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, serveAs(r, http.MethodGet, "/api/v1/faq/categories", "", alice).Code)
	assert.Equal(t, http.StatusOK, serveAs(r, http.MethodGet, "/api/v1/faq/categories", "", bob).Code)
	assert.Equal(t, http.StatusTooManyRequests, serveAs(r, http.MethodGet, "/api/v1/faq/categories", "", alice).Code)

	// Probes are not limited.
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", "").Code)
}

func TestCORS(t *testing.T) {
	r := newRouter(t, "")

	w := serve(r, http.MethodOptions, "/api/v1/chat", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://portal.school.test", w.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.test")
	rec := httptest.NewRecorder()
	r.Engine.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestOpenAPIValidation(t *testing.T) {
	_, file, _, _ := runtime.Caller(0)
	r := newRouter(t, filepath.Join(filepath.Dir(file), "..", "..", "api", "openapi.yaml"))

	w := serve(r, http.MethodPost, "/api/v1/escalate", `{"subject":"s"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_ARGUMENT")

	w = serve(r, http.MethodPost, "/api/v1/escalate", `{"subject":"Locked out","description":"Too many attempts"}`)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

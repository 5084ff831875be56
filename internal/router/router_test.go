package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"affiliate-link/internal/config"
	"affiliate-link/internal/events"
	"affiliate-link/internal/middleware"
	"affiliate-link/internal/store"
	"affiliate-link/pkg/database"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRouter(t *testing.T, mutate ...func(*config.Config)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	cfg := config.Default()
	for _, m := range mutate {
		m(&cfg)
	}

	nop := zap.NewNop()
	broker := events.NewMemoryBroker(nop.Sugar())
	t.Cleanup(func() {
		_ = broker.Close()
		_ = sqlDB.Close()
	})

	r, err := Setup(Deps{
		Config: &cfg,
		Logger: nop,
		Store:  store.New(db, broker, nop.Sugar()),
		Users:  store.NewUsers(db),
		Source: broker,
	})
	require.NoError(t, err)
	return r
}

func serve(r *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body["error"]
}

func TestMethodNotAllowed(t *testing.T) {
	r := setupRouter(t)

	w := serve(r, http.MethodGet, "/create")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "method not allowed", errorOf(t, w))

	w = serve(r, http.MethodPost, "/go/abc123")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = serve(r, http.MethodPut, "/postback")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestNoRoute(t *testing.T) {
	r := setupRouter(t)
	w := serve(r, http.MethodGet, "/does/not/exist")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not found", errorOf(t, w))
}

func TestRequestIDHeader(t *testing.T) {
	r := setupRouter(t)
	w := serve(r, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestIndexPage(t *testing.T) {
	r := setupRouter(t)
	w := serve(r, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `id="create-form"`)
}

func TestMetricsEndpoint(t *testing.T) {
	r := setupRouter(t)
	serve(r, http.MethodGet, "/health")

	w := serve(r, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "afflink_http_request_duration_seconds")
}

func TestDashboardOpenWithoutAuth(t *testing.T) {
	r := setupRouter(t)
	w := serve(r, http.MethodGet, "/api/dashboard")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(r, http.MethodPost, "/auth/login")
	assert.Equal(t, http.StatusNotFound, w.Code, "未启用认证时没有登录路由")
}

func TestDashboardRequiresTokenWhenAuthEnabled(t *testing.T) {
	r := setupRouter(t, func(c *config.Config) {
		c.Auth.Enabled = true
		c.Auth.Secret = "test-secret"
	})

	w := serve(r, http.MethodGet, "/api/dashboard")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 公开接口不受影响
	w = serve(r, http.MethodGet, "/go/unknown")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	r := setupRouter(t, func(c *config.Config) {
		c.CORS.AllowedOrigins = []string{"https://admin.example.com"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/create", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://admin.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

package server

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sofiene-feki/skands-server/internal/config"
	"github.com/sofiene-feki/skands-server/internal/storage"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDatabase struct {
	db     *sql.DB
	status string
}

func (f *fakeDatabase) Health() map[string]string { return map[string]string{"status": f.status} }
func (f *fakeDatabase) DB() *sql.DB               { return f.db }
func (f *fakeDatabase) Close() error              { return f.db.Close() }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server:    config.ServerConfig{Port: "0", Env: "production", AllowedOrigins: []string{"https://skands.tn"}},
		Media:     config.MediaConfig{Backend: "local", Root: t.TempDir(), URLPrefix: "/uploads/media", MaxUploadMB: 1},
		RateLimit: config.RateLimitConfig{Requests: 5},
	}
}

func newTestRouter(t *testing.T, status string) (http.Handler, sqlmock.Sqlmock, *config.Config) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := testConfig(t)
	media, err := storage.NewLocalStore(cfg.Media.Root, cfg.Media.URLPrefix)
	require.NoError(t, err)

	router := NewRouter(cfg, zap.NewNop(), Dependencies{
		DB:    &fakeDatabase{db: db, status: status},
		Media: media,
	})
	return router, mock, cfg
}

func TestRouter_Health(t *testing.T) {
	router, _, _ := newTestRouter(t, "up")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"up"}`, w.Body.String())

	router, _, _ = newTestRouter(t, "down")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_MetricsCountRoutes(t *testing.T) {
	router, mock, _ := newTestRouter(t, "up")
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/categories", nil))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `path="/api/categories"`)
}

func TestRouter_UnknownRoute(t *testing.T) {
	router, _, _ := newTestRouter(t, "up")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"route not found"`)
}

func TestRouter_ServesLocalMedia(t *testing.T) {
	router, _, cfg := newTestRouter(t, "up")
	media, err := storage.NewLocalStore(cfg.Media.Root, cfg.Media.URLPrefix)
	require.NoError(t, err)

	saved, err := media.Save(context.Background(), storage.Upload{Filename: "robe.txt", ContentType: "text/plain", Body: strings.NewReader("lin")})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, saved.Src, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "lin", w.Body.String())
}

func TestRouter_CORS(t *testing.T) {
	router, _, _ := newTestRouter(t, "up")

	req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	req.Header.Set("Origin", "https://skands.tn")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "https://skands.tn", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

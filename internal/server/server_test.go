package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/demandboard/backend/internal/auth"
	"github.com/emilythestrangee/demandboard/backend/internal/config"
	"github.com/emilythestrangee/demandboard/backend/internal/database"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Database.Driver = config.DriverMemory
	cfg.Auth.JWTSecret = "test-secret"
	return cfg
}

func newTestServer(cfg *config.Config) (*gin.Engine, *auth.JWT) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	gate := auth.NewJWT(cfg.Auth.JWTSecret, "", "")
	return New(cfg, database.NewMemory(), gate, log).RegisterRoutes(), gate
}

func TestHealth(t *testing.T) {
	r, _ := newTestServer(testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "up", body["status"])
	assert.Equal(t, "memory", body["driver"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestServer(testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestRouteProtection(t *testing.T) {
	r, gate := newTestServer(testConfig())

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/api/problems", http.StatusOK},
		{http.MethodGet, "/api/me", http.StatusUnauthorized},
		{http.MethodPost, "/api/problems", http.StatusUnauthorized},
		{http.MethodPost, "/api/problems/x/upvote", http.StatusUnauthorized},
		{http.MethodPost, "/api/problems/x/pay-signal", http.StatusUnauthorized},
		{http.MethodPost, "/api/problems/x/alternatives", http.StatusUnauthorized},
		{http.MethodPost, "/api/problems/x/alternative", http.StatusUnauthorized},
		{http.MethodPost, "/api/problems/x/solutions", http.StatusUnauthorized},
		{http.MethodGet, "/api/problems/x/signals", http.StatusUnauthorized},
		{http.MethodPost, "/api/solutions/x/upvote", http.StatusUnauthorized},
		{http.MethodPost, "/api/solutions/x/mark-solved", http.StatusUnauthorized},
		{http.MethodPost, "/api/auth/sync", http.StatusUnauthorized},
		{http.MethodGet, "/api/problems/x", http.StatusNotFound},
		{http.MethodGet, "/api/problems/x/solutions", http.StatusNotFound},
		{http.MethodGet, "/api/problems/x/alternatives", http.StatusNotFound},
		{http.MethodGet, "/api/users/x", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}

	t.Run("sync then me", func(t *testing.T) {
		tok, err := gate.Sign(auth.Identity{Subject: "sub-1", Name: "One"}, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/sync", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, strings.Contains(w.Body.String(), `"display_name":"One"`))
	})
}

func TestCORS(t *testing.T) {
	t.Run("wildcard", func(t *testing.T) {
		r, _ := newTestServer(testConfig())
		req := httptest.NewRequest(http.MethodOptions, "/api/problems", nil)
		req.Header.Set("Origin", "https://anywhere.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("allow list", func(t *testing.T) {
		cfg := testConfig()
		cfg.CORS.AllowedOrigins = []string{"https://app.example"}
		cfg.CORS.AllowCredentials = true
		r, _ := newTestServer(cfg)

		req := httptest.NewRequest(http.MethodGet, "/api/problems", nil)
		req.Header.Set("Origin", "https://app.example")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

		req = httptest.NewRequest(http.MethodGet, "/api/problems", nil)
		req.Header.Set("Origin", "https://evil.example")
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestNewHTTPServer(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = 9191

	srv := NewHTTPServer(cfg, database.NewMemory(), logrus.New())
	assert.Equal(t, "0.0.0.0:9191", srv.Addr)
	assert.Equal(t, 10*time.Second, srv.ReadTimeout)
	assert.Equal(t, 30*time.Second, srv.WriteTimeout)
	assert.Equal(t, time.Minute, srv.IdleTimeout)
	assert.NotNil(t, srv.Handler)
}

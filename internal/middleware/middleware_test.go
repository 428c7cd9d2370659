package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahidhasan98/commit-notifier/internal/logger"
	"github.com/nahidhasan98/commit-notifier/internal/models"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func newTestMiddleware(perMinute int) *Middleware {
	m := New(logger.Nop(), perMinute)
	m.SetAPIKeys([]string{"a-long-enough-key"})
	return m
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestAPIKeyAuth(t *testing.T) {
	h := newTestMiddleware(60).APIKeyAuth(okHandler)

	tests := []struct {
		name     string
		path     string
		header   string
		value    string
		wantCode int
	}{
		{name: "health is public", path: "/health", wantCode: http.StatusOK},
		{name: "metrics is public", path: "/metrics", wantCode: http.StatusOK},
		{name: "missing key", path: "/resend", wantCode: http.StatusUnauthorized},
		{name: "wrong key", path: "/resend", header: "X-API-Key", value: "nope-nope-nope", wantCode: http.StatusUnauthorized},
		{name: "header key", path: "/resend", header: "X-API-Key", value: "a-long-enough-key", wantCode: http.StatusOK},
		{name: "bearer key", path: "/resend", header: "Authorization", value: "Bearer a-long-enough-key", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusUnauthorized {
				assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	m := newTestMiddleware(2)
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	m.rateLimiter.now = func() time.Time { return now }
	h := m.RateLimit(okHandler)

	serve := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, serve().Code)
	assert.Equal(t, http.StatusOK, serve().Code)

	rec := serve()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "TOO_MANY_REQUESTS", decodeError(t, rec).Code)

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusOK, serve().Code)
}

func TestRecoveryReturnsJSON(t *testing.T) {
	h := newTestMiddleware(60).Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec).Code)
}

func TestChainSetsSecurityHeaders(t *testing.T) {
	h := newTestMiddleware(60).Chain(okHandler)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/resend", nil)
	req.Header.Set("X-API-Key", "a-long-enough-key")
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", getClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", getClientIP(req))
}

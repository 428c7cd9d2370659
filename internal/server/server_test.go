package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nahidhasan98/commit-notifier/internal/config"
	"github.com/nahidhasan98/commit-notifier/internal/handlers"
	"github.com/nahidhasan98/commit-notifier/internal/logger"
	"github.com/nahidhasan98/commit-notifier/internal/models"
)

type stubOrchestrator struct {
	resent []string
}

func (s *stubOrchestrator) Resend(_ context.Context, id string) error {
	s.resent = append(s.resent, id)
	return nil
}

func (s *stubOrchestrator) LastResult() *models.CycleResult { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 8080},
		Security: config.SecurityConfig{APIKeys: []string{"a-long-enough-key"}, RateLimitPerMinute: 100},
	}
}

func TestRoutes(t *testing.T) {
	orch := &stubOrchestrator{}
	srv := New(testConfig(), handlers.New(orch, nil, logger.Nop()), logger.Nop())
	routes := srv.Routes()

	tests := []struct {
		name     string
		method   string
		target   string
		apiKey   string
		wantCode int
	}{
		{name: "health", method: http.MethodGet, target: "/health", wantCode: http.StatusOK},
		{name: "resend without key", method: http.MethodPost, target: "/resend?id=1", wantCode: http.StatusUnauthorized},
		{name: "resend", method: http.MethodPost, target: "/resend?id=1", apiKey: "a-long-enough-key", wantCode: http.StatusAccepted},
		{name: "resend with GET", method: http.MethodGet, target: "/resend?id=1", apiKey: "a-long-enough-key", wantCode: http.StatusMethodNotAllowed},
		{name: "unknown path", method: http.MethodGet, target: "/send", apiKey: "a-long-enough-key", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.apiKey != "" {
				req.Header.Set("X-API-Key", tt.apiKey)
			}
			rec := httptest.NewRecorder()
			routes.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}

	assert.Equal(t, []string{"1"}, orch.resent)
}

func TestStartAndShutdown(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = 0
	srv := New(cfg, handlers.New(&stubOrchestrator{}, nil, logger.Nop()), logger.Nop())

	errChan := make(chan error, 1)
	assert.NoError(t, srv.Start(errChan))
	assert.NoError(t, srv.Shutdown(context.Background()))
}

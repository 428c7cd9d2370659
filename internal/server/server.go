package server

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/nahidhasan98/commit-notifier/internal/config"
	"github.com/nahidhasan98/commit-notifier/internal/handlers"
	"github.com/nahidhasan98/commit-notifier/internal/logger"
	"github.com/nahidhasan98/commit-notifier/internal/middleware"
)

// Server represents the admin HTTP server
type Server struct {
	httpServer *http.Server
	handler    *handlers.Handler
	middleware *middleware.Middleware
	log        *logger.Logger
}

// New creates a new HTTP server
func New(cfg *config.Config, handler *handlers.Handler, log *logger.Logger) *Server {
	mw := middleware.New(log, cfg.Security.RateLimitPerMinute)
	mw.SetAPIKeys(cfg.Security.APIKeys)

	s := &Server{
		handler:    handler,
		middleware: mw,
		log:        log.Component("server"),
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      s.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

// Routes returns the mux wrapped in the middleware chain
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handler.HealthCheck)
	mux.HandleFunc("GET /metrics", s.handler.Metrics)
	mux.HandleFunc("POST /resend", s.handler.Resend)

	return s.middleware.Chain(mux)
}

// Start binds the listener and serves in the background. Bind errors are
// returned; later serve errors go to errChan.
func (s *Server) Start(errChan chan<- error) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}

	s.log.Infof("HTTP server listening on %s", ln.Addr().String())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.log.Info("HTTP server shutdown complete")
	return nil
}

package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nahidhasan98/commit-notifier/internal/errors"
	"github.com/nahidhasan98/commit-notifier/internal/logger"
	"github.com/nahidhasan98/commit-notifier/internal/models"
)

// Middleware represents the middleware dependencies
type Middleware struct {
	log         *logger.Logger
	rateLimiter *RateLimiter
	apiKeys     map[string]bool // Valid API keys
	publicPaths map[string]bool
}

// RateLimiter implements a fixed window limiter per client address
type RateLimiter struct {
	clients map[string]*ClientBucket
	mutex   sync.Mutex

	requestsPerMinute int
	windowSize        time.Duration
	now               func() time.Time
}

// ClientBucket represents a rate limit bucket for a specific client
type ClientBucket struct {
	tokens     int
	lastRefill time.Time
}

// New creates a new middleware instance
func New(log *logger.Logger, requestsPerMinute int) *Middleware {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &Middleware{
		log: log.Component("http"),
		rateLimiter: &RateLimiter{
			clients:           make(map[string]*ClientBucket),
			requestsPerMinute: requestsPerMinute,
			windowSize:        time.Minute,
			now:               time.Now,
		},
		apiKeys: make(map[string]bool),
		publicPaths: map[string]bool{
			"/health":  true,
			"/metrics": true,
		},
	}
}

// SetAPIKeys sets the valid API keys for authentication
func (m *Middleware) SetAPIKeys(keys []string) {
	m.apiKeys = make(map[string]bool)
	for _, key := range keys {
		m.apiKeys[key] = true
	}
}

// Chain wraps next with the full middleware stack, outermost first:
// recovery, logging, security headers, rate limit, API key auth
func (m *Middleware) Chain(next http.Handler) http.Handler {
	h := m.APIKeyAuth(next)
	h = m.RateLimit(h)
	h = m.Security(h)
	h = m.Logging(h)
	return m.Recovery(h)
}

// Logging logs HTTP requests with detailed information
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a custom response writer to capture the status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		m.log.With("method", r.Method).
			With("path", r.URL.Path).
			With("status", rw.statusCode).
			With("duration", time.Since(start).String()).
			With("remote_addr", r.RemoteAddr).
			Debugf("HTTP request completed")
	})
}

// Recovery handles panics and returns a 500 error
func (m *Middleware) Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				m.log.Errorf("Panic in HTTP handler: %v", rec)
				writeError(w, errors.New(errors.ErrCodeInternalError, "Internal server error"))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// RateLimit applies rate limiting based on client IP address
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := getClientIP(r)

		if !m.rateLimiter.Allow(clientIP) {
			m.log.Warnf("Rate limit exceeded for client: %s", clientIP)
			w.Header().Set("Retry-After", strconv.Itoa(int(m.rateLimiter.windowSize.Seconds())))
			writeError(w, errors.New(errors.ErrCodeTooManyRequests, "Rate limit exceeded. Please try again later."))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Allow checks if a request is allowed based on rate limiting
func (rl *RateLimiter) Allow(clientIP string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	bucket, exists := rl.clients[clientIP]
	if !exists {
		bucket = &ClientBucket{tokens: rl.requestsPerMinute, lastRefill: now}
		rl.clients[clientIP] = bucket
	}

	if now.Sub(bucket.lastRefill) >= rl.windowSize {
		bucket.tokens = rl.requestsPerMinute
		bucket.lastRefill = now
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true
	}

	return false
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (for proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr without the port
	if idx := strings.LastIndex(r.RemoteAddr, ":"); idx != -1 {
		return r.RemoteAddr[:idx]
	}
	return r.RemoteAddr
}

// APIKeyAuth validates API key authentication. Health and metrics stay open
// for probes and scrapers.
func (m *Middleware) APIKeyAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.publicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if apiKey == "" {
			m.log.Warnf("Missing API key from %s", getClientIP(r))
			writeError(w, errors.New(errors.ErrCodeUnauthorized, "Missing API key"))
			return
		}

		// Validate API key using constant-time comparison
		if !m.isValidAPIKey(apiKey) {
			m.log.Warnf("Invalid API key from %s", getClientIP(r))
			writeError(w, errors.New(errors.ErrCodeUnauthorized, "Invalid API key"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// isValidAPIKey validates API key using constant-time comparison
func (m *Middleware) isValidAPIKey(providedKey string) bool {
	for validKey := range m.apiKeys {
		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(validKey)) == 1 {
			return true
		}
	}
	return false
}

// Security adds basic security headers
func (m *Middleware) Security(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")

		if !m.publicPaths[r.URL.Path] {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
			w.Header().Set("Pragma", "no-cache")
			w.Header().Set("Expires", "0")
		}

		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, appErr *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(&models.ErrorResponse{
		Error: appErr.Message,
		Code:  string(appErr.Code),
	})
}

// responseWriter is a wrapper for http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nahidhasan98/commit-notifier/internal/errors"
	"github.com/nahidhasan98/commit-notifier/internal/logger"
	"github.com/nahidhasan98/commit-notifier/internal/models"
	"github.com/nahidhasan98/commit-notifier/internal/validation"
)

// maxBodySize bounds resend request bodies
const maxBodySize = 4 << 10

// Orchestrator is the part of the poll loop the admin surface drives
type Orchestrator interface {
	Resend(ctx context.Context, id string) error
	LastResult() *models.CycleResult
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	orchestrator Orchestrator
	metrics      http.Handler
	log          *logger.Logger
	validator    *validation.Validator
	now          func() time.Time
}

// New creates a new handler instance. metrics may be nil.
func New(orchestrator Orchestrator, metrics http.Handler, log *logger.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		metrics:      metrics,
		log:          log.Component("handlers"),
		validator:    validation.New(),
		now:          time.Now,
	}
}

// Resend re-delivers a ledger commit. The id comes from the "id" query
// parameter or a JSON body of the form {"id": "..."}.
func (h *Handler) Resend(w http.ResponseWriter, r *http.Request) {
	req := models.ResendRequest{ID: r.URL.Query().Get("id")}

	if req.ID == "" && r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			h.writeAppError(w, errors.InvalidRequest("Failed to read request body: "+err.Error()))
			return
		}
		if len(strings.TrimSpace(string(body))) > 0 {
			var payload struct {
				ID json.RawMessage `json:"id"`
			}
			if err := json.Unmarshal(body, &payload); err != nil {
				h.writeAppError(w, errors.InvalidRequest("Invalid request body: "+err.Error()))
				return
			}
			if id := string(payload.ID); id != "null" {
				req.ID = id
			}
		}
	}

	// Validate request
	if appErr := h.validator.ValidateResendRequest(&req); appErr != nil {
		h.writeAppError(w, appErr)
		return
	}

	if err := h.orchestrator.Resend(r.Context(), req.ID); err != nil {
		h.writeAppError(w, err)
		return
	}

	response := &models.ResendResponse{
		Status:    "sent",
		ID:        req.ID,
		Timestamp: h.now().Unix(),
	}
	h.writeJSON(w, response, http.StatusAccepted)
}

// Metrics serves the Prometheus registry
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		http.NotFound(w, r)
		return
	}
	h.metrics.ServeHTTP(w, r)
}

package handlers

import (
	"net/http"

	"github.com/nahidhasan98/commit-notifier/internal/models"
)

// HealthCheck reports liveness and the outcome of the last poll cycle
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := &models.HealthResponse{
		Status:    "ok",
		LastCycle: h.orchestrator.LastResult(),
		Timestamp: h.now().Unix(),
	}

	if response.LastCycle == nil {
		response.Status = "starting"
	}

	h.writeJSON(w, response, http.StatusOK)
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	coreseq "medseq/internal/core/sequence"
)

const readinessTimeout = 2 * time.Second

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	checks map[string]coreseq.Pinger
}

// NewHealthHandler creates a health handler pinging each named dependency on readiness.
func NewHealthHandler(checks map[string]coreseq.Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Live handles liveness check (is the process alive?).
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready handles readiness check (is the service ready to accept traffic?).
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	status, code := "ok", http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			results[name] = "unhealthy: " + err.Error()
			status, code = "error", http.StatusServiceUnavailable
			continue
		}
		results[name] = "healthy"
	}

	c.JSON(code, gin.H{
		"status": status,
		"checks": results,
	})
}

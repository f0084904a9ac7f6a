package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/offolaunch/launchtrack/internal/health"
)

func (h *Handler) HealthCheck(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"message":   "LaunchTrack is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    health.FormatUptime(h.reporter.Uptime()),
	})
}

// DetailedHealth answers 503 when the database is unreachable.
func (h *Handler) DetailedHealth(ctx *gin.Context) {
	report := h.reporter.Full(ctx.Request.Context())

	status := http.StatusOK
	if report.Overall != health.StatusHealthy {
		status = http.StatusServiceUnavailable
	}

	ctx.JSON(status, report)
}

func (h *Handler) RouteMetrics(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"routes":    h.times.Snapshot(),
	})
}

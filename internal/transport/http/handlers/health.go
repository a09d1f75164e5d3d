package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/786262170/lumina-api/internal/core/port"
)

// HealthHandler exposes liveness and readiness information.
type HealthHandler struct {
	startedAt time.Time
	store     port.StoreHealth
}

// NewHealthHandler builds a new health handler instance. A nil store skips
// the readiness probe for the revocation store.
func NewHealthHandler(store port.StoreHealth) *HealthHandler {
	return &HealthHandler{startedAt: time.Now().UTC(), store: store}
}

// Status godoc
// @Summary Service health check
// @Description Returns the status and start time of the service.
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		StartedAt: h.startedAt,
	})
}

// Readiness godoc
// @Summary Service readiness check
// @Description Probes the revocation store. The service still reports ready without a store because verification degrades instead of failing.
// @Tags Health
// @Produce json
// @Success 200 {object} ReadinessResponse
// @Router /readyz [get]
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks := make(map[string]string)

	if h.store != nil {
		if err := h.store.HealthCheck(c.Request.Context()); err != nil {
			checks["revocation_store"] = "unavailable"
		} else {
			checks["revocation_store"] = "ok"
		}
	} else {
		checks["revocation_store"] = "disabled"
	}

	// A store outage puts verification into degraded mode rather than taking
	// the service down, so readiness stays 200 and the check result is
	// informational.
	c.JSON(http.StatusOK, ReadinessResponse{
		Status: "ready",
		Checks: checks,
	})
}

// Package handlers holds the service-level endpoints that belong to no
// single feature.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	service  string
	features map[string]bool
}

// NewHealthHandler creates a new health handler. features reports which
// optional subsystems this instance runs with.
func NewHealthHandler(service string, features map[string]bool) *HealthHandler {
	return &HealthHandler{service: service, features: features}
}

// HealthCheck handles GET /health and GET /api/health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   h.service,
		"features":  h.features,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Root handles GET / with a short service description.
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": h.service,
		"status":  "running",
		"endpoints": []string{
			"/health",
			"/api/auth/generate-key",
			"/api/data/customers",
			"/api/data/support-tickets",
			"/api/data/analytics",
			"/api/export/{dataset}",
			"/api/webhooks",
			"/api/cache/status",
		},
	})
}

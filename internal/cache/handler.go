package cache

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voicebridge/data-connector/internal/logger"
)

// Handler exposes cache introspection and management endpoints.
type Handler struct {
	cache Cache
	log   *logger.Logger
}

func NewHandler(cache Cache, log *logger.Logger) *Handler {
	return &Handler{cache: cache, log: log}
}

// Status handles GET /api/cache/status.
func (h *Handler) Status(c *gin.Context) {
	connected := h.cache.Ping(c.Request.Context()) == nil

	stats, err := h.cache.Stats(c.Request.Context())
	if err != nil {
		h.log.Warn("Failed to read cache stats", "error", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"enabled":   true,
		"backend":   stats.Backend,
		"connected": connected,
	})
}

// GetStats handles GET /api/cache/stats.
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.cache.Stats(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to read cache stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read cache stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Clear handles DELETE /api/cache/clear.
func (h *Handler) Clear(c *gin.Context) {
	if err := h.cache.Clear(c.Request.Context()); err != nil {
		h.log.Error("Failed to clear cache", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cache"})
		return
	}

	h.log.Info("Cache cleared")
	c.JSON(http.StatusOK, gin.H{"message": "Cache cleared successfully"})
}

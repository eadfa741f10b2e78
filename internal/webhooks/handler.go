package webhooks

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/voicebridge/data-connector/internal/logger"
)

// Handler exposes subscription management and a manual delivery trigger.
type Handler struct {
	registry   Registry
	dispatcher *Dispatcher
	log        *logger.Logger
}

func NewHandler(registry Registry, dispatcher *Dispatcher, log *logger.Logger) *Handler {
	return &Handler{registry: registry, dispatcher: dispatcher, log: log}
}

type RegisterRequest struct {
	URL    string   `json:"url"`
	Name   string   `json:"name,omitempty"`
	Events []string `json:"events"`
}

// Register handles POST /api/webhooks/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.registry.Register(c.Request.Context(), req.URL, req.Name, req.Events)
	if err != nil {
		if errors.Is(err, ErrInvalidURL) || errors.Is(err, ErrNoEvents) || errors.Is(err, ErrUnknownEvent) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":        err.Error(),
				"known_events": KnownEvents(),
			})
			return
		}
		h.log.Error("Failed to register webhook", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register webhook"})
		return
	}

	h.log.Info("Registered webhook", "id", sub.ID, "url", sub.URL, "events", sub.Events)
	c.JSON(http.StatusCreated, sub)
}

// List handles GET /api/webhooks.
func (h *Handler) List(c *gin.Context) {
	subs, err := h.registry.List(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to list webhooks", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list webhooks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"webhooks": subs,
		"total":    len(subs),
	})
}

// Unregister handles DELETE /api/webhooks/:id. Removal is immediate and
// permanent.
func (h *Handler) Unregister(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "webhook id must be an integer"})
		return
	}

	removed, err := h.registry.Unregister(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Failed to unregister webhook", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unregister webhook"})
		return
	}

	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Webhook subscription not found"})
		return
	}

	h.log.Info("Unregistered webhook", "id", id)
	c.JSON(http.StatusOK, gin.H{"message": "Webhook unregistered successfully"})
}

type TestRequest struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

// Test handles POST /api/webhooks/test: emits an event on demand so
// subscribers can verify their endpoint end to end.
func (h *Handler) Test(c *gin.Context) {
	// An empty body defaults to a health_check event.
	req := TestRequest{Event: EventHealthCheck}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if !IsKnownEvent(req.Event) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":        "unknown event: " + req.Event,
			"known_events": KnownEvents(),
		})
		return
	}

	data := req.Data
	if data == nil {
		data = map[string]any{"triggered_by": "manual test"}
	}

	h.dispatcher.Emit(req.Event, data)
	c.JSON(http.StatusAccepted, gin.H{
		"message": "Event queued for delivery",
		"event":   req.Event,
	})
}

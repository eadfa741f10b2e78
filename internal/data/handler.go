// Package data serves the gateway's dataset endpoints.
package data

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voicebridge/data-connector/internal/cache"
	"github.com/voicebridge/data-connector/internal/connectors"
	"github.com/voicebridge/data-connector/internal/logger"
	"github.com/voicebridge/data-connector/internal/voice"
	"github.com/voicebridge/data-connector/internal/webhooks"
)

// Emitter publishes internal events. Satisfied by the webhook dispatcher.
type Emitter interface {
	Emit(event string, data map[string]any)
}

// Metadata accompanies every dataset response.
type Metadata struct {
	TotalResults    int       `json:"total_results"`
	ReturnedResults int       `json:"returned_results"`
	DataType        string    `json:"data_type"`
	DataFreshness   time.Time `json:"data_freshness"`
	Context         string    `json:"context,omitempty"`
	HasMore         bool      `json:"has_more"`
}

// Response is the dataset envelope.
type Response struct {
	Data     []connectors.Record `json:"data"`
	Metadata Metadata            `json:"metadata"`
}

// Handler serves dataset reads and the refresh operation.
type Handler struct {
	sources      *connectors.Set
	cache        cache.Cache
	cacheTTL     time.Duration
	emitter      Emitter
	voiceEnabled bool
	voiceOpts    voice.Options
	log          *logger.Logger
}

type HandlerOption func(*Handler)

// WithCache enables response caching.
func WithCache(c cache.Cache, ttl time.Duration) HandlerOption {
	return func(h *Handler) {
		h.cache = c
		h.cacheTTL = ttl
	}
}

// WithVoice enables voice-assistant response shaping.
func WithVoice(opts voice.Options) HandlerOption {
	return func(h *Handler) {
		h.voiceEnabled = true
		h.voiceOpts = opts
	}
}

func NewHandler(sources *connectors.Set, emitter Emitter, log *logger.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		sources:   sources,
		emitter:   emitter,
		voiceOpts: voice.DefaultOptions(),
		log:       log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Customers handles GET /api/data/customers.
func (h *Handler) Customers(c *gin.Context) {
	h.serve(c, connectors.TypeCustomers)
}

// Tickets handles GET /api/data/support-tickets.
func (h *Handler) Tickets(c *gin.Context) {
	h.serve(c, connectors.TypeTickets)
}

// Analytics handles GET /api/data/analytics.
func (h *Handler) Analytics(c *gin.Context) {
	h.serve(c, connectors.TypeAnalytics)
}

func (h *Handler) serve(c *gin.Context, dataset string) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	source, err := h.sources.Get(dataset)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dataset not enabled: " + dataset})
		return
	}

	key := cacheKey(dataset, c.Request.URL.Query())
	if h.cache != nil {
		if body, err := h.cache.Get(c.Request.Context(), key); err == nil {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", body)
			return
		}
	}

	records, err := source.Fetch(c.Request.Context(), connectors.Filters{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Metric:   c.Query("metric"),
	})
	if err != nil {
		h.log.Error("Failed to fetch dataset", "dataset", dataset, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch dataset"})
		return
	}

	resp := h.buildResponse(dataset, source.GeneratedAt(), records, limit)

	body, err := json.Marshal(resp)
	if err != nil {
		h.log.Error("Failed to encode dataset response", "dataset", dataset, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode response"})
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(c.Request.Context(), key, body, h.cacheTTL); err != nil {
			h.log.Warn("Failed to cache dataset response", "dataset", dataset, "error", err)
		}
	}

	c.Header("X-Cache", "MISS")
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (h *Handler) buildResponse(dataset string, freshness time.Time, records []connectors.Record, limit int) Response {
	var (
		shown   []connectors.Record
		context string
	)

	if h.voiceEnabled {
		result := voice.Optimize(dataset, records, h.voiceOpts, limit)
		shown = result.Records
		context = result.Context
	} else {
		shown = records
		if limit > 0 && len(shown) > limit {
			shown = shown[:limit]
		}
	}

	return Response{
		Data: shown,
		Metadata: Metadata{
			TotalResults:    len(records),
			ReturnedResults: len(shown),
			DataType:        dataset,
			DataFreshness:   freshness,
			Context:         context,
			HasMore:         len(shown) < len(records),
		},
	}
}

// Refresh handles POST /api/data/refresh: regenerates every dataset, drops
// cached responses, and announces the change.
func (h *Handler) Refresh(c *gin.Context) {
	h.sources.RefreshAll()

	if h.cache != nil {
		if err := h.cache.Clear(c.Request.Context()); err != nil {
			h.log.Warn("Failed to clear cache on refresh", "error", err)
		}
	}

	types := h.sources.Types()
	sort.Strings(types)

	h.log.Info("Datasets refreshed", "datasets", types)

	if h.emitter != nil {
		h.emitter.Emit(webhooks.EventDataUpdated, map[string]any{
			"datasets":     types,
			"refreshed_at": time.Now().UTC().Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Datasets refreshed",
		"datasets": types,
	})
}

// cacheKey folds the dataset and the sorted query string into a stable key.
func cacheKey(dataset string, query map[string][]string) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		if k == "api_key" {
			// Credential material never lands in cache keys.
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	key := "data:" + dataset
	for _, k := range keys {
		for _, v := range query[k] {
			key += ":" + k + "=" + v
		}
	}
	return key
}

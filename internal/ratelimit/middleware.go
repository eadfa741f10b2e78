package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voicebridge/data-connector/internal/logger"
	"github.com/voicebridge/data-connector/internal/webhooks"
)

// Context keys set by the auth middleware and read here. Defined in this
// package so auth can depend on ratelimit without a cycle.
const (
	// ContextClientID carries the identity requests are counted under.
	ContextClientID = "client_id"
	// ContextLimitOverride carries a credential's per-window quota (*int)
	// when one is set.
	ContextLimitOverride = "rate_limit_override"
	// ContextKeyName carries the authenticated credential's display name.
	ContextKeyName = "api_key_name"
)

// Emitter publishes internal events. Satisfied by the webhook dispatcher.
type Emitter interface {
	Emit(event string, data map[string]any)
}

// Middleware enforces the fixed-window quota for every request passing
// through it. Identity comes from the auth middleware when present, else the
// source address. The first rejection of each window is published as a
// rate_limit_warning event.
func Middleware(limiter *Limiter, emitter Emitter, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetString(ContextClientID)
		if clientID == "" {
			clientID = c.ClientIP()
		}

		var override *int
		if v, ok := c.Get(ContextLimitOverride); ok {
			if limit, ok := v.(*int); ok {
				override = limit
			}
		}

		dec := limiter.Admit(clientID, override)

		c.Header("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(dec.ResetAt.Unix(), 10))

		if !dec.Allowed {
			if dec.JustExceeded {
				// The client identity is a raw credential token for
				// authenticated requests; only a preview may leave the
				// process.
				log.Warn("Rate limit exceeded", "client", clientPreview(clientID), "limit", dec.Limit)
				if emitter != nil {
					payload := map[string]any{
						"client_id": clientPreview(clientID),
						"limit":     dec.Limit,
						"reset_at":  dec.ResetAt.UTC().Format(time.RFC3339),
					}
					if name := c.GetString(ContextKeyName); name != "" {
						payload["key_name"] = name
					}
					emitter.Emit(webhooks.EventRateLimitWarning, payload)
				}
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":     "Rate limit exceeded",
				"limit":     dec.Limit,
				"remaining": 0,
				"reset":     dec.ResetAt.Unix(),
			})
			return
		}

		c.Next()
	}
}

// clientPreview truncates a client identity for logs and event payloads.
func clientPreview(id string) string {
	if len(id) <= 10 {
		return id
	}
	return id[:10] + "..."
}

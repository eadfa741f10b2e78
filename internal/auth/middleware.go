// Package auth gates API routes behind credential checks.
package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/voicebridge/data-connector/internal/keys"
	"github.com/voicebridge/data-connector/internal/logger"
	"github.com/voicebridge/data-connector/internal/ratelimit"
)

// ContextKeyName carries the authenticated credential's display name. The
// rate-limit middleware reads it when publishing warning events.
const ContextKeyName = ratelimit.ContextKeyName

// openRoutes are reachable without a credential.
var openRoutes = map[string]struct{}{
	"/":            {},
	"/health":      {},
	"/api/health":  {},
	"/ui":          {},
	"/favicon.ico": {},
}

// openPrefixes cover route families reachable without a credential. The auth
// endpoints themselves must stay open or nobody could mint a first key.
var openPrefixes = []string{
	"/api/auth",
	"/static",
}

// IsOpenRoute reports whether path is reachable without a credential.
func IsOpenRoute(path string) bool {
	if _, ok := openRoutes[path]; ok {
		return true
	}
	for _, prefix := range openPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Middleware authenticates every request outside the open route set. On
// success it records the credential token as the client identity for rate
// limiting, along with any per-key quota override. Rejections are generic so
// callers cannot probe which tokens exist.
func Middleware(service *keys.Service, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsOpenRoute(c.Request.URL.Path) {
			c.Next()
			return
		}

		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing API key. Use 'Authorization: Bearer <api_key>' or '?api_key=<api_key>'",
			})
			return
		}

		cred, err := service.Validate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, keys.ErrKeyNotFound) || errors.Is(err, keys.ErrKeyRevoked) {
				log.Warn("Rejected request with invalid API key",
					"key", keys.Preview(token), "path", c.Request.URL.Path)
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "Invalid or inactive API key",
				})
				return
			}
			// Credential store unavailable. Fail closed.
			log.Error("Credential check failed", "error", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "Authentication temporarily unavailable",
			})
			return
		}

		c.Set(ratelimit.ContextClientID, cred.Token)
		c.Set(ContextKeyName, cred.Name)
		if cred.RateLimit != nil {
			c.Set(ratelimit.ContextLimitOverride, cred.RateLimit)
		}

		c.Next()
	}
}

// extractToken reads the API key from the Authorization header, falling back
// to the api_key query parameter.
func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return strings.TrimSpace(c.Query("api_key"))
}

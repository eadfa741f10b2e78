package keys

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voicebridge/data-connector/internal/logger"
	"github.com/voicebridge/data-connector/internal/ratelimit"
)

// LimitChecker reports rate-limit state without consuming a slot. Satisfied
// by *ratelimit.Limiter.
type LimitChecker interface {
	Peek(clientID string, limitOverride *int) ratelimit.Decision
}

type Handler struct {
	service *Service
	limiter LimitChecker
	log     *logger.Logger
}

func NewHandler(service *Service, limiter LimitChecker, log *logger.Logger) *Handler {
	return &Handler{service: service, limiter: limiter, log: log}
}

type GenerateRequest struct {
	Name      string `json:"name"`
	RateLimit *int   `json:"rate_limit,omitempty"`
}

type GenerateResponse struct {
	APIKey    string    `json:"api_key"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	RateLimit *int      `json:"rate_limit,omitempty"`
}

// GenerateKey handles POST /api/auth/generate-key.
func (h *Handler) GenerateKey(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key name is required"})
		return
	}

	if req.RateLimit != nil && *req.RateLimit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rate_limit must be positive"})
		return
	}

	cred, err := h.service.IssueKey(c.Request.Context(), req.Name, req.RateLimit)
	if err != nil {
		h.log.Error("Failed to generate api key", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate API key"})
		return
	}

	c.JSON(http.StatusCreated, GenerateResponse{
		APIKey:    cred.Token,
		Name:      cred.Name,
		CreatedAt: cred.CreatedAt,
		RateLimit: cred.RateLimit,
	})
}

// Validate handles GET /api/auth/validate. The route is open, so the handler
// extracts and checks the presented token itself and reports current
// rate-limit state without consuming a slot.
func (h *Handler) Validate(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authorization header. Use 'Bearer <api_key>'"})
		return
	}

	cred, err := h.service.Validate(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) || errors.Is(err, ErrKeyRevoked) {
			h.log.Warn("Invalid API key presented for validation", "key", Preview(token))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or inactive API key"})
			return
		}
		h.log.Error("Failed to validate api key", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Validation error"})
		return
	}

	dec := h.limiter.Peek(cred.Token, cred.RateLimit)

	c.JSON(http.StatusOK, gin.H{
		"valid":                true,
		"key_name":             cred.Name,
		"rate_limit":           dec.Limit,
		"rate_limit_remaining": dec.Remaining,
		"rate_limit_reset":     dec.ResetAt.Unix(),
	})
}

// ListKeys handles GET /api/auth/keys. Only active credentials are listed,
// and only token previews are returned.
func (h *Handler) ListKeys(c *gin.Context) {
	creds, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to list api keys", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list API keys"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"keys":  creds,
		"total": len(creds),
	})
}

// RevokeKey handles POST /api/auth/revoke/:key. Revocation is permanent.
func (h *Handler) RevokeKey(c *gin.Context) {
	token := c.Param("key")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "API key required"})
		return
	}

	revoked, err := h.service.Revoke(c.Request.Context(), token)
	if err != nil {
		h.log.Error("Failed to revoke api key", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to revoke API key"})
		return
	}

	if !revoked {
		c.JSON(http.StatusNotFound, gin.H{"error": "API key not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "API key " + Preview(token) + " revoked successfully"})
}

// bearerToken extracts the presented API key from the Authorization header,
// falling back to the api_key query parameter.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return strings.TrimSpace(c.Query("api_key"))
}

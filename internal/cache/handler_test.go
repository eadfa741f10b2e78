package cache

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebridge/data-connector/internal/logger"
)

func setupCacheRouter(t *testing.T) (*gin.Engine, *Memory) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := NewMemory()
	h := NewHandler(m, logger.New(false))

	router := gin.New()
	router.GET("/api/cache/status", h.Status)
	router.GET("/api/cache/stats", h.GetStats)
	router.DELETE("/api/cache/clear", h.Clear)
	return router, m
}

func TestCacheEndpoints(t *testing.T) {
	t.Run("status reports backend and connectivity", func(t *testing.T) {
		router, _ := setupCacheRouter(t)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cache/status", nil))

		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, true, body["enabled"])
		assert.Equal(t, "memory", body["backend"])
		assert.Equal(t, true, body["connected"])
	})

	t.Run("stats reflect usage", func(t *testing.T) {
		router, m := setupCacheRouter(t)
		require.NoError(t, m.Set(context.Background(), "k", []byte("v"), time.Minute))
		_, _ = m.Get(context.Background(), "k")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cache/stats", nil))

		require.Equal(t, http.StatusOK, w.Code)

		var stats Stats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, int64(1), stats.Keys)
		assert.Equal(t, int64(1), stats.Hits)
	})

	t.Run("clear empties the cache", func(t *testing.T) {
		router, m := setupCacheRouter(t)
		require.NoError(t, m.Set(context.Background(), "k", []byte("v"), time.Minute))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/cache/clear", nil))

		require.Equal(t, http.StatusOK, w.Code)

		stats, err := m.Stats(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(0), stats.Keys)
	})
}

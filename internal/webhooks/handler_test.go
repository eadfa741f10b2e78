package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebridge/data-connector/internal/logger"
)

func setupHandler(t *testing.T) (*gin.Engine, *fakeRegistry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := newFakeRegistry()
	log := logger.New(false)
	dispatcher := NewDispatcher(registry, log, WithBackoff(noBackoff))
	dispatcher.Start(context.Background())
	t.Cleanup(dispatcher.Shutdown)

	h := NewHandler(registry, dispatcher, log)

	router := gin.New()
	router.POST("/api/webhooks/register", h.Register)
	router.GET("/api/webhooks", h.List)
	router.DELETE("/api/webhooks/:id", h.Unregister)
	router.POST("/api/webhooks/test", h.Test)
	return router, registry
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestRegisterEndpoint(t *testing.T) {
	t.Run("creates a subscription", func(t *testing.T) {
		router, _ := setupHandler(t)

		w := postJSON(router, "/api/webhooks/register", RegisterRequest{
			URL:    "https://example.com/hook",
			Events: []string{EventDataUpdated, EventExportCompleted},
		})

		require.Equal(t, http.StatusCreated, w.Code)

		var sub Subscription
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sub))
		assert.Equal(t, int64(1), sub.ID)
		assert.Equal(t, "https://example.com/hook", sub.URL)
		assert.Equal(t, []string{EventDataUpdated, EventExportCompleted}, sub.Events)
	})

	t.Run("ids are sequential", func(t *testing.T) {
		router, _ := setupHandler(t)

		for want := int64(1); want <= 3; want++ {
			w := postJSON(router, "/api/webhooks/register", RegisterRequest{
				URL:    "https://example.com/hook",
				Events: []string{EventHealthCheck},
			})
			require.Equal(t, http.StatusCreated, w.Code)

			var sub Subscription
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sub))
			assert.Equal(t, want, sub.ID)
		}
	})

	t.Run("rejects invalid URL", func(t *testing.T) {
		router, _ := setupHandler(t)

		w := postJSON(router, "/api/webhooks/register", RegisterRequest{
			URL:    "not-a-url",
			Events: []string{EventDataUpdated},
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects unknown event and advertises the vocabulary", func(t *testing.T) {
		router, _ := setupHandler(t)

		w := postJSON(router, "/api/webhooks/register", RegisterRequest{
			URL:    "https://example.com/hook",
			Events: []string{"user_signup"},
		})

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "user_signup")
		assert.Contains(t, w.Body.String(), EventDataUpdated)
	})
}

func TestListEndpoint(t *testing.T) {
	router, _ := setupHandler(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/webhooks", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":0`)

	postJSON(router, "/api/webhooks/register", RegisterRequest{
		URL:    "https://example.com/hook",
		Events: []string{EventDataUpdated},
	})

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/webhooks", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)
}

func TestUnregisterEndpoint(t *testing.T) {
	router, registry := setupHandler(t)

	_, err := registry.Register(context.Background(), "https://example.com/hook", "ci", []string{EventDataUpdated})
	require.NoError(t, err)

	t.Run("removes an existing subscription", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/webhooks/1", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		subs, err := registry.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, subs)
	})

	t.Run("unknown id is a 404", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/webhooks/999", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("non-numeric id is a 400", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/webhooks/abc", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTestEndpoint(t *testing.T) {
	t.Run("queues a named event", func(t *testing.T) {
		router, _ := setupHandler(t)

		w := postJSON(router, "/api/webhooks/test", TestRequest{Event: EventDataUpdated})

		require.Equal(t, http.StatusAccepted, w.Code)
		assert.Contains(t, w.Body.String(), EventDataUpdated)
	})

	t.Run("defaults to health_check with no body", func(t *testing.T) {
		router, _ := setupHandler(t)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/webhooks/test", nil))

		require.Equal(t, http.StatusAccepted, w.Code)
		assert.Contains(t, w.Body.String(), EventHealthCheck)
	})

	t.Run("rejects unknown event", func(t *testing.T) {
		router, _ := setupHandler(t)

		w := postJSON(router, "/api/webhooks/test", TestRequest{Event: "bogus"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

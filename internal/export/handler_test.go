package export

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebridge/data-connector/internal/connectors"
	"github.com/voicebridge/data-connector/internal/logger"
	"github.com/voicebridge/data-connector/internal/webhooks"
)

type capturingEmitter struct {
	mu     sync.Mutex
	events []string
	data   []map[string]any
}

func (e *capturingEmitter) Emit(event string, data map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	e.data = append(e.data, data)
}

func setupExportRouter(t *testing.T, maxRecords int) (*gin.Engine, *capturingEmitter) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sources := connectors.NewSet(
		connectors.NewCRM(15, 42),
		connectors.NewSupport(15, 42),
		connectors.NewAnalytics(42),
	)
	emitter := &capturingEmitter{}
	h := NewHandler(sources, emitter, maxRecords, logger.New(false))

	router := gin.New()
	router.POST("/api/export/:dataset", h.Export)
	return router, emitter
}

func TestExportEndpoint(t *testing.T) {
	t.Run("csv download with attachment headers", func(t *testing.T) {
		router, emitter := setupExportRouter(t, 0)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/export/customers?format=csv", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
		assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")

		rows, err := csv.NewReader(bytes.NewReader(w.Body.Bytes())).ReadAll()
		require.NoError(t, err)
		assert.Len(t, rows, 16) // header + 15 customers

		require.Equal(t, []string{webhooks.EventExportCompleted}, emitter.events)
		assert.Equal(t, "customers", emitter.data[0]["data_type"])
		assert.Equal(t, 15, emitter.data[0]["record_count"])
	})

	t.Run("format defaults to csv", func(t *testing.T) {
		router, _ := setupExportRouter(t, 0)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/export/analytics", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	})

	t.Run("xlsx export", func(t *testing.T) {
		router, _ := setupExportRouter(t, 0)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/export/tickets?format=xlsx", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	})

	t.Run("truncates at the record cap", func(t *testing.T) {
		router, emitter := setupExportRouter(t, 5)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/export/customers", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "true", w.Header().Get("X-Export-Truncated"))

		rows, err := csv.NewReader(bytes.NewReader(w.Body.Bytes())).ReadAll()
		require.NoError(t, err)
		assert.Len(t, rows, 6)

		assert.Equal(t, true, emitter.data[0]["truncated"])
		assert.Equal(t, 5, emitter.data[0]["record_count"])
	})

	t.Run("filters narrow the export", func(t *testing.T) {
		router, _ := setupExportRouter(t, 0)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/export/tickets?status=open&format=json", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), `"status": "closed"`)
	})

	t.Run("unknown dataset is a 404", func(t *testing.T) {
		router, emitter := setupExportRouter(t, 0)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/export/users", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, emitter.events)
	})

	t.Run("unknown format is a 400", func(t *testing.T) {
		router, emitter := setupExportRouter(t, 0)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/export/customers?format=pdf", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, emitter.events)
	})
}

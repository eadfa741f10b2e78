package export

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voicebridge/data-connector/internal/connectors"
	"github.com/voicebridge/data-connector/internal/logger"
	"github.com/voicebridge/data-connector/internal/webhooks"
)

// Emitter publishes internal events. Satisfied by the webhook dispatcher.
type Emitter interface {
	Emit(event string, data map[string]any)
}

// datasets maps the export route segment to the connector type.
var datasets = map[string]string{
	"customers": connectors.TypeCustomers,
	"tickets":   connectors.TypeTickets,
	"analytics": connectors.TypeAnalytics,
}

// Handler serves dataset downloads.
type Handler struct {
	sources    *connectors.Set
	emitter    Emitter
	maxRecords int
	log        *logger.Logger
}

func NewHandler(sources *connectors.Set, emitter Emitter, maxRecords int, log *logger.Logger) *Handler {
	return &Handler{sources: sources, emitter: emitter, maxRecords: maxRecords, log: log}
}

// Export handles POST /api/export/:dataset?format=csv|json|xlsx. The response
// body is the encoded file with attachment headers.
func (h *Handler) Export(c *gin.Context) {
	dataset, ok := datasets[c.Param("dataset")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown dataset: " + c.Param("dataset")})
		return
	}

	format, err := ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   err.Error(),
			"formats": []string{"csv", "json", "xlsx"},
		})
		return
	}

	source, err := h.sources.Get(dataset)
	if err != nil {
		if errors.Is(err, connectors.ErrUnknownDataset) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Dataset not enabled: " + dataset})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve dataset"})
		return
	}

	records, err := source.Fetch(c.Request.Context(), connectors.Filters{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Metric:   c.Query("metric"),
	})
	if err != nil {
		h.log.Error("Failed to fetch dataset for export", "dataset", dataset, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch dataset"})
		return
	}

	truncated := false
	if h.maxRecords > 0 && len(records) > h.maxRecords {
		records = records[:h.maxRecords]
		truncated = true
	}

	payload, err := Encode(records, format)
	if err != nil {
		h.log.Error("Failed to encode export", "dataset", dataset, "format", format, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode export"})
		return
	}

	filename := fmt.Sprintf("%s_%s.%s", dataset, time.Now().UTC().Format("20060102_150405"), format.Extension())
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	if truncated {
		c.Header("X-Export-Truncated", "true")
	}
	c.Data(http.StatusOK, format.ContentType(), payload)

	h.log.Info("Export completed",
		"dataset", dataset, "format", format, "records", len(records), "truncated", truncated)

	if h.emitter != nil {
		h.emitter.Emit(webhooks.EventExportCompleted, map[string]any{
			"data_type":    dataset,
			"format":       string(format),
			"record_count": len(records),
			"truncated":    truncated,
			"filename":     filename,
		})
	}
}

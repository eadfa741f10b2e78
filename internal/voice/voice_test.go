package voice

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebridge/data-connector/internal/connectors"
)

func ticket(priority, updated string) connectors.Record {
	return connectors.Record{"priority": priority, "updated_at": updated, "status": "open"}
}

func TestPrioritize(t *testing.T) {
	t.Run("tickets by priority then recency", func(t *testing.T) {
		records := []connectors.Record{
			ticket("low", "2025-06-03T00:00:00Z"),
			ticket("urgent", "2025-06-01T00:00:00Z"),
			ticket("high", "2025-06-02T00:00:00Z"),
			ticket("urgent", "2025-06-04T00:00:00Z"),
		}

		out := Prioritize(connectors.TypeTickets, records)

		assert.Equal(t, "urgent", out[0]["priority"])
		assert.Equal(t, "2025-06-04T00:00:00Z", out[0]["updated_at"])
		assert.Equal(t, "urgent", out[1]["priority"])
		assert.Equal(t, "high", out[2]["priority"])
		assert.Equal(t, "low", out[3]["priority"])

		// Input order untouched.
		assert.Equal(t, "low", records[0]["priority"].(string))
	})

	t.Run("customers by last contact", func(t *testing.T) {
		records := []connectors.Record{
			{"last_contact": "2025-05-01"},
			{"last_contact": "2025-05-20"},
			{"last_contact": "2025-05-10"},
		}

		out := Prioritize(connectors.TypeCustomers, records)

		assert.Equal(t, "2025-05-20", out[0]["last_contact"])
		assert.Equal(t, "2025-05-01", out[2]["last_contact"])
	})

	t.Run("analytics by change magnitude", func(t *testing.T) {
		records := []connectors.Record{
			{"metric": "a", "change_percent": 2.0},
			{"metric": "b", "change_percent": -15.0},
			{"metric": "c", "change_percent": 8.0},
		}

		out := Prioritize(connectors.TypeAnalytics, records)

		assert.Equal(t, "b", out[0]["metric"])
		assert.Equal(t, "c", out[1]["metric"])
		assert.Equal(t, "a", out[2]["metric"])
	})
}

func TestOptimize(t *testing.T) {
	makeTickets := func(n int) []connectors.Record {
		records := make([]connectors.Record, n)
		for i := range records {
			records[i] = ticket("medium", fmt.Sprintf("2025-06-%02dT00:00:00Z", i%28+1))
		}
		return records
	}

	t.Run("caps at max results and summarizes", func(t *testing.T) {
		result := Optimize(connectors.TypeTickets, makeTickets(25), DefaultOptions(), 0)

		assert.Len(t, result.Records, 10)
		assert.True(t, result.Summarized)
		assert.Contains(t, result.Context, "25 support tickets")
	})

	t.Run("explicit limit suppresses summarization", func(t *testing.T) {
		result := Optimize(connectors.TypeTickets, makeTickets(25), DefaultOptions(), 20)

		assert.Len(t, result.Records, 20)
		assert.False(t, result.Summarized)
	})

	t.Run("small datasets pass through", func(t *testing.T) {
		result := Optimize(connectors.TypeTickets, makeTickets(3), DefaultOptions(), 0)

		assert.Len(t, result.Records, 3)
		assert.False(t, result.Summarized)
	})
}

func TestContextMessage(t *testing.T) {
	t.Run("customers", func(t *testing.T) {
		shown := []connectors.Record{
			{"status": "active"},
			{"status": "inactive"},
			{"status": "active"},
		}
		msg := ContextMessage(connectors.TypeCustomers, 3, shown)
		assert.Equal(t, "Found 3 customers, 2 active.", msg)
	})

	t.Run("truncated customers mention the cut", func(t *testing.T) {
		shown := []connectors.Record{{"status": "active"}}
		msg := ContextMessage(connectors.TypeCustomers, 40, shown)
		assert.Contains(t, msg, "Found 40 customers")
		assert.Contains(t, msg, "showing the 1")
	})

	t.Run("analytics names the biggest mover", func(t *testing.T) {
		shown := []connectors.Record{
			{"metric": "churn_rate", "change_percent": -12.5},
		}
		msg := ContextMessage(connectors.TypeAnalytics, 6, shown)
		require.Contains(t, msg, "churn_rate")
		assert.Contains(t, msg, "-12.5%")
	})
}

package connectors

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

type metricSpec struct {
	name string
	min  float64
	max  float64
	unit string
}

var metricSpecs = []metricSpec{
	{name: "daily_active_users", min: 800, max: 5000, unit: "users"},
	{name: "revenue", min: 10000, max: 90000, unit: "usd"},
	{name: "conversion_rate", min: 1.5, max: 8.0, unit: "percent"},
	{name: "churn_rate", min: 0.5, max: 4.0, unit: "percent"},
	{name: "avg_session_minutes", min: 3, max: 25, unit: "minutes"},
	{name: "support_satisfaction", min: 3.2, max: 4.9, unit: "score"},
}

// Analytics serves the analytics dataset: one record per business metric.
type Analytics struct {
	mu          sync.RWMutex
	records     []Record
	generatedAt time.Time

	seed int64
}

var _ Connector = (*Analytics)(nil)

// NewAnalytics creates an analytics connector. The same seed always produces
// the same dataset.
func NewAnalytics(seed int64) *Analytics {
	a := &Analytics{seed: seed}
	a.generate(seed)
	return a
}

func (a *Analytics) Type() string { return TypeAnalytics }

func (a *Analytics) GeneratedAt() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.generatedAt
}

// Refresh regenerates the dataset with a fresh seed.
func (a *Analytics) Refresh() {
	a.generate(time.Now().UnixNano())
}

func (a *Analytics) generate(seed int64) {
	rng := rand.New(rand.NewSource(seed))
	now := time.Now().UTC()

	records := make([]Record, len(metricSpecs))
	for i, spec := range metricSpecs {
		value := round2(spec.min + rng.Float64()*(spec.max-spec.min))
		previous := round2(spec.min + rng.Float64()*(spec.max-spec.min))

		change := 0.0
		if previous != 0 {
			change = round2((value - previous) / previous * 100)
		}

		records[i] = Record{
			"metric":         spec.name,
			"value":          value,
			"previous_value": previous,
			"change_percent": change,
			"unit":           spec.unit,
			"period":         "last_30_days",
			"timestamp":      now.Format(time.RFC3339),
		}
	}

	a.mu.Lock()
	a.records = records
	a.generatedAt = now
	a.mu.Unlock()
}

func (a *Analytics) Fetch(_ context.Context, filters Filters) ([]Record, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	matched := make([]Record, 0, len(a.records))
	for _, r := range a.records {
		if filters.Metric != "" && r["metric"] != filters.Metric {
			continue
		}
		matched = append(matched, r)
	}
	return matched, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Package voice shapes dataset responses for voice assistants: few results,
// most relevant first, with a short spoken context line.
package voice

import (
	"fmt"
	"sort"

	"github.com/voicebridge/data-connector/internal/connectors"
)

// Options control response shaping.
type Options struct {
	// MaxResults caps how many records a response carries.
	MaxResults int
	// SummaryThreshold is the dataset size past which responses are
	// summarized instead of read in full.
	SummaryThreshold int
}

// DefaultOptions matches a typical voice assistant turn.
func DefaultOptions() Options {
	return Options{MaxResults: 10, SummaryThreshold: 10}
}

// Result is the shaped response.
type Result struct {
	Records    []connectors.Record
	Context    string
	Summarized bool
}

var priorityRank = map[string]int{
	"urgent": 0,
	"high":   1,
	"medium": 2,
	"low":    3,
}

// Optimize prioritizes, truncates, and annotates records for the given
// dataset. limit overrides MaxResults when positive; a caller that asks for
// an explicit limit is not summarized.
func Optimize(dataset string, records []connectors.Record, opts Options, limit int) Result {
	prioritized := Prioritize(dataset, records)

	max := opts.MaxResults
	explicit := limit > 0
	if explicit {
		max = limit
	}

	shown := prioritized
	if max > 0 && len(shown) > max {
		shown = shown[:max]
	}

	summarized := !explicit && len(records) > opts.SummaryThreshold

	return Result{
		Records:    shown,
		Context:    ContextMessage(dataset, len(records), shown),
		Summarized: summarized,
	}
}

// Prioritize orders records so the most useful come first: tickets by
// priority then recency, customers by last contact, analytics by magnitude
// of change. The input slice is not modified.
func Prioritize(dataset string, records []connectors.Record) []connectors.Record {
	out := append([]connectors.Record(nil), records...)

	switch dataset {
	case connectors.TypeTickets:
		sort.SliceStable(out, func(i, j int) bool {
			ri, rj := rank(out[i]), rank(out[j])
			if ri != rj {
				return ri < rj
			}
			return str(out[i], "updated_at") > str(out[j], "updated_at")
		})
	case connectors.TypeCustomers:
		sort.SliceStable(out, func(i, j int) bool {
			return str(out[i], "last_contact") > str(out[j], "last_contact")
		})
	case connectors.TypeAnalytics:
		sort.SliceStable(out, func(i, j int) bool {
			return abs(num(out[i], "change_percent")) > abs(num(out[j], "change_percent"))
		})
	}

	return out
}

// ContextMessage builds the one-line spoken summary for a response.
func ContextMessage(dataset string, total int, shown []connectors.Record) string {
	switch dataset {
	case connectors.TypeCustomers:
		active := countBy(shown, "status", "active")
		if total > len(shown) {
			return fmt.Sprintf("Found %d customers; showing the %d most recently contacted (%d of those active).",
				total, len(shown), active)
		}
		return fmt.Sprintf("Found %d customers, %d active.", total, active)

	case connectors.TypeTickets:
		urgent := countBy(shown, "priority", "urgent")
		open := countBy(shown, "status", "open")
		msg := fmt.Sprintf("Found %d support tickets", total)
		if total > len(shown) {
			msg += fmt.Sprintf("; showing the %d highest priority", len(shown))
		}
		msg += fmt.Sprintf(" (%d open, %d urgent).", open, urgent)
		return msg

	case connectors.TypeAnalytics:
		if len(shown) == 0 {
			return "No metrics matched."
		}
		top := shown[0]
		return fmt.Sprintf("Reporting %d metrics; largest change is %s at %+.1f%%.",
			total, str(top, "metric"), num(top, "change_percent"))
	}

	return fmt.Sprintf("Found %d results.", total)
}

func rank(r connectors.Record) int {
	if v, ok := priorityRank[str(r, "priority")]; ok {
		return v
	}
	return len(priorityRank)
}

func str(r connectors.Record, key string) string {
	s, _ := r[key].(string)
	return s
}

func num(r connectors.Record, key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func countBy(records []connectors.Record, key, value string) int {
	n := 0
	for _, r := range records {
		if str(r, key) == value {
			n++
		}
	}
	return n
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

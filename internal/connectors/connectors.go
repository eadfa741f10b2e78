// Package connectors provides the backing data sources for the gateway. Each
// connector serves one dataset; the bundled implementations generate
// deterministic mock data in-process so the service runs without external
// systems.
package connectors

import (
	"context"
	"errors"
	"time"
)

// Dataset types served by the bundled connectors.
const (
	TypeCustomers = "customers"
	TypeTickets   = "support_tickets"
	TypeAnalytics = "analytics"
)

// ErrUnknownDataset is returned when no connector serves the requested type.
var ErrUnknownDataset = errors.New("unknown dataset")

// Record is one row of connector output. Values are flat JSON scalars plus
// the occasional nested map.
type Record map[string]any

// Filters narrows a fetch. Zero values mean no filtering; connectors ignore
// filters that do not apply to their dataset.
type Filters struct {
	// Status filters customers (active/inactive/prospect) and tickets
	// (open/pending/closed).
	Status string
	// Priority filters tickets (low/medium/high/urgent).
	Priority string
	// Metric filters analytics to a single named metric.
	Metric string
}

// Connector serves one dataset.
type Connector interface {
	// Type is the dataset identifier, e.g. "customers".
	Type() string

	// Fetch returns the records matching filters.
	Fetch(ctx context.Context, filters Filters) ([]Record, error)

	// Refresh regenerates the dataset.
	Refresh()

	// GeneratedAt reports when the current dataset was generated.
	GeneratedAt() time.Time
}

// Set is the collection of enabled connectors, keyed by dataset type.
type Set struct {
	connectors map[string]Connector
}

func NewSet(connectors ...Connector) *Set {
	s := &Set{connectors: make(map[string]Connector, len(connectors))}
	for _, c := range connectors {
		s.connectors[c.Type()] = c
	}
	return s
}

// Get returns the connector for dataset or ErrUnknownDataset.
func (s *Set) Get(dataset string) (Connector, error) {
	c, ok := s.connectors[dataset]
	if !ok {
		return nil, ErrUnknownDataset
	}
	return c, nil
}

// Types lists the enabled dataset types.
func (s *Set) Types() []string {
	types := make([]string, 0, len(s.connectors))
	for t := range s.connectors {
		types = append(types, t)
	}
	return types
}

// RefreshAll regenerates every enabled dataset.
func (s *Set) RefreshAll() {
	for _, c := range s.connectors {
		c.Refresh()
	}
}

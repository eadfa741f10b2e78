package connectors

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var (
	ticketSubjects = []string{
		"Cannot log in to dashboard",
		"Billing discrepancy on last invoice",
		"API returns 500 on bulk upload",
		"Feature request: dark mode",
		"Password reset email never arrives",
		"Export hangs on large datasets",
		"Webhook deliveries arriving twice",
		"Slow response times since upgrade",
		"Integration with CRM out of sync",
		"Account locked after failed logins",
	}
	ticketStatuses   = []string{"open", "open", "pending", "closed", "closed"}
	ticketPriorities = []string{"low", "medium", "medium", "high", "urgent"}
)

// Support serves the support_tickets dataset.
type Support struct {
	mu          sync.RWMutex
	records     []Record
	generatedAt time.Time

	size int
	seed int64
}

var _ Connector = (*Support)(nil)

// NewSupport creates a support connector serving size mock tickets. The same
// seed always produces the same dataset.
func NewSupport(size int, seed int64) *Support {
	s := &Support{size: size, seed: seed}
	s.generate(seed)
	return s
}

func (s *Support) Type() string { return TypeTickets }

func (s *Support) GeneratedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generatedAt
}

// Refresh regenerates the dataset with a fresh seed.
func (s *Support) Refresh() {
	s.generate(time.Now().UnixNano())
}

func (s *Support) generate(seed int64) {
	rng := rand.New(rand.NewSource(seed))
	now := time.Now().UTC()

	records := make([]Record, s.size)
	for i := range records {
		created := now.Add(-time.Duration(rng.Intn(30*24)) * time.Hour)
		updated := created.Add(time.Duration(rng.Intn(72)) * time.Hour)
		if updated.After(now) {
			updated = now
		}

		first := firstNames[rng.Intn(len(firstNames))]
		last := lastNames[rng.Intn(len(lastNames))]

		records[i] = Record{
			"id":         fmt.Sprintf("tick_%04d", 1000+i+1),
			"customer":   first + " " + last,
			"subject":    ticketSubjects[rng.Intn(len(ticketSubjects))],
			"status":     ticketStatuses[rng.Intn(len(ticketStatuses))],
			"priority":   ticketPriorities[rng.Intn(len(ticketPriorities))],
			"created_at": created.Format(time.RFC3339),
			"updated_at": updated.Format(time.RFC3339),
		}
	}

	s.mu.Lock()
	s.records = records
	s.generatedAt = now
	s.mu.Unlock()
}

func (s *Support) Fetch(_ context.Context, filters Filters) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		if filters.Status != "" && r["status"] != filters.Status {
			continue
		}
		if filters.Priority != "" && r["priority"] != filters.Priority {
			continue
		}
		matched = append(matched, r)
	}
	return matched, nil
}

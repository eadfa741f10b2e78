package connectors

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

var (
	firstNames = []string{
		"Sarah", "James", "Maria", "David", "Emma", "Michael", "Priya",
		"Carlos", "Yuki", "Fatima", "Tom", "Elena", "Ahmed", "Grace", "Lars",
	}
	lastNames = []string{
		"Johnson", "Chen", "Garcia", "Smith", "Williams", "Patel", "Kim",
		"Okafor", "Tanaka", "Novak", "Brown", "Silva", "Hassan", "Lindgren",
	}
	companies = []string{
		"Acme Corp", "Globex Industries", "Initech Solutions", "Umbrella Labs",
		"Stark Components", "Wayne Logistics", "Pied Piper Systems",
		"Hooli Cloud", "Vandelay Imports", "Cyberdyne Retail",
	}
	customerStatuses = []string{"active", "active", "active", "inactive", "prospect"}
)

// CRM serves the customers dataset.
type CRM struct {
	mu          sync.RWMutex
	records     []Record
	generatedAt time.Time

	size int
	seed int64
}

var _ Connector = (*CRM)(nil)

// NewCRM creates a CRM connector serving size mock customers. The same seed
// always produces the same dataset.
func NewCRM(size int, seed int64) *CRM {
	c := &CRM{size: size, seed: seed}
	c.generate(seed)
	return c
}

func (c *CRM) Type() string { return TypeCustomers }

func (c *CRM) GeneratedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generatedAt
}

// Refresh regenerates the dataset with a fresh seed.
func (c *CRM) Refresh() {
	c.generate(time.Now().UnixNano())
}

func (c *CRM) generate(seed int64) {
	rng := rand.New(rand.NewSource(seed))
	now := time.Now().UTC()

	records := make([]Record, c.size)
	for i := range records {
		first := firstNames[rng.Intn(len(firstNames))]
		last := lastNames[rng.Intn(len(lastNames))]
		company := companies[rng.Intn(len(companies))]

		records[i] = Record{
			"id":      fmt.Sprintf("cust_%03d", i+1),
			"name":    first + " " + last,
			"email":   strings.ToLower(first) + "." + strings.ToLower(last) + "@" + emailDomain(company),
			"company": company,
			"status":  customerStatuses[rng.Intn(len(customerStatuses))],
			"last_contact": now.AddDate(0, 0, -rng.Intn(90)).
				Format("2006-01-02"),
			"deal_value": (rng.Intn(195) + 5) * 500,
		}
	}

	c.mu.Lock()
	c.records = records
	c.generatedAt = now
	c.mu.Unlock()
}

func (c *CRM) Fetch(_ context.Context, filters Filters) ([]Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	matched := make([]Record, 0, len(c.records))
	for _, r := range c.records {
		if filters.Status != "" && r["status"] != filters.Status {
			continue
		}
		matched = append(matched, r)
	}
	return matched, nil
}

func emailDomain(company string) string {
	name := strings.ToLower(strings.Fields(company)[0])
	return name + ".example.com"
}

// Package webhooks maintains outbound event subscriptions and delivers
// event notifications to their targets.
package webhooks

import "time"

// Event vocabulary. Registration rejects anything else, so the set of
// events a subscriber can observe is closed.
const (
	// EventDataUpdated fires when a dataset is refreshed.
	EventDataUpdated = "data_updated"
	// EventExportCompleted fires when an export finishes.
	EventExportCompleted = "export_completed"
	// EventRateLimitWarning fires on the first rejection of a rate-limit
	// window.
	EventRateLimitWarning = "rate_limit_warning"
	// EventHealthCheck is reserved for delivery testing.
	EventHealthCheck = "health_check"
)

var knownEvents = map[string]struct{}{
	EventDataUpdated:      {},
	EventExportCompleted:  {},
	EventRateLimitWarning: {},
	EventHealthCheck:      {},
}

// IsKnownEvent reports whether name is part of the event vocabulary.
func IsKnownEvent(name string) bool {
	_, ok := knownEvents[name]
	return ok
}

// KnownEvents returns the event vocabulary in a stable order.
func KnownEvents() []string {
	return []string{
		EventDataUpdated,
		EventExportCompleted,
		EventRateLimitWarning,
		EventHealthCheck,
	}
}

// Subscription is one registered webhook target.
type Subscription struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	Name      string    `json:"name,omitempty"`
	Events    []string  `json:"events"`
	CreatedAt time.Time `json:"created_at"`
	Active    bool      `json:"active"`
	// DeliveryCount counts delivery attempts, not successes.
	DeliveryCount int64      `json:"delivery_count"`
	LastDelivery  *time.Time `json:"last_delivery,omitempty"`
}

// Matches reports whether the subscription listens for event.
func (s *Subscription) Matches(event string) bool {
	for _, e := range s.Events {
		if e == event {
			return true
		}
	}
	return false
}

// Event is the payload posted to subscribers.
type Event struct {
	Name      string         `json:"event"`
	ID        string         `json:"event_id"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

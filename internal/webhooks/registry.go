package webhooks

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrInvalidURL is returned when a registration URL is not an absolute
	// http or https URL.
	ErrInvalidURL = errors.New("webhook url must be an absolute http or https URL")
	// ErrNoEvents is returned when a registration lists no events.
	ErrNoEvents = errors.New("at least one event is required")
	// ErrUnknownEvent is returned when a registration names an event
	// outside the vocabulary.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrNotFound is returned when a subscription id does not exist.
	ErrNotFound = errors.New("webhook subscription not found")
)

// Registry is the durable subscription collection.
type Registry interface {
	// Register stores a new subscription after validating the target URL
	// and the event list. name is an optional label.
	Register(ctx context.Context, targetURL, name string, events []string) (*Subscription, error)

	// Unregister removes a subscription outright. Returns false when the
	// id is unknown.
	Unregister(ctx context.Context, id int64) (bool, error)

	List(ctx context.Context) ([]Subscription, error)

	// RecordDelivery adds attempts to the subscription's delivery count
	// and, on success, stamps last_delivery. Recording against a
	// subscription removed mid-flight is not an error.
	RecordDelivery(ctx context.Context, id int64, success bool, attempts int) error

	Close() error
}

// validateRegistration checks a registration request and returns the
// deduplicated event list.
func validateRegistration(targetURL string, events []string) ([]string, error) {
	parsed, err := url.Parse(strings.TrimSpace(targetURL))
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return nil, ErrInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, ErrInvalidURL
	}

	if len(events) == 0 {
		return nil, ErrNoEvents
	}

	seen := make(map[string]struct{}, len(events))
	deduped := make([]string, 0, len(events))
	for _, event := range events {
		event = strings.TrimSpace(event)
		if !IsKnownEvent(event) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, event)
		}
		if _, dup := seen[event]; dup {
			continue
		}
		seen[event] = struct{}{}
		deduped = append(deduped, event)
	}

	return deduped, nil
}

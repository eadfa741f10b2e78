package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voicebridge/data-connector/internal/logger"
)

const (
	defaultWorkers    = 50
	defaultQueueSize  = 256
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
)

// Dispatcher fans emitted events out to matching subscriptions. Each
// subscription's delivery runs as an independent job on a fixed worker pool,
// so a slow or dead subscriber occupies one worker and never stalls the other
// subscribers of the same event. Emission is fire-and-forget.
type Dispatcher struct {
	registry Registry
	log      *logger.Logger
	client   *http.Client

	queue      chan Event
	jobs       chan delivery
	workers    int
	maxRetries int
	backoff    func(attempt int) time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// delivery is one subscription's share of an emitted event.
type delivery struct {
	sub Subscription
	evt Event
}

type DispatcherOption func(*Dispatcher)

// WithWorkers sets the delivery worker pool size.
func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithQueueSize sets the pending event queue depth. Events emitted while the
// queue is full are dropped. Pending per-subscription deliveries share the
// same depth.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Event, n)
			d.jobs = make(chan delivery, n)
		}
	}
}

// WithTimeout sets the per-attempt delivery timeout.
func WithTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.client.Timeout = timeout
		}
	}
}

// WithMaxRetries sets the number of delivery attempts per subscription.
func WithMaxRetries(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxRetries = n
		}
	}
}

// WithBackoff overrides the sleep between delivery attempts, for tests.
func WithBackoff(backoff func(attempt int) time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.backoff = backoff }
}

func NewDispatcher(registry Registry, log *logger.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry:   registry,
		log:        log,
		client:     &http.Client{Timeout: defaultTimeout},
		queue:      make(chan Event, defaultQueueSize),
		jobs:       make(chan delivery, defaultQueueSize),
		workers:    defaultWorkers,
		maxRetries: defaultMaxRetries,
		// 1s, 2s, 4s, ...
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<(attempt-1)) * time.Second
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the fan-out loop and the worker pool. Safe to call once;
// events emitted before Start buffer in the queue (up to its capacity) and
// are delivered once the workers run.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		ctx, d.cancel = context.WithCancel(ctx)
		d.wg.Add(1)
		go d.fanOut(ctx)
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.worker(ctx)
		}
		d.log.Info("Webhook dispatcher started", "workers", d.workers)
	})
}

// Shutdown stops accepting events and waits for in-flight deliveries.
func (d *Dispatcher) Shutdown() {
	d.stopOnce.Do(func() {
		if d.cancel != nil {
			d.cancel()
		}
		d.wg.Wait()
	})
}

// Emit publishes an event to all matching subscriptions. It never blocks and
// never returns an error; when the queue is full the event is dropped with a
// log line.
func (d *Dispatcher) Emit(event string, data map[string]any) {
	evt := Event{
		Name:      event,
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	select {
	case d.queue <- evt:
	default:
		d.log.Warn("Webhook queue full, dropping event", "event", event, "event_id", evt.ID)
	}
}

// fanOut turns each queued event into one delivery job per matching
// subscription.
func (d *Dispatcher) fanOut(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-d.queue:
			d.dispatch(ctx, evt)
		}
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-d.jobs:
			d.deliver(ctx, job.sub, job.evt)
		}
	}
}

// dispatch snapshots the subscriptions matching the event and schedules an
// independent delivery job for each. Subscriptions registered after the
// snapshot do not see this event. Enqueueing blocks when every worker is
// busy, which back-pressures the event queue rather than dropping deliveries.
func (d *Dispatcher) dispatch(ctx context.Context, evt Event) {
	listCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	subs, err := d.registry.List(listCtx)
	cancel()
	if err != nil {
		d.log.Error("Failed to list subscriptions for event", "event", evt.Name, "error", err)
		return
	}

	for _, sub := range subs {
		if !sub.Active || !sub.Matches(evt.Name) {
			continue
		}
		select {
		case d.jobs <- delivery{sub: sub, evt: evt}:
		case <-ctx.Done():
			return
		}
	}
}

// deliver posts the event to one subscription, retrying with backoff, then
// records the outcome once.
func (d *Dispatcher) deliver(ctx context.Context, sub Subscription, evt Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		d.log.Error("Failed to encode event payload", "event", evt.Name, "error", err)
		return
	}

	success := false
	attempts := 0

retry:
	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		attempts = attempt

		err := d.post(ctx, sub.URL, payload)
		if err == nil {
			success = true
			break
		}

		d.log.Warn("Webhook delivery attempt failed",
			"url", sub.URL, "event", evt.Name, "attempt", attempt, "error", err)

		if attempt == d.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			// Shutting down; give up on the remaining attempts.
			break retry
		case <-time.After(d.backoff(attempt)):
		}
	}

	recordCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.registry.RecordDelivery(recordCtx, sub.ID, success, attempts); err != nil {
		d.log.Error("Failed to record delivery", "subscription", sub.ID, "error", err)
	}

	if success {
		d.log.Debug("Webhook delivered",
			"url", sub.URL, "event", evt.Name, "attempts", attempts)
	} else {
		d.log.Warn("Webhook delivery gave up",
			"url", sub.URL, "event", evt.Name, "attempts", attempts)
	}
}

func (d *Dispatcher) post(ctx context.Context, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("subscriber returned status %d", resp.StatusCode)
	}
	return nil
}

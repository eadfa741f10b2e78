// Package ratelimit implements fixed-window request limiting keyed by
// client identity (credential token, or source address when no credential
// is presented).
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of an admission check. The three disclosed values
// (Limit, Remaining, ResetAt) are carried on every gated response.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// JustExceeded is set on the first rejection of a window so callers
	// can emit a single warning per window instead of one per rejected
	// request.
	JustExceeded bool
}

type window struct {
	start    time.Time
	count    int
	lastSeen time.Time
	warned   bool
}

// Limiter tracks request counts per client identity within fixed windows.
// All admission checks for one identity serialize on the limiter lock, so
// two simultaneous requests can never both claim the last slot.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window

	limit  int
	period time.Duration
	// idleWindows controls sweeping: state idle for idleWindows periods
	// is removed.
	idleWindows int

	now func() time.Time
}

type Option func(*Limiter)

// WithIdleWindows sets the number of idle periods before a client's window
// state is swept.
func WithIdleWindows(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.idleWindows = n
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a limiter admitting limit requests per period by default.
// Per-credential overrides are passed per call to Admit.
func New(limit int, period time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		windows:     make(map[string]*window),
		limit:       limit,
		period:      period,
		idleWindows: 3,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Admit checks and consumes one request slot for clientID. limitOverride
// replaces the global default when non-nil. Rejection is a normal outcome,
// not an error.
func (l *Limiter) Admit(clientID string, limitOverride *int) Decision {
	limit := l.limit
	if limitOverride != nil {
		limit = *limitOverride
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[clientID]
	if !ok {
		w = &window{start: now}
		l.windows[clientID] = w
	}

	// time.Time carries a monotonic reading, so wall-clock adjustments
	// cannot produce negative elapsed time here.
	if now.Sub(w.start) >= l.period {
		w.start = now
		w.count = 0
		w.warned = false
	}
	w.lastSeen = now

	resetAt := w.start.Add(l.period)

	if w.count >= limit {
		justExceeded := !w.warned
		w.warned = true
		return Decision{
			Allowed:      false,
			Limit:        limit,
			Remaining:    0,
			ResetAt:      resetAt,
			JustExceeded: justExceeded,
		}
	}

	w.count++
	return Decision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - w.count,
		ResetAt:   resetAt,
	}
}

// Peek reports the current state for clientID without consuming a slot.
func (l *Limiter) Peek(clientID string, limitOverride *int) Decision {
	limit := l.limit
	if limitOverride != nil {
		limit = *limitOverride
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[clientID]
	if !ok || now.Sub(w.start) >= l.period {
		return Decision{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit,
			ResetAt:   now.Add(l.period),
		}
	}

	remaining := limit - w.count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   remaining > 0,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   w.start.Add(l.period),
	}
}

// Reset drops the window state for clientID.
func (l *Limiter) Reset(clientID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, clientID)
}

// Sweep removes window state idle for longer than idleWindows periods.
// It takes the same lock as Admit, so it never races an open admission.
func (l *Limiter) Sweep() {
	now := l.now()
	cutoff := l.period * time.Duration(l.idleWindows)

	l.mu.Lock()
	defer l.mu.Unlock()

	for id, w := range l.windows {
		if now.Sub(w.lastSeen) >= cutoff {
			delete(l.windows, id)
		}
	}
}

// Len reports the number of tracked client identities.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// StartJanitor sweeps idle window state periodically until ctx is done.
func (l *Limiter) StartJanitor(ctx context.Context) {
	t := time.NewTicker(l.period)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.Sweep()
			}
		}
	}()
}

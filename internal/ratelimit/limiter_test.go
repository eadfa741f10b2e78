package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source for window tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLimiterAdmit(t *testing.T) {
	t.Run("admits up to limit then rejects", func(t *testing.T) {
		l := New(3, time.Minute)

		for i := 0; i < 3; i++ {
			dec := l.Admit("client-a", nil)
			assert.True(t, dec.Allowed, "request %d should be admitted", i+1)
			assert.Equal(t, 3, dec.Limit)
			assert.Equal(t, 2-i, dec.Remaining)
		}

		dec := l.Admit("client-a", nil)
		assert.False(t, dec.Allowed)
		assert.Equal(t, 0, dec.Remaining)
	})

	t.Run("clients are counted independently", func(t *testing.T) {
		l := New(1, time.Minute)

		assert.True(t, l.Admit("client-a", nil).Allowed)
		assert.False(t, l.Admit("client-a", nil).Allowed)
		assert.True(t, l.Admit("client-b", nil).Allowed)
	})

	t.Run("override replaces default limit", func(t *testing.T) {
		l := New(100, time.Minute)
		override := 2

		assert.True(t, l.Admit("client-a", &override).Allowed)
		assert.True(t, l.Admit("client-a", &override).Allowed)

		dec := l.Admit("client-a", &override)
		assert.False(t, dec.Allowed)
		assert.Equal(t, 2, dec.Limit)
	})

	t.Run("window resets after period", func(t *testing.T) {
		clock := newFakeClock()
		l := New(1, time.Minute, WithClock(clock.Now))

		first := l.Admit("client-a", nil)
		require.True(t, first.Allowed)
		assert.Equal(t, clock.Now().Add(time.Minute), first.ResetAt)

		assert.False(t, l.Admit("client-a", nil).Allowed)

		clock.Advance(time.Minute)

		fresh := l.Admit("client-a", nil)
		assert.True(t, fresh.Allowed)
		assert.Equal(t, clock.Now().Add(time.Minute), fresh.ResetAt)
	})

	t.Run("first rejection of a window is flagged once", func(t *testing.T) {
		clock := newFakeClock()
		l := New(1, time.Minute, WithClock(clock.Now))

		require.True(t, l.Admit("client-a", nil).Allowed)

		assert.True(t, l.Admit("client-a", nil).JustExceeded)
		assert.False(t, l.Admit("client-a", nil).JustExceeded)
		assert.False(t, l.Admit("client-a", nil).JustExceeded)

		clock.Advance(time.Minute)
		require.True(t, l.Admit("client-a", nil).Allowed)
		assert.True(t, l.Admit("client-a", nil).JustExceeded)
	})
}

func TestLimiterConcurrentAdmission(t *testing.T) {
	const limit = 50
	const extra = 30

	l := New(limit, time.Minute)

	var admitted, rejected atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < limit+extra; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Admit("shared", nil).Allowed {
				admitted.Add(1)
			} else {
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), admitted.Load())
	assert.Equal(t, int64(extra), rejected.Load())
}

func TestLimiterPeek(t *testing.T) {
	t.Run("does not consume a slot", func(t *testing.T) {
		l := New(2, time.Minute)

		for i := 0; i < 10; i++ {
			dec := l.Peek("client-a", nil)
			assert.True(t, dec.Allowed)
			assert.Equal(t, 2, dec.Remaining)
		}

		assert.True(t, l.Admit("client-a", nil).Allowed)
		assert.Equal(t, 1, l.Peek("client-a", nil).Remaining)
	})

	t.Run("reports exhaustion", func(t *testing.T) {
		l := New(1, time.Minute)
		require.True(t, l.Admit("client-a", nil).Allowed)

		dec := l.Peek("client-a", nil)
		assert.False(t, dec.Allowed)
		assert.Equal(t, 0, dec.Remaining)
	})

	t.Run("unknown client sees full quota", func(t *testing.T) {
		l := New(5, time.Minute)
		dec := l.Peek("never-seen", nil)
		assert.True(t, dec.Allowed)
		assert.Equal(t, 5, dec.Remaining)
	})
}

func TestLimiterSweep(t *testing.T) {
	clock := newFakeClock()
	l := New(10, time.Minute, WithClock(clock.Now), WithIdleWindows(3))

	for i := 0; i < 4; i++ {
		l.Admit(fmt.Sprintf("client-%d", i), nil)
	}
	require.Equal(t, 4, l.Len())

	// client-0 stays active, the rest go idle.
	clock.Advance(2 * time.Minute)
	l.Admit("client-0", nil)

	clock.Advance(2 * time.Minute)
	l.Sweep()

	assert.Equal(t, 1, l.Len())

	// The surviving client still has its state.
	clock.Advance(5 * time.Minute)
	l.Sweep()
	assert.Equal(t, 0, l.Len())
}

func TestLimiterReset(t *testing.T) {
	l := New(1, time.Minute)
	require.True(t, l.Admit("client-a", nil).Allowed)
	require.False(t, l.Admit("client-a", nil).Allowed)

	l.Reset("client-a")

	assert.True(t, l.Admit("client-a", nil).Allowed)
}

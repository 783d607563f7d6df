package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock advances only when sleep is called.
type fakeClock struct {
	t      time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.t = c.t.Add(d)
}

func newTestLimiter(limit int, interval time.Duration) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(limit, interval)
	rl.now = clock.Now
	rl.sleep = clock.Sleep
	rl.lastReset = clock.t
	return rl, clock
}

func TestRateLimiter_WaitsWhenLimitExceeded(t *testing.T) {
	t.Parallel()

	rl, clock := newTestLimiter(2, time.Minute)

	rl.WaitIfNeeded()
	clock.t = clock.t.Add(10 * time.Second)
	rl.WaitIfNeeded()
	assert.Empty(t, clock.sleeps, "within limit")

	rl.WaitIfNeeded()
	assert.Equal(t, []time.Duration{50 * time.Second}, clock.sleeps, "waits for the rest of the window")

	rl.WaitIfNeeded()
	assert.Len(t, clock.sleeps, 1, "new window counts from the wait")
}

func TestRateLimiter_ResetsAfterInterval(t *testing.T) {
	t.Parallel()

	rl, clock := newTestLimiter(1, time.Second)

	rl.WaitIfNeeded()
	clock.t = clock.t.Add(2 * time.Second)
	rl.WaitIfNeeded()

	assert.Empty(t, clock.sleeps)
}

func TestRateLimiter_Disabled(t *testing.T) {
	t.Parallel()

	rl, clock := newTestLimiter(0, time.Minute)
	for i := 0; i < 10; i++ {
		rl.WaitIfNeeded()
	}

	assert.Empty(t, clock.sleeps)
}

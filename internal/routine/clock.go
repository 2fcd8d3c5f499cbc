package routine

import (
	"sync"
	"time"
)

// Clock is the runner's time source. It may be simulated; the runner only
// relies on successive Now calls never going backwards.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ScaledClock starts at Origin and advances Rate times faster than the wall
// clock. It is used to run a day's routine in minutes.
type ScaledClock struct {
	mu     sync.Mutex
	origin time.Time
	wall   time.Time
	rate   float64
	last   time.Time
	since  func(time.Time) time.Duration
}

// NewScaledClock returns a clock reading origin now. A rate <= 0 is treated as 1.
func NewScaledClock(origin time.Time, rate float64) *ScaledClock {
	if rate <= 0 {
		rate = 1
	}
	return &ScaledClock{origin: origin, wall: time.Now(), rate: rate, since: time.Since}
}

func (c *ScaledClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.origin.Add(time.Duration(float64(c.since(c.wall)) * c.rate))
	// Monotonic from the runner's point of view.
	if now.Before(c.last) {
		now = c.last
	}
	c.last = now
	return now
}

func (c *ScaledClock) Rate() float64 { return c.rate }

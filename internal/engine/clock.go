package engine

import "sync/atomic"

// Clock is the logical clock that stamps event times.
//
// Times are strictly increasing. The initial event has time 0, so the first
// call to Next returns 1.
//
// Thread-safety: Clock is safe for concurrent use. A Flow only calls Next
// from the goroutine running Evolve.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next time and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last time handed out without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Reset moves the clock back to 0.
func (c *Clock) Reset() {
	c.seq.Store(0)
}

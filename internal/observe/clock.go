package observe

import "sync/atomic"

// Clock is a monotonic logical clock used to stamp snapshots.
//
// Every snapshot an Observation delivers carries a strictly increasing seq
// from its clock. Consumers compare seqs instead of wall-clock times, which
// makes the "never apply older data over newer" rule checkable and free of
// timing races.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// though each Observation's single delivery goroutine is typically the only
// caller of Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

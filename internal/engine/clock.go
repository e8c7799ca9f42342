package engine

import "sync/atomic"

// Clock hands out snapshot revisions.
//
// Revisions are strictly increasing within a session and resume from the
// loaded record's revision, so a later snapshot always carries a larger
// number than anything already in the store.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific revision.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next revision and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current revision without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// AdvanceTo moves the clock forward to at least rev. It never moves back.
func (c *Clock) AdvanceTo(rev int64) {
	for {
		cur := c.seq.Load()
		if cur >= rev || c.seq.CompareAndSwap(cur, rev) {
			return
		}
	}
}

package loop

import (
	"sync/atomic"
	"time"
)

// Clock abstracts time for the loop. Production code uses WallClock; tests
// and the scenario runner substitute a virtual clock advanced manually.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that delivers one value once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

// WallClock is the real-time Clock backed by the time package.
type WallClock struct{}

// Now returns the current wall-clock time.
func (WallClock) Now() time.Time { return time.Now() }

// After delegates to time.After.
func (WallClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SeqClock is a monotonic logical clock for dispatch ordering.
//
// Every dispatch is stamped with a strictly increasing seq number from this
// clock. This ensures:
// - Deterministic ordering independent of wall-clock time
// - Identical traces when the same scenario is replayed
// - Explicit causal relationships between dispatches
//
// Thread-safety: SeqClock is safe for concurrent use (atomic operations),
// though the loop's single-writer design means only the Run goroutine
// typically calls Next().
type SeqClock struct {
	seq atomic.Int64
}

// NewSeqClock creates a new clock starting at 0.
func NewSeqClock() *SeqClock {
	return &SeqClock{}
}

// NewSeqClockAt creates a new clock starting at a specific sequence number.
// Used to resume numbering after a recorded trace.
func NewSeqClockAt(start int64) *SeqClock {
	c := &SeqClock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *SeqClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *SeqClock) Current() int64 {
	return c.seq.Load()
}

// Package testutil provides deterministic time for loop tests and the
// scenario runner.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"
)

// VirtualClock is a manually advanced clock satisfying the loop's Clock
// interface.
//
// Time only moves when a test or the scenario runner calls Advance,
// AdvanceTo or AdvanceToNext. After registers a waiter that fires when the
// clock reaches its deadline; BlockUntilContext lets the driver wait for the
// loop to park on such a waiter before advancing. This makes timer behavior
// fully reproducible without sleeping.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type VirtualClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*waiter
	arrived chan struct{} // signals waiter registration, buffered size 1
}

type waiter struct {
	at time.Time
	ch chan time.Time
}

// NewVirtualClock creates a clock frozen at start.
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{
		now:     start,
		arrived: make(chan struct{}, 1),
	}
}

// Now returns the clock's current time.
func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After returns a channel that fires once the clock has been advanced past
// now+d. A non-positive d fires immediately.
func (c *VirtualClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.waiters = append(c.waiters, &waiter{at: c.now.Add(d), ch: ch})

	// Signal arrival (non-blocking, buffer of 1 coalesces multiple signals).
	select {
	case c.arrived <- struct{}{}:
	default:
	}
	return ch
}

// Advance moves the clock forward by d, firing every waiter whose deadline
// has been reached.
func (c *VirtualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	c.AdvanceTo(target)
}

// AdvanceTo moves the clock to t, firing every waiter with a deadline at or
// before t. Moving backwards is a no-op for the clock value.
func (c *VirtualClock) AdvanceTo(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.After(c.now) {
		c.now = t
	}
	c.fireDueLocked()
}

// AdvanceToNext advances the clock to the earliest pending waiter deadline
// and fires it. Returns false if no waiters are pending.
func (c *VirtualClock) AdvanceToNext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.waiters) == 0 {
		return false
	}
	sort.Slice(c.waiters, func(i, j int) bool {
		return c.waiters[i].at.Before(c.waiters[j].at)
	})
	if c.waiters[0].at.After(c.now) {
		c.now = c.waiters[0].at
	}
	c.fireDueLocked()
	return true
}

// Waiters returns the number of pending After waiters.
func (c *VirtualClock) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// BlockUntilContext waits until at least n waiters are pending or the
// context ends. Drivers call this to make sure the loop has parked on a
// timer before advancing the clock.
func (c *VirtualClock) BlockUntilContext(ctx context.Context, n int) error {
	for {
		c.mu.Lock()
		count := len(c.waiters)
		c.mu.Unlock()
		if count >= n {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.arrived:
		}
	}
}

// fireDueLocked delivers to and removes every waiter whose deadline has been
// reached. Callers must hold c.mu.
func (c *VirtualClock) fireDueLocked() {
	kept := c.waiters[:0]
	for _, w := range c.waiters {
		if w.at.After(c.now) {
			kept = append(kept, w)
			continue
		}
		w.ch <- c.now
	}
	c.waiters = kept
}

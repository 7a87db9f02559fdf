package loop

import (
	"sync/atomic"
	"time"
)

// Interrupt is a hardware-style event source.
//
// Trigger may be called from any goroutine, modeling an interrupt service
// routine setting readiness asynchronously. The handoff to the polling
// thread is a single atomic pending counter, so triggering never blocks and
// never races with dispatch. Each trigger produces exactly one callback
// invocation; triggers are counted, not coalesced.
type Interrupt struct {
	pending  atomic.Int64
	contract *Contract
	loop     *Loop
}

// NewInterrupt registers an interrupt contract.
func (l *Loop) NewInterrupt(name string) *Interrupt {
	i := &Interrupt{loop: l}
	i.contract = l.register(name, KindInterrupt, i)
	return i
}

// Trigger records one readiness signal and wakes the loop.
// Safe from any goroutine and from interrupt-style contexts: it performs a
// single atomic increment and a non-blocking channel send.
func (i *Interrupt) Trigger() {
	i.pending.Add(1)
	i.loop.notify()
}

// Contract returns the interrupt's event contract.
func (i *Interrupt) Contract() *Contract { return i.contract }

// Pending returns the number of triggers awaiting dispatch.
func (i *Interrupt) Pending() int64 { return i.pending.Load() }

func (i *Interrupt) ready(time.Time) bool {
	return i.pending.Load() > 0
}

func (i *Interrupt) take(time.Time) (any, bool) {
	for {
		n := i.pending.Load()
		if n <= 0 {
			return nil, false
		}
		if i.pending.CompareAndSwap(n, n-1) {
			return nil, true
		}
	}
}

package loop

import "time"

// Kind identifies the category of event source behind a contract.
type Kind string

const (
	// KindTimer is a oneshot or periodic timer source.
	KindTimer Kind = "timer"
	// KindQueue is the input side of a bounded FIFO queue.
	KindQueue Kind = "queue"
	// KindInterrupt is a hardware-style interrupt source.
	KindInterrupt Kind = "interrupt"
	// KindSignal is a user-posted event source (UI and navigation events).
	KindSignal Kind = "signal"
)

// Contract is an opaque handle identifying one event source.
//
// Contracts are identity-comparable: two *Contract values refer to the same
// source only if they are the same pointer. A contract is owned by the loop
// it was registered with and stays valid for the loop's lifetime; cancelling
// a subscription does not destroy the contract, which may be re-subscribed.
type Contract struct {
	name string
	kind Kind
	src  source
	loop *Loop
}

// Name returns the name the contract was registered under.
func (c *Contract) Name() string { return c.name }

// Kind returns the contract's source category.
func (c *Contract) Kind() Kind { return c.kind }

// source is the readiness interface every event source implements.
//
// ready and take are called only from the Run goroutine. Sources whose
// readiness is set from other goroutines (queues, interrupts, signals)
// synchronize internally.
type source interface {
	// ready reports whether the source has at least one event pending.
	ready(now time.Time) bool

	// take consumes exactly one readiness signal and returns the event
	// payload. Returns false if the source was not ready after all.
	take(now time.Time) (any, bool)
}

// deadliner is implemented by sources whose readiness is a function of time.
// The loop uses it to bound its idle sleep.
type deadliner interface {
	// nextDeadline returns the next instant the source becomes ready,
	// or false if it never will on its own.
	nextDeadline(now time.Time) (time.Time, bool)
}

package loop

// Callback is invoked by the loop for each dispatched event.
//
// The callback receives the subscription that bound it (so it can cancel
// itself), the event, and the subscription's current state slice. A non-nil
// return value replaces the stored state and is supplied on the next
// invocation. Returning nil keeps the previous state.
//
// Callbacks always run on the Run goroutine and never overlap.
type Callback func(sub *Subscription, ev Event, state []any) []any

// Event is the payload delivered to a callback for one readiness signal.
type Event struct {
	// Contract identifies the source that produced the event.
	Contract *Contract

	// Data is the source-specific payload: the queued message for queues,
	// the posted value for signals, nil for timers and interrupts.
	Data any

	// Seq is the dispatch sequence number from the loop's logical clock.
	Seq int64
}

// Subscription binds exactly one callback to one contract.
//
// A contract may have at most one live subscription at a time; Subscribe
// enforces this. The subscription owns its state slice, which the loop
// updates from callback return values.
type Subscription struct {
	token    string
	contract *Contract
	cb       Callback

	// state and cancelled are guarded by the owning loop's mutex. The
	// callback itself reads state through its argument, never directly.
	state     []any
	cancelled bool

	loop *Loop
}

// Token returns the subscription's trace-correlation token.
func (s *Subscription) Token() string { return s.token }

// Contract returns the contract this subscription is bound to.
func (s *Subscription) Contract() *Contract { return s.contract }

// Loop returns the loop that owns this subscription.
func (s *Subscription) Loop() *Loop { return s.loop }

// Cancel removes the binding between the contract and the callback.
//
// Cancel is idempotent and safe from any goroutine, including from within
// the subscription's own callback. Once Cancel returns, the callback will
// not be invoked again, even if the contract is already marked ready in the
// current dispatch pass. The underlying contract persists and may be
// re-subscribed.
func (s *Subscription) Cancel() {
	l := s.loop
	l.mu.Lock()
	defer l.mu.Unlock()

	if s.cancelled {
		return
	}
	s.cancelled = true
	if l.subs[s.contract] == s {
		delete(l.subs, s.contract)
	}
}

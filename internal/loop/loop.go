package loop

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Dispatch describes one callback invocation for recording.
type Dispatch struct {
	// Seq is the dispatch sequence number (strictly increasing).
	Seq int64 `json:"seq"`
	// Pass is the dispatch pass during which the callback ran.
	Pass int64 `json:"pass"`
	// Token is the subscription token the event was delivered to.
	Token string `json:"token"`
	// Contract is the name of the source contract.
	Contract string `json:"contract"`
	// Kind is the source category.
	Kind Kind `json:"kind"`
	// Data is the event payload, nil for timers and interrupts.
	Data any `json:"data,omitempty"`
}

// Recorder receives every dispatch the loop performs.
// Implemented by the trace store; a nil recorder disables recording.
type Recorder interface {
	Record(ctx context.Context, d Dispatch) error
}

// Loop is the single-threaded reactor.
//
// All callback dispatch happens on the goroutine that calls Run. External
// producers (queue senders, interrupt triggers, signal posters) hand off
// through their sources' own synchronization plus the coalescing wake
// channel.
//
// Thread-safety model:
//   - Run(): must be called from exactly one goroutine at a time
//   - Subscribe(), Stop(), source constructors: safe from any goroutine
//   - Callbacks: always on the Run goroutine, never overlapping
type Loop struct {
	mu        sync.Mutex
	contracts []*Contract // registration order, never reordered
	subs      map[*Contract]*Subscription
	pass      int64 // pass counter, also the fairness rotation cursor

	clock    Clock
	seq      *SeqClock
	tokens   TokenGenerator
	recorder Recorder
	idleHook func()

	wake    chan struct{} // buffered size 1, coalesces wakeups
	running atomic.Bool
	stopReq atomic.Bool
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock substitutes the time source. Tests and the scenario runner pass
// a virtual clock.
func WithClock(c Clock) Option {
	return func(l *Loop) { l.clock = c }
}

// WithTokenGenerator substitutes the subscription token generator.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(l *Loop) { l.tokens = g }
}

// WithRecorder attaches a dispatch recorder.
func WithRecorder(r Recorder) Option {
	return func(l *Loop) { l.recorder = r }
}

// WithIdleHook installs a function called each time the loop is about to
// block waiting for events. Used by the scenario runner and race tests to
// synchronize with the loop; not intended for production use.
func WithIdleHook(f func()) Option {
	return func(l *Loop) { l.idleHook = f }
}

// New creates a Loop with the wall clock and UUIDv7 subscription tokens.
func New(opts ...Option) *Loop {
	l := &Loop{
		subs:   make(map[*Contract]*Subscription),
		clock:  WallClock{},
		seq:    NewSeqClock(),
		tokens: UUIDv7Generator{},
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Seq returns the loop's logical dispatch clock.
func (l *Loop) Seq() *SeqClock { return l.seq }

// Contracts returns the registered contracts in registration order.
func (l *Loop) Contracts() []*Contract {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Contract, len(l.contracts))
	copy(out, l.contracts)
	return out
}

// register adds a contract for src and wakes the loop so a running Run call
// picks it up on its next pass.
func (l *Loop) register(name string, kind Kind, src source) *Contract {
	c := &Contract{name: name, kind: kind, src: src, loop: l}
	l.mu.Lock()
	l.contracts = append(l.contracts, c)
	l.mu.Unlock()
	l.notify()
	return c
}

// notify wakes the Run goroutine if it is idle. Non-blocking: the buffer of
// one coalesces concurrent wakeups.
func (l *Loop) notify() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Subscribe binds callback to contract and returns the subscription manager.
//
// The initial values seed the subscription's state slice, passed to the
// callback on its first invocation. A contract may have at most one live
// subscription: subscribing again before cancelling fails synchronously
// with an ALREADY_SUBSCRIBED error. Cancel then re-subscribe is allowed.
//
// Thread-safe: may be called from any goroutine, including loop callbacks.
func (l *Loop) Subscribe(contract *Contract, callback Callback, initial ...any) (*Subscription, error) {
	if contract == nil {
		return nil, NewUnknownContractError("")
	}
	if contract.loop != l {
		return nil, NewUnknownContractError(contract.name)
	}
	if callback == nil {
		return nil, NewConfigError(contract.name, "callback must not be nil")
	}

	l.mu.Lock()
	if _, live := l.subs[contract]; live {
		l.mu.Unlock()
		return nil, NewAlreadySubscribedError(contract.name)
	}
	sub := &Subscription{
		token:    l.tokens.Generate(),
		contract: contract,
		cb:       callback,
		state:    append([]any(nil), initial...),
		loop:     l,
	}
	l.subs[contract] = sub
	l.mu.Unlock()

	// Wake a running loop: the contract may already be ready.
	l.notify()

	slog.Debug("subscription created",
		"token", sub.token,
		"contract", contract.name,
		"kind", contract.kind,
	)
	return sub, nil
}

// Stop requests loop termination.
//
// Safe from any goroutine, including from within a callback. The in-flight
// dispatch pass finishes delivering events to contracts that were already
// ready when the pass started, then Run returns nil.
func (l *Loop) Stop() {
	l.stopReq.Store(true)
	l.notify()
}

// Run enters the blocking dispatch loop on the calling goroutine.
//
// Run returns nil after Stop(), or ctx.Err() once the context is cancelled.
// Calling Run while the loop is already running fails with an
// ALREADY_RUNNING error.
//
// ERROR HANDLING: recorder failures are logged with full dispatch context
// and processing continues. Retrying a recorder write would make replay
// non-deterministic; operators can use the logged dispatch details to patch
// a trace manually.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return NewAlreadyRunningError()
	}
	defer l.running.Store(false)
	l.stopReq.Store(false)

	slog.Info("loop starting")

	for {
		if err := ctx.Err(); err != nil {
			slog.Info("loop stopping: context cancelled")
			return err
		}
		if l.stopReq.Load() {
			slog.Info("loop stopping: stop requested")
			return nil
		}

		dispatched := l.runPass(ctx)

		if l.stopReq.Load() {
			slog.Info("loop stopping: stop requested")
			return nil
		}
		if dispatched > 0 {
			continue
		}

		// Nothing ready. Sleep until the next timer deadline among live
		// subscriptions, an async source wakes us, or the context ends.
		var timerCh <-chan time.Time
		now := l.clock.Now()
		if deadline, ok := l.nextDeadline(now); ok {
			d := deadline.Sub(now)
			if d <= 0 {
				continue
			}
			timerCh = l.clock.After(d)
		}

		if l.idleHook != nil {
			l.idleHook()
		}

		select {
		case <-ctx.Done():
			slog.Info("loop stopping: context cancelled")
			return ctx.Err()
		case <-l.wake:
		case <-timerCh:
		}
	}
}

// Running reports whether a Run call is currently active.
func (l *Loop) Running() bool { return l.running.Load() }

// runPass executes one dispatch pass and returns the number of callbacks
// invoked.
//
// The ready set is computed up front, so sources that become ready during
// the pass (a callback sending to a queue, a concurrent interrupt trigger)
// wait for the next pass. Each ready contract with a live subscription
// dispatches at most once. The scan order is registration order rotated by
// one position per pass, which keeps intra-pass order deterministic while
// guaranteeing no ready source waits more than len(contracts)-1 passes.
func (l *Loop) runPass(ctx context.Context) int {
	now := l.clock.Now()

	l.mu.Lock()
	contracts := make([]*Contract, len(l.contracts))
	copy(contracts, l.contracts)
	pass := l.pass
	l.pass++
	l.mu.Unlock()

	if len(contracts) == 0 {
		return 0
	}

	start := int(pass % int64(len(contracts)))
	var ready []*Contract
	for i := range contracts {
		c := contracts[(start+i)%len(contracts)]
		if c.src.ready(now) {
			ready = append(ready, c)
		}
	}

	dispatched := 0
	for _, c := range ready {
		// Re-check liveness per dispatch: a callback earlier in this pass
		// may have cancelled this subscription.
		l.mu.Lock()
		sub := l.subs[c]
		state := []any(nil)
		if sub != nil {
			state = sub.state
		}
		l.mu.Unlock()

		if sub == nil {
			// No live subscription. The event stays pending in the source
			// until someone subscribes.
			continue
		}

		data, ok := c.src.take(now)
		if !ok {
			continue
		}

		seq := l.seq.Next()
		l.record(ctx, Dispatch{
			Seq:      seq,
			Pass:     pass,
			Token:    sub.token,
			Contract: c.name,
			Kind:     c.kind,
			Data:     data,
		})

		next := sub.cb(sub, Event{Contract: c, Data: data, Seq: seq}, state)
		if next != nil {
			l.mu.Lock()
			if !sub.cancelled {
				sub.state = next
			}
			l.mu.Unlock()
		}
		dispatched++
	}
	return dispatched
}

// nextDeadline returns the earliest deadline among time-driven sources that
// have a live subscription. Sources without a subscriber are excluded: their
// events wait indefinitely and must not spin the loop.
func (l *Loop) nextDeadline(now time.Time) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var best time.Time
	found := false
	for c := range l.subs {
		dl, ok := c.src.(deadliner)
		if !ok {
			continue
		}
		t, ok := dl.nextDeadline(now)
		if !ok {
			continue
		}
		if !found || t.Before(best) {
			best = t
			found = true
		}
	}
	return best, found
}

// record hands a dispatch to the recorder, logging failures and continuing.
func (l *Loop) record(ctx context.Context, d Dispatch) {
	if l.recorder == nil {
		return
	}
	if err := l.recorder.Record(ctx, d); err != nil {
		slog.Error("dispatch record failed",
			"error", err,
			"seq", d.Seq,
			"contract", d.Contract,
			"kind", d.Kind,
			"token", d.Token,
		)
	}
}

package loop

import (
	"sync"
	"time"
)

// Queue is a bounded FIFO message channel with a companion input contract.
//
// Producers call Send from any goroutine; consumers receive messages through
// a subscription on the Input contract, one callback invocation per message,
// in strict enqueue order. Capacity is fixed at creation.
//
// Overflow policy: Send on a full queue fails fast with a QUEUE_FULL error
// and enqueues nothing. Blocking would deadlock a producer running inside a
// loop callback, and silent drop hides producer bugs. Callers that want drop
// semantics can test the error with IsQueueFull and discard it.
type Queue struct {
	mu       sync.Mutex
	items    []any
	capacity int
	contract *Contract
	loop     *Loop
}

// NewQueue registers a bounded queue and its input contract.
// Non-positive capacities are fatal configuration errors.
func (l *Loop) NewQueue(name string, capacity int) (*Queue, error) {
	if capacity <= 0 {
		return nil, NewConfigError(name, "queue capacity must be positive")
	}
	q := &Queue{
		items:    make([]any, 0, capacity),
		capacity: capacity,
		loop:     l,
	}
	q.contract = l.register(name, KindQueue, q)
	return q, nil
}

// Send enqueues message at the tail.
// Thread-safe: may be called from any goroutine, including loop callbacks.
// Returns a QUEUE_FULL error if the queue is at capacity.
func (q *Queue) Send(message any) error {
	q.mu.Lock()
	if len(q.items) >= q.capacity {
		q.mu.Unlock()
		return NewQueueFullError(q.contract.name, q.capacity)
	}
	q.items = append(q.items, message)
	q.mu.Unlock()

	q.loop.notify()
	return nil
}

// Input returns the contract that becomes ready once per enqueued message.
func (q *Queue) Input() *Contract { return q.contract }

// Len returns the number of messages currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Cap returns the queue's fixed capacity.
func (q *Queue) Cap() int { return q.capacity }

func (q *Queue) ready(time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) > 0
}

func (q *Queue) take(time.Time) (any, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}

	m := q.items[0]

	// Nil out the slot so the backing array does not retain the message
	// until reallocation.
	q.items[0] = nil
	if len(q.items) == 1 {
		// Last element - reset to empty slice keeping the original capacity.
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return m, true
}

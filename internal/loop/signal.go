package loop

import (
	"sync"
	"time"
)

// Signal is a user-posted event source for UI and navigation events.
//
// Post delivers a payload from any goroutine; the loop dispatches payloads
// in post order, one callback invocation per payload. Unlike Queue, a signal
// is unbounded: UI dispatchers own their own backpressure and must never see
// a post fail.
type Signal struct {
	mu       sync.Mutex
	events   []any
	contract *Contract
	loop     *Loop
}

// NewSignal registers a signal contract.
func (l *Loop) NewSignal(name string) *Signal {
	s := &Signal{loop: l}
	s.contract = l.register(name, KindSignal, s)
	return s
}

// Post appends data to the signal's event list and wakes the loop.
// Thread-safe: may be called from any goroutine.
func (s *Signal) Post(data any) {
	s.mu.Lock()
	s.events = append(s.events, data)
	s.mu.Unlock()

	s.loop.notify()
}

// Contract returns the signal's event contract.
func (s *Signal) Contract() *Contract { return s.contract }

func (s *Signal) ready(time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events) > 0
}

func (s *Signal) take(time.Time) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) == 0 {
		return nil, false
	}

	d := s.events[0]
	s.events[0] = nil
	if len(s.events) == 1 {
		s.events = s.events[:0]
	} else {
		s.events = s.events[1:]
	}
	return d, true
}

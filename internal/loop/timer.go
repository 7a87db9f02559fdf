package loop

import (
	"fmt"
	"time"
)

// TimerMode selects oneshot or periodic timer behavior.
type TimerMode string

const (
	// TimerOneshot fires exactly once after the interval elapses, then the
	// contract becomes permanently unready.
	TimerOneshot TimerMode = "oneshot"

	// TimerPeriodic fires every interval indefinitely, re-arming after each
	// firing.
	TimerPeriodic TimerMode = "periodic"
)

// timerSource tracks an absolute deadline rather than counting from each
// firing, so periodic timers accumulate no drift: the k-th firing is due at
// exactly creation+k*interval.
//
// State is mutated only from the Run goroutine.
type timerSource struct {
	mode     TimerMode
	interval time.Duration
	next     time.Time
	armed    bool
}

// Timer registers a timer contract that arms immediately.
//
// A oneshot timer becomes ready once, interval after creation. A periodic
// timer becomes ready every interval. Unknown modes and non-positive
// intervals are fatal configuration errors.
func (l *Loop) Timer(name string, mode TimerMode, interval time.Duration) (*Contract, error) {
	if mode != TimerOneshot && mode != TimerPeriodic {
		return nil, NewConfigError(name, fmt.Sprintf("unknown timer mode %q", mode))
	}
	if interval <= 0 {
		return nil, NewConfigError(name, fmt.Sprintf("timer interval must be positive, got %s", interval))
	}

	src := &timerSource{
		mode:     mode,
		interval: interval,
		next:     l.clock.Now().Add(interval),
		armed:    true,
	}
	return l.register(name, KindTimer, src), nil
}

func (t *timerSource) ready(now time.Time) bool {
	return t.armed && !now.Before(t.next)
}

func (t *timerSource) take(now time.Time) (any, bool) {
	if !t.ready(now) {
		return nil, false
	}
	if t.mode == TimerOneshot {
		t.armed = false
		return nil, true
	}
	// Advance by exactly one period. If the loop fell behind by more than
	// one period the timer stays ready and fires again next pass, one
	// firing per missed period.
	t.next = t.next.Add(t.interval)
	return nil, true
}

func (t *timerSource) nextDeadline(now time.Time) (time.Time, bool) {
	if !t.armed {
		return time.Time{}, false
	}
	return t.next, true
}

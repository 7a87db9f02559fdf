package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pocketfw/reactor/internal/gpio"
	"github.com/pocketfw/reactor/internal/loop"
	"github.com/pocketfw/reactor/internal/profile"
	"github.com/pocketfw/reactor/internal/testutil"
)

// maxAdvances bounds the number of virtual clock advances per run. A valid
// scenario stops itself long before this; hitting the cap means a runaway
// script.
const maxAdvances = 100000

// TraceEvent is one recorded dispatch on a declared source.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	Source string `json:"source"`
	Kind   string `json:"kind"`
	Data   any    `json:"data,omitempty"`
}

// Result holds the outcome of a scenario run.
type Result struct {
	// Trace lists dispatches on declared sources in dispatch order. Script
	// step dispatches are excluded but still consume sequence numbers.
	Trace []TraceEvent

	// Failures lists script errors and failed assertions. Empty on success.
	Failures []string
}

// collector records dispatches on declared sources. Record is only called
// from the Run goroutine, so no locking is needed.
type collector struct {
	include map[string]bool
	events  []TraceEvent
}

func (c *collector) Record(_ context.Context, d loop.Dispatch) error {
	if !c.include[d.Contract] {
		return nil
	}
	c.events = append(c.events, TraceEvent{
		Seq:    d.Seq,
		Source: d.Contract,
		Kind:   string(d.Kind),
		Data:   d.Data,
	})
	return nil
}

// RunOption configures a scenario run.
type RunOption func(*runConfig)

type runConfig struct {
	recorder loop.Recorder
}

// WithRecorder attaches an additional dispatch recorder, typically a trace
// store. Unlike the scenario trace, it receives every dispatch, script steps
// included.
func WithRecorder(r loop.Recorder) RunOption {
	return func(c *runConfig) { c.recorder = r }
}

// teeRecorder fans a dispatch out to the trace collector and an optional
// external recorder.
type teeRecorder struct {
	recorders []loop.Recorder
}

func (t *teeRecorder) Record(ctx context.Context, d loop.Dispatch) error {
	for _, r := range t.recorders {
		if err := r.Record(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// Run executes the scenario against a virtual clock and returns the dispatch
// trace plus any failures.
//
// Every script step is installed as a oneshot timer on the loop itself, so
// all stimuli execute on the dispatch goroutine and the trace is fully
// deterministic. The caller's goroutine drives the clock: it waits for the
// loop to block on a deadline, advances to that deadline, and repeats until
// the script's stop step shuts the loop down.
func Run(s *Scenario, opts ...RunOption) (*Result, error) {
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	clk := testutil.NewVirtualClock(time.Unix(0, 0))

	include := make(map[string]bool, len(s.Sources))
	for _, decl := range s.Sources {
		include[decl.Name] = true
	}
	rec := &collector{include: include}

	recorder := loop.Recorder(rec)
	if cfg.recorder != nil {
		recorder = &teeRecorder{recorders: []loop.Recorder{rec, cfg.recorder}}
	}

	l := loop.New(
		loop.WithClock(clk),
		loop.WithTokenGenerator(loop.NewSequentialGenerator("sub")),
		loop.WithRecorder(recorder),
	)

	pins := map[string]*gpio.Pin{}
	if s.Profile != "" {
		p, err := profile.Load(s.Profile)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
		pins, err = p.BuildPins()
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
	}

	queues := map[string]*loop.Queue{}
	irqs := map[string]*loop.Interrupt{}
	sigs := map[string]*loop.Signal{}
	subs := map[string]*loop.Subscription{}

	// Declared sources only record; the recorder sees every dispatch.
	observe := func(*loop.Subscription, loop.Event, []any) []any { return nil }

	for _, decl := range s.Sources {
		var contract *loop.Contract
		switch decl.Type {
		case SourceTimer:
			c, err := l.Timer(decl.Name, loop.TimerMode(decl.Mode), time.Duration(decl.IntervalMS)*time.Millisecond)
			if err != nil {
				return nil, fmt.Errorf("scenario %q: source %q: %w", s.Name, decl.Name, err)
			}
			contract = c
		case SourceQueue:
			q, err := l.NewQueue(decl.Name, decl.Capacity)
			if err != nil {
				return nil, fmt.Errorf("scenario %q: source %q: %w", s.Name, decl.Name, err)
			}
			queues[decl.Name] = q
			contract = q.Input()
		case SourceInterrupt:
			irq := l.NewInterrupt(decl.Name)
			irqs[decl.Name] = irq
			contract = irq.Contract()
		case SourceSignal:
			sig := l.NewSignal(decl.Name)
			sigs[decl.Name] = sig
			contract = sig.Contract()
		case SourcePin:
			pin, ok := pins[decl.Name]
			if !ok {
				return nil, fmt.Errorf("scenario %q: pin %q is not declared in profile %s", s.Name, decl.Name, s.Profile)
			}
			irq, err := pin.Bind(l)
			if err != nil {
				return nil, fmt.Errorf("scenario %q: source %q: %w", s.Name, decl.Name, err)
			}
			irqs[decl.Name] = irq
			contract = irq.Contract()
		default:
			return nil, fmt.Errorf("scenario %q: unknown source type %q", s.Name, decl.Type)
		}

		sub, err := l.Subscribe(contract, observe)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: source %q: %w", s.Name, decl.Name, err)
		}
		subs[decl.Name] = sub
	}

	// Script failures are appended on the Run goroutine and read only after
	// Run returns.
	var failures []string

	for i, step := range s.Script {
		step := step
		name := fmt.Sprintf("script-%d", i)
		c, err := l.Timer(name, loop.TimerOneshot, time.Duration(step.AtMS)*time.Millisecond)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: script[%d]: %w", s.Name, i, err)
		}
		idx := i
		_, err = l.Subscribe(c, func(*loop.Subscription, loop.Event, []any) []any {
			if err := runStep(l, step, queues, irqs, sigs, pins, subs); err != nil {
				failures = append(failures, fmt.Sprintf("script[%d] at %dms: %v", idx, step.AtMS, err))
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scenario %q: script[%d]: %w", s.Name, i, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- l.Run(ctx)
		cancel() // unblocks the clock driver
	}()

	advances := 0
	capped := false
	for {
		if err := clk.BlockUntilContext(ctx, 1); err != nil {
			break // loop exited
		}
		advances++
		if advances > maxAdvances {
			capped = true
			cancel()
			break
		}
		clk.AdvanceToNext()
	}

	err := <-runErr
	if capped {
		return nil, fmt.Errorf("scenario %q did not stop after %d clock advances", s.Name, maxAdvances)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}

	trace := rec.events
	if trace == nil {
		trace = make([]TraceEvent, 0)
	}
	result := &Result{Trace: trace, Failures: failures}
	result.Failures = append(result.Failures, CheckAssertions(s, result.Trace)...)
	return result, nil
}

// runStep applies one script action. Always called on the dispatch goroutine.
func runStep(
	l *loop.Loop,
	step ScriptStep,
	queues map[string]*loop.Queue,
	irqs map[string]*loop.Interrupt,
	sigs map[string]*loop.Signal,
	pins map[string]*gpio.Pin,
	subs map[string]*loop.Subscription,
) error {
	switch step.Action {
	case ActionSend:
		return queues[step.Source].Send(step.Message)
	case ActionTrigger:
		irqs[step.Source].Trigger()
	case ActionPost:
		sigs[step.Source].Post(step.Message)
	case ActionRaise:
		return pins[step.Source].RaiseEdge(step.Edge == "rising")
	case ActionCancel:
		subs[step.Source].Cancel()
	case ActionStop:
		l.Stop()
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
	return nil
}

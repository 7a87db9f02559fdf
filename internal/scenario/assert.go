package scenario

import (
	"fmt"
	"reflect"
)

// CheckAssertions evaluates the scenario's assertions against a trace and
// returns one failure message per violated assertion.
func CheckAssertions(s *Scenario, trace []TraceEvent) []string {
	var failures []string
	for i, a := range s.Assertions {
		var err error
		switch a.Type {
		case AssertDispatchOrder:
			err = checkDispatchOrder(a, trace)
		case AssertDispatchCount:
			err = checkDispatchCount(a, trace)
		case AssertDispatchContains:
			err = checkDispatchContains(a, trace)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d] (%s): %v", i, a.Type, err))
		}
	}
	return failures
}

// checkDispatchOrder verifies the listed sources appear in the trace as a
// subsequence. Repeated names assert repeated dispatches.
func checkDispatchOrder(a Assertion, trace []TraceEvent) error {
	pos := 0
	for _, want := range a.Sources {
		found := false
		for ; pos < len(trace); pos++ {
			if trace[pos].Source == want {
				found = true
				pos++
				break
			}
		}
		if !found {
			return fmt.Errorf("source %q not found in order %v", want, a.Sources)
		}
	}
	return nil
}

// checkDispatchCount verifies the source dispatched exactly Count times.
func checkDispatchCount(a Assertion, trace []TraceEvent) error {
	got := 0
	for _, ev := range trace {
		if ev.Source == a.Source {
			got++
		}
	}
	if got != a.Count {
		return fmt.Errorf("source %q dispatched %d times, expected %d", a.Source, got, a.Count)
	}
	return nil
}

// checkDispatchContains verifies some dispatch on the source carried the
// expected payload.
func checkDispatchContains(a Assertion, trace []TraceEvent) error {
	for _, ev := range trace {
		if ev.Source == a.Source && reflect.DeepEqual(ev.Data, a.Message) {
			return nil
		}
	}
	return fmt.Errorf("no dispatch on %q with message %v", a.Source, a.Message)
}

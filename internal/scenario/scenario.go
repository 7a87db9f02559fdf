// Package scenario runs declarative reactor scenarios.
//
// A scenario declares event sources, a timed script of external stimuli and
// assertions over the resulting dispatch trace. Scenarios execute against a
// virtual clock, so a 350ms script finishes in microseconds and produces the
// same trace on every run.
package scenario

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines a reactor test scenario.
// Scenarios validate dispatch behavior by declaring sources, driving them
// through a timed script and asserting on the resulting trace.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Profile is an optional path to a CUE hardware profile. Required when
	// the scenario declares pin sources. Relative paths resolve against the
	// scenario file location.
	Profile string `yaml:"profile,omitempty"`

	// Sources lists the event sources the scenario creates and subscribes.
	Sources []SourceDecl `yaml:"sources"`

	// Script contains the timed external stimuli. Every scenario must stop
	// itself with a "stop" step.
	Script []ScriptStep `yaml:"script"`

	// Assertions validate the final dispatch trace.
	// Supported types: dispatch_order, dispatch_count, dispatch_contains
	Assertions []Assertion `yaml:"assertions"`
}

// SourceDecl declares one event source.
type SourceDecl struct {
	// Name uniquely identifies the source within the scenario.
	Name string `yaml:"name"`

	// Type is one of "timer", "queue", "interrupt", "signal", "pin".
	Type string `yaml:"type"`

	// Mode is the timer mode, "oneshot" or "periodic" (timer only).
	Mode string `yaml:"mode,omitempty"`

	// IntervalMS is the timer interval in milliseconds (timer only).
	IntervalMS int `yaml:"interval_ms,omitempty"`

	// Capacity is the queue capacity (queue only).
	Capacity int `yaml:"capacity,omitempty"`
}

// ScriptStep is one timed external stimulus.
type ScriptStep struct {
	// AtMS is the virtual time offset of the step, in milliseconds.
	AtMS int `yaml:"at_ms"`

	// Action is one of "send", "trigger", "post", "raise", "cancel", "stop".
	Action string `yaml:"action"`

	// Source names the target source. Unused by "stop".
	Source string `yaml:"source,omitempty"`

	// Message is the payload for "send" and "post".
	Message any `yaml:"message,omitempty"`

	// Edge is "rising" or "falling" (raise only).
	Edge string `yaml:"edge,omitempty"`
}

// Assertion validates the dispatch trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "dispatch_order": sources appear in the trace in the given order
	// - "dispatch_count": source appears exactly N times
	// - "dispatch_contains": source delivered the given message
	Type string `yaml:"type"`

	// Source names the asserted source (dispatch_count, dispatch_contains).
	Source string `yaml:"source,omitempty"`

	// Sources is the expected dispatch order (dispatch_order). Repeated
	// names assert repeated dispatches.
	Sources []string `yaml:"sources,omitempty"`

	// Message is the expected payload (dispatch_contains).
	Message any `yaml:"message,omitempty"`

	// Count is the expected number of dispatches (dispatch_count).
	Count int `yaml:"count,omitempty"`
}

// Source type constants.
const (
	SourceTimer     = "timer"
	SourceQueue     = "queue"
	SourceInterrupt = "interrupt"
	SourceSignal    = "signal"
	SourcePin       = "pin"
)

// Script action constants.
const (
	ActionSend    = "send"
	ActionTrigger = "trigger"
	ActionPost    = "post"
	ActionRaise   = "raise"
	ActionCancel  = "cancel"
	ActionStop    = "stop"
)

// Assertion type constants.
const (
	AssertDispatchOrder    = "dispatch_order"
	AssertDispatchCount    = "dispatch_count"
	AssertDispatchContains = "dispatch_contains"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative profile path is resolved against the scenario file location.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Profile != "" && !filepath.IsAbs(scenario.Profile) {
		scenario.Profile = filepath.Join(filepath.Dir(path), scenario.Profile)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Sources) == 0 {
		return fmt.Errorf("sources list is required and must be non-empty")
	}
	if len(s.Script) == 0 {
		return fmt.Errorf("script list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Profile != "" {
		if _, err := os.Stat(s.Profile); os.IsNotExist(err) {
			return fmt.Errorf("profile file not found: %s", s.Profile)
		}
	}

	types := make(map[string]string, len(s.Sources))
	for i, decl := range s.Sources {
		if err := validateSource(i, &decl, s.Profile); err != nil {
			return err
		}
		if _, dup := types[decl.Name]; dup {
			return fmt.Errorf("sources[%d]: duplicate source name %q", i, decl.Name)
		}
		types[decl.Name] = decl.Type
	}

	haveStop := false
	for i, step := range s.Script {
		if err := validateStep(i, &step, types); err != nil {
			return err
		}
		if step.Action == ActionStop {
			haveStop = true
		}
	}
	if !haveStop {
		return fmt.Errorf("script must contain a stop step")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, types); err != nil {
			return err
		}
	}

	return nil
}

// validateSource validates a single source declaration.
func validateSource(index int, d *SourceDecl, profilePath string) error {
	if d.Name == "" {
		return fmt.Errorf("sources[%d]: name is required", index)
	}
	if strings.HasPrefix(d.Name, "script-") {
		return fmt.Errorf("sources[%d]: the script- name prefix is reserved", index)
	}

	switch d.Type {
	case SourceTimer:
		if d.Mode != "oneshot" && d.Mode != "periodic" {
			return fmt.Errorf("sources[%d]: timer mode must be oneshot or periodic, got %q", index, d.Mode)
		}
		if d.IntervalMS <= 0 {
			return fmt.Errorf("sources[%d]: interval_ms must be positive for timer", index)
		}
	case SourceQueue:
		if d.Capacity <= 0 {
			return fmt.Errorf("sources[%d]: capacity must be positive for queue", index)
		}
	case SourceInterrupt, SourceSignal:
	case SourcePin:
		if profilePath == "" {
			return fmt.Errorf("sources[%d]: pin source %q requires a profile", index, d.Name)
		}
	case "":
		return fmt.Errorf("sources[%d]: type is required", index)
	default:
		return fmt.Errorf("sources[%d]: unknown source type %q", index, d.Type)
	}
	return nil
}

// validateStep validates a single script step against the declared sources.
func validateStep(index int, st *ScriptStep, types map[string]string) error {
	if st.AtMS <= 0 {
		return fmt.Errorf("script[%d]: at_ms must be positive", index)
	}

	needsSource := func(wantType string) error {
		if st.Source == "" {
			return fmt.Errorf("script[%d]: source is required for %s", index, st.Action)
		}
		got, ok := types[st.Source]
		if !ok {
			return fmt.Errorf("script[%d]: unknown source %q", index, st.Source)
		}
		if wantType != "" && got != wantType {
			return fmt.Errorf("script[%d]: %s targets a %s source, %q is a %s", index, st.Action, wantType, st.Source, got)
		}
		return nil
	}

	switch st.Action {
	case ActionSend:
		if err := needsSource(SourceQueue); err != nil {
			return err
		}
		if st.Message == nil {
			return fmt.Errorf("script[%d]: message is required for send", index)
		}
	case ActionTrigger:
		return needsSource(SourceInterrupt)
	case ActionPost:
		if err := needsSource(SourceSignal); err != nil {
			return err
		}
		if st.Message == nil {
			return fmt.Errorf("script[%d]: message is required for post", index)
		}
	case ActionRaise:
		if err := needsSource(SourcePin); err != nil {
			return err
		}
		if st.Edge != "rising" && st.Edge != "falling" {
			return fmt.Errorf("script[%d]: edge must be rising or falling, got %q", index, st.Edge)
		}
	case ActionCancel:
		return needsSource("")
	case ActionStop:
		if st.Source != "" {
			return fmt.Errorf("script[%d]: stop takes no source", index)
		}
	case "":
		return fmt.Errorf("script[%d]: action is required", index)
	default:
		return fmt.Errorf("script[%d]: unknown action %q", index, st.Action)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, types map[string]string) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	checkSource := func(name string) error {
		if _, ok := types[name]; !ok {
			return fmt.Errorf("assertions[%d]: unknown source %q", index, name)
		}
		return nil
	}

	switch a.Type {
	case AssertDispatchOrder:
		if len(a.Sources) == 0 {
			return fmt.Errorf("assertions[%d]: sources list is required for dispatch_order", index)
		}
		for _, name := range a.Sources {
			if err := checkSource(name); err != nil {
				return err
			}
		}
	case AssertDispatchCount:
		if a.Source == "" {
			return fmt.Errorf("assertions[%d]: source is required for dispatch_count", index)
		}
		if err := checkSource(a.Source); err != nil {
			return err
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for dispatch_count", index)
		}
	case AssertDispatchContains:
		if a.Source == "" {
			return fmt.Errorf("assertions[%d]: source is required for dispatch_contains", index)
		}
		if err := checkSource(a.Source); err != nil {
			return err
		}
		if a.Message == nil {
			return fmt.Errorf("assertions[%d]: message is required for dispatch_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// Package profile compiles CUE hardware profiles into validated pin
// configurations.
//
// A profile names a device layout and the pins a scenario may touch:
//
//	profile: {
//		name: "dev-board"
//		pins: {
//			PA7: {mode: "interrupt", edge: "rising"}
//			PA4: {mode: "outputPushPull"}
//		}
//	}
//
// Compilation is setup-time fatal: any unknown literal or inconsistent pin
// configuration fails the whole profile.
package profile

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/pocketfw/reactor/internal/gpio"
)

// Profile is a compiled hardware profile.
type Profile struct {
	Name string
	Pins map[string]gpio.Config
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Compile parses a CUE value into a Profile.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the profile struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`profile: { name: "dev", pins: {...} }`)
//	p, err := profile.Compile(v.LookupPath(cue.ParsePath("profile")))
func Compile(v cue.Value) (*Profile, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	p := &Profile{Pins: make(map[string]gpio.Config)}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{
			Field:   "name",
			Message: "name is required",
			Pos:     v.Pos(),
		}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	p.Name = name

	pinsVal := v.LookupPath(cue.ParsePath("pins"))
	if !pinsVal.Exists() {
		return p, nil // pins are optional
	}

	iter, err := pinsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		pinName := iter.Label()
		cfg, err := compilePin(pinName, iter.Value())
		if err != nil {
			return nil, err
		}
		p.Pins[pinName] = cfg
	}

	return p, nil
}

// compilePin parses a single pin entry and validates the resulting config.
func compilePin(pinName string, v cue.Value) (gpio.Config, error) {
	var cfg gpio.Config

	modeVal := v.LookupPath(cue.ParsePath("mode"))
	if !modeVal.Exists() {
		return cfg, &CompileError{
			Field:   fmt.Sprintf("pins.%s.mode", pinName),
			Message: "mode is required",
			Pos:     v.Pos(),
		}
	}
	mode, err := modeVal.String()
	if err != nil {
		return cfg, formatCUEError(err)
	}
	cfg.Mode = gpio.Mode(mode)

	pullVal := v.LookupPath(cue.ParsePath("pull"))
	if pullVal.Exists() {
		pull, err := pullVal.String()
		if err != nil {
			return cfg, formatCUEError(err)
		}
		cfg.Pull = gpio.Pull(pull)
	}

	edgeVal := v.LookupPath(cue.ParsePath("edge"))
	if edgeVal.Exists() {
		edge, err := edgeVal.String()
		if err != nil {
			return cfg, formatCUEError(err)
		}
		cfg.Edge = gpio.Edge(edge)
	}

	if err := cfg.Validate(pinName); err != nil {
		return cfg, &CompileError{
			Field:   fmt.Sprintf("pins.%s", pinName),
			Message: err.Error(),
			Pos:     v.Pos(),
		}
	}
	return cfg, nil
}

// BuildPins constructs the pins declared by the profile.
func (p *Profile) BuildPins() (map[string]*gpio.Pin, error) {
	pins := make(map[string]*gpio.Pin, len(p.Pins))
	for name, cfg := range p.Pins {
		pin, err := gpio.NewPin(name, cfg)
		if err != nil {
			return nil, err
		}
		pins[name] = pin
	}
	return pins, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

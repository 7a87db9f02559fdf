// Package gpio models the host-exposed GPIO contract: pin configuration,
// level access and interrupt contracts bound to an event loop.
//
// There is no hardware driver here. Pins are host-side state; edges are
// raised through RaiseEdge, standing in for the firmware interrupt handler,
// exactly like a proxy interrupt that is ticked manually for tests.
package gpio

import (
	"fmt"
	"sync"

	"github.com/pocketfw/reactor/internal/loop"
)

// Mode selects the electrical function of a pin. The string literals are
// the compatibility surface scripts depend on.
type Mode string

const (
	// ModeInput configures a digital input.
	ModeInput Mode = "input"
	// ModeOutputPushPull configures a push-pull digital output.
	ModeOutputPushPull Mode = "outputPushPull"
	// ModeOutputOpenDrain configures an open-drain digital output.
	ModeOutputOpenDrain Mode = "outputOpenDrain"
	// ModeAnalog configures an analog input.
	ModeAnalog Mode = "analog"
	// ModeInterrupt configures a digital input that raises interrupts.
	ModeInterrupt Mode = "interrupt"
)

// Pull selects the pin's pull resistor.
type Pull string

const (
	// PullNo disables the pull resistor. The empty string means the same.
	PullNo Pull = "no"
	// PullUp enables the pull-up resistor.
	PullUp Pull = "up"
	// PullDown enables the pull-down resistor.
	PullDown Pull = "down"
)

// Edge selects which transitions raise an interrupt.
type Edge string

const (
	// EdgeRising raises on low-to-high transitions.
	EdgeRising Edge = "rising"
	// EdgeFalling raises on high-to-low transitions.
	EdgeFalling Edge = "falling"
	// EdgeBoth raises on every transition.
	EdgeBoth Edge = "both"
)

// Config describes one pin's setup. Validation is fatal at setup time:
// a malformed configuration never produces a usable Pin.
type Config struct {
	Mode Mode `yaml:"mode"`
	Pull Pull `yaml:"pull,omitempty"`
	Edge Edge `yaml:"edge,omitempty"`
}

// ConfigError reports a fatal pin configuration error.
type ConfigError struct {
	Pin     string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Pin != "" {
		return fmt.Sprintf("pin %s: %s", e.Pin, e.Message)
	}
	return e.Message
}

// Validate checks the config for a pin with the given name.
func (c Config) Validate(pin string) error {
	switch c.Mode {
	case ModeInput, ModeOutputPushPull, ModeOutputOpenDrain, ModeAnalog, ModeInterrupt:
	case "":
		return &ConfigError{Pin: pin, Message: "mode is required"}
	default:
		return &ConfigError{Pin: pin, Message: fmt.Sprintf("unknown mode %q", c.Mode)}
	}

	switch c.Pull {
	case PullNo, PullUp, PullDown, "":
	default:
		return &ConfigError{Pin: pin, Message: fmt.Sprintf("unknown pull %q", c.Pull)}
	}

	switch c.Edge {
	case EdgeRising, EdgeFalling, EdgeBoth:
		if c.Mode != ModeInterrupt {
			return &ConfigError{Pin: pin, Message: fmt.Sprintf("edge %q requires mode %q, got %q", c.Edge, ModeInterrupt, c.Mode)}
		}
	case "":
		if c.Mode == ModeInterrupt {
			return &ConfigError{Pin: pin, Message: "interrupt mode requires an edge"}
		}
	default:
		return &ConfigError{Pin: pin, Message: fmt.Sprintf("unknown edge %q", c.Edge)}
	}

	if c.Mode == ModeAnalog && (c.Pull == PullUp || c.Pull == PullDown) {
		return &ConfigError{Pin: pin, Message: "analog mode does not allow a pull resistor"}
	}

	return nil
}

// Pin is a configured host-side pin.
type Pin struct {
	name string
	cfg  Config

	mu    sync.Mutex
	level bool
	irq   *loop.Interrupt
}

// NewPin validates cfg and creates the pin. Invalid configurations fail
// here and are not recoverable mid-operation.
func NewPin(name string, cfg Config) (*Pin, error) {
	if name == "" {
		return nil, &ConfigError{Message: "pin name is required"}
	}
	if err := cfg.Validate(name); err != nil {
		return nil, err
	}
	if cfg.Pull == "" {
		cfg.Pull = PullNo
	}
	return &Pin{name: name, cfg: cfg}, nil
}

// Name returns the pin's name, e.g. "PA7".
func (p *Pin) Name() string { return p.name }

// Config returns the validated configuration.
func (p *Pin) Config() Config { return p.cfg }

// Write sets the output level. Only valid on output pins.
func (p *Pin) Write(level bool) error {
	if p.cfg.Mode != ModeOutputPushPull && p.cfg.Mode != ModeOutputOpenDrain {
		return &ConfigError{Pin: p.name, Message: fmt.Sprintf("write requires an output mode, pin is %q", p.cfg.Mode)}
	}
	p.mu.Lock()
	p.level = level
	p.mu.Unlock()
	return nil
}

// Read returns the pin's current level.
func (p *Pin) Read() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// Bind registers the pin's interrupt contract on l. Only valid on interrupt
// pins, and only once per pin.
func (p *Pin) Bind(l *loop.Loop) (*loop.Interrupt, error) {
	if p.cfg.Mode != ModeInterrupt {
		return nil, &ConfigError{Pin: p.name, Message: fmt.Sprintf("interrupt contract requires mode %q, pin is %q", ModeInterrupt, p.cfg.Mode)}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.irq != nil {
		return nil, &ConfigError{Pin: p.name, Message: "pin is already bound to a loop"}
	}
	p.irq = l.NewInterrupt(p.name)
	return p.irq, nil
}

// RaiseEdge records a level transition, triggering the bound interrupt when
// the transition matches the configured edge. Stands in for the hardware
// interrupt line; safe from any goroutine.
func (p *Pin) RaiseEdge(rising bool) error {
	if p.cfg.Mode != ModeInterrupt {
		return &ConfigError{Pin: p.name, Message: fmt.Sprintf("edges require mode %q, pin is %q", ModeInterrupt, p.cfg.Mode)}
	}

	p.mu.Lock()
	p.level = rising
	irq := p.irq
	p.mu.Unlock()

	if irq == nil {
		return nil
	}
	switch p.cfg.Edge {
	case EdgeRising:
		if rising {
			irq.Trigger()
		}
	case EdgeFalling:
		if !rising {
			irq.Trigger()
		}
	case EdgeBoth:
		irq.Trigger()
	}
	return nil
}

// Package input debounces the push buttons.
package input

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/ericogr/co2-monitor/pkg/scheduler"
)

// PressThreshold is how long, in milliseconds, a button must stay down to
// count as pressed.
const PressThreshold = 50

// Button tracks an active-low push button. It is sampled once per loop
// iteration instead of busy-waiting on the pin.
type Button struct {
	pin gpio.PinIn

	down  bool
	since uint32
	held  bool
	spent bool
}

// NewButton configures pin as an input with pull-up.
func NewButton(pin gpio.PinIn) (*Button, error) {
	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("button %s: %w", pin, err)
	}
	return &Button{pin: pin}, nil
}

// OpenButton looks the pin up by name in the periph registry.
func OpenButton(name string) (*Button, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio %q not found", name)
	}
	return NewButton(p)
}

// OpenInput looks up an active-low input and enables its pull-up.
func OpenInput(name string) (gpio.PinIn, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio %q not found", name)
	}
	if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("gpio %s: %w", name, err)
	}
	return p, nil
}

// Simulated returns a released button on an in-memory pin, for hosts
// without the monitor's GPIO header.
func Simulated(name string) (*Button, *gpiotest.Pin) {
	pin := &gpiotest.Pin{N: name, L: gpio.High}
	return &Button{pin: pin}, pin
}

// Update samples the pin and returns true once per press: on release, when
// the button was down for at least PressThreshold.
func (b *Button) Update(now uint32) bool {
	if b.pin.Read() == gpio.High {
		pressed := b.down && !b.spent && scheduler.Elapsed(now, b.since) >= PressThreshold
		b.down = false
		b.held = false
		b.spent = false
		return pressed
	}
	if !b.down {
		b.down = true
		b.since = now
	}
	b.held = scheduler.Elapsed(now, b.since) >= PressThreshold
	return false
}

// Consume drops the press in progress; its release reports nothing.
func (b *Button) Consume() {
	if b.down {
		b.spent = true
	}
}

// Asserted reports the pin level seen by the last Update.
func (b *Button) Asserted() bool { return b.down }

// Held reports whether the button has been down past the threshold. The
// screen is blanked while this is true.
func (b *Button) Held() bool { return b.held }

// Package encoder decodes a KY-040 style rotary encoder attached to three
// GPIO pins (clock, data, switch) into semantic events: clockwise rotation,
// counter-clockwise rotation, and button press/release.
// The real implementation uses the Linux GPIO character device.
// Decoding itself is pure (see DecodeRotation) so it can be tested without
// hardware.
package encoder

import (
	"log"
	"sync/atomic"
	"time"
)

// Level is an instantaneous pin level.
type Level int

const (
	Low  Level = 0
	High Level = 1
)

func (l Level) String() string {
	if l == High {
		return "HIGH"
	}
	return "LOW"
}

// Direction is the rotation direction of one detent step.
type Direction int

const (
	Clockwise Direction = iota
	CounterClockwise
)

func (d Direction) String() string {
	if d == Clockwise {
		return "CW"
	}
	return "CCW"
}

// ButtonState is the debounced state of the encoder's push switch.
type ButtonState int

const (
	Released ButtonState = iota
	Pressed
)

func (b ButtonState) String() string {
	if b == Pressed {
		return "PRESSED"
	}
	return "RELEASED"
}

// EventType identifies a decoded encoder event.
type EventType string

const (
	EventCW       EventType = "CW"
	EventCCW      EventType = "CCW"
	EventPressed  EventType = "PRESSED"
	EventReleased EventType = "RELEASED"
)

// Event is a decoded encoder event with the state at dispatch time.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Position  int64
	Button    ButtonState
}

// Handler receives decoded events. Handlers are invoked synchronously from
// the edge delivery goroutine, one at a time.
type Handler interface {
	HandleRotation(Direction)
	HandlePress()
	HandleRelease()
}

// NopHandler implements Handler with no-ops. Embed it to override a subset
// of the hooks.
type NopHandler struct{}

func (NopHandler) HandleRotation(Direction) {}
func (NopHandler) HandlePress()             {}
func (NopHandler) HandleRelease()           {}

// Default pin assignment (BCM numbering).
const (
	DefaultClockPin  = 13
	DefaultDataPin   = 19
	DefaultSwitchPin = 26
)

// DefaultSwitchDebounce is the settle delay before a switch edge is
// confirmed as a press.
const DefaultSwitchDebounce = 20 * time.Millisecond

// Config holds the wiring of a single encoder.
type Config struct {
	// Chip is the GPIO character device name, e.g. "gpiochip0".
	Chip string

	// Pin numbers (BCM numbering).
	ClockPin  int
	DataPin   int
	SwitchPin int

	// SwitchDebounce is the settle delay for press confirmation.
	// Rotation edges are deliberately not debounced.
	SwitchDebounce time.Duration
}

func (c Config) withDefaults() Config {
	if c.Chip == "" {
		c.Chip = "gpiochip0"
	}
	if c.SwitchDebounce == 0 {
		c.SwitchDebounce = DefaultSwitchDebounce
	}
	return c
}

// pinReader reads the data and switch line levels on demand.
// The real implementation reads GPIO lines; FakePins returns scripted levels.
type pinReader interface {
	DataValue() (Level, error)
	SwitchValue() (Level, error)
}

// Encoder holds the decode state shared by the real driver and tests.
// Edge callbacks are delivered serially, so the only fields needing atomics
// are the ones read from other goroutines (position, button).
type Encoder struct {
	handler  Handler
	pins     pinReader
	debounce time.Duration
	sleep    func(time.Duration)

	position int64 // atomic; detents, +CW -CCW
	button   int32 // atomic; ButtonState
}

func newEncoder(pins pinReader, h Handler, debounce time.Duration, sleep func(time.Duration)) *Encoder {
	if h == nil {
		h = NopHandler{}
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Encoder{
		handler:  h,
		pins:     pins,
		debounce: debounce,
		sleep:    sleep,
	}
}

// Position returns the running detent count since startup
// (clockwise +1, counter-clockwise -1). Not persisted.
func (e *Encoder) Position() int64 {
	return atomic.LoadInt64(&e.position)
}

// Button returns the current debounced button state.
func (e *Encoder) Button() ButtonState {
	return ButtonState(atomic.LoadInt32(&e.button))
}

// clockEdge handles a clock line transition. The data line is sampled at
// that instant and the pair is decoded as one quadrature step.
// Mechanical bounce on the clock line is passed through undampened; adding
// filtering here would change the observable event stream.
func (e *Encoder) clockEdge(level Level) {
	data, err := e.pins.DataValue()
	if err != nil {
		log.Printf("encoder: read data line: %v", err)
		return
	}

	dir, ok := DecodeRotation(Snapshot{Clock: level, Data: data})
	if !ok {
		return
	}

	if dir == Clockwise {
		atomic.AddInt64(&e.position, 1)
	} else {
		atomic.AddInt64(&e.position, -1)
	}
	e.handler.HandleRotation(dir)
}

// switchEdge handles a switch line transition. The switch is wired active
// low (pull-up): a falling edge is a press candidate, a rising edge is the
// button coming back up.
func (e *Encoder) switchEdge(level Level) {
	if level == High {
		if atomic.SwapInt32(&e.button, int32(Released)) == int32(Pressed) {
			e.handler.HandleRelease()
		}
		return
	}

	// Repeated falling edges while held are contact bounce.
	if ButtonState(atomic.LoadInt32(&e.button)) == Pressed {
		return
	}

	// The settle delay runs on the edge delivery goroutine, so rotation
	// events queued behind it are delayed for the duration.
	e.sleep(e.debounce)

	after, err := e.pins.SwitchValue()
	if err != nil {
		log.Printf("encoder: read switch line: %v", err)
		return
	}
	if !ConfirmPress(level, after) {
		// Transition did not survive the settle delay - noise.
		return
	}

	atomic.StoreInt32(&e.button, int32(Pressed))
	e.handler.HandlePress()
}

//go:build linux

package encoder

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Driver binds an Encoder to real GPIO lines via the Linux GPIO character
// device. Edge events on the clock and switch lines are delivered serially
// by gpiocdev on a single goroutine; the data line is read on demand.
type Driver struct {
	*Encoder
	clkLine *gpiocdev.Line
	dtLine  *gpiocdev.Line
	swLine  *gpiocdev.Line
}

// New requests the three GPIO lines and starts delivering events to the
// handler. A nil handler is valid and makes every hook a no-op.
// Initialization failure (bad pin number, permission denied) is returned
// immediately; there are no retries.
func New(cfg Config, h Handler) (*Driver, error) {
	cfg = cfg.withDefaults()

	d := &Driver{}
	d.Encoder = newEncoder(d, h, cfg.SwitchDebounce, time.Sleep)

	var err error

	// Data line is plain input, sampled when a clock edge arrives.
	d.dtLine, err = gpiocdev.RequestLine(cfg.Chip, cfg.DataPin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp)
	if err != nil {
		return nil, fmt.Errorf("request data pin %d: %w", cfg.DataPin, err)
	}

	// Clock line delivers both edges. No hardware debounce is requested:
	// rotation bounce passes through, matching the decode contract.
	d.clkLine, err = gpiocdev.RequestLine(cfg.Chip, cfg.ClockPin,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(d.handleClock))
	if err != nil {
		d.dtLine.Close()
		return nil, fmt.Errorf("request clock pin %d: %w", cfg.ClockPin, err)
	}

	// Switch line delivers both edges: falling for press candidates,
	// rising for release.
	d.swLine, err = gpiocdev.RequestLine(cfg.Chip, cfg.SwitchPin,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(d.handleSwitch))
	if err != nil {
		d.clkLine.Close()
		d.dtLine.Close()
		return nil, fmt.Errorf("request switch pin %d: %w", cfg.SwitchPin, err)
	}

	return d, nil
}

func eventLevel(evt gpiocdev.LineEvent) (Level, bool) {
	switch evt.Type {
	case gpiocdev.LineEventRisingEdge:
		return High, true
	case gpiocdev.LineEventFallingEdge:
		return Low, true
	}
	return 0, false
}

func (d *Driver) handleClock(evt gpiocdev.LineEvent) {
	if level, ok := eventLevel(evt); ok {
		d.clockEdge(level)
	}
}

func (d *Driver) handleSwitch(evt gpiocdev.LineEvent) {
	if level, ok := eventLevel(evt); ok {
		d.switchEdge(level)
	}
}

// DataValue reads the instantaneous data line level.
func (d *Driver) DataValue() (Level, error) {
	v, err := d.dtLine.Value()
	if err != nil {
		return 0, fmt.Errorf("read data line: %w", err)
	}
	return Level(v), nil
}

// SwitchValue reads the instantaneous switch line level.
func (d *Driver) SwitchValue() (Level, error) {
	v, err := d.swLine.Value()
	if err != nil {
		return 0, fmt.Errorf("read switch line: %w", err)
	}
	return Level(v), nil
}

// Levels reads the instantaneous levels of all three lines.
func (d *Driver) Levels() (clk, dt, sw Level, err error) {
	v, err := d.clkLine.Value()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("read clock line: %w", err)
	}
	clk = Level(v)

	if dt, err = d.DataValue(); err != nil {
		return 0, 0, 0, err
	}
	if sw, err = d.SwitchValue(); err != nil {
		return 0, 0, 0, err
	}
	return clk, dt, sw, nil
}

// Close releases the GPIO lines. Events stop being delivered once the
// lines are closed.
func (d *Driver) Close() error {
	var errs []error

	if d.swLine != nil {
		if err := d.swLine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close switch line: %w", err))
		}
	}
	if d.clkLine != nil {
		if err := d.clkLine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close clock line: %w", err))
		}
	}
	if d.dtLine != nil {
		if err := d.dtLine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close data line: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

//go:build !linux

package encoder

import "errors"

// ErrNotSupported is returned by New on platforms without the Linux GPIO
// character device.
var ErrNotSupported = errors.New("encoder: not supported on this platform (requires Linux)")

// Driver is not available on non-Linux platforms.
type Driver struct{}

// New returns an error on non-Linux platforms.
func New(cfg Config, h Handler) (*Driver, error) {
	return nil, ErrNotSupported
}

// Position is not implemented on non-Linux platforms.
func (d *Driver) Position() int64 { return 0 }

// Button is not implemented on non-Linux platforms.
func (d *Driver) Button() ButtonState { return Released }

// Levels is not implemented on non-Linux platforms.
func (d *Driver) Levels() (clk, dt, sw Level, err error) {
	return 0, 0, 0, ErrNotSupported
}

// Close is not implemented on non-Linux platforms.
func (d *Driver) Close() error { return nil }

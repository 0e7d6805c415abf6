// Package serial opens the host serial port the altimeter is attached to.
package serial

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// Config holds serial port configuration.
type Config struct {
	// Device path, e.g. /dev/ttyUSB0 or COM3.
	Device string
	// Baud rate of the altimeter link.
	Baud int
	// ReadTimeout bounds a single Read, 0 blocks until data arrives.
	ReadTimeout time.Duration
}

// DefaultBaud is the altimeter's factory baud rate.
const DefaultBaud = 9600

// DefaultConfig returns a configuration for device with the default
// baud rate.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// Opener opens a port, replaced in tests.
type Opener func(*serial.Config) (io.ReadWriteCloser, error)

// DefaultOpener uses tarm/serial.
var DefaultOpener Opener = func(c *serial.Config) (io.ReadWriteCloser, error) {
	return serial.OpenPort(c)
}

// Open opens the port described by cfg.
func Open(cfg *Config) (io.ReadWriteCloser, error) {
	return cfg.OpenWith(DefaultOpener)
}

// OpenWith opens the port using opener.
func (c *Config) OpenWith(opener Opener) (io.ReadWriteCloser, error) {
	if c == nil || c.Device == "" {
		return nil, fmt.Errorf("serial device not specified")
	}
	baud := c.Baud
	if baud <= 0 {
		baud = DefaultBaud
	}
	port, err := opener(&serial.Config{
		Name:        c.Device,
		Baud:        baud,
		ReadTimeout: c.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", c.Device, err)
	}
	return port, nil
}

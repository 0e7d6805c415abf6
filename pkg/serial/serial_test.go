package serial

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tarm/serial"
)

type nopPort struct{}

func (nopPort) Read(p []byte) (int, error)  { return 0, io.EOF }
func (nopPort) Write(p []byte) (int, error) { return len(p), nil }
func (nopPort) Close() error                { return nil }

func TestOpenWith(t *testing.T) {
	var got *serial.Config
	opener := func(c *serial.Config) (io.ReadWriteCloser, error) {
		got = c
		return nopPort{}, nil
	}
	cfg := &Config{Device: "/dev/ttyUSB0", ReadTimeout: time.Second}
	port, err := cfg.OpenWith(opener)
	require.NoError(t, err)
	require.NotNil(t, port)
	require.Equal(t, &serial.Config{Name: "/dev/ttyUSB0", Baud: DefaultBaud, ReadTimeout: time.Second}, got)
}

func TestOpenWithErrors(t *testing.T) {
	_, err := (&Config{}).OpenWith(nil)
	require.Error(t, err)

	failure := errors.New("busy")
	_, err = DefaultConfig("/dev/ttyS1").OpenWith(func(*serial.Config) (io.ReadWriteCloser, error) {
		return nil, failure
	})
	require.True(t, errors.Is(err, failure))
	require.Contains(t, err.Error(), "/dev/ttyS1")
}

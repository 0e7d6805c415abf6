package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/altimeter.go/pkg/altimeter"
)

func writeFile(t *testing.T, content string) string {
	dir, err := ioutil.TempDir("", "altimeter-config")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
serial:
  device: /dev/ttyUSB1
  baud: 115200
altimeter:
  mode: pad
  read_timeout: 250ms
  signed: true
mqtt:
  url: mqtt://broker:1883/alt/
  id: rocket-1
websocket:
  listen: ":8080"
replay:
  rate: 4
`)
	conf, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyUSB1", conf.Serial.Device)
	require.Equal(t, 115200, conf.Serial.Baud)
	require.Equal(t, 100*time.Millisecond, conf.Serial.ReadTimeout, "default kept")
	require.Equal(t, altimeter.ModeOnPad, conf.Mode())
	require.Equal(t, 250*time.Millisecond, conf.Altimeter.ReadTimeout)
	require.Equal(t, 20*time.Millisecond, conf.Altimeter.PumpInterval, "default kept")
	require.True(t, conf.Altimeter.Signed)
	require.Equal(t, "rocket-1", conf.MQTT.ID)
	require.Equal(t, ":8080", conf.WebSocket.Listen)
	require.Equal(t, "/altitude", conf.WebSocket.Path)
	require.Equal(t, 4.0, conf.Replay.Rate)
	require.NoError(t, conf.Validate())

	port := conf.SerialPort()
	require.Equal(t, "/dev/ttyUSB1", port.Device)
	require.Equal(t, 115200, port.Baud)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(os.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "serial: [1, 2"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"serial", func(c *Config) { c.Serial.Device = "/dev/ttyS0" }, true},
		{"replay", func(c *Config) { c.Replay.Path = "flight.log" }, true},
		{"no input", func(c *Config) {}, false},
		{"bad mode", func(c *Config) { c.Serial.Device = "x"; c.Altimeter.Mode = "orbit" }, false},
		{"bad interval", func(c *Config) { c.Serial.Device = "x"; c.Altimeter.PumpInterval = 0 }, false},
		{"bad timeout", func(c *Config) { c.Serial.Device = "x"; c.Altimeter.ReadTimeout = -time.Second }, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conf := Default()
			tc.modify(&conf)
			err := conf.Validate()
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestNewConfigWithoutFile(t *testing.T) {
	conf, err := NewConfig("")
	require.NoError(t, err)
	require.Equal(t, defaultConfig, *conf)
}

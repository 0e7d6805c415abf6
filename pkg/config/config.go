// Package config loads altimeter daemon configuration from YAML and flags.
package config

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/denisbrodbeck/machineid"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/altimeter.go/pkg/altimeter"
	"github.com/robotalks/altimeter.go/pkg/serial"
)

// Config is the complete daemon configuration.
type Config struct {
	Serial    SerialConfig    `yaml:"serial"`
	Altimeter AltimeterConfig `yaml:"altimeter"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Record    RecordConfig    `yaml:"record"`
	Replay    ReplayConfig    `yaml:"replay"`
}

// SerialConfig describes the serial link.
type SerialConfig struct {
	Device      string        `yaml:"device"`
	Baud        int           `yaml:"baud"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// AltimeterConfig configures the ingestion Driver.
type AltimeterConfig struct {
	Mode         string        `yaml:"mode"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	PumpInterval time.Duration `yaml:"pump_interval"`
	Signed       bool          `yaml:"signed"`
	StatsPeriod  time.Duration `yaml:"stats_period"`
}

// MQTTConfig configures publishing to MQTT. Empty URL disables it.
type MQTTConfig struct {
	// URL is like mqtt://host:port/topic-prefix/
	URL string `yaml:"url"`
	ID  string `yaml:"id"`
}

// WebSocketConfig configures the websocket stream. Empty Listen disables it.
type WebSocketConfig struct {
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
}

// RecordConfig enables recording of raw lines.
type RecordConfig struct {
	Path string `yaml:"path"`
}

// ReplayConfig replaces the serial port with a recording.
type ReplayConfig struct {
	Path string  `yaml:"path"`
	Rate float64 `yaml:"rate"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Serial: SerialConfig{
			Baud:        serial.DefaultBaud,
			ReadTimeout: 100 * time.Millisecond,
		},
		Altimeter: AltimeterConfig{
			Mode:         altimeter.ModeOnLaunch.String(),
			ReadTimeout:  altimeter.DefaultReadTimeout,
			PumpInterval: 20 * time.Millisecond,
			StatsPeriod:  time.Minute,
		},
		WebSocket: WebSocketConfig{Path: "/altitude"},
		Replay:    ReplayConfig{Rate: 1},
	}
}

var defaultConfig = Default()

func init() {
	if val := os.Getenv("ALTIMETER_MQTT_URL"); val != "" {
		defaultConfig.MQTT.URL = val
	}
}

// Load reads a YAML file on top of the defaults. Fields absent from the
// file keep their default values.
func Load(path string) (Config, error) {
	conf := Default()
	if err := conf.LoadFile(path); err != nil {
		return conf, err
	}
	return conf, nil
}

// LoadFile reads a YAML file into c.
func (c *Config) LoadFile(path string) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration and fills derived defaults.
func (c *Config) Validate() error {
	if _, err := altimeter.ParseMode(c.Altimeter.Mode); err != nil {
		return err
	}
	if c.Altimeter.ReadTimeout < 0 {
		return fmt.Errorf("altimeter.read_timeout must not be negative")
	}
	if c.Altimeter.PumpInterval <= 0 {
		return fmt.Errorf("altimeter.pump_interval must be positive")
	}
	if c.Serial.Device == "" && c.Replay.Path == "" {
		return fmt.Errorf("either serial.device or replay.path is required")
	}
	if c.MQTT.URL != "" && c.MQTT.ID == "" {
		id, err := machineid.ProtectedID("altimeter")
		if err != nil {
			return fmt.Errorf("mqtt.id not set and machine id unavailable: %w", err)
		}
		c.MQTT.ID = id
	}
	return nil
}

// Mode returns the parsed telemetry mode.
func (c *Config) Mode() altimeter.Mode {
	mode, _ := altimeter.ParseMode(c.Altimeter.Mode)
	return mode
}

// SerialPort converts to serial.Config.
func (c *Config) SerialPort() *serial.Config {
	return &serial.Config{
		Device:      c.Serial.Device,
		Baud:        c.Serial.Baud,
		ReadTimeout: c.Serial.ReadTimeout,
	}
}

// SetupFlags registers command line flags on the default config.
func SetupFlags() {
	c := &defaultConfig
	flag.StringVar(&c.Serial.Device, "device", c.Serial.Device, "Serial device of the altimeter.")
	flag.IntVar(&c.Serial.Baud, "baud", c.Serial.Baud, "Serial baud rate.")
	flag.StringVar(&c.Altimeter.Mode, "mode", c.Altimeter.Mode, "Telemetry mode: pad or launch.")
	flag.DurationVar(&c.Altimeter.ReadTimeout, "read-timeout", c.Altimeter.ReadTimeout, "Bound of a blocking altitude read.")
	flag.BoolVar(&c.Altimeter.Signed, "signed", c.Altimeter.Signed, "Accept negative readings.")
	flag.StringVar(&c.MQTT.URL, "mqtt", c.MQTT.URL, "MQTT broker URL, empty to disable.")
	flag.StringVar(&c.MQTT.ID, "id", c.MQTT.ID, "Altimeter ID used in MQTT topics.")
	flag.StringVar(&c.WebSocket.Listen, "ws", c.WebSocket.Listen, "Websocket listen address, empty to disable.")
	flag.StringVar(&c.Record.Path, "record", c.Record.Path, "Record raw lines to file.")
	flag.StringVar(&c.Replay.Path, "replay", c.Replay.Path, "Replay a recording instead of reading the serial port.")
	flag.Float64Var(&c.Replay.Rate, "replay-rate", c.Replay.Rate, "Replay speed factor, 0 for as fast as possible.")
}

// NewConfig returns the default config after flags, with the file at
// path (if not empty) loaded first. Flags explicitly set on the command
// line win over the file.
func NewConfig(path string) (*Config, error) {
	conf := defaultConfig
	if path == "" {
		return &conf, nil
	}
	fileConf := Default()
	fileConf.MQTT.URL = defaultConfig.MQTT.URL
	if err := fileConf.LoadFile(path); err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	override := func(name string, apply func()) {
		if set[name] {
			apply()
		}
	}
	override("device", func() { fileConf.Serial.Device = conf.Serial.Device })
	override("baud", func() { fileConf.Serial.Baud = conf.Serial.Baud })
	override("mode", func() { fileConf.Altimeter.Mode = conf.Altimeter.Mode })
	override("read-timeout", func() { fileConf.Altimeter.ReadTimeout = conf.Altimeter.ReadTimeout })
	override("signed", func() { fileConf.Altimeter.Signed = conf.Altimeter.Signed })
	override("mqtt", func() { fileConf.MQTT.URL = conf.MQTT.URL })
	override("id", func() { fileConf.MQTT.ID = conf.MQTT.ID })
	override("ws", func() { fileConf.WebSocket.Listen = conf.WebSocket.Listen })
	override("record", func() { fileConf.Record.Path = conf.Record.Path })
	override("replay", func() { fileConf.Replay.Path = conf.Replay.Path })
	override("replay-rate", func() { fileConf.Replay.Rate = conf.Replay.Rate })
	return &fileConf, nil
}

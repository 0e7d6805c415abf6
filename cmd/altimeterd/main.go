package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/altimeter.go/pkg/altimeter"
	"github.com/robotalks/altimeter.go/pkg/config"
	fx "github.com/robotalks/altimeter.go/pkg/framework"
	"github.com/robotalks/altimeter.go/pkg/msgs"
	"github.com/robotalks/altimeter.go/pkg/publish/mqtt"
	"github.com/robotalks/altimeter.go/pkg/publish/websocket"
	"github.com/robotalks/altimeter.go/pkg/replay"
	"github.com/robotalks/altimeter.go/pkg/serial"
)

var configPath string

func init() {
	flag.StringVar(&configPath, "config", configPath, "YAML config file.")
	config.SetupFlags()
}

func openInput(conf *config.Config) (io.ReadCloser, error) {
	if conf.Replay.Path == "" {
		return serial.Open(conf.SerialPort())
	}
	f, err := os.Open(conf.Replay.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	recs, err := replay.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read replay %s: %w", conf.Replay.Path, err)
	}
	glog.Infof("replaying %d records from %s", len(recs), conf.Replay.Path)
	return replay.Stream(recs, conf.Replay.Rate), nil
}

// statsReporter logs driver counters periodically.
type statsReporter struct {
	driver *altimeter.Driver
	period time.Duration
	last   time.Time
}

func (r *statsReporter) Control(cc fx.ControlContext) error {
	if r.period <= 0 {
		return nil
	}
	if now := cc.Time(); now.Sub(r.last) >= r.period {
		if !r.last.IsZero() {
			glog.Infof("altimeter: %s", r.driver.Stats())
		}
		r.last = now
	}
	return nil
}

func run(conf *config.Config) error {
	input, err := openInput(conf)
	if err != nil {
		return err
	}

	src := altimeter.NewStreamSource(input)
	driver := altimeter.NewDriver(src)
	driver.Diagnostics = altimeter.GlogDiagnostics(2)
	driver.SetMode(conf.Mode())
	driver.SetReadTimeout(conf.Altimeter.ReadTimeout)
	driver.SetSignedValues(conf.Altimeter.Signed)

	if conf.Record.Path != "" {
		f, err := os.OpenFile(conf.Record.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		rec := replay.NewRecorder(f)
		if err := rec.Header("altimeterd started " + time.Now().Format(time.RFC3339)); err != nil {
			return err
		}
		driver.RawLine = rec.RecordLine
	}

	loop := fx.NewLoop()
	loop.Interval = conf.Altimeter.PumpInterval
	loop.AddRunnable(fx.NamedRun("input", fx.RunFunc(func(ctx context.Context) error {
		return fx.RunWithContextCloser(ctx, input, func() error { return src.Run(ctx) })
	})))
	loop.AddController(fx.PrLvSense, altimeter.NewSensor(driver))
	loop.AddController(fx.PrLvIdle, &statsReporter{driver: driver, period: conf.Altimeter.StatsPeriod})

	if conf.MQTT.URL != "" {
		meta := msgs.Meta{
			Description: "Serial altimeter",
			Device:      conf.Serial.Device,
			Labels:      map[string]string{"mode": conf.Mode().String()},
		}
		pub, err := mqtt.NewPublisher(conf.MQTT.URL, conf.MQTT.ID, meta)
		if err != nil {
			return fmt.Errorf("create MQTT publisher: %w", err)
		}
		loop.Add(pub)
		glog.Infof("publishing to %s as %s", conf.MQTT.URL, conf.MQTT.ID)
	}

	if conf.WebSocket.Listen != "" {
		b := websocket.NewBroadcaster()
		loop.Add(b)
		loop.AddRunnable(fx.NamedRun("websocket", &websocket.Server{
			Addr:        conf.WebSocket.Listen,
			Path:        conf.WebSocket.Path,
			Broadcaster: b,
		}))
	}

	runner := fx.NewRunner().HandleSignals()
	runner.Go(fx.NamedRun("loop", loop))
	return runner.Wait()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf, err := config.NewConfig(configPath)
	if err != nil {
		glog.Exit(err)
	}
	if err = conf.Validate(); err != nil {
		glog.Exit(err)
	}
	if err = run(conf); err != nil {
		glog.Exit(err)
	}
}

package main

import (
	"flag"
	"io"
	"log"
	"os"
	"time"

	"github.com/robotalks/altimeter.go/pkg/cli/sh"
	"github.com/robotalks/altimeter.go/pkg/replay"
	"github.com/robotalks/altimeter.go/pkg/serial"
)

var (
	device     string
	baud       = serial.DefaultBaud
	replayPath string
	replayRate float64
)

func init() {
	flag.StringVar(&device, "device", device, "Serial device of the altimeter.")
	flag.IntVar(&baud, "baud", baud, "Serial baud rate.")
	flag.StringVar(&replayPath, "replay", replayPath, "Read from a recording instead of the serial port.")
	flag.Float64Var(&replayRate, "replay-rate", replayRate, "Replay speed factor, 0 for as fast as possible.")
}

func openInput() (io.Reader, error) {
	if replayPath == "" {
		cfg := serial.DefaultConfig(device)
		cfg.Baud = baud
		cfg.ReadTimeout = 50 * time.Millisecond
		return serial.Open(cfg)
	}
	f, err := os.Open(replayPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	recs, err := replay.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return replay.Stream(recs, replayRate), nil
}

func main() {
	flag.Parse()
	input, err := openInput()
	if err != nil {
		log.Fatalln(err)
	}
	sh.New(input).Run(flag.Args()...)
}

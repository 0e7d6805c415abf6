// Package sh provides an interactive console for an altimeter.
package sh

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/altimeter.go/pkg/altimeter"
	fx "github.com/robotalks/altimeter.go/pkg/framework"
)

// Shell provides ishell backed interactive console over a Driver.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell  *ishell.Shell
	Driver *altimeter.Driver

	cancel func()
}

const shellKey = "$shell"

var (
	evalOnly   bool
	outputJSON bool
	verbose    bool

	commands = []*ishell.Cmd{
		&ModeCmd,
		&TimeoutCmd,
		&ReadCmd,
		&NextCmd,
		&PumpCmd,
		&GroundCmd,
		&ResetCmd,
		&StatsCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.BoolVar(&verbose, "verbose", verbose, "Print received lines and diagnostics.")
}

// New creates a shell reading altimeter telemetry from r.
// r is closed when the shell stops if it's an io.Closer.
func New(r io.Reader) *Shell {
	src := altimeter.NewStreamSource(r)
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Shell:       ishell.New(),
		Driver:      altimeter.NewDriver(src),
	}
	if verbose {
		s.Driver.Diagnostics = altimeter.DiagnosticsFunc(func(msg string) {
			s.Shell.Println("# " + msg)
		})
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		var err error
		if closer, ok := r.(io.Closer); ok {
			err = fx.RunWithContextCloser(ctx, closer, func() error { return src.Run(ctx) })
		} else {
			err = src.Run(ctx)
		}
		if err != nil && err != context.Canceled {
			s.Shell.Printf("input stopped: %v\n", err)
		}
	}()
	s.Shell.Set(shellKey, s)
	s.updatePrompt()
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

func (s *Shell) updatePrompt() {
	s.Shell.SetPrompt(fmt.Sprintf("[%s %s] > ", s.Driver.Mode(), s.Driver.State()))
}

// Print prints a value either as JSON or with the formatter.
func (s *Shell) Print(c *ishell.Context, v interface{}, text string) {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

func (s *Shell) printReading(c *ishell.Context, val int32, err error) {
	if err != nil {
		c.Err(err)
		return
	}
	s.Print(c, map[string]int32{"altitude": val}, strconv.Itoa(int(val)))
	s.updatePrompt()
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	defer s.cancel()
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// ModeCmd gets or sets the telemetry mode.
	ModeCmd = ishell.Cmd{
		Name: "mode",
		Help: "[pad|launch]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) > 0 {
				mode, err := altimeter.ParseMode(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				s.Driver.SetMode(mode)
				s.updatePrompt()
			}
			mode := s.Driver.Mode().String()
			s.Print(c, map[string]string{"mode": mode}, mode)
		},
	}

	// TimeoutCmd gets or sets the read timeout.
	TimeoutCmd = ishell.Cmd{
		Name: "timeout",
		Help: "[DURATION|MILLISECONDS]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) > 0 {
				timeout, err := parseTimeout(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				s.Driver.SetReadTimeout(timeout)
			}
			timeout := s.Driver.ReadTimeout()
			s.Print(c, map[string]int64{"timeout_ms": int64(timeout / time.Millisecond)}, timeout.String())
		},
	}

	// ReadCmd waits for the next reading up to the read timeout.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "[COUNT]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			count := 1
			if len(c.Args) > 0 {
				n, err := strconv.Atoi(c.Args[0])
				if err != nil || n <= 0 {
					c.Err(fmt.Errorf("invalid count %q", c.Args[0]))
					return
				}
				count = n
			}
			for i := 0; i < count; i++ {
				val, err := s.Driver.ReadAltitude()
				s.printReading(c, val, err)
				if err != nil {
					return
				}
			}
		},
	}

	// NextCmd dequeues a reading without waiting.
	NextCmd = ishell.Cmd{
		Name:    "next",
		Aliases: []string{"n"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			val, err := s.Driver.GetNextReading()
			s.printReading(c, val, err)
		},
	}

	// PumpCmd processes available input once.
	PumpCmd = ishell.Cmd{
		Name:    "pump",
		Aliases: []string{"p"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			s.Driver.Pump()
			s.updatePrompt()
			pending := s.Driver.Pending()
			s.Print(c, map[string]int{"pending": pending, "buffered": s.Driver.Buffered()},
				fmt.Sprintf("%d readings pending, %d bytes buffered", pending, s.Driver.Buffered()))
		},
	}

	// GroundCmd prints the captured ground elevation.
	GroundCmd = ishell.Cmd{
		Name:    "ground",
		Aliases: []string{"g"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ground, ok := s.Driver.GroundElevation()
			if !ok {
				c.Err(errors.New("ground elevation not captured"))
				return
			}
			s.Print(c, map[string]int32{"ground": ground}, strconv.Itoa(int(ground)))
		},
	}

	// ResetCmd resets buffers and baseline capture.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Help: "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			s.Driver.Reset()
			s.updatePrompt()
			s.Print(c, map[string]bool{"ok": true}, "OK")
		},
	}

	// StatsCmd prints the counters.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "[clear]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			stats := s.Driver.Stats()
			if len(c.Args) > 0 && c.Args[0] == "clear" {
				s.Driver.ResetStats()
			}
			s.Print(c, stats, stats.String())
		},
	}
)

// parseTimeout accepts a Go duration or plain milliseconds.
func parseTimeout(s string) (time.Duration, error) {
	if ms, err := strconv.ParseUint(s, 10, 32); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("timeout must not be negative")
	}
	return d, nil
}

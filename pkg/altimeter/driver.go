package altimeter

import (
	"fmt"
	"time"

	fx "github.com/robotalks/altimeter.go/pkg/framework"
)

// Source is the capability required from the serial transport.
type Source interface {
	// Available indicates a byte can be read without blocking.
	Available() bool
	// ReadByte reads one byte. It's only called after Available
	// returns true.
	ReadByte() (byte, error)
}

// DefaultReadTimeout is the initial bound of ReadAltitude.
const DefaultReadTimeout = time.Second

// Driver drains a Source into a ring buffer, frames and parses lines
// and queues the readings for the host.
//
// A Driver is not safe for concurrent use. It's intended to be owned by
// a single control loop calling Pump every iteration.
type Driver struct {
	Source      Source
	Diagnostics Diagnostics
	RawLine     RawLineFunc
	Clock       fx.TimeSource

	mode            Mode
	firstReading    bool
	groundElevation int32
	readTimeout     time.Duration
	parser          LineParser

	// set after an overflow until the terminator of the lost line.
	skipToTerminator bool

	ring  ByteRing
	queue ReadingQueue
	line  [RingSize]byte
	stats Stats
}

// NewDriver creates a Driver in ModeOnLaunch reading from src.
func NewDriver(src Source) *Driver {
	return &Driver{
		Source:       src,
		Clock:        fx.SystemClock,
		mode:         ModeOnLaunch,
		firstReading: true,
		readTimeout:  DefaultReadTimeout,
	}
}

// Mode gets the telemetry mode.
func (d *Driver) Mode() Mode {
	return d.mode
}

// SetMode sets the telemetry mode and always resets the Driver.
func (d *Driver) SetMode(mode Mode) {
	d.mode = mode
	d.Reset()
}

// ReadTimeout gets the bound of ReadAltitude.
func (d *Driver) ReadTimeout() time.Duration {
	return d.readTimeout
}

// SetReadTimeout sets the bound of ReadAltitude.
func (d *Driver) SetReadTimeout(timeout time.Duration) {
	d.readTimeout = timeout
}

// SetSignedValues allows a leading '-' in readings.
func (d *Driver) SetSignedValues(signed bool) {
	d.parser.Signed = signed
}

// Reset drops buffered bytes and queued readings and restarts baseline
// capture. Mode and read timeout are kept.
func (d *Driver) Reset() {
	d.ring.Reset()
	d.queue.Reset()
	d.firstReading = true
	d.groundElevation = 0
	d.skipToTerminator = false
}

// State gets the baseline capture state.
func (d *Driver) State() State {
	if d.mode == ModeOnPad && d.firstReading {
		return StateAwaitingBaseline
	}
	return StateStreaming
}

// GroundElevation returns the captured baseline. ok is false until the
// first reading in ModeOnPad has been captured.
func (d *Driver) GroundElevation() (elevation int32, ok bool) {
	return d.groundElevation, d.mode == ModeOnPad && !d.firstReading
}

// Buffered returns the number of bytes waiting to be framed.
func (d *Driver) Buffered() int {
	return d.ring.Len()
}

// Pending returns the number of queued readings.
func (d *Driver) Pending() int {
	return d.queue.Len()
}

// Stats returns a snapshot of the counters.
func (d *Driver) Stats() Stats {
	return d.stats
}

// ResetStats clears the counters.
func (d *Driver) ResetStats() {
	d.stats = Stats{}
}

// Pump processes what is currently available and returns without
// blocking. Rejected lines and overflows are only reported to
// Diagnostics. When the ring buffer overflows, the line being
// assembled is dropped as a whole up to its terminator, so the parser
// never sees a fragment.
func (d *Driver) Pump() {
	if src := d.Source; src != nil {
		overflowed := false
		for src.Available() {
			b, err := src.ReadByte()
			if err != nil {
				d.diagnose("read error: %v", err)
				break
			}
			d.stats.BytesReceived++
			if d.skipToTerminator {
				d.stats.BytesDropped++
				d.skipToTerminator = b != LineTerminator
				continue
			}
			if d.ring.Push(b) {
				continue
			}
			// The line being assembled is lost, including the part
			// still to arrive.
			d.stats.BytesDropped += uint64(d.ring.TrimAfterLast(LineTerminator)) + 1
			d.stats.LinesDiscarded++
			d.skipToTerminator = b != LineTerminator
			if !overflowed {
				overflowed = true
				d.diagnose("ring buffer full, dropping data")
			}
		}
	}

	for {
		line, ok := d.ring.PopLine(d.line[:])
		if !ok {
			break
		}
		d.stats.LinesFramed++
		if fn := d.RawLine; fn != nil {
			fn(line)
		}
		if d.Diagnostics != nil {
			d.diagnose("received line: %s", line)
		}
		val, kind := d.parser.parse(line)
		if kind != 0 {
			d.stats.countParseError(kind)
			if d.Diagnostics != nil {
				d.diagnose("error parsing line: %s", kind)
			}
			continue
		}
		d.stats.ReadingsParsed++
		d.accept(val)
	}
}

func (d *Driver) accept(val int32) {
	if d.mode == ModeOnPad && d.firstReading {
		d.groundElevation, d.firstReading = val, false
		d.diagnose("ground elevation set to: %d", val)
		return
	}
	if !d.queue.Enqueue(val) {
		d.stats.ReadingsDropped++
		d.diagnose("reading queue full, dropping value")
	}
}

// GetNextReading dequeues the oldest reading without blocking.
func (d *Driver) GetNextReading() (int32, error) {
	if v, ok := d.queue.Dequeue(); ok {
		return v, nil
	}
	return 0, ErrNoData
}

// ReadAltitude busy-polls Pump until a reading is available or the read
// timeout elapses on Clock. It doesn't sleep between polls.
func (d *Driver) ReadAltitude() (int32, error) {
	return d.ReadAltitudeWithin(d.readTimeout)
}

// ReadAltitudeWithin is ReadAltitude with an explicit timeout.
func (d *Driver) ReadAltitudeWithin(timeout time.Duration) (int32, error) {
	clock := d.Clock
	if clock == nil {
		clock = fx.SystemClock
	}
	start := clock.Time()
	for clock.Time().Sub(start) < timeout {
		d.Pump()
		if v, ok := d.queue.Dequeue(); ok {
			return v, nil
		}
	}
	return 0, ErrTimeout
}

func (d *Driver) diagnose(format string, args ...interface{}) {
	if diag := d.Diagnostics; diag != nil {
		diag.Diagnostic(fmt.Sprintf(format, args...))
	}
}

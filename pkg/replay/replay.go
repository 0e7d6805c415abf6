// Package replay records raw telemetry lines and plays them back.
package replay

// Log format is line-oriented text:
//
//   - blank lines and lines starting with '#' are ignored;
//   - records are <unix_ms>,<line> where line is the framed line as
//     received, before parsing.

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	fx "github.com/robotalks/altimeter.go/pkg/framework"
)

// Record is one received line.
type Record struct {
	Time time.Time
	Line string
}

// Recorder writes records. It's used as an altimeter.RawLineFunc.
type Recorder struct {
	Writer io.Writer
	Clock  fx.TimeSource

	lock sync.Mutex
	err  error
}

// NewRecorder creates a Recorder with the system clock.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{Writer: w, Clock: fx.SystemClock}
}

// Header writes a comment line.
func (r *Recorder) Header(comment string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	_, err := fmt.Fprintf(r.Writer, "# %s\n", comment)
	return err
}

// RecordLine records a line, stamping it with Clock.
// Errors are kept and returned by Err, recording stops after the first one.
func (r *Recorder) RecordLine(line []byte) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.err != nil {
		return
	}
	ms := r.Clock.Time().UnixNano() / int64(time.Millisecond)
	_, r.err = fmt.Fprintf(r.Writer, "%d,%s\n", ms, line)
}

// Err returns the first write error.
func (r *Recorder) Err() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.err
}

// ReadAll parses a recording.
func ReadAll(r io.Reader) ([]Record, error) {
	var recs []Record
	s := bufio.NewScanner(r)
	for n := 1; s.Scan(); n++ {
		line := bytes.TrimSpace(s.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		comma := bytes.IndexByte(line, ',')
		if comma < 0 {
			return nil, fmt.Errorf("line %d: missing comma", n)
		}
		ms, err := strconv.ParseInt(string(line[:comma]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid timestamp: %w", n, err)
		}
		recs = append(recs, Record{
			Time: time.Unix(0, ms*int64(time.Millisecond)),
			Line: string(line[comma+1:]),
		})
	}
	return recs, s.Err()
}

// Stream re-emits records as a byte stream with '\n' terminators.
// With rate > 0 the original spacing is reproduced, scaled by rate
// (2 plays twice as fast); with rate <= 0 records are emitted as fast
// as they're read. Each record is a separate write, so a reader never
// receives more than one record per Read.
// Closing the returned reader stops the playback.
func Stream(recs []Record, rate float64) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		var prev time.Time
		for i, rec := range recs {
			if rate > 0 && i > 0 {
				if gap := rec.Time.Sub(prev); gap > 0 {
					time.Sleep(time.Duration(float64(gap) / rate))
				}
			}
			prev = rec.Time
			if _, err := io.WriteString(pw, rec.Line+"\n"); err != nil {
				return
			}
		}
		pw.Close()
	}()
	return pr
}

package altimeter

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/golang/glog"
)

// Diagnostics receives human readable notes about dropped data and
// rejected lines. It never affects what the Driver returns.
type Diagnostics interface {
	Diagnostic(msg string)
}

// DiagnosticsFunc is func form of Diagnostics.
type DiagnosticsFunc func(msg string)

// Diagnostic implements Diagnostics.
func (f DiagnosticsFunc) Diagnostic(msg string) {
	f(msg)
}

// GlogDiagnostics writes diagnostics to glog at the given verbosity.
type GlogDiagnostics glog.Level

// Diagnostic implements Diagnostics.
func (l GlogDiagnostics) Diagnostic(msg string) {
	glog.V(glog.Level(l)).Info(msg)
}

// RawLineFunc receives every framed and trimmed line before parsing.
// The slice is only valid during the call.
type RawLineFunc func(line []byte)

// Stats counts what went through the Driver.
type Stats struct {
	BytesReceived    uint64
	BytesDropped     uint64
	LinesFramed      uint64
	LinesDiscarded   uint64
	ReadingsParsed   uint64
	ReadingsDropped  uint64
	ChecksumErrors   uint64
	NonNumericErrors uint64
	IncompleteErrors uint64
}

// ParseErrors returns the total number of rejected lines.
func (s Stats) ParseErrors() uint64 {
	return s.ChecksumErrors + s.NonNumericErrors + s.IncompleteErrors
}

func (s *Stats) countParseError(kind ParseErrorKind) {
	switch kind {
	case ChecksumMismatch:
		s.ChecksumErrors++
	case NonNumeric:
		s.NonNumericErrors++
	case Incomplete:
		s.IncompleteErrors++
	}
}

// String implements fmt.Stringer.
func (s Stats) String() string {
	return fmt.Sprintf("rx %s (%s dropped), lines %s, readings %s (%s dropped), errors %s (checksum %s, non-numeric %s, incomplete %s)",
		humanize.IBytes(s.BytesReceived), humanize.IBytes(s.BytesDropped),
		humanize.Comma(int64(s.LinesFramed)),
		humanize.Comma(int64(s.ReadingsParsed)), humanize.Comma(int64(s.ReadingsDropped)),
		humanize.Comma(int64(s.ParseErrors())),
		humanize.Comma(int64(s.ChecksumErrors)),
		humanize.Comma(int64(s.NonNumericErrors)),
		humanize.Comma(int64(s.IncompleteErrors)))
}

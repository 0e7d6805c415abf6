package altimeter

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData indicates the reading queue is empty.
	ErrNoData = errors.New("no data")
	// ErrTimeout indicates no reading arrived within the read timeout.
	ErrTimeout = errors.New("timeout")

	// ErrChecksumMismatch matches a ParseError of kind ChecksumMismatch.
	ErrChecksumMismatch = &ParseError{Kind: ChecksumMismatch}
	// ErrNonNumeric matches a ParseError of kind NonNumeric.
	ErrNonNumeric = &ParseError{Kind: NonNumeric}
	// ErrIncomplete matches a ParseError of kind Incomplete.
	ErrIncomplete = &ParseError{Kind: Incomplete}
)

// ParseErrorKind classifies why a line was rejected.
type ParseErrorKind int

const (
	// ChecksumMismatch means the "*HH" suffix doesn't match the payload.
	ChecksumMismatch ParseErrorKind = iota + 1
	// NonNumeric means the payload contains a non-digit character.
	NonNumeric
	// Incomplete means the payload is empty after trimming.
	Incomplete
)

// String implements fmt.Stringer.
func (k ParseErrorKind) String() string {
	switch k {
	case ChecksumMismatch:
		return "checksum mismatch"
	case NonNumeric:
		return "non-numeric"
	case Incomplete:
		return "incomplete"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseError is returned when a framed line can't be turned into a reading.
type ParseError struct {
	Kind ParseErrorKind
	Line string
}

// Error implements error.
func (e *ParseError) Error() string {
	if e.Line == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %q", e.Kind, e.Line)
}

// Is matches any ParseError of the same kind.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	return ok && t.Kind == e.Kind
}

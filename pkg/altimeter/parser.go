package altimeter

import (
	"bytes"
	"math"
)

// ChecksumSeparator separates the payload from its hex checksum.
const ChecksumSeparator = '*'

// Checksum computes the sum of all bytes modulo 256.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// LineParser validates and converts framed lines.
// The zero value accepts unsigned readings only.
type LineParser struct {
	// Signed accepts a single leading '-'.
	Signed bool
}

// ParseLine parses a line using the default LineParser.
func ParseLine(line []byte) (int32, error) {
	var p LineParser
	return p.Parse(line)
}

// Parse validates the optional checksum suffix and converts the payload.
// Values beyond the int32 range saturate at math.MaxInt32 / math.MinInt32.
func (p LineParser) Parse(line []byte) (int32, error) {
	val, kind := p.parse(line)
	if kind != 0 {
		return 0, &ParseError{Kind: kind, Line: string(line)}
	}
	return val, nil
}

// parse is the allocation free form of Parse used by the Driver.
func (p LineParser) parse(line []byte) (int32, ParseErrorKind) {
	data := line
	if pos := bytes.IndexByte(line, ChecksumSeparator); pos >= 0 {
		data = line[:pos]
		sum, ok := parseHexByte(bytes.TrimSpace(line[pos+1:]))
		if !ok || sum != Checksum(data) {
			return 0, ChecksumMismatch
		}
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return 0, Incomplete
	}
	negative := false
	if p.Signed && data[0] == '-' {
		if negative, data = true, data[1:]; len(data) == 0 {
			return 0, Incomplete
		}
	}
	var val int64
	for _, c := range data {
		if c < '0' || c > '9' {
			return 0, NonNumeric
		}
		if val <= math.MaxInt32 {
			val = val*10 + int64(c-'0')
		}
	}
	if negative {
		val = -val
	}
	switch {
	case val > math.MaxInt32:
		return math.MaxInt32, 0
	case val < math.MinInt32:
		return math.MinInt32, 0
	}
	return int32(val), 0
}

// parseHexByte accepts exactly two hex digits, in either case.
func parseHexByte(s []byte) (byte, bool) {
	if len(s) != 2 {
		return 0, false
	}
	var v byte
	for _, c := range s {
		var d byte
		switch {
		case c >= '0' && c <= '9':
			d = c - '0'
		case c >= 'a' && c <= 'f':
			d = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			d = c - 'A' + 10
		default:
			return 0, false
		}
		v = v<<4 | d
	}
	return v, true
}

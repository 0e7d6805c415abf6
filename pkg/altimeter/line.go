package altimeter

import "bytes"

// LineTerminator ends every telemetry line.
const LineTerminator = '\n'

// PopLine extracts the oldest complete line into dst and returns it
// trimmed of surrounding whitespace, without the terminator.
// The ring is not modified unless a terminator is present, so a partial
// line stays buffered until the rest of it arrives.
// dst should have room for RingSize bytes; a longer line is truncated
// but still consumed.
func (r *ByteRing) PopLine(dst []byte) ([]byte, bool) {
	n := r.IndexByte(LineTerminator)
	if n < 0 {
		return nil, false
	}
	line := dst[:0]
	for i := 0; i <= n; i++ {
		b, _ := r.Pop()
		if i < n && len(line) < cap(line) {
			line = append(line, b)
		}
	}
	return bytes.TrimSpace(line), true
}

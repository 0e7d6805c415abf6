package altimeter

// RingSize is the capacity of the byte ring buffer. One slot is always
// kept free, so at most RingSize-1 bytes are buffered.
const RingSize = 256

// ByteRing is a fixed-capacity circular byte buffer.
// The zero value is an empty ring.
type ByteRing struct {
	buf  [RingSize]byte
	head int // next write position
	tail int // next read position
}

// IsEmpty indicates no bytes are buffered.
func (r *ByteRing) IsEmpty() bool {
	return r.head == r.tail
}

// IsFull indicates a Push would be rejected.
func (r *ByteRing) IsFull() bool {
	return (r.head+1)%RingSize == r.tail
}

// Len returns the number of buffered bytes.
func (r *ByteRing) Len() int {
	return (r.head - r.tail + RingSize) % RingSize
}

// Push appends a byte. It returns false and leaves the ring untouched
// when the ring is full.
func (r *ByteRing) Push(b byte) bool {
	if r.IsFull() {
		return false
	}
	r.buf[r.head] = b
	r.head = (r.head + 1) % RingSize
	return true
}

// Pop removes the oldest byte.
func (r *ByteRing) Pop() (byte, bool) {
	if r.IsEmpty() {
		return 0, false
	}
	b := r.buf[r.tail]
	r.tail = (r.tail + 1) % RingSize
	return b, true
}

// IndexByte scans from the oldest byte without consuming and returns
// the distance to the first occurrence of c, or -1.
func (r *ByteRing) IndexByte(c byte) int {
	for n, pos := 0, r.tail; pos != r.head; n, pos = n+1, (pos+1)%RingSize {
		if r.buf[pos] == c {
			return n
		}
	}
	return -1
}

// TrimAfterLast removes the bytes following the last occurrence of c,
// or every byte if c isn't buffered. It returns the number removed.
func (r *ByteRing) TrimAfterLast(c byte) int {
	n := 0
	for r.head != r.tail {
		prev := (r.head - 1 + RingSize) % RingSize
		if r.buf[prev] == c {
			break
		}
		r.head = prev
		n++
	}
	return n
}

// Reset drops all buffered bytes.
func (r *ByteRing) Reset() {
	r.head, r.tail = 0, 0
}

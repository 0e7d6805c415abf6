package altimeter

// QueueSize is the capacity of the reading queue. As with ByteRing one
// slot stays free, so at most QueueSize-1 readings are held.
const QueueSize = 16

// ReadingQueue is a fixed-capacity FIFO of parsed readings.
type ReadingQueue struct {
	buf  [QueueSize]int32
	head int
	tail int
}

// IsEmpty indicates no readings are queued.
func (q *ReadingQueue) IsEmpty() bool {
	return q.head == q.tail
}

// IsFull indicates an Enqueue would be rejected.
func (q *ReadingQueue) IsFull() bool {
	return (q.head+1)%QueueSize == q.tail
}

// Len returns the number of queued readings.
func (q *ReadingQueue) Len() int {
	return (q.head - q.tail + QueueSize) % QueueSize
}

// Enqueue appends a reading, returns false if the queue is full.
// The queued readings are never overwritten.
func (q *ReadingQueue) Enqueue(v int32) bool {
	next := (q.head + 1) % QueueSize
	if next == q.tail {
		return false
	}
	q.buf[q.head] = v
	q.head = next
	return true
}

// Dequeue removes the oldest reading.
func (q *ReadingQueue) Dequeue() (int32, bool) {
	if q.IsEmpty() {
		return 0, false
	}
	v := q.buf[q.tail]
	q.tail = (q.tail + 1) % QueueSize
	return v, true
}

// Reset drops all queued readings.
func (q *ReadingQueue) Reset() {
	q.head, q.tail = 0, 0
}

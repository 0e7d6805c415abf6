package altimeter

import (
	"context"
	"io"
	"sync"
)

// DefaultStreamBacklog is the number of chunks a StreamSource holds
// before its reader blocks. A chunk is at most RingSize-1 bytes.
const DefaultStreamBacklog = 64

// StreamSource adapts a blocking io.Reader (e.g. a serial port) to a
// Source. Run reads in the background; Available and ReadByte never block.
type StreamSource struct {
	Reader io.Reader

	chunkCh chan []byte
	chunk   []byte
	pos     int
	errLock sync.Mutex
	err     error
}

// NewStreamSource creates a StreamSource.
func NewStreamSource(r io.Reader) *StreamSource {
	return &StreamSource{
		Reader:  r,
		chunkCh: make(chan []byte, DefaultStreamBacklog),
	}
}

// Available implements Source. It reports false once the current
// chunk is consumed and takes the next chunk on the following call, so
// a Pump never reads more than one chunk.
func (s *StreamSource) Available() bool {
	if s.pos < len(s.chunk) {
		return true
	}
	if s.chunk != nil {
		s.chunk, s.pos = nil, 0
		return false
	}
	select {
	case chunk, ok := <-s.chunkCh:
		if !ok {
			return false
		}
		s.chunk, s.pos = chunk, 0
		return true
	default:
		return false
	}
}

// ReadByte implements Source.
func (s *StreamSource) ReadByte() (byte, error) {
	if !s.Available() {
		return 0, io.ErrNoProgress
	}
	b := s.chunk[s.pos]
	s.pos++
	return b, nil
}

// Err returns the error which stopped the reader, if any.
func (s *StreamSource) Err() error {
	s.errLock.Lock()
	defer s.errLock.Unlock()
	return s.err
}

// Run implements Runnable. It returns nil when the reader reaches EOF.
func (s *StreamSource) Run(ctx context.Context) error {
	defer close(s.chunkCh)
	buf := make([]byte, RingSize-1)
	for {
		n, err := s.Reader.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.chunkCh <- chunk:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			s.errLock.Lock()
			s.err = err
			s.errLock.Unlock()
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

package altimeter

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// byteSource releases bytes only after feed.
type byteSource struct {
	data []byte
	pos  int
}

func (s *byteSource) feed(str string) {
	s.data = append(s.data, str...)
}

func (s *byteSource) Available() bool {
	return s.pos < len(s.data)
}

func (s *byteSource) ReadByte() (byte, error) {
	b := s.data[s.pos]
	s.pos++
	return b, nil
}

// stepClock advances by step every time it's read.
type stepClock struct {
	now   time.Time
	step  time.Duration
	reads int
}

func (c *stepClock) Time() time.Time {
	t := c.now
	c.now = c.now.Add(c.step)
	c.reads++
	return t
}

type driverTestEnv struct {
	t     *testing.T
	src   *byteSource
	drv   *Driver
	diags []string
	lines []string
}

func newDriverTestEnv(t *testing.T) *driverTestEnv {
	env := &driverTestEnv{t: t, src: &byteSource{}}
	env.drv = NewDriver(env.src)
	env.drv.Diagnostics = DiagnosticsFunc(func(msg string) {
		env.diags = append(env.diags, msg)
	})
	env.drv.RawLine = func(line []byte) {
		env.lines = append(env.lines, string(line))
	}
	return env
}

func (e *driverTestEnv) pump(str string) *driverTestEnv {
	e.src.feed(str)
	e.drv.Pump()
	return e
}

func (e *driverTestEnv) expectReadings(vals ...int32) *driverTestEnv {
	for i, v := range vals {
		got, err := e.drv.GetNextReading()
		require.NoErrorf(e.t, err, "reading[%d]", i)
		require.Equalf(e.t, v, got, "reading[%d]", i)
	}
	_, err := e.drv.GetNextReading()
	require.Equal(e.t, ErrNoData, err)
	return e
}

func (e *driverTestEnv) hasDiag(substr string) bool {
	for _, msg := range e.diags {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

func TestDriverDefaults(t *testing.T) {
	d := NewDriver(nil)
	require.Equal(t, ModeOnLaunch, d.Mode())
	require.Equal(t, time.Second, d.ReadTimeout())
	require.Equal(t, StateStreaming, d.State())
	ground, ok := d.GroundElevation()
	require.False(t, ok)
	require.Zero(t, ground)
	// a nil source is tolerated.
	d.Pump()
	_, err := d.GetNextReading()
	require.Equal(t, ErrNoData, err)
}

func TestDriverFramingIsChunkIndependent(t *testing.T) {
	stream := "10\n 20 \r\n" + withChecksum("30") + "\nbad\n\n40"
	expected := []string{"10", "20", withChecksum("30"), "bad", ""}

	block := newDriverTestEnv(t).pump(stream)
	require.Equal(t, expected, block.lines)

	single := newDriverTestEnv(t)
	for i := 0; i < len(stream); i++ {
		single.pump(stream[i : i+1])
	}
	require.Equal(t, expected, single.lines)

	for _, env := range []*driverTestEnv{block, single} {
		env.expectReadings(10, 20, 30)
		require.Equal(t, 2, env.drv.Buffered(), "partial line stays buffered")
		env.pump("\n").expectReadings(40)
	}
}

func TestDriverOnLaunch(t *testing.T) {
	env := newDriverTestEnv(t)
	env.pump("5\n6\n" + withChecksum("7") + "\n").expectReadings(5, 6, 7)
	ground, ok := env.drv.GroundElevation()
	require.False(t, ok)
	require.Zero(t, ground)
}

func TestDriverOnPad(t *testing.T) {
	env := newDriverTestEnv(t)
	env.drv.SetMode(ModeOnPad)
	require.Equal(t, StateAwaitingBaseline, env.drv.State())

	env.pump("x\n" + withChecksum("1500") + "\n")
	require.Equal(t, StateStreaming, env.drv.State())
	ground, ok := env.drv.GroundElevation()
	require.True(t, ok)
	require.Equal(t, int32(1500), ground)
	env.expectReadings()

	env.pump("12\n13\n").expectReadings(12, 13)
	ground, _ = env.drv.GroundElevation()
	require.Equal(t, int32(1500), ground)
	require.True(t, env.hasDiag("ground elevation set to: 1500"))

	// reset restarts baseline capture.
	env.drv.Reset()
	require.Equal(t, ModeOnPad, env.drv.Mode())
	_, ok = env.drv.GroundElevation()
	require.False(t, ok)
	env.pump("0\n1\n").expectReadings(1)
	ground, ok = env.drv.GroundElevation()
	require.True(t, ok)
	require.Zero(t, ground)
}

func TestDriverSetModeResets(t *testing.T) {
	env := newDriverTestEnv(t)
	env.drv.SetReadTimeout(50 * time.Millisecond)
	env.pump("1\n2\n34")
	require.Equal(t, 2, env.drv.Pending())
	require.Equal(t, 2, env.drv.Buffered())

	env.drv.SetMode(ModeOnLaunch)
	require.Zero(t, env.drv.Pending())
	require.Zero(t, env.drv.Buffered())
	require.Equal(t, 50*time.Millisecond, env.drv.ReadTimeout())
	env.pump("5\n").expectReadings(5)
}

func TestDriverParseErrorsAreDiagnosticOnly(t *testing.T) {
	env := newDriverTestEnv(t)
	env.pump("12x\n123*00\n \n*00\n8\n").expectReadings(8)
	require.True(t, env.hasDiag("error parsing line: non-numeric"))
	require.True(t, env.hasDiag("error parsing line: checksum mismatch"))
	require.True(t, env.hasDiag("error parsing line: incomplete"))
	require.True(t, env.hasDiag("received line: 12x"))

	stats := env.drv.Stats()
	assert.Equal(t, uint64(5), stats.LinesFramed)
	assert.Equal(t, uint64(1), stats.ReadingsParsed)
	assert.Equal(t, uint64(1), stats.NonNumericErrors)
	assert.Equal(t, uint64(1), stats.ChecksumErrors)
	assert.Equal(t, uint64(2), stats.IncompleteErrors)
	assert.Equal(t, uint64(4), stats.ParseErrors())

	env.drv.ResetStats()
	require.Zero(t, env.drv.Stats().LinesFramed)
}

func TestDriverQueueOverflow(t *testing.T) {
	env := newDriverTestEnv(t)
	var sb strings.Builder
	for i := 0; i < QueueSize+5; i++ {
		sb.WriteString(strings.Repeat("1", 1+i%3))
		sb.WriteByte('\n')
	}
	env.pump(sb.String())
	require.Equal(t, QueueSize-1, env.drv.Pending())
	require.Equal(t, uint64(6), env.drv.Stats().ReadingsDropped)
	require.True(t, env.hasDiag("reading queue full, dropping value"))

	expected := []int32{1, 11, 111}
	for i := 0; i < QueueSize-1; i++ {
		v, err := env.drv.GetNextReading()
		require.NoError(t, err)
		require.Equalf(t, expected[i%3], v, "reading[%d]", i)
	}
	env.expectReadings()
}

func TestDriverRingOverflow(t *testing.T) {
	env := newDriverTestEnv(t)
	env.pump(strings.Repeat("1", RingSize+10))
	stats := env.drv.Stats()
	require.Equal(t, uint64(RingSize+10), stats.BytesReceived)
	require.Equal(t, uint64(RingSize+10), stats.BytesDropped)
	require.Equal(t, uint64(1), stats.LinesDiscarded)
	require.True(t, env.hasDiag("ring buffer full, dropping data"))
	require.Zero(t, env.drv.Buffered())

	env.pump("\n42\n").expectReadings(42)
	require.Equal(t, []string{"42"}, env.lines)
}

func TestDriverRingOverflowAcrossPumps(t *testing.T) {
	env := newDriverTestEnv(t)
	env.pump(strings.Repeat("9", RingSize))
	env.pump(strings.Repeat("1", 44) + "\n").expectReadings()
	require.Empty(t, env.lines)
	require.Equal(t, uint64(RingSize+45), env.drv.Stats().BytesDropped)
	require.Equal(t, uint64(1), env.drv.Stats().LinesDiscarded)

	env.pump("7\n").expectReadings(7)
	require.Equal(t, []string{"7"}, env.lines)
}

func TestDriverRingOverflowResumesInSamePump(t *testing.T) {
	env := newDriverTestEnv(t)
	env.pump(strings.Repeat("1", 300) + "\n5\n").expectReadings(5)
	require.Equal(t, []string{"5"}, env.lines)
}

func TestDriverResetClearsOverflow(t *testing.T) {
	env := newDriverTestEnv(t)
	env.pump(strings.Repeat("1", RingSize))
	env.drv.Reset()
	env.pump("3\n").expectReadings(3)
}

func TestDriverOverflowDiagnosedOncePerPump(t *testing.T) {
	env := newDriverTestEnv(t)
	env.pump(strings.Repeat("1", RingSize*3) + "\n" + strings.Repeat("2", RingSize*2))
	count := 0
	for _, msg := range env.diags {
		if msg == "ring buffer full, dropping data" {
			count++
		}
	}
	require.Equal(t, 1, count)
	require.Equal(t, uint64(2), env.drv.Stats().LinesDiscarded)
}

func TestDriverRingBurstKeepsOldest(t *testing.T) {
	env := newDriverTestEnv(t)
	burst := strings.Repeat("7\n", RingSize/2) + "8\n"
	env.pump(burst)
	// the ring keeps 127 complete lines; the lines arriving after it
	// filled ("7\n" and "8\n") are dropped whole.
	require.Equal(t, uint64(len(burst)-(RingSize-2)), env.drv.Stats().BytesDropped)
	require.Equal(t, uint64(2), env.drv.Stats().LinesDiscarded)
	require.Equal(t, uint64(RingSize/2-1), env.drv.Stats().LinesFramed)
	require.Zero(t, env.drv.Buffered())
	for i := 0; i < QueueSize-1; i++ {
		v, err := env.drv.GetNextReading()
		require.NoError(t, err)
		require.Equal(t, int32(7), v)
	}
	env.expectReadings()
}

func TestDriverSignedValues(t *testing.T) {
	env := newDriverTestEnv(t)
	env.pump("-3\n").expectReadings()
	env.drv.SetSignedValues(true)
	env.pump("-3\n").expectReadings(-3)
}

func TestReadAltitudeTimeout(t *testing.T) {
	env := newDriverTestEnv(t)
	clock := &stepClock{now: time.Unix(1000, 0), step: 7 * time.Millisecond}
	env.drv.Clock = clock
	env.drv.SetReadTimeout(100 * time.Millisecond)

	start := clock.now
	_, err := env.drv.ReadAltitude()
	require.True(t, errors.Is(err, ErrTimeout))
	elapsed := clock.now.Sub(start) - clock.step
	require.True(t, elapsed >= 100*time.Millisecond, "elapsed %v", elapsed)
	require.True(t, elapsed <= 100*time.Millisecond+clock.step, "elapsed %v", elapsed)
}

func TestReadAltitude(t *testing.T) {
	env := newDriverTestEnv(t)
	env.drv.Clock = &stepClock{now: time.Unix(0, 0), step: time.Microsecond}
	env.src.feed("321\n322\n")
	v, err := env.drv.ReadAltitude()
	require.NoError(t, err)
	require.Equal(t, int32(321), v)
	v, err = env.drv.ReadAltitudeWithin(time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, int32(322), v)
	_, err = env.drv.ReadAltitudeWithin(0)
	require.Equal(t, ErrTimeout, err)
}

func TestReadAltitudeOnPadSkipsBaseline(t *testing.T) {
	env := newDriverTestEnv(t)
	env.drv.Clock = &stepClock{now: time.Unix(0, 0), step: time.Millisecond}
	env.drv.SetMode(ModeOnPad)
	env.src.feed("1200\n")
	_, err := env.drv.ReadAltitude()
	require.Equal(t, ErrTimeout, err)
	env.src.feed("3\n")
	v, err := env.drv.ReadAltitude()
	require.NoError(t, err)
	require.Equal(t, int32(3), v)
}

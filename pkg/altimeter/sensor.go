package altimeter

import (
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/altimeter.go/pkg/framework"
)

// ReadingMsg carries one altitude reading through the loop.
type ReadingMsg struct {
	Altitude int32
	Mode     Mode
	// Ground is the captured ground elevation, valid if HasGround.
	Ground    int32
	HasGround bool
	Time      time.Time
}

// NewMessage implements Message.
func (m *ReadingMsg) NewMessage() fx.Message { return &ReadingMsg{} }

// GroundMsg is emitted once when the ground elevation is captured.
type GroundMsg struct {
	Elevation int32
	Time      time.Time
}

// NewMessage implements Message.
func (m *GroundMsg) NewMessage() fx.Message { return &GroundMsg{} }

// Sensor pumps a Driver on every loop iteration and turns the queued
// readings into ReadingMsg.
type Sensor struct {
	Driver *Driver
}

// NewSensor creates a Sensor.
func NewSensor(d *Driver) *Sensor {
	return &Sensor{Driver: d}
}

// AddToLoop implements LoopAdder.
func (s *Sensor) AddToLoop(loop *fx.Loop) {
	if runnable, ok := s.Driver.Source.(fx.Runnable); ok {
		loop.AddRunnable(fx.NamedRun("altimeter-source", runnable))
	}
	loop.AddController(fx.PrLvSense, s)
}

// Control implements Controller.
func (s *Sensor) Control(cc fx.ControlContext) error {
	d := s.Driver
	awaiting := d.State() == StateAwaitingBaseline
	d.Pump()

	ground, hasGround := d.GroundElevation()
	if awaiting && hasGround {
		glog.Infof("ground elevation captured: %d", ground)
		cc.Messages().AddMessages(&GroundMsg{Elevation: ground, Time: cc.Time()})
	}

	for {
		val, err := d.GetNextReading()
		if err != nil {
			break
		}
		cc.Messages().AddMessages(&ReadingMsg{
			Altitude:  val,
			Mode:      d.Mode(),
			Ground:    ground,
			HasGround: hasGround,
			Time:      cc.Time(),
		})
	}
	return nil
}

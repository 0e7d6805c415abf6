package mqtt

import (
	"context"
	"encoding/json"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/altimeter.go/pkg/altimeter"
	fx "github.com/robotalks/altimeter.go/pkg/framework"
	"github.com/robotalks/altimeter.go/pkg/msgs"
)

// Topic suffixes under <prefix><id>/.
const (
	TopicAltitude = "altitude"
	TopicGround   = "ground"
	TopicMeta     = "meta"
)

// Client is what Publisher needs from Queue.
type Client interface {
	PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token
}

// Publisher forwards readings from the loop to MQTT.
type Publisher struct {
	ID     string
	Queue  *Queue
	Client Client

	metaJSON []byte
}

// NewPublisher creates a Publisher connecting to brokerURL.
// The retained meta topic is cleared by the broker if the
// connection is lost.
func NewPublisher(brokerURL, id string, meta msgs.Meta) (*Publisher, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+id+"/"+TopicMeta, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("altimeter:" + id)
	}
	p := &Publisher{ID: id, Queue: NewQueue(opts, topicPrefix)}
	p.Client = p.Queue
	if p.metaJSON, err = json.Marshal(&meta); err != nil {
		return nil, err
	}
	p.Queue.OnConnect = func(*Queue) { p.publishMeta() }
	return p, nil
}

// Topic returns the full topic (without prefix) of a suffix.
func (p *Publisher) Topic(suffix string) string {
	return p.ID + "/" + suffix
}

// AddToLoop implements LoopAdder.
func (p *Publisher) AddToLoop(loop *fx.Loop) {
	if p.Queue != nil {
		loop.AddRunnable(fx.NamedRun("mqtt", p))
	}
	loop.AddController(fx.PrLvPublish, p)
}

// Run implements Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	token := p.Queue.Connect()
	go func() {
		if token.Wait() && token.Error() != nil {
			glog.Errorf("MQTT connect error: %v", token.Error())
		}
	}()
	<-ctx.Done()
	p.Client.PubWith(p.Topic(TopicMeta), nil, 1, true).Wait()
	p.Queue.Close()
	return ctx.Err()
}

// Control implements Controller.
func (p *Publisher) Control(cc fx.ControlContext) error {
	var errs fx.AggregatedError
	cc.Messages().ProcessMessages(func(msg fx.Message) bool {
		switch m := msg.(type) {
		case *altimeter.ReadingMsg:
			errs.Add(p.publish(TopicAltitude, msgs.ReadingFrom(m), false))
		case *altimeter.GroundMsg:
			ground := m.Elevation
			errs.Add(p.publish(TopicGround, msgs.Reading{
				Altitude: ground,
				Mode:     altimeter.ModeOnPad.String(),
				Ground:   &ground,
				Time:     m.Time,
			}, true))
		}
		return false
	})
	return errs.Aggregate()
}

func (p *Publisher) publish(suffix string, r msgs.Reading, retain bool) error {
	payload, err := r.Encode()
	if err != nil {
		return err
	}
	p.Client.PubWith(p.Topic(suffix), payload, 0, retain)
	return nil
}

func (p *Publisher) publishMeta() {
	p.Client.PubWith(p.Topic(TopicMeta), p.metaJSON, 1, true)
}

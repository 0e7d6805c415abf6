// Package websocket streams altitude readings to websocket clients.
package websocket

import (
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/altimeter.go/pkg/altimeter"
	fx "github.com/robotalks/altimeter.go/pkg/framework"
	"github.com/robotalks/altimeter.go/pkg/msgs"
)

// DefaultClientBacklog is the number of readings buffered per client.
const DefaultClientBacklog = 16

// Broadcaster fans out readings to connected clients as JSON.
// A client which can't keep up loses readings instead of stalling
// the loop.
type Broadcaster struct {
	Backlog int

	lock    sync.RWMutex
	clients map[int]chan msgs.Reading
	nextID  int
	last    *msgs.Reading
}

// NewBroadcaster creates a Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		Backlog: DefaultClientBacklog,
		clients: make(map[int]chan msgs.Reading),
	}
}

// Subscribe registers a client. The most recent reading, if any, is
// delivered immediately.
func (b *Broadcaster) Subscribe() (int, <-chan msgs.Reading) {
	backlog := b.Backlog
	if backlog <= 0 {
		backlog = DefaultClientBacklog
	}
	ch := make(chan msgs.Reading, backlog)
	b.lock.Lock()
	id := b.nextID
	b.nextID++
	b.clients[id] = ch
	if b.last != nil {
		ch <- *b.last
	}
	b.lock.Unlock()
	return id, ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broadcaster) Unsubscribe(id int) {
	b.lock.Lock()
	if ch, ok := b.clients[id]; ok {
		delete(b.clients, id)
		close(ch)
	}
	b.lock.Unlock()
}

// Clients returns the number of connected clients.
func (b *Broadcaster) Clients() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.clients)
}

// Broadcast sends r to all clients without blocking.
func (b *Broadcaster) Broadcast(r msgs.Reading) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.last = &r
	for id, ch := range b.clients {
		select {
		case ch <- r:
		default:
			glog.V(2).Infof("websocket client %d is slow, dropping reading", id)
		}
	}
}

// AddToLoop implements LoopAdder.
func (b *Broadcaster) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvPublish, b)
}

// Control implements Controller.
func (b *Broadcaster) Control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(func(msg fx.Message) bool {
		if m, ok := msg.(*altimeter.ReadingMsg); ok {
			b.Broadcast(msgs.ReadingFrom(m))
		}
		return false
	})
	return nil
}

// Handler serves the websocket endpoint.
func (b *Broadcaster) Handler() websocket.Handler {
	return websocket.Handler(b.serve)
}

func (b *Broadcaster) serve(conn *websocket.Conn) {
	defer conn.Close()
	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)
	glog.V(2).Infof("websocket client %d connected from %s", id, conn.Request().RemoteAddr)

	// the reader notices the client going away.
	closedCh := make(chan struct{})
	go func() {
		defer close(closedCh)
		var discard []byte
		for websocket.Message.Receive(conn, &discard) == nil {
		}
	}()

	for {
		select {
		case r, ok := <-ch:
			if !ok {
				return
			}
			if err := websocket.JSON.Send(conn, &r); err != nil {
				glog.V(2).Infof("websocket client %d: %v", id, err)
				return
			}
		case <-closedCh:
			glog.V(2).Infof("websocket client %d disconnected", id)
			return
		}
	}
}

package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/robotalks/altimeter.go/pkg/altimeter"
	fx "github.com/robotalks/altimeter.go/pkg/framework"
	"github.com/robotalks/altimeter.go/pkg/msgs"
)

func TestBroadcasterSlowClient(t *testing.T) {
	b := NewBroadcaster()
	b.Backlog = 2
	id, ch := b.Subscribe()
	for i := 0; i < 5; i++ {
		b.Broadcast(msgs.Reading{Altitude: int32(i)})
	}
	require.Equal(t, int32(0), (<-ch).Altitude)
	require.Equal(t, int32(1), (<-ch).Altitude)
	select {
	case r := <-ch:
		t.Fatalf("unexpected reading %v", r)
	default:
	}

	// late subscribers get the last reading.
	id2, ch2 := b.Subscribe()
	require.Equal(t, int32(4), (<-ch2).Altitude)
	require.Equal(t, 2, b.Clients())

	b.Unsubscribe(id)
	b.Unsubscribe(id2)
	_, ok := <-ch
	require.False(t, ok)
	require.Zero(t, b.Clients())
}

func TestBroadcasterOverWebsocket(t *testing.T) {
	b := NewBroadcaster()
	srv := httptest.NewServer(b.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for b.Clients() == 0 {
		require.True(t, time.Now().Before(deadline), "client not registered")
		time.Sleep(time.Millisecond)
	}

	loop := fx.NewLoop()
	loop.Add(b)
	loop.AddController(fx.PrLvSense, fx.ControlFunc(func(cc fx.ControlContext) error {
		cc.Messages().AddMessages(&altimeter.ReadingMsg{Altitude: 88, Time: time.Unix(5, 0)})
		return nil
	}))
	loop.RunIteration(context.Background())

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var r msgs.Reading
	require.NoError(t, websocket.JSON.Receive(conn, &r))
	require.Equal(t, int32(88), r.Altitude)
	require.Equal(t, "launch", r.Mode)
	require.Nil(t, r.Ground)
}

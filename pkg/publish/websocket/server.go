package websocket

import (
	"context"
	"net"
	"net/http"

	"github.com/golang/glog"
)

// DefaultPath is where the stream is served.
const DefaultPath = "/altitude"

// Server serves a Broadcaster over HTTP.
type Server struct {
	Addr        string
	Path        string
	Broadcaster *Broadcaster
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	path := s.Path
	if path == "" {
		path = DefaultPath
	}
	mux := http.NewServeMux()
	mux.Handle(path, s.Broadcaster.Handler())
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	glog.Infof("websocket listening on %s%s", ln.Addr(), path)
	if err = srv.Serve(ln); err == http.ErrServerClosed {
		return ctx.Err()
	}
	return err
}

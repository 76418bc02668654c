package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Listener runs a router on a local address until its context ends.
type Listener struct {
	srv *http.Server
	ln  net.Listener
}

// Listen binds addr and starts serving h in the background.
func Listen(addr string, h http.Handler) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	l := &Listener{
		srv: &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second},
		ln:  ln,
	}
	go l.srv.Serve(ln)
	return l, nil
}

// Addr returns the bound address, useful when addr used port 0.
func (l *Listener) Addr() string {
	return l.ln.Addr().String()
}

// Shutdown stops the server, waiting up to five seconds for open requests.
func (l *Listener) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := l.srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

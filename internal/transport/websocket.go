package transport

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// Subprotocol is negotiated on every gRPC-over-WebSocket connection.
const Subprotocol = "grpc"

// wsListener accepts WebSocket upgrades on one HTTP path and hands each
// upgraded connection to Accept as a net.Conn carrying binary frames.
type wsListener struct {
	inner net.Listener
	srv   *http.Server
	conns chan net.Conn
	done  chan struct{}
	once  sync.Once
}

func listenWebSocket(addr, path string) (net.Listener, error) {
	inner, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	l := &wsListener{
		inner: inner,
		conns: make(chan net.Conn),
		done:  make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, l.upgrade)
	l.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := l.srv.Serve(inner); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("websocket listener stopped", "addr", inner.Addr().String(), "err", err)
		}
	}()
	return l, nil
}

func (l *wsListener) upgrade(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols: []string{Subprotocol},
	})
	if err != nil {
		// Accept has already written the HTTP error response.
		slog.Debug("websocket upgrade rejected", "remote", r.RemoteAddr, "err", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	conn := &wsConn{
		Conn:   websocket.NetConn(ctx, c, websocket.MessageBinary),
		cancel: cancel,
	}

	select {
	case l.conns <- conn:
	case <-l.done:
		c.Close(websocket.StatusGoingAway, "server shutting down") //nolint:errcheck
		cancel()
		return
	}

	// Hold the handler until the gRPC side is done with the connection.
	<-ctx.Done()
}

func (l *wsListener) Accept() (net.Conn, error) {
	select {
	case conn := <-l.conns:
		return conn, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

func (l *wsListener) Close() error {
	var err error
	l.once.Do(func() {
		close(l.done)
		err = l.srv.Close()
	})
	return err
}

func (l *wsListener) Addr() net.Addr {
	return l.inner.Addr()
}

// wsConn releases the upgrade handler when closed.
type wsConn struct {
	net.Conn
	cancel context.CancelFunc
	once   sync.Once
}

func (c *wsConn) Close() error {
	var err error
	c.once.Do(func() {
		err = c.Conn.Close()
		c.cancel()
	})
	return err
}

// Package transport provides URI-based listener creation for the calcd
// gRPC server, following the `serve --listen <URI>` convention.
//
// Supported transports:
//   - tcp://<host>:<port>        TCP socket (default: tcp://:9090)
//   - unix://<path>              Unix domain socket
//   - stdio://                   stdin/stdout pipe (single connection)
//   - ws://<host>:<port>[/path]  gRPC tunnelled over binary WebSocket frames
package transport

import (
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

// DefaultURI is the transport used when --listen is omitted.
const DefaultURI = "tcp://:9090"

// DefaultWebSocketPath is served when a ws:// URI has no path.
const DefaultWebSocketPath = "/grpc"

// Listen parses a transport URI and returns a net.Listener.
func Listen(uri string) (net.Listener, error) {
	switch {
	case strings.HasPrefix(uri, "tcp://"):
		addr := strings.TrimPrefix(uri, "tcp://")
		return net.Listen("tcp", addr)

	case strings.HasPrefix(uri, "unix://"):
		path := strings.TrimPrefix(uri, "unix://")
		// Clean up stale socket files
		os.Remove(path) //nolint:errcheck
		return net.Listen("unix", path)

	case uri == "stdio://" || uri == "stdio":
		return NewStdioListener(os.Stdin, os.Stdout), nil

	case strings.HasPrefix(uri, "ws://"):
		addr, path := SplitWebSocketURI(strings.TrimPrefix(uri, "ws://"))
		return listenWebSocket(addr, path)

	default:
		return nil, fmt.Errorf("unsupported transport URI: %q (expected tcp://, unix://, stdio:// or ws://)", uri)
	}
}

// Scheme returns the transport scheme name for logging.
func Scheme(uri string) string {
	if i := strings.Index(uri, "://"); i >= 0 {
		return uri[:i]
	}
	return uri
}

// SplitWebSocketURI splits "host:port/path" into its address and path,
// defaulting the path to DefaultWebSocketPath.
func SplitWebSocketURI(rest string) (addr, path string) {
	if i := strings.Index(rest, "/"); i >= 0 {
		addr, path = rest[:i], rest[i:]
	} else {
		addr = rest
	}
	if path == "" || path == "/" {
		path = DefaultWebSocketPath
	}
	return addr, path
}

// --- stdio transport ---
// Wraps stdin/stdout as a single-connection net.Listener.

type stdioListener struct {
	once   sync.Once
	connCh chan net.Conn
	done   chan struct{}
}

// NewStdioListener serves a single connection reading r and writing w.
// Once that connection closes, Accept returns net.ErrClosed.
func NewStdioListener(r io.Reader, w io.Writer) net.Listener {
	l := &stdioListener{
		connCh: make(chan net.Conn, 1),
		done:   make(chan struct{}),
	}
	// Deliver exactly one connection wrapping stdin/stdout
	l.connCh <- &stdioConn{
		Reader: r,
		Writer: w,
		closed: l.shutdown,
	}
	return l
}

func (l *stdioListener) Accept() (net.Conn, error) {
	select {
	case <-l.done:
		return nil, net.ErrClosed
	default:
	}
	select {
	case conn := <-l.connCh:
		return conn, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

// shutdown is shared by the listener and its connection: closing either
// ends the stdio session.
func (l *stdioListener) shutdown() {
	l.once.Do(func() { close(l.done) })
}

func (l *stdioListener) Close() error {
	l.shutdown()
	return nil
}

func (l *stdioListener) Addr() net.Addr {
	return stdioAddr{}
}

// stdioConn wraps stdin/stdout as a net.Conn.
type stdioConn struct {
	io.Reader
	io.Writer
	closed func()
}

func (c *stdioConn) Read(p []byte) (int, error)  { return c.Reader.Read(p) }
func (c *stdioConn) Write(p []byte) (int, error) { return c.Writer.Write(p) }

func (c *stdioConn) Close() error {
	c.closed()
	return nil
}

func (c *stdioConn) LocalAddr() net.Addr                { return stdioAddr{} }
func (c *stdioConn) RemoteAddr() net.Addr               { return stdioAddr{} }
func (c *stdioConn) SetDeadline(_ time.Time) error      { return nil }
func (c *stdioConn) SetReadDeadline(_ time.Time) error  { return nil }
func (c *stdioConn) SetWriteDeadline(_ time.Time) error { return nil }

type stdioAddr struct{}

func (stdioAddr) Network() string { return "stdio" }
func (stdioAddr) String() string  { return "stdio://" }

// Package grpcclient connects to a calcd gRPC server and calls
// CalcService. Connections are opened from the same URI schemes the
// server listens on, so a client can reach calcd over TCP, a Unix socket,
// a WebSocket tunnel or a stdio pipe.
package grpcclient

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/organic-programming/run-calc/internal/schema"
	"github.com/organic-programming/run-calc/internal/transport"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"nhooyr.io/websocket"
)

// Client is an open connection to a CalcService.
type Client struct {
	conn    *grpc.ClientConn
	cleanup func() error
}

// New wraps an existing connection. Closing the Client closes conn.
func New(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// Dial opens a connection for a call URI:
//   - grpc://host:port            → TCP
//   - grpc+unix://path            → Unix domain socket
//   - grpc+ws://host:port[/path]  → WebSocket (wss:// with grpc+wss)
//   - grpc+stdio://binary         → launches `binary serve --listen stdio://`
func Dial(ctx context.Context, uri string) (*Client, error) {
	switch {
	case strings.HasPrefix(uri, "grpc+stdio://"):
		return DialStdio(ctx, strings.TrimPrefix(uri, "grpc+stdio://"))
	case strings.HasPrefix(uri, "grpc+unix://"):
		return dialTarget("unix://" + strings.TrimPrefix(uri, "grpc+unix://"))
	case strings.HasPrefix(uri, "grpc+ws://") || strings.HasPrefix(uri, "grpc+wss://"):
		return DialWebSocket(ctx, strings.TrimPrefix(uri, "grpc+"))
	case strings.HasPrefix(uri, "grpc://"):
		address := strings.TrimPrefix(uri, "grpc://")
		if _, _, err := net.SplitHostPort(address); err != nil {
			return nil, fmt.Errorf("grpc:// expects host:port, got %q", address)
		}
		return dialTarget(address)
	default:
		return nil, fmt.Errorf("unsupported call URI: %q (expected grpc://, grpc+unix://, grpc+ws://, grpc+wss:// or grpc+stdio://)", uri)
	}
}

func dialTarget(target string) (*Client, error) {
	conn, err := grpc.NewClient(
		target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", target, err)
	}
	return New(conn), nil
}

// DialWebSocket connects to a calcd server through a WebSocket tunnel.
// URI should be "ws://host:port/path" or "wss://..."; a missing or bare
// "/" path resolves to transport.DefaultWebSocketPath, as on the server.
func DialWebSocket(ctx context.Context, wsURI string) (*Client, error) {
	scheme, rest, _ := strings.Cut(wsURI, "://")
	addr, path := transport.SplitWebSocketURI(rest)
	wsURI = scheme + "://" + addr + path

	c, _, err := websocket.Dial(ctx, wsURI, &websocket.DialOptions{
		Subprotocols: []string{transport.Subprotocol},
	})
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", wsURI, err)
	}

	// The NetConn outlives ctx, which only bounds the handshake.
	wsConn := websocket.NetConn(context.Background(), c, websocket.MessageBinary)

	conn, err := dialSingleConn(ctx, "ws", wsConn)
	if err != nil {
		wsConn.Close()
		return nil, fmt.Errorf("grpc handshake over ws: %w", err)
	}
	return New(conn), nil
}

// dialSingleConn builds a ClientConn over an already-established
// connection. The dialer hands the connection out exactly once.
func dialSingleConn(ctx context.Context, name string, c net.Conn) (*grpc.ClientConn, error) {
	var once sync.Once
	dialer := func(_ context.Context, _ string) (net.Conn, error) {
		var out net.Conn
		once.Do(func() { out = c })
		if out == nil {
			return nil, fmt.Errorf("%s connection already consumed", name)
		}
		return out, nil
	}

	//nolint:staticcheck // DialContext+WithBlock forces the handshake on single-connection transports.
	return grpc.DialContext(ctx,
		"passthrough:///"+name,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(dialer),
		grpc.WithBlock(),
	)
}

// Close closes the connection and releases any process behind it.
func (c *Client) Close() error {
	err := c.conn.Close()
	if c.cleanup != nil {
		if cerr := c.cleanup(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Calculate evaluates op with operands on the server.
func (c *Client) Calculate(ctx context.Context, op string, operands []string) (schema.CalculateResponse, error) {
	req := schema.CalculateRequest{Op: op, Operands: operands}.Encode()
	resp := schema.New("CalculateResponse")
	if err := c.conn.Invoke(ctx, schema.FullMethod("Calculate"), req, resp); err != nil {
		return schema.CalculateResponse{}, fmt.Errorf("call Calculate: %w", err)
	}
	return schema.DecodeCalculateResponse(resp), nil
}

// ListOperations fetches the server's operation registry.
func (c *Client) ListOperations(ctx context.Context) ([]schema.OperationInfo, error) {
	req := schema.New("ListOperationsRequest")
	resp := schema.New("ListOperationsResponse")
	if err := c.conn.Invoke(ctx, schema.FullMethod("ListOperations"), req, resp); err != nil {
		return nil, fmt.Errorf("call ListOperations: %w", err)
	}
	return schema.DecodeListOperationsResponse(resp), nil
}

package grpcclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// DialStdio launches a calcd binary with `serve --listen stdio://` and
// speaks gRPC over its stdin/stdout. Closing the Client sends SIGTERM and
// waits for the process.
func DialStdio(ctx context.Context, binaryPath string) (*Client, error) {
	cmd := exec.Command(binaryPath, "serve", "--listen", "stdio://")
	cmd.Stderr = os.Stderr

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", binaryPath, err)
	}
	kill := func() {
		cmd.Process.Kill() //nolint:errcheck
		cmd.Wait()         //nolint:errcheck
	}

	// Wait for the server to write its HTTP/2 SETTINGS frame. Reading the
	// first byte proves the server is alive; it is replayed via MultiReader.
	firstByte := make([]byte, 1)
	readCh := make(chan error, 1)
	go func() {
		_, err := io.ReadFull(stdoutPipe, firstByte)
		readCh <- err
	}()
	select {
	case err := <-readCh:
		if err != nil {
			kill()
			return nil, fmt.Errorf("server did not start: %w", err)
		}
	case <-ctx.Done():
		kill()
		return nil, fmt.Errorf("server startup timeout")
	}

	pConn := &pipeConn{
		reader: io.MultiReader(bytes.NewReader(firstByte), stdoutPipe),
		writer: stdinPipe,
	}

	conn, err := dialSingleConn(ctx, "stdio", pConn)
	if err != nil {
		kill()
		return nil, fmt.Errorf("create grpc client over stdio: %w", err)
	}

	client := New(conn)
	client.cleanup = func() error { return terminateProcess(cmd) }
	return client, nil
}

func terminateProcess(cmd *exec.Cmd) error {
	if cmd.Process != nil {
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("send SIGTERM: %w", err)
		}
	}

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- cmd.Wait()
	}()

	select {
	case err := <-waitCh:
		var exitErr *exec.ExitError
		if err == nil || errors.Is(err, os.ErrProcessDone) || errors.As(err, &exitErr) {
			return nil
		}
		return fmt.Errorf("wait process exit: %w", err)
	case <-time.After(3 * time.Second):
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-waitCh
		return fmt.Errorf("process did not exit after SIGTERM")
	}
}

// pipeConn wraps a process's stdout reader and stdin writer as a net.Conn.
type pipeConn struct {
	reader io.Reader
	writer io.WriteCloser
}

func (c *pipeConn) Read(p []byte) (int, error)         { return c.reader.Read(p) }
func (c *pipeConn) Write(p []byte) (int, error)        { return c.writer.Write(p) }
func (c *pipeConn) Close() error                       { return c.writer.Close() }
func (c *pipeConn) LocalAddr() net.Addr                { return pipeAddr{} }
func (c *pipeConn) RemoteAddr() net.Addr               { return pipeAddr{} }
func (c *pipeConn) SetDeadline(_ time.Time) error      { return nil }
func (c *pipeConn) SetReadDeadline(_ time.Time) error  { return nil }
func (c *pipeConn) SetWriteDeadline(_ time.Time) error { return nil }

type pipeAddr struct{}

func (pipeAddr) Network() string { return "pipe" }
func (pipeAddr) String() string  { return "stdio://" }

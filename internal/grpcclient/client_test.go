package grpcclient

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/organic-programming/run-calc/internal/server"
	"github.com/organic-programming/run-calc/internal/transport"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1024 * 1024

// stdioServerEnv makes the test binary act as `calcd serve --listen stdio://`
// so DialStdio can launch it.
const stdioServerEnv = "CALCD_TEST_STDIO_SERVER"

func TestMain(m *testing.M) {
	if os.Getenv(stdioServerEnv) == "1" {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		if err := server.ListenAndServe("stdio://", true, logger); err != nil {
			os.Exit(3)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// startBufServer launches an in-memory calcd server with reflection.
func startBufServer(t *testing.T) *Client {
	t.Helper()

	lis := bufconn.Listen(bufSize)
	s := grpc.NewServer()
	if err := server.Register(s, &server.Server{}); err != nil {
		t.Fatal(err)
	}
	reflection.Register(s)
	go func() { _ = s.Serve(lis) }()

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}

	client := New(conn)
	t.Cleanup(func() {
		client.Close()
		s.Stop()
	})
	return client
}

func TestCalculate(t *testing.T) {
	client := startBufServer(t)

	resp, err := client.Calculate(context.Background(), "add", []string{"1e2", "50"})
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if resp.ExitCode != 0 || resp.Output != "150.0\n" || resp.Result != "150.0" {
		t.Errorf("got %+v", resp)
	}
}

func TestCalculateDomainErrorIsNotAnRPCError(t *testing.T) {
	client := startBufServer(t)

	resp, err := client.Calculate(context.Background(), "divide", []string{"5", "0"})
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if resp.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", resp.ExitCode)
	}
	if resp.Outcome != "OUTCOME_OPERATION_ERROR" {
		t.Errorf("Outcome = %q", resp.Outcome)
	}
}

func TestListOperations(t *testing.T) {
	client := startBufServer(t)

	ops, err := client.ListOperations(context.Background())
	if err != nil {
		t.Fatalf("ListOperations failed: %v", err)
	}
	if len(ops) != 8 {
		t.Fatalf("got %d operations, want 8", len(ops))
	}
}

func TestListMethodsViaReflection(t *testing.T) {
	client := startBufServer(t)

	methods, err := client.ListMethods(context.Background())
	if err != nil {
		t.Fatalf("ListMethods failed: %v", err)
	}
	joined := strings.Join(methods, ",")
	for _, want := range []string{"calc.v1.CalcService/Calculate", "calc.v1.CalcService/ListOperations"} {
		if !strings.Contains(joined, want) {
			t.Errorf("methods %v missing %s", methods, want)
		}
	}
	if strings.Contains(joined, "ServerReflection") {
		t.Errorf("reflection service leaked into %v", methods)
	}
}

func TestDialOverWebSocket(t *testing.T) {
	lis, err := transport.Listen("ws://127.0.0.1:0/grpc")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := grpc.NewServer()
	if err := server.Register(s, &server.Server{}); err != nil {
		t.Fatal(err)
	}
	go func() { _ = s.Serve(lis) }()
	defer s.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := Dial(ctx, "grpc+ws://"+lis.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	resp, err := client.Calculate(ctx, "avg", []string{"10", "20"})
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if resp.Output != "15.0\n" {
		t.Errorf("Output = %q, want %q", resp.Output, "15.0\n")
	}
}

func TestDialWebSocketTrailingSlash(t *testing.T) {
	lis, err := transport.Listen("ws://127.0.0.1:0/")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := grpc.NewServer()
	if err := server.Register(s, &server.Server{}); err != nil {
		t.Fatal(err)
	}
	go func() { _ = s.Serve(lis) }()
	defer s.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := Dial(ctx, "grpc+ws://"+lis.Addr().String()+"/")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	resp, err := client.Calculate(ctx, "add", []string{"2", "3"})
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if resp.Output != "5\n" {
		t.Errorf("Output = %q, want %q", resp.Output, "5\n")
	}
}

func TestDialOverStdio(t *testing.T) {
	self, err := os.Executable()
	if err != nil {
		t.Fatalf("executable: %v", err)
	}
	t.Setenv(stdioServerEnv, "1")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := Dial(ctx, "grpc+stdio://"+self)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}

	resp, err := client.Calculate(ctx, "multiply", []string{"6", "7"})
	if err != nil {
		client.Close()
		t.Fatalf("Calculate failed: %v", err)
	}
	if resp.ExitCode != 0 || resp.Output != "42\n" {
		t.Errorf("got %+v", resp)
	}

	resp, err = client.Calculate(ctx, "divide", []string{"1", "0"})
	if err != nil {
		client.Close()
		t.Fatalf("second Calculate failed: %v", err)
	}
	if resp.ExitCode != 1 {
		t.Errorf("divide by zero ExitCode = %d, want 1", resp.ExitCode)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close returned %v, want nil", err)
	}
}

func TestDialStdioMissingBinary(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := Dial(ctx, "grpc+stdio://"+t.TempDir()+"/no-such-calcd"); err == nil {
		t.Fatal("Dial succeeded for a missing binary")
	}
}

func TestDialOverTCP(t *testing.T) {
	lis, err := transport.Listen("tcp://127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := grpc.NewServer()
	if err := server.Register(s, &server.Server{}); err != nil {
		t.Fatal(err)
	}
	go func() { _ = s.Serve(lis) }()
	defer s.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := Dial(ctx, "grpc://"+lis.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	resp, err := client.Calculate(ctx, "pow", []string{"2", "3"})
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if resp.ExitCode != 2 || !strings.Contains(resp.Output, "Unknown operation") || !strings.Contains(resp.Output, "Usage:") {
		t.Errorf("got %+v", resp)
	}
}

func TestDialRejectsBadURIs(t *testing.T) {
	for _, uri := range []string{"http://localhost:1", "grpc://no-port", "tcp://:9090"} {
		if _, err := Dial(context.Background(), uri); err == nil {
			t.Errorf("Dial(%q) succeeded, want error", uri)
		}
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/organic-programming/run-calc/internal/calc"
	"github.com/organic-programming/run-calc/internal/grpcclient"
	"github.com/organic-programming/run-calc/internal/server"
	"github.com/organic-programming/run-calc/internal/transport"
)

// ExitTransportError is returned by calcd when the server cannot be
// reached or an RPC fails.
const ExitTransportError = 3

// ListenEnv overrides transport.DefaultURI for `calcd serve`.
const ListenEnv = "CALCD_LISTEN"

// callTimeout bounds one `calcd call`, including process start for stdio.
const callTimeout = 10 * time.Second

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr

	listenAndServe = server.ListenAndServe
)

// ExitError carries the exit code for a command-line failure.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func usageErrorf(format string, args ...any) error {
	return &ExitError{Code: calc.ExitUsageError, Message: fmt.Sprintf(format, args...)}
}

// Calcd dispatches a calcd command and returns an exit code.
func Calcd(args []string, version string) int {
	if len(args) == 0 {
		PrintCalcdUsage()
		return calc.ExitUsageError
	}

	cmd := args[0]
	rest := args[1:]

	switch cmd {
	case "serve":
		return cmdServe(rest)
	case "call":
		return cmdCall(rest)
	case "ops":
		return cmdOps(rest)
	case "version":
		fmt.Fprintf(stdout, "calcd %s\n", version)
		return 0
	case "help", "--help", "-h":
		PrintCalcdUsage()
		return 0
	default:
		fmt.Fprintf(stderr, "calcd: unknown command %q\n", cmd)
		fmt.Fprintln(stderr, "Run 'calcd help' for usage.")
		return calc.ExitUsageError
	}
}

// PrintCalcdUsage displays the help text.
func PrintCalcdUsage() {
	fmt.Fprint(stdout, `calcd: run-calc over gRPC

Server:
  calcd serve [--listen <URI>]           start the CalcService server
        [--no-reflect]                   disable gRPC server reflection
        [--log-level debug|info|warn|error] [--log-format text|json]

  Listen URIs: tcp://<host>:<port> (default tcp://:9090 or $CALCD_LISTEN),
               unix://<path>, stdio://, ws://<host>:<port>[/path]

Client:
  calcd call <URI>                       list the server's methods
  calcd call <URI> <op> <num>...         evaluate remotely, exit with the remote code
        [--format text|json|yaml]

  Call URIs: grpc://<host>:<port>, grpc+unix://<path>,
             grpc+ws://<host>:<port>[/path], grpc+wss://..., grpc+stdio://<binary>

Local:
  calcd ops [--format text|json|yaml]    list operations and aliases
  calcd version                          show calcd version
  calcd help                             this message
`)
}

// --- serve ---

type serveOptions struct {
	listenURI string
	reflect   bool
	logLevel  string
	logFormat string
}

func parseServeFlags(args []string) (serveOptions, error) {
	opts := serveOptions{
		listenURI: flagOrDefault(args, "--listen", os.Getenv(ListenEnv)),
		reflect:   !hasFlag(args, "--no-reflect"),
		logLevel:  strings.ToLower(flagOrDefault(args, "--log-level", "info")),
		logFormat: strings.ToLower(flagOrDefault(args, "--log-format", "text")),
	}
	if opts.listenURI == "" {
		opts.listenURI = transport.DefaultURI
	}

	switch opts.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return serveOptions{}, usageErrorf("invalid --log-level %q: must be debug, info, warn or error", opts.logLevel)
	}
	if opts.logFormat != "text" && opts.logFormat != "json" {
		return serveOptions{}, usageErrorf("invalid --log-format %q: must be text or json", opts.logFormat)
	}
	return opts, nil
}

func cmdServe(args []string) int {
	opts, err := parseServeFlags(args)
	if err != nil {
		return reportError("serve", err)
	}

	// Logs go to stderr: with stdio:// the gRPC stream owns stdout.
	logger := newLogger(opts.logLevel, opts.logFormat, stderr)
	if err := listenAndServe(opts.listenURI, opts.reflect, logger); err != nil {
		fmt.Fprintf(stderr, "calcd serve: %v\n", err)
		return ExitTransportError
	}
	return 0
}

// --- call ---

func cmdCall(args []string) int {
	format, err := ParseFormat(flagValue(args, "--format"))
	if err != nil {
		return reportError("call", usageErrorf("%v", err))
	}
	positional := withoutFlag(args, "--format")
	if len(positional) < 1 {
		fmt.Fprintln(stderr, "calcd call: URI required")
		fmt.Fprintln(stderr, "usage: calcd call <URI> [<op> <num>...]")
		return calc.ExitUsageError
	}
	uri := positional[0]

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	client, err := grpcclient.Dial(ctx, uri)
	if err != nil {
		fmt.Fprintf(stderr, "calcd call: %v\n", err)
		return ExitTransportError
	}
	defer client.Close()

	if len(positional) == 1 {
		methods, err := client.ListMethods(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "calcd call: %v\n", err)
			return ExitTransportError
		}
		fmt.Fprintf(stdout, "Available methods at %s:\n", uri)
		for _, m := range methods {
			fmt.Fprintf(stdout, "  %s\n", m)
		}
		return 0
	}

	resp, err := client.Calculate(ctx, positional[1], positional[2:])
	if err != nil {
		fmt.Fprintf(stderr, "calcd call: %v\n", err)
		return ExitTransportError
	}

	fmt.Fprint(stdout, FormatCalculate(format, resp))
	return int(resp.ExitCode)
}

// --- ops ---

func cmdOps(args []string) int {
	format, err := ParseFormat(flagValue(args, "--format"))
	if err != nil {
		return reportError("ops", usageErrorf("%v", err))
	}

	fmt.Fprint(stdout, FormatOperations(format, server.OperationInfos()))
	return 0
}

func reportError(verb string, err error) int {
	fmt.Fprintf(stderr, "calcd %s: %v\n", verb, err)
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

func newLogger(levelStr, formatStr string, w io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// --- Flag helpers ---

// flagValue extracts --key value from args. Returns "" if not found.
func flagValue(args []string, key string) string {
	for i, a := range args {
		if a == key && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// flagOrDefault returns the flag value if present, else the default.
func flagOrDefault(args []string, key, defaultVal string) string {
	if v := flagValue(args, key); v != "" {
		return v
	}
	return defaultVal
}

// hasFlag reports whether a boolean flag is present.
func hasFlag(args []string, key string) bool {
	for _, a := range args {
		if a == key {
			return true
		}
	}
	return false
}

// withoutFlag drops every "--key value" pair from args.
func withoutFlag(args []string, key string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		if args[i] == key {
			i++
			continue
		}
		out = append(out, args[i])
	}
	return out
}

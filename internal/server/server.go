// Package server implements calcd's gRPC service, the network facet of
// run-calc. Every Calculate call runs the same dispatcher as the command
// line and returns what the command line would have printed.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/organic-programming/run-calc/internal/calc"
	"github.com/organic-programming/run-calc/internal/schema"
	"github.com/organic-programming/run-calc/internal/transport"

	"google.golang.org/grpc"
	grpcReflection "google.golang.org/grpc/reflection"
	"google.golang.org/protobuf/types/dynamicpb"
)

// CalcServiceServer is the handler contract behind ServiceDesc.
type CalcServiceServer interface {
	Calculate(context.Context, *dynamicpb.Message) (*dynamicpb.Message, error)
	ListOperations(context.Context, *dynamicpb.Message) (*dynamicpb.Message, error)
}

// Server implements CalcServiceServer.
type Server struct {
	Logger *slog.Logger
}

var _ CalcServiceServer = (*Server)(nil)

// Calculate evaluates op and operands as one command-line invocation.
func (s *Server) Calculate(ctx context.Context, req *dynamicpb.Message) (*dynamicpb.Message, error) {
	in := schema.DecodeCalculateRequest(req)

	argv := make([]string, 0, len(in.Operands)+1)
	argv = append(argv, in.Op)
	argv = append(argv, in.Operands...)
	res := calc.Evaluate(argv)

	s.logger().Debug("calculate",
		"op", in.Op,
		"operands", len(in.Operands),
		"outcome", res.Outcome.String(),
		"exit_code", res.ExitCode(),
	)

	return ResponseFor(res).Encode(), nil
}

// ListOperations returns the operation registry.
func (s *Server) ListOperations(ctx context.Context, _ *dynamicpb.Message) (*dynamicpb.Message, error) {
	return schema.EncodeListOperationsResponse(OperationInfos()), nil
}

// OperationInfos describes every registered operation name, sorted.
func OperationInfos() []schema.OperationInfo {
	ops := calc.Operations()
	infos := make([]schema.OperationInfo, 0, len(ops))
	for _, op := range ops {
		infos = append(infos, schema.OperationInfo{
			Name:      op.Name,
			Canonical: op.Canonical,
			Arity:     arityToProto(op.Arity),
		})
	}
	return infos
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// ResponseFor converts a dispatcher result to the wire response.
func ResponseFor(res calc.Result) schema.CalculateResponse {
	resp := schema.CalculateResponse{
		ExitCode: int32(res.ExitCode()),
		Output:   res.Text(),
		Outcome:  outcomeToProto(res.Outcome),
		Message:  res.Message,
	}
	if res.Outcome == calc.Success {
		resp.Result = res.Value.String()
	}
	return resp
}

// Register adds CalcService to s, loading the schema first.
func Register(s *grpc.Server, srv CalcServiceServer) error {
	if _, err := schema.Load(); err != nil {
		return err
	}
	s.RegisterService(&ServiceDesc, srv)
	return nil
}

// ListenAndServe starts the gRPC server on the given transport URI.
// Supported URIs: tcp://<host>:<port>, unix://<path>, stdio://, ws://<host>:<port>[/path]
func ListenAndServe(listenURI string, reflect bool, logger *slog.Logger) error {
	lis, err := transport.Listen(listenURI)
	if err != nil {
		return fmt.Errorf("listen %s: %w", listenURI, err)
	}
	return Serve(lis, listenURI, reflect, logger)
}

// Serve runs CalcService on lis until the listener closes. A listener
// closed by its own session end, as stdio:// is when the peer hangs up,
// is a clean return.
func Serve(lis net.Listener, listenURI string, reflect bool, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	s := grpc.NewServer()
	if err := Register(s, &Server{Logger: logger}); err != nil {
		lis.Close()
		return err
	}
	if reflect {
		grpcReflection.Register(s)
	}

	logger.Info("calcd gRPC server listening",
		"uri", listenURI,
		"transport", transport.Scheme(listenURI),
		"addr", lis.Addr().String(),
		"reflection", reflect,
	)
	if err := s.Serve(lis); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	logger.Info("calcd gRPC server stopped", "uri", listenURI)
	return nil
}

// --- Helpers ---

func outcomeToProto(o calc.Outcome) string {
	switch o {
	case calc.Success:
		return "OUTCOME_SUCCESS"
	case calc.UsageFailure:
		return "OUTCOME_USAGE_ERROR"
	case calc.ParseFailure:
		return "OUTCOME_PARSE_ERROR"
	case calc.OperationFailure:
		return "OUTCOME_OPERATION_ERROR"
	default:
		return "OUTCOME_UNSPECIFIED"
	}
}

func arityToProto(a calc.Arity) string {
	switch a {
	case calc.Binary:
		return "ARITY_BINARY"
	case calc.Variadic:
		return "ARITY_VARIADIC"
	default:
		return "ARITY_UNSPECIFIED"
	}
}

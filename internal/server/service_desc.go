package server

import (
	"context"

	"github.com/organic-programming/run-calc/internal/schema"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/dynamicpb"
)

// ServiceDesc describes calc.v1.CalcService for grpc.Server.RegisterService.
// Requests are decoded into dynamicpb messages built from the runtime schema.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: schema.ServiceName,
	HandlerType: (*CalcServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Calculate",
			Handler:    calculateHandler,
		},
		{
			MethodName: "ListOperations",
			Handler:    listOperationsHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: schema.File,
}

func calculateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := schema.New("CalculateRequest")
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CalcServiceServer).Calculate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: schema.FullMethod("Calculate"),
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CalcServiceServer).Calculate(ctx, req.(*dynamicpb.Message))
	}
	return interceptor(ctx, in, info, handler)
}

func listOperationsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := schema.New("ListOperationsRequest")
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CalcServiceServer).ListOperations(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: schema.FullMethod("ListOperations"),
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CalcServiceServer).ListOperations(ctx, req.(*dynamicpb.Message))
	}
	return interceptor(ctx, in, info, handler)
}

package grpcclient

import (
	"context"
	"fmt"

	"google.golang.org/grpc/reflection/grpc_reflection_v1alpha"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

// ListMethods returns every service method the server exposes, as
// "package.Service/Method", using gRPC server reflection.
func (c *Client) ListMethods(ctx context.Context) ([]string, error) {
	refClient := grpc_reflection_v1alpha.NewServerReflectionClient(c.conn)
	stream, err := refClient.ServerReflectionInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("reflection not available: %w", err)
	}
	defer stream.CloseSend() //nolint:errcheck

	if err := stream.Send(&grpc_reflection_v1alpha.ServerReflectionRequest{
		MessageRequest: &grpc_reflection_v1alpha.ServerReflectionRequest_ListServices{
			ListServices: "",
		},
	}); err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	resp, err := stream.Recv()
	if err != nil {
		return nil, fmt.Errorf("list services response: %w", err)
	}
	listResult := resp.GetListServicesResponse()
	if listResult == nil {
		return nil, fmt.Errorf("no services found")
	}

	var methods []string
	for _, svc := range listResult.Service {
		if isReflectionService(svc.Name) {
			continue
		}
		desc, err := resolveService(stream, svc.Name)
		if err != nil {
			return nil, err
		}
		ms := desc.Methods()
		for i := 0; i < ms.Len(); i++ {
			methods = append(methods, fmt.Sprintf("%s/%s", svc.Name, ms.Get(i).Name()))
		}
	}
	return methods, nil
}

func isReflectionService(name string) bool {
	return name == "grpc.reflection.v1alpha.ServerReflection" ||
		name == "grpc.reflection.v1.ServerReflection"
}

// resolveService fetches the file defining serviceName and builds its
// descriptor. CalcService's schema has no imports, so only the returned
// files are needed.
func resolveService(stream grpc_reflection_v1alpha.ServerReflection_ServerReflectionInfoClient, serviceName string) (protoreflect.ServiceDescriptor, error) {
	if err := stream.Send(&grpc_reflection_v1alpha.ServerReflectionRequest{
		MessageRequest: &grpc_reflection_v1alpha.ServerReflectionRequest_FileContainingSymbol{
			FileContainingSymbol: serviceName,
		},
	}); err != nil {
		return nil, err
	}

	resp, err := stream.Recv()
	if err != nil {
		return nil, err
	}

	fdResp := resp.GetFileDescriptorResponse()
	if fdResp == nil {
		return nil, fmt.Errorf("no file descriptor for %s", serviceName)
	}

	fds := &descriptorpb.FileDescriptorSet{}
	seen := make(map[string]struct{})
	for _, b := range fdResp.FileDescriptorProto {
		fd := &descriptorpb.FileDescriptorProto{}
		if err := proto.Unmarshal(b, fd); err != nil {
			return nil, fmt.Errorf("unmarshal file descriptor: %w", err)
		}
		if _, dup := seen[fd.GetName()]; dup {
			continue
		}
		seen[fd.GetName()] = struct{}{}
		fds.File = append(fds.File, fd)
	}

	files, err := protodesc.NewFiles(fds)
	if err != nil {
		return nil, fmt.Errorf("build file descriptors: %w", err)
	}
	desc, err := files.FindDescriptorByName(protoreflect.FullName(serviceName))
	if err != nil {
		return nil, fmt.Errorf("find service %s: %w", serviceName, err)
	}
	sd, ok := desc.(protoreflect.ServiceDescriptor)
	if !ok {
		return nil, fmt.Errorf("%s is not a service", serviceName)
	}
	return sd, nil
}

// Package schema loads the CalcService protobuf schema at runtime.
//
// The .proto source is embedded and parsed with protoparse, then registered
// in protoregistry.GlobalFiles so gRPC server reflection can serve it.
// Messages are handled as dynamicpb values; there is no generated code.
package schema

import (
	"embed"
	"fmt"
	"sync"

	"github.com/jhump/protoreflect/desc/protoparse"

	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/dynamicpb"
)

// File is the schema's path inside the embedded tree and in the registry.
const File = "calc/v1/calc.proto"

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "calc.v1.CalcService"

//go:embed calc/v1/calc.proto
var sources embed.FS

var (
	loadOnce sync.Once
	loaded   protoreflect.FileDescriptor
	loadErr  error
)

// Load parses and registers the schema. Later calls return the same
// descriptor.
func Load() (protoreflect.FileDescriptor, error) {
	loadOnce.Do(func() {
		loaded, loadErr = parse()
		if loadErr != nil {
			return
		}
		if _, err := protoregistry.GlobalFiles.FindFileByPath(File); err == nil {
			return
		}
		if err := protoregistry.GlobalFiles.RegisterFile(loaded); err != nil {
			loadErr = fmt.Errorf("register %s: %w", File, err)
		}
	})
	return loaded, loadErr
}

// MustLoad is Load for package initialisation; it panics on error.
func MustLoad() protoreflect.FileDescriptor {
	fd, err := Load()
	if err != nil {
		panic(err)
	}
	return fd
}

func parse() (protoreflect.FileDescriptor, error) {
	src, err := sources.ReadFile(File)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s: %w", File, err)
	}

	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{
			File: string(src),
		}),
	}
	fds, err := parser.ParseFiles(File)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", File, err)
	}
	if len(fds) != 1 {
		return nil, fmt.Errorf("parse %s: got %d files, want 1", File, len(fds))
	}

	fd, err := protodesc.NewFile(fds[0].AsFileDescriptorProto(), protoregistry.GlobalFiles)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", File, err)
	}
	return fd, nil
}

// Service returns the CalcService descriptor.
func Service() protoreflect.ServiceDescriptor {
	return MustLoad().Services().ByName("CalcService")
}

// Message returns the descriptor of a top-level message, e.g. "CalculateRequest".
func Message(name protoreflect.Name) protoreflect.MessageDescriptor {
	md := MustLoad().Messages().ByName(name)
	if md == nil {
		panic(fmt.Sprintf("schema: message %q not in %s", name, File))
	}
	return md
}

// New returns an empty dynamic message of the named type.
func New(name protoreflect.Name) *dynamicpb.Message {
	return dynamicpb.NewMessage(Message(name))
}

// FullMethod returns the gRPC path of a CalcService method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

package schema

import (
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// CalculateRequest is the Go view of calc.v1.CalculateRequest.
type CalculateRequest struct {
	Op       string
	Operands []string
}

// CalculateResponse is the Go view of calc.v1.CalculateResponse.
type CalculateResponse struct {
	ExitCode int32
	Output   string
	Outcome  string
	Result   string
	Message  string
}

// OperationInfo is the Go view of calc.v1.Operation.
type OperationInfo struct {
	Name      string
	Canonical string
	Arity     string
}

// Encode builds the dynamic message for r.
func (r CalculateRequest) Encode() *dynamicpb.Message {
	msg := New("CalculateRequest")
	fields := msg.Descriptor().Fields()
	msg.Set(fields.ByName("op"), protoreflect.ValueOfString(r.Op))
	list := msg.Mutable(fields.ByName("operands")).List()
	for _, o := range r.Operands {
		list.Append(protoreflect.ValueOfString(o))
	}
	return msg
}

// DecodeCalculateRequest reads a calc.v1.CalculateRequest.
func DecodeCalculateRequest(msg protoreflect.Message) CalculateRequest {
	fields := msg.Descriptor().Fields()
	req := CalculateRequest{Op: msg.Get(fields.ByName("op")).String()}
	list := msg.Get(fields.ByName("operands")).List()
	for i := 0; i < list.Len(); i++ {
		req.Operands = append(req.Operands, list.Get(i).String())
	}
	return req
}

// Encode builds the dynamic message for r. Outcome is an enum value name
// such as "OUTCOME_SUCCESS"; unknown names encode as 0.
func (r CalculateResponse) Encode() *dynamicpb.Message {
	msg := New("CalculateResponse")
	fields := msg.Descriptor().Fields()
	msg.Set(fields.ByName("exit_code"), protoreflect.ValueOfInt32(r.ExitCode))
	msg.Set(fields.ByName("output"), protoreflect.ValueOfString(r.Output))
	msg.Set(fields.ByName("outcome"), enumValue(fields.ByName("outcome"), r.Outcome))
	msg.Set(fields.ByName("result"), protoreflect.ValueOfString(r.Result))
	msg.Set(fields.ByName("message"), protoreflect.ValueOfString(r.Message))
	return msg
}

// DecodeCalculateResponse reads a calc.v1.CalculateResponse.
func DecodeCalculateResponse(msg protoreflect.Message) CalculateResponse {
	fields := msg.Descriptor().Fields()
	return CalculateResponse{
		ExitCode: int32(msg.Get(fields.ByName("exit_code")).Int()),
		Output:   msg.Get(fields.ByName("output")).String(),
		Outcome:  enumName(fields.ByName("outcome"), msg.Get(fields.ByName("outcome"))),
		Result:   msg.Get(fields.ByName("result")).String(),
		Message:  msg.Get(fields.ByName("message")).String(),
	}
}

// EncodeListOperationsResponse builds a calc.v1.ListOperationsResponse.
func EncodeListOperationsResponse(ops []OperationInfo) *dynamicpb.Message {
	msg := New("ListOperationsResponse")
	opsField := msg.Descriptor().Fields().ByName("operations")
	list := msg.Mutable(opsField).List()
	for _, op := range ops {
		entry := list.NewElement().Message()
		fields := entry.Descriptor().Fields()
		entry.Set(fields.ByName("name"), protoreflect.ValueOfString(op.Name))
		entry.Set(fields.ByName("canonical"), protoreflect.ValueOfString(op.Canonical))
		entry.Set(fields.ByName("arity"), enumValue(fields.ByName("arity"), op.Arity))
		list.Append(protoreflect.ValueOfMessage(entry))
	}
	return msg
}

// DecodeListOperationsResponse reads a calc.v1.ListOperationsResponse.
func DecodeListOperationsResponse(msg protoreflect.Message) []OperationInfo {
	list := msg.Get(msg.Descriptor().Fields().ByName("operations")).List()
	ops := make([]OperationInfo, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		entry := list.Get(i).Message()
		fields := entry.Descriptor().Fields()
		ops = append(ops, OperationInfo{
			Name:      entry.Get(fields.ByName("name")).String(),
			Canonical: entry.Get(fields.ByName("canonical")).String(),
			Arity:     enumName(fields.ByName("arity"), entry.Get(fields.ByName("arity"))),
		})
	}
	return ops
}

func enumValue(fd protoreflect.FieldDescriptor, name string) protoreflect.Value {
	if v := fd.Enum().Values().ByName(protoreflect.Name(name)); v != nil {
		return protoreflect.ValueOfEnum(v.Number())
	}
	return protoreflect.ValueOfEnum(0)
}

func enumName(fd protoreflect.FieldDescriptor, v protoreflect.Value) string {
	if ev := fd.Enum().Values().ByNumber(v.Enum()); ev != nil {
		return string(ev.Name())
	}
	return ""
}

package calc

import (
	"sort"
	"strings"
)

// Arity classifies how many operands an operation takes.
type Arity int

const (
	// Binary operations take exactly two operands.
	Binary Arity = iota + 1
	// Variadic operations take the whole operand list.
	Variadic
)

func (a Arity) String() string {
	switch a {
	case Binary:
		return "binary"
	case Variadic:
		return "variadic"
	default:
		return "unknown"
	}
}

// Operation is one registry entry. Aliases share the canonical
// operation's function and arity.
type Operation struct {
	Name      string
	Canonical string
	Arity     Arity

	binary   func(a, b Number) (Number, error)
	variadic func(values ...Number) (Number, error)
}

// Apply invokes the operation. Binary operations expect exactly two
// operands; callers check arity first.
func (op Operation) Apply(operands []Number) (Number, error) {
	if op.Arity == Binary {
		if len(operands) != 2 {
			return Number{}, &UsageError{Message: op.Name + " requires exactly 2 numbers", ShowUsage: true}
		}
		return op.binary(operands[0], operands[1])
	}
	return op.variadic(operands...)
}

func binaryOp(canonical string, fn func(a, b Number) (Number, error)) Operation {
	return Operation{Canonical: canonical, Arity: Binary, binary: fn}
}

func variadicOp(canonical string, fn func(values ...Number) (Number, error)) Operation {
	return Operation{Canonical: canonical, Arity: Variadic, variadic: fn}
}

// registry is built once and never written after init.
var registry = func() map[string]Operation {
	add := binaryOp("add", Add)
	subtract := binaryOp("subtract", Subtract)
	multiply := binaryOp("multiply", Multiply)
	divide := binaryOp("divide", Divide)
	average := variadicOp("average", Average)

	entries := map[string]Operation{
		"add":      add,
		"subtract": subtract,
		"mul":      multiply,
		"multiply": multiply,
		"div":      divide,
		"divide":   divide,
		"average":  average,
		"avg":      average,
	}
	for name, op := range entries {
		op.Name = name
		entries[name] = op
	}
	return entries
}()

// Lookup resolves an operation name. Matching is exact and case-sensitive.
func Lookup(name string) (Operation, bool) {
	op, ok := registry[name]
	return op, ok
}

// Operations returns every registry entry, aliases included, sorted by name.
func Operations() []Operation {
	ops := make([]Operation, 0, len(registry))
	for _, op := range registry {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].Name < ops[j].Name
	})
	return ops
}

// Usage is the help text printed with every usage error.
func Usage() string {
	var b strings.Builder
	b.WriteString("Usage: run-calc <op> <num1> [num2] [num3...]\n")
	b.WriteString("Binary ops: add, subtract, multiply (or mul), divide (or div)\n")
	b.WriteString("Variadic ops: average (or avg)\n")
	return b.String()
}

package calc

import (
	"errors"
	"fmt"
)

// Exit codes returned by the dispatcher.
const (
	ExitSuccess        = 0
	ExitOperationError = 1
	ExitUsageError     = 2
)

// Outcome tags a Result.
type Outcome int

const (
	Success Outcome = iota + 1
	UsageFailure
	ParseFailure
	OperationFailure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case UsageFailure:
		return "usage_error"
	case ParseFailure:
		return "parse_error"
	case OperationFailure:
		return "operation_error"
	default:
		return "unknown"
	}
}

// UsageError reports a malformed invocation.
type UsageError struct {
	Message   string
	ShowUsage bool
}

func (e *UsageError) Error() string { return e.Message }

// Result is the outcome of one invocation.
type Result struct {
	Outcome Outcome
	// Value is set on Success.
	Value Number
	// Message is the diagnostic line printed for failures.
	Message string
	// ShowUsage requests the usage text after Message.
	ShowUsage bool
}

// ExitCode maps the outcome to the process exit code.
func (r Result) ExitCode() int {
	switch r.Outcome {
	case Success:
		return ExitSuccess
	case OperationFailure:
		return ExitOperationError
	default:
		return ExitUsageError
	}
}

// Text is what the command line prints for r.
func (r Result) Text() string {
	var out string
	switch {
	case r.Outcome == Success:
		out = r.Value.String() + "\n"
	case r.Message != "":
		out = r.Message + "\n"
	}
	if r.ShowUsage {
		out += Usage()
	}
	return out
}

// Evaluate runs one invocation: argv[0] names the operation and the rest
// are numeric tokens. It never panics and never returns an error; every
// failure is folded into the Result.
func Evaluate(argv []string) Result {
	if len(argv) < 2 {
		return Result{Outcome: UsageFailure, ShowUsage: true}
	}

	name := argv[0]
	operands := make([]Number, 0, len(argv)-1)
	for _, tok := range argv[1:] {
		n, err := ParseNumber(tok)
		if err != nil {
			return Result{Outcome: ParseFailure, Message: "Error: " + err.Error()}
		}
		operands = append(operands, n)
	}

	op, ok := Lookup(name)
	if !ok {
		return Result{
			Outcome:   UsageFailure,
			Message:   fmt.Sprintf("Unknown operation: %s", name),
			ShowUsage: true,
		}
	}

	value, err := op.Apply(operands)
	if err != nil {
		var usageErr *UsageError
		if errors.As(err, &usageErr) {
			return Result{
				Outcome:   UsageFailure,
				Message:   "Error: " + usageErr.Message,
				ShowUsage: usageErr.ShowUsage,
			}
		}
		return Result{Outcome: OperationFailure, Message: "Error: " + err.Error()}
	}

	return Result{Outcome: Success, Value: value}
}

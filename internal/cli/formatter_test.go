package cli

import (
	"strings"
	"testing"

	"github.com/organic-programming/run-calc/internal/schema"
)

// containsCompact ignores the whitespace protojson adds at random.
func containsCompact(s, sub string) bool {
	return strings.Contains(strings.Join(strings.Fields(s), ""), sub)
}

func plainStdout(t *testing.T) {
	t.Helper()
	stdoutIsTerminal = func() bool { return false }
	t.Cleanup(func() { stdoutIsTerminal = defaultStdoutIsTerminal })
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatText},
		{"text", FormatText},
		{"JSON", FormatJSON},
		{" yaml ", FormatYAML},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestFormatCalculate_TextIsVerbatim(t *testing.T) {
	resp := schema.CalculateResponse{
		ExitCode: 1,
		Output:   "Error: division by zero\n",
		Outcome:  "OUTCOME_OPERATION_ERROR",
		Message:  "Error: division by zero",
	}
	if got := FormatCalculate(FormatText, resp); got != resp.Output {
		t.Errorf("text = %q, want %q", got, resp.Output)
	}
}

func TestFormatCalculate_JSON(t *testing.T) {
	plainStdout(t)

	resp := schema.CalculateResponse{
		Output:  "5\n",
		Outcome: "OUTCOME_SUCCESS",
		Result:  "5",
	}
	out := FormatCalculate(FormatJSON, resp)
	if !strings.HasSuffix(out, "\n") {
		t.Errorf("json output should end with newline: %q", out)
	}
	for _, want := range []string{`"result":"5"`, `"outcome":"OUTCOME_SUCCESS"`, `"exitCode":0`, `"message":""`} {
		if !containsCompact(out, want) {
			t.Errorf("json output missing %s: %q", want, out)
		}
	}
}

func TestFormatCalculate_JSONMultilineOnTerminal(t *testing.T) {
	stdoutIsTerminal = func() bool { return true }
	t.Cleanup(func() { stdoutIsTerminal = defaultStdoutIsTerminal })

	out := FormatCalculate(FormatJSON, schema.CalculateResponse{Outcome: "OUTCOME_SUCCESS", Result: "5"})
	if strings.Count(out, "\n") < 3 {
		t.Errorf("terminal json should be indented: %q", out)
	}
}

func TestFormatCalculate_YAML(t *testing.T) {
	resp := schema.CalculateResponse{
		ExitCode: 2,
		Output:   "Unknown operation: pow\n",
		Outcome:  "OUTCOME_USAGE_ERROR",
		Message:  "Unknown operation: pow",
	}
	out := FormatCalculate(FormatYAML, resp)
	for _, want := range []string{"outcome: OUTCOME_USAGE_ERROR", "exitCode: 2", "message: ", "Unknown operation: pow"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatOperations_Text(t *testing.T) {
	ops := []schema.OperationInfo{
		{Name: "add", Canonical: "add", Arity: "ARITY_BINARY"},
		{Name: "avg", Canonical: "average", Arity: "ARITY_VARIADIC"},
		{Name: "odd", Arity: "ARITY_UNSPECIFIED"},
	}
	out := FormatOperations(FormatText, ops)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if fields := strings.Fields(lines[0]); strings.Join(fields, " ") != "NAME OPERATION ARITY" {
		t.Errorf("header = %q", lines[0])
	}
	if fields := strings.Fields(lines[2]); strings.Join(fields, " ") != "avg average variadic" {
		t.Errorf("avg row = %q", lines[2])
	}
	if fields := strings.Fields(lines[3]); strings.Join(fields, " ") != "odd - -" {
		t.Errorf("dash row = %q", lines[3])
	}
}

func TestFormatOperations_Empty(t *testing.T) {
	if got := FormatOperations(FormatText, nil); got != "No operations.\n" {
		t.Errorf("empty = %q", got)
	}
}

func TestFormatOperations_JSON(t *testing.T) {
	plainStdout(t)

	out := FormatOperations(FormatJSON, []schema.OperationInfo{{Name: "div", Canonical: "divide", Arity: "ARITY_BINARY"}})
	if !containsCompact(out, `"name":"div"`) || !containsCompact(out, `"arity":"ARITY_BINARY"`) {
		t.Errorf("json = %q", out)
	}
}

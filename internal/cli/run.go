// Package cli implements run-calc's command line and calcd's command
// routing.
package cli

import (
	"io"

	"github.com/organic-programming/run-calc/internal/calc"
)

// Run evaluates one run-calc invocation, writes the result or diagnostic
// to stdout and returns the exit code: 0 success, 1 operation error,
// 2 usage error.
func Run(args []string, stdout io.Writer) int {
	res := calc.Evaluate(args)
	io.WriteString(stdout, res.Text()) //nolint:errcheck
	return res.ExitCode()
}

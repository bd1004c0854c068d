// Package main is the entry point for run-calc, the command-line
// arithmetic calculator.
package main

import (
	"os"

	"github.com/organic-programming/run-calc/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:], os.Stdout))
}

// Package main is the entry point for calcd, which serves run-calc
// over gRPC and calls remote instances.
package main

import (
	"os"

	"github.com/organic-programming/run-calc/internal/cli"
)

const version = "0.1.0"

func main() {
	os.Exit(cli.Calcd(os.Args[1:], version))
}

// Package main provides the entry point for the allocengine CLI.
package main

import (
	"fmt"
	"os"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

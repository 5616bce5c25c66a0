// Package main provides the entry point for the kbridge CLI.
package main

import (
	"fmt"
	"os"

	"kbridge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Package main is the entry point of ptyguard.
package main

import (
	"fmt"
	"os"

	"github.com/isseis/go-safe-pty-guard/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Package main is the entry point for the codebuddy CLI.
package main

import (
	"os"

	"github.com/phuetz/code-buddy/cmd/codebuddy/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

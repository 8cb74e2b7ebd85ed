// Package main provides the entry point for the corelens CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/corelens/corelens/cmd/corelens/cmd"
)

func main() {
	err := cmd.NewRootCmd().Execute()
	switch {
	case err == nil:
		os.Exit(0)
	case errors.Is(err, cmd.ErrNoResults):
		os.Exit(1)
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}

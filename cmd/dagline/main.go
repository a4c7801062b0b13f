// Package main provides the entry point for the dagline CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/dagline/cmd/dagline/commands"
	"github.com/Sumatoshi-tech/dagline/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	err := commands.NewRootCommand().Execute()
	if err == nil {
		return
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	var exitErr *commands.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}

	os.Exit(1)
}

// Package cmd wires the CLI entrypoint to the command handlers.
package cmd

import (
	"os"

	"longform/cmd/handlers"
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := handlers.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package handlers implements the CLI commands.
package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"longform/internal/config"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "longform",
		Short: "Generate long-form articles through a staged synthesis pipeline",
		Long: `Longform - Staged Article Generation

Runs a multi-stage pipeline over a topic: optional SERP enrichment,
research outline, drafting (optionally multi-variant consensus),
enhancement, SEO metadata, post-processing repair, internal linking,
and quality scoring.

Examples:
  # Generate a medium article with live progress
  longform generate --topic "Kubernetes cost optimization" --keywords "kubernetes costs,finops"

  # Consensus drafting, written to a file without the TUI
  longform generate --topic "Rust error handling" --consensus --no-tui -o article.md`,
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .longform.yaml)")

	rootCmd.AddCommand(NewGenerateCmd())

	cobra.OnInitialize(initConfig)

	return rootCmd
}

// initConfig reads in the config file and ENV variables.
func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config: %v\n", err)
		// Keep going; environment variables may be enough.
	}
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

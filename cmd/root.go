// Package cmd contains the CLI entry points.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "magebot",
	Short: "Magebot - multi-backend LLM chat service",
	Long: `Magebot answers questions through interchangeable LLM backends
(GigaChat, OpenRouter) with per-user sessions, output modes and a guided
recipe dialogue.

Run "magebot serve" to start the HTTP API, or "magebot ask" for a one-shot
question from the terminal.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

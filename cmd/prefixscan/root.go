package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for prefixscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefixscan",
		Short: "Vocabulary crawler for autocomplete endpoints",
		Long: `prefixscan enumerates the vocabulary behind an autocomplete endpoint.

It expands prefixes breadth first, starting from single letters, and stops
when every discovered term has been explored. Requests are paced, and the
pace slows permanently whenever the service answers 429 Too Many Requests.

Runs are saved to a local history database so that later crawls of the
same service can be compared.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Package cmd defines and implements the CLI commands for the indexselect
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indexselect",
		Short: "Selects crawled documents for search-index ingestion.",
		Long: `indexselect evaluates previously-crawled documents against a staged
quality pipeline and decides which ones are worth pushing into the search
index. It scans the sharded url_state tables with skip-locked keyset
pagination, so it can run safely alongside the live crawler.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.AddCommand(newRunCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Command rayzor-latency tests the reachability and latency of a list of
// proxy subscription links and reports the active ones sorted by speed.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/draco-tlw/rayzor/cmd/rayzor-latency/commands"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "rayzor-latency",
		Short:   "Test proxy link latency and reachability",
		Long:    "rayzor-latency parses a list of proxy subscription links, deduplicates and filters them, tests each through a local proxy core, and reports which are reachable and how fast.",
		Version: version,
	}

	rootCmd.PersistentFlags().String("config", "", "path to a JSONC settings file")

	rootCmd.AddCommand(
		commands.NewRunCommand(),
		commands.NewDedupeCommand(),
		commands.NewVersionCommand(version),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

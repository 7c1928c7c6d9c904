package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand builds the `version` subcommand.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the rayzor-latency version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	}
}

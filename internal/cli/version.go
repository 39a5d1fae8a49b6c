package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the current version of shortfunc
const Version = "0.1.0"

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shortfunc version %s\n", Version)
		},
	}
}

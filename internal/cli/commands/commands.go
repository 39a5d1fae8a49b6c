// Package commands implements the shortfunc subcommands.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/mamaar/shortfunc/internal/cli"
)

// Register adds every subcommand to root.
func Register(root *cobra.Command, app *cli.App) {
	root.AddCommand(
		NewRunCommand(app),
		NewScanCommand(app),
		NewCandidatesCommand(app),
		NewWatchCommand(app),
		NewConfigCommand(app),
	)
}

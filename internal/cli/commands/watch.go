package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mamaar/shortfunc/internal/cli"
	"github.com/mamaar/shortfunc/pkg/refactor"
)

// NewWatchCommand refactors files as they are saved.
func NewWatchCommand(app *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [root]",
		Short: "Refactor Go files whenever they are saved",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := app.Setup(cmd)
			if err != nil {
				return err
			}
			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			err = runner.Watch(cmd.Context(), root, func(res *refactor.FileResult) {
				fmt.Fprintf(app.Stdout(), "%s %s: %d helpers extracted\n", color.GreenString("✓"), res.Path, len(res.Rounds))
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

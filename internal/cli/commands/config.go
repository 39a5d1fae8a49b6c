package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mamaar/shortfunc/internal/cli"
	"github.com/mamaar/shortfunc/pkg/config"
	"github.com/mamaar/shortfunc/pkg/types"
)

// NewConfigCommand groups the config subcommands.
func NewConfigCommand(app *cli.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(newConfigShowCommand(app), newConfigInitCommand(app))
	return cmd
}

func newConfigShowCommand(app *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner, err := app.Setup(cmd)
			if err != nil {
				return err
			}
			if app.Flags().JSON {
				return app.OutputJSON(runner.Config)
			}
			if src := runner.Config.Source(); src != "" {
				fmt.Fprintf(app.Stdout(), "# read from %s\n", src)
			}
			return runner.Config.WriteYAML(app.Stdout())
		},
	}
}

func newConfigInitCommand(app *cli.App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config file with the default settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := config.FileName
			if len(args) == 1 {
				path = args[0]
			}

			flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
			if force {
				flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			}
			f, err := os.OpenFile(path, flags, 0o644)
			if errors.Is(err, os.ErrExist) {
				return types.Errorf(types.ConfigError, "%s already exists, use --force to overwrite it", path)
			}
			if err != nil {
				return &types.RefactorError{Type: types.FileSystemError, Message: err.Error(), File: path, Cause: err}
			}
			if err := config.Default().WriteYAML(f); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(app.Stdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	return cmd
}

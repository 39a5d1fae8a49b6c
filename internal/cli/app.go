package cli

import (
	"encoding/json"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mamaar/shortfunc/pkg/config"
	"github.com/mamaar/shortfunc/pkg/refactor"
)

// App represents the shortfunc application
type App struct {
	flags  *Flags
	stdout io.Writer
	stderr io.Writer
}

// NewApp creates an application writing results to stdout and logs to
// stderr.
func NewApp(stdout, stderr io.Writer) *App {
	return &App{flags: &Flags{}, stdout: stdout, stderr: stderr}
}

// Flags returns the parsed global flags.
func (app *App) Flags() *Flags {
	return app.flags
}

// Stdout is where commands print their results.
func (app *App) Stdout() io.Writer {
	return app.stdout
}

// Stderr receives logs and per-file errors.
func (app *App) Stderr() io.Writer {
	return app.stderr
}

// RootCommand builds the root command with the global flags and the
// version command. Other commands are added by the caller.
func (app *App) RootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "shortfunc",
		Short:         "Automatically extract helpers out of overlong Go functions",
		Long:          rootLong,
		Example:       rootExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if app.flags.NoColor {
				color.NoColor = true
			}
		},
	}
	cmd.SetOut(app.stdout)
	cmd.SetErr(app.stderr)
	app.flags.bind(cmd.PersistentFlags())
	cmd.AddCommand(newVersionCommand())
	return cmd
}

// Setup loads the configuration seen by cmd and wires a Runner from it.
func (app *App) Setup(cmd *cobra.Command) (*Runner, error) {
	cfg, err := config.Load(app.flags.ConfigPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger, err := cfg.NewLogger(app.stderr)
	if err != nil {
		return nil, err
	}
	return NewRunner(cfg, logger, refactor.NewMetrics()), nil
}

// OutputJSON writes data as indented JSON to the application's stdout.
func (app *App) OutputJSON(data any) error {
	enc := json.NewEncoder(app.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

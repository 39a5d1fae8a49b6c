package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mamaar/shortfunc/internal/cli"
	"github.com/mamaar/shortfunc/pkg/refactor"
)

// NewRunCommand handles refactoring of whole trees.
func NewRunCommand(app *cli.App) *cobra.Command {
	var (
		dryRun      bool
		metricsFile string
	)

	cmd := &cobra.Command{
		Use:   "run [roots...]",
		Short: "Refactor every overlong function below the given roots",
		Long: `Refactor every overlong function of the Go files below the given roots
(default: the current directory). Files are rewritten in place when at
least one helper was extracted. Files that cannot be parsed or refactored
are reported and skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := app.Setup(cmd)
			if err != nil {
				return err
			}

			report, err := runner.Run(cmd.Context(), args, dryRun)
			if err != nil {
				return err
			}

			if metricsFile != "" {
				if err := runner.Metrics.WriteFile(metricsFile); err != nil {
					runner.Logger.Error("cannot write metrics", "file", metricsFile, "error", err)
				}
			}

			if app.Flags().JSON {
				return app.OutputJSON(report)
			}
			if dryRun {
				for _, res := range report.Changed() {
					printDiff(app.Stdout(), refactor.UnifiedDiff(relPath(res.Path), res.Before, res.After))
				}
			}
			printRunSummary(app, report, dryRun)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print a unified diff instead of writing files")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus counters to this file when done")

	return cmd
}

func printRunSummary(app *cli.App, report *refactor.Report, dryRun bool) {
	out := app.Stdout()
	verb := "refactored"
	if dryRun {
		verb = "would refactor"
	}

	for _, res := range report.Changed() {
		fmt.Fprintf(out, "%s %s\n", color.GreenString("✓"), res.Path)
		for _, r := range res.Rounds {
			fmt.Fprintf(out, "    %s: extracted %s (%d -> %d lines, helper %d)\n",
				r.Function, r.Helper, r.LinesBefore, r.LinesAfter, r.HelperLines)
		}
	}
	for _, f := range report.Failures {
		fmt.Fprintf(app.Stderr(), "%s %s: %v\n", color.RedString("✗"), f.Path, f.Err)
	}

	fmt.Fprintf(out, "\n%s %s of %s files, %s helpers extracted",
		verb,
		humanize.Comma(int64(len(report.Changed()))),
		humanize.Comma(int64(report.Scanned)),
		humanize.Comma(int64(report.Extractions())))
	if n := len(report.Failures); n > 0 {
		fmt.Fprintf(out, ", %s", color.RedString("%s failed", humanize.Comma(int64(n))))
	}
	fmt.Fprintln(out)
}

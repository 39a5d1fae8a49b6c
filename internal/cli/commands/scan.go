package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mamaar/shortfunc/internal/cli"
)

// NewScanCommand lists overlong functions without changing anything.
func NewScanCommand(app *cli.App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "scan [roots...]",
		Short: "List overlong functions and their candidate counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := app.Setup(cmd)
			if err != nil {
				return err
			}

			res, err := runner.Scan(cmd.Context(), args, all)
			if err != nil {
				return err
			}
			if app.Flags().JSON {
				return app.OutputJSON(res)
			}

			tbl := newTable(app.Stdout())
			tbl.AppendHeader(table.Row{"File", "Function", "Line", "Lines", "Depth", "Candidates", "Eligible", "Best helper"})
			for _, e := range res.Entries {
				best := "-"
				if e.Best != nil {
					best = fmt.Sprintf("%s (%d-%d)", e.Best.Helper, e.Best.FirstLine, e.Best.LastLine)
				}
				tbl.AppendRow(table.Row{relPath(e.Path), e.Name, e.Line, e.Lines, e.Depth, e.Candidates, e.Eligible, best})
			}
			tbl.AppendFooter(table.Row{"", "", "", "", "", "", "", fmt.Sprintf("%s functions in %s files",
				humanize.Comma(int64(len(res.Entries))), humanize.Comma(int64(res.Scanned)))})
			tbl.Render()

			for _, f := range res.Failures {
				fmt.Fprintf(app.Stderr(), "cannot scan %s: %v\n", f.Path, f.Err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "list every function, not only overlong ones")

	return cmd
}

// relPath shortens path relative to the working directory when it lies
// below it.
func relPath(path string) string {
	wd, err := filepath.Abs(".")
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mamaar/shortfunc/internal/cli"
)

// NewCandidatesCommand shows the ranked extraction candidates of one
// function.
func NewCandidatesCommand(app *cli.App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "candidates <file> <function>",
		Short: "Show the ranked extraction candidates of a function",
		Long: `Show every legal extraction of a function, best first, whatever the
function's length. Methods are named Type.Method.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := app.Setup(cmd)
			if err != nil {
				return err
			}

			suggestions, err := runner.Candidates(args[0], args[1])
			if err != nil {
				return err
			}
			if limit > 0 && len(suggestions) > limit {
				suggestions = suggestions[:limit]
			}
			if app.Flags().JSON {
				return app.OutputJSON(suggestions)
			}
			if len(suggestions) == 0 {
				fmt.Fprintf(app.Stdout(), "no legal extraction in %s\n", args[1])
				return nil
			}

			tbl := newTable(app.Stdout())
			tbl.AppendHeader(table.Row{"#", "Lines", "Helper", "Params", "Output", "Score", "Helper len", "Remainder", "Eligible"})
			for i, s := range suggestions {
				output := s.Output
				if output == "" {
					output = "-"
				}
				tbl.AppendRow(table.Row{
					i + 1,
					fmt.Sprintf("%d-%d", s.FirstLine, s.LastLine),
					s.Helper,
					strings.Join(s.Params, ", "),
					output,
					fmt.Sprintf("%.2f", s.Score),
					s.HelperLen,
					s.Remainder,
					yesNo(s.Eligible),
				})
			}
			tbl.Render()
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most this many candidates (0: all)")

	return cmd
}

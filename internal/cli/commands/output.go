package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

var (
	diffHeader = color.New(color.Bold)
	diffHunk   = color.New(color.FgCyan)
	diffAdd    = color.New(color.FgGreen)
	diffDel    = color.New(color.FgRed)
)

// printDiff writes a unified diff, colored when color is enabled.
func printDiff(w io.Writer, diff string) {
	sc := bufio.NewScanner(strings.NewReader(diff))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			diffHeader.Fprintln(w, line)
		case strings.HasPrefix(line, "@@"):
			diffHunk.Fprintln(w, line)
		case strings.HasPrefix(line, "+"):
			diffAdd.Fprintln(w, line)
		case strings.HasPrefix(line, "-"):
			diffDel.Fprintln(w, line)
		default:
			fmt.Fprintln(w, line)
		}
	}
}

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Format.Header = text.FormatDefault
	tbl.Style().Format.Footer = text.FormatDefault
	return tbl
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

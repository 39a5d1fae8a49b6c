package refactor

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const diffContext = 3

type diffLine struct {
	kind byte // ' ', '-' or '+'
	text string
}

// UnifiedDiff renders the line difference between before and after in
// unified format. It returns "" when both are equal.
func UnifiedDiff(path string, before, after []byte) string {
	if string(before) == string(after) {
		return ""
	}
	lines := diffLines(string(before), string(after))

	// line numbers of each entry in the old and new text
	oldAt := make([]int, len(lines)+1)
	newAt := make([]int, len(lines)+1)
	o, n := 1, 1
	for i, l := range lines {
		oldAt[i], newAt[i] = o, n
		if l.kind != '+' {
			o++
		}
		if l.kind != '-' {
			n++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", path, path)
	for k := 0; k < len(lines); {
		for k < len(lines) && lines[k].kind == ' ' {
			k++
		}
		if k == len(lines) {
			break
		}
		start, end := max(0, k-diffContext), hunkEnd(lines, k)
		writeHunk(&b, lines[start:end], oldAt[start], newAt[start])
		k = end
	}
	return b.String()
}

// hunkEnd extends a hunk starting with the change at k over every change
// that is close enough to share context, then adds trailing context.
func hunkEnd(lines []diffLine, k int) int {
	end := k
	for {
		for end < len(lines) && lines[end].kind != ' ' {
			end++
		}
		next := end
		for next < len(lines) && lines[next].kind == ' ' {
			next++
		}
		if next < len(lines) && next-end <= 2*diffContext {
			end = next
			continue
		}
		return min(len(lines), end+diffContext)
	}
}

func writeHunk(b *strings.Builder, hunk []diffLine, oldStart, newStart int) {
	oldCount, newCount := 0, 0
	for _, l := range hunk {
		if l.kind != '+' {
			oldCount++
		}
		if l.kind != '-' {
			newCount++
		}
	}
	if oldCount == 0 {
		oldStart--
	}
	if newCount == 0 {
		newStart--
	}
	fmt.Fprintf(b, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)
	for _, l := range hunk {
		b.WriteByte(l.kind)
		b.WriteString(l.text)
		if !strings.HasSuffix(l.text, "\n") {
			b.WriteString("\n\\ No newline at end of file\n")
		}
	}
}

// diffLines runs a line-mode diff and splits the result into single lines.
func diffLines(before, after string) []diffLine {
	dmp := diffmatchpatch.New()
	a, b, table := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), table)

	var out []diffLine
	for _, d := range diffs {
		kind := byte(' ')
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			kind = '-'
		case diffmatchpatch.DiffInsert:
			kind = '+'
		}
		for _, text := range strings.SplitAfter(d.Text, "\n") {
			if text != "" {
				out = append(out, diffLine{kind: kind, text: text})
			}
		}
	}
	return out
}

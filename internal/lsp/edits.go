package lsp

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// textEdits turns the change from before to after into edits against
// before. Edits cover whole lines and do not overlap.
func textEdits(before, after string) []TextEdit {
	dmp := diffmatchpatch.New()
	a, b, table := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), table)

	var (
		edits []TextEdit
		cur   *TextEdit
		pos   Position
	)
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffEqual {
			if cur != nil {
				edits = append(edits, *cur)
				cur = nil
			}
			pos = advance(pos, d.Text)
			continue
		}
		if cur == nil {
			cur = &TextEdit{Range: Range{Start: pos, End: pos}}
		}
		if d.Type == diffmatchpatch.DiffDelete {
			pos = advance(pos, d.Text)
			cur.Range.End = pos
		} else {
			cur.NewText += d.Text
		}
	}
	if cur != nil {
		edits = append(edits, *cur)
	}
	return edits
}

// advance moves pos over text.
func advance(pos Position, text string) Position {
	for _, r := range text {
		switch {
		case r == '\n':
			pos.Line++
			pos.Character = 0
		case r >= 0x10000:
			pos.Character += 2
		default:
			pos.Character++
		}
	}
	return pos
}

// lineRange spans the text of the zero-based line of content.
func lineRange(content []byte, line int) Range {
	start := Position{Line: line}
	lines := strings.Split(string(content), "\n")
	if line < 0 || line >= len(lines) {
		return Range{Start: start, End: start}
	}
	return Range{Start: start, End: advance(start, strings.TrimSuffix(lines[line], "\r"))}
}

package refactor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnifiedDiffEqual(t *testing.T) {
	assert.Empty(t, UnifiedDiff("a.go", []byte("x\n"), []byte("x\n")))
}

func TestUnifiedDiffSingleHunk(t *testing.T) {
	before := "a\nb\nc\nd\ne\n"
	after := "a\nb\nC\nd\ne\n"

	want := "--- a/f.go\n+++ b/f.go\n" +
		"@@ -1,5 +1,5 @@\n" +
		" a\n b\n-c\n+C\n d\n e\n"
	assert.Equal(t, want, UnifiedDiff("f.go", []byte(before), []byte(after)))
}

func TestUnifiedDiffSplitsDistantChanges(t *testing.T) {
	var before, after []string
	for i := 0; i < 20; i++ {
		line := string(rune('a' + i))
		before = append(before, line)
		switch i {
		case 1, 18:
			after = append(after, strings.ToUpper(line))
		default:
			after = append(after, line)
		}
	}
	diff := UnifiedDiff("f.go", []byte(strings.Join(before, "\n")+"\n"), []byte(strings.Join(after, "\n")+"\n"))

	assert.Equal(t, 2, strings.Count(diff, "@@ -"))
	assert.Contains(t, diff, "@@ -1,5 +1,5 @@\n a\n-b\n+B\n c\n d\n e\n")
	assert.Contains(t, diff, "@@ -16,5 +16,5 @@\n p\n q\n r\n-s\n+S\n t\n")
}

func TestUnifiedDiffInsertion(t *testing.T) {
	diff := UnifiedDiff("f.go", []byte("a\n"), []byte("a\nb\n"))
	assert.Equal(t, "--- a/f.go\n+++ b/f.go\n@@ -1,1 +1,2 @@\n a\n+b\n", diff)
}

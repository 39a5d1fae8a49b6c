package types

import (
	"fmt"
	"sort"
)

// Change represents a specific change to be made
type Change struct {
	File        string
	Start       int
	End         int
	OldText     string
	NewText     string
	Description string
}

// ApplyChanges splices changes into content. Changes must not overlap;
// they are applied from the end of the buffer backwards so earlier offsets
// stay valid.
func ApplyChanges(content []byte, changes []Change) ([]byte, error) {
	sorted := make([]Change, len(changes))
	copy(sorted, changes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start > sorted[j].Start
		}
		return sorted[i].End > sorted[j].End
	})

	result := make([]byte, len(content))
	copy(result, content)

	limit := len(result)
	for _, ch := range sorted {
		if ch.Start < 0 || ch.End < ch.Start || ch.End > limit {
			return nil, &RefactorError{
				Type:    InvalidOperation,
				Message: fmt.Sprintf("change [%d,%d) out of range or overlapping", ch.Start, ch.End),
				File:    ch.File,
			}
		}
		if ch.OldText != "" && string(result[ch.Start:ch.End]) != ch.OldText {
			return nil, &RefactorError{
				Type:    InvalidOperation,
				Message: fmt.Sprintf("stale change at offset %d: %s", ch.Start, ch.Description),
				File:    ch.File,
			}
		}
		tail := append([]byte(ch.NewText), result[ch.End:]...)
		result = append(result[:ch.Start], tail...)
		limit = ch.Start
	}

	return result, nil
}

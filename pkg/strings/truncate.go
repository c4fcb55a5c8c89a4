// Package strings holds text helpers shared by CLI output.
package strings

import (
	"strings"
)

// DefaultColumnMaxLen is the widest free-text table cell.
const DefaultColumnMaxLen = 48

// MinTruncateLen is the smallest maxLen that leaves room for one character
// plus "...".
const MinTruncateLen = 4

// TruncateDescription collapses s onto one line and cuts it to at most
// maxLen runes, ending in "..." when cut. maxLen below MinTruncateLen is
// raised to MinTruncateLen.
func TruncateDescription(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}
	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// TruncatePath shortens a file path from the left so the file name stays
// visible.
func TruncatePath(path string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}
	runes := []rune(path)
	if len(runes) <= maxLen {
		return path
	}
	return "..." + string(runes[len(runes)-maxLen+3:])
}

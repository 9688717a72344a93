package ingest

import (
	"strings"
	"unicode"
)

// Preprocess normalizes a catalog cell: whitespace runs (including spreadsheet line breaks)
// become one space, other control and format characters such as a BOM or zero-width space
// are dropped, and the result is trimmed.
func Preprocess(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	pending := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			pending = b.Len() > 0
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
		default:
			if pending {
				b.WriteByte(' ')
				pending = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Package vsm provides the TF-IDF vector space model: vocabulary, IDF weights, and the
// L2-normalized term-weight matrix of a book corpus.
package vsm

import (
	"strings"
	"unicode"
)

// Tokenize lower-cases text and splits it on non-alphanumeric boundaries.
// Empty tokens are dropped. Training and query transformation both use it.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

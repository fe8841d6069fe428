// Package textnorm turns free symptom text into the token stream the
// vectorizer was trained on.
package textnorm

import (
	"strings"
	"unicode"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
)

// Normalize lowercases text, drops every rune that is not an ASCII letter or
// whitespace, removes English stop-words and Porter-stems what remains.
//
// Dropped runes are not replaced, so "flu-2023!" becomes "flu" and
// "back-pain" becomes "backpain".
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(r)
		}
	}

	tokens := strings.Fields(b.String())
	out := tokens[:0]
	for _, tok := range tokens {
		if IsStopWord(tok) {
			continue
		}
		out = append(out, porterstemmer.StemString(tok))
	}
	return strings.Join(out, " ")
}

// Tokens returns the normalized tokens of text
func Tokens(text string) []string {
	n := Normalize(text)
	if n == "" {
		return nil
	}
	return strings.Split(n, " ")
}

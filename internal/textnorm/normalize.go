// Package textnorm turns raw phrases into lower-case text made only of
// letters, whitespace, apostrophes and the punctuation the synthesizer voices.
package textnorm

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrEmptyUtterance is returned when nothing pronounceable survives normalization.
var ErrEmptyUtterance = errors.New("nothing left to synthesize after normalization")

var disallowed = regexp.MustCompile(`[^A-Za-z\s'.:!?,]+`)

// Normalize expands dates and digits, drops every character outside the
// retained set and lower-cases the result. Accented letters are decomposed
// first so "café" keeps its base letters.
func Normalize(phrase string) (string, error) {
	folded := norm.NFKD.String(phrase)
	expanded, err := Expand(folded)
	if err != nil {
		return "", err
	}
	text := strings.ToLower(disallowed.ReplaceAllString(expanded, ""))
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyUtterance
	}
	return text, nil
}

// Package phonetic converts normalized text into phone sequences and the
// diphone identifiers the unit library is indexed by.
package phonetic

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/loqalabs/loqa-diphone/internal/lexicon"
)

// Pause is the silence boundary phone.
const Pause = "PAU"

// Separator joins the two phones of a diphone identifier.
const Separator = "-"

// UnknownWordError is returned when a token has no dictionary entry.
type UnknownWordError struct {
	Word string
}

func (e *UnknownWordError) Error() string {
	return fmt.Sprintf("%q is not in the pronunciation dictionary", e.Word)
}

var (
	tokenPattern = regexp.MustCompile(`\w+'?\w+?|[?!:.,]+|\w+`)
	stressDigits = regexp.MustCompile(`\d`)
)

// IsPunctuation reports whether phone is one of the voiced punctuation markers.
func IsPunctuation(phone string) bool {
	switch phone {
	case ".", "!", "?", ":", ",":
		return true
	}
	return false
}

// Phonemizer maps normalized text to a phone sequence.
type Phonemizer struct {
	dict  lexicon.Dictionary
	spell bool
}

// Option configures a Phonemizer.
type Option func(*Phonemizer)

// WithSpelling makes the phonemizer pronounce each letter of a word instead
// of the word itself.
func WithSpelling(spell bool) Option {
	return func(p *Phonemizer) { p.spell = spell }
}

// NewPhonemizer builds a phonemizer over dict.
func NewPhonemizer(dict lexicon.Dictionary, opts ...Option) *Phonemizer {
	p := &Phonemizer{dict: dict}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Tokenize splits normalized text into words, contractions and punctuation runs.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(text, -1)
}

// Phones returns the phone sequence for text, framed by a leading and a
// trailing PAU. Any token missing from the dictionary aborts with
// *UnknownWordError.
func (p *Phonemizer) Phones(text string) ([]string, error) {
	phones := []string{Pause}
	for _, token := range Tokenize(text) {
		if p.spell && !IsPunctuation(token[:1]) {
			for _, letter := range token {
				var err error
				phones, err = p.appendToken(phones, string(letter))
				if err != nil {
					return nil, err
				}
			}
			continue
		}
		var err error
		phones, err = p.appendToken(phones, token)
		if err != nil {
			return nil, err
		}
	}
	return append(phones, Pause), nil
}

func (p *Phonemizer) appendToken(phones []string, token string) ([]string, error) {
	if marker := token[:1]; IsPunctuation(marker) {
		return append(phones, Pause, marker, Pause), nil
	}
	if token == "'" {
		return phones, nil
	}
	variants, ok := p.dict.Lookup(token)
	if !ok {
		return nil, &UnknownWordError{Word: token}
	}
	for _, phone := range variants[0] {
		phones = append(phones, strings.ToUpper(stressDigits.ReplaceAllString(phone, "")))
	}
	return phones, nil
}

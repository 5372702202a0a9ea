package synth

import (
	"errors"

	"github.com/loqalabs/loqa-diphone/internal/phonetic"
	"github.com/loqalabs/loqa-diphone/internal/textnorm"
)

// IsFatal reports whether err was caused by the phrase itself: an empty
// utterance, an unspeakable date or number, or an unknown word. Missing
// units never produce an error.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var (
		date    *textnorm.InvalidDateComponentError
		number  *textnorm.UnsupportedNumberError
		unknown *phonetic.UnknownWordError
	)
	return errors.Is(err, textnorm.ErrEmptyUtterance) ||
		errors.As(err, &date) ||
		errors.As(err, &number) ||
		errors.As(err, &unknown)
}

package textnorm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigitWords(t *testing.T) {
	want := []string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine"}
	for d, w := range want {
		got, err := DigitWord(d)
		require.NoError(t, err)
		assert.Equal(t, w, got)
	}
}

func TestNumberWordsDecomposesTwoDigitNumbers(t *testing.T) {
	tens := map[int]string{2: "twenty", 3: "thirty", 4: "forty", 5: "fifty", 6: "sixty", 7: "seventy", 8: "eighty", 9: "ninety"}
	ones := []string{"", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine"}
	for n := 21; n < 100; n++ {
		if n%10 == 0 {
			continue
		}
		got, err := NumberWords(n)
		require.NoError(t, err)
		assert.Equal(t, tens[n/10]+" "+ones[n%10], got, "n=%d", n)
	}
	got, err := NumberWords(47)
	require.NoError(t, err)
	assert.Equal(t, "forty seven", got)
}

func TestNumberWordsOutOfRange(t *testing.T) {
	for _, n := range []int{-1, 100, 1998} {
		_, err := NumberWords(n)
		var unsupported *UnsupportedNumberError
		require.ErrorAs(t, err, &unsupported, "n=%d", n)
		assert.Equal(t, n, unsupported.Value)
	}
}

func TestExpandDates(t *testing.T) {
	cases := map[string]string{
		"3/7/1998":        "july third nineteen ninety eight",
		"on 25/12 please": "on december twenty fifth please",
		"1/1/85":          "january first nineteen eighty five",
		"9/11/1900":       "november ninth nineteen hundred",
		"31/5/2017.":      "may thirty first twenty seventeen.",
		"1/2 11/2":        "february first february eleventh",
		"11/2  1/2":       "february eleventh  february first",
	}
	for in, want := range cases {
		got, err := ExpandDates(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestExpandDatesInvalidComponents(t *testing.T) {
	cases := []struct {
		in        string
		component string
	}{
		{"32/1/1990", "day"},
		{"0/1", "day"},
		{"12/13/1990", "month"},
		{"1/2/199", "year"},
	}
	for _, tc := range cases {
		_, err := ExpandDates(tc.in)
		var invalid *InvalidDateComponentError
		require.ErrorAs(t, err, &invalid, tc.in)
		assert.Equal(t, tc.component, invalid.Component, tc.in)
	}
}

func TestExpandDigits(t *testing.T) {
	assert.Equal(t, "room four two ", ExpandDigits("room 42"))
	assert.Equal(t, "zero ", ExpandDigits("0"))
}

func TestNormalize(t *testing.T) {
	got, err := Normalize("Hello, World! It's 3/7/1998 @ Café #1")
	require.NoError(t, err)
	assert.Equal(t, "hello, world! it's july third nineteen ninety eight  cafe one ", got)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	phrases := []string{
		"Hello, World!",
		"Meet me on 12/3/2020 at 7.",
		"Don't PANIC: 42?",
		"naïve résumé; ok",
	}
	for _, p := range phrases {
		once, err := Normalize(p)
		require.NoError(t, err, p)
		twice, err := Normalize(once)
		require.NoError(t, err, p)
		assert.Equal(t, once, twice, p)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	for _, p := range []string{"@@@", "", "   ", "#$%^&*"} {
		_, err := Normalize(p)
		assert.True(t, errors.Is(err, ErrEmptyUtterance), fmt.Sprintf("%q: %v", p, err))
	}
}

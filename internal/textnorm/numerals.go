package textnorm

import (
	"fmt"
	"regexp"
	"strconv"
)

// InvalidDateComponentError reports a day, month or year that has no spoken form.
type InvalidDateComponentError struct {
	Component string
	Value     string
}

func (e *InvalidDateComponentError) Error() string {
	return fmt.Sprintf("invalid %s %q in date", e.Component, e.Value)
}

// UnsupportedNumberError reports a number outside 0-99.
type UnsupportedNumberError struct {
	Value int
}

func (e *UnsupportedNumberError) Error() string {
	return fmt.Sprintf("unsupported number %d: only 0-99 can be spoken", e.Value)
}

var (
	datePattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/?(\d{2,4})?`)
	termPattern = regexp.MustCompile(`\S+`)
)

var digitPattern = regexp.MustCompile(`\d`)

var months = [...]string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

var ordinals = [...]string{
	"first", "second", "third", "fourth", "fifth", "sixth", "seventh", "eighth", "ninth", "tenth",
	"eleventh", "twelfth", "thirteenth", "fourteenth", "fifteenth", "sixteenth", "seventeenth",
	"eighteenth", "nineteenth", "twentieth", "twenty first", "twenty second", "twenty third",
	"twenty fourth", "twenty fifth", "twenty sixth", "twenty seventh", "twenty eighth",
	"twenty ninth", "thirtieth", "thirty first",
}

// numberWords holds the directly spoken numbers. Zero reads as "hundred" so
// that years like 1900 come out as "nineteen hundred".
var numberWords = map[int]string{
	0: "hundred", 1: "one", 2: "two", 3: "three", 4: "four", 5: "five",
	6: "six", 7: "seven", 8: "eight", 9: "nine", 10: "ten",
	11: "eleven", 12: "twelve", 13: "thirteen", 14: "fourteen",
	15: "fifteen", 16: "sixteen", 17: "seventeen", 18: "eighteen",
	19: "nineteen", 20: "twenty", 30: "thirty", 40: "forty",
	50: "fifty", 60: "sixty", 70: "seventy", 80: "eighty", 90: "ninety",
}

// NumberWords returns the spoken form of n in 0-99. Numbers missing from the
// base table are read as tens word plus ones word ("forty seven").
func NumberWords(n int) (string, error) {
	if n < 0 || n > 99 {
		return "", &UnsupportedNumberError{Value: n}
	}
	if w, ok := numberWords[n]; ok {
		return w, nil
	}
	return numberWords[n-n%10] + " " + numberWords[n%10], nil
}

// DigitWord returns the cardinal word for a single digit; zero reads as "zero".
func DigitWord(d int) (string, error) {
	if d == 0 {
		return "zero", nil
	}
	if d < 0 || d > 9 {
		return "", &UnsupportedNumberError{Value: d}
	}
	return numberWords[d], nil
}

// MonthName returns the month name for 1-12.
func MonthName(m int) (string, error) {
	if m < 1 || m > len(months) {
		return "", &InvalidDateComponentError{Component: "month", Value: strconv.Itoa(m)}
	}
	return months[m-1], nil
}

// Ordinal returns the ordinal day word for 1-31.
func Ordinal(d int) (string, error) {
	if d < 1 || d > len(ordinals) {
		return "", &InvalidDateComponentError{Component: "day", Value: strconv.Itoa(d)}
	}
	return ordinals[d-1], nil
}

// ExpandDates rewrites day/month[/year] terms as "<month> <day> [<year>]".
// Two-digit years are read in the twentieth century.
func ExpandDates(phrase string) (string, error) {
	var firstErr error
	expanded := termPattern.ReplaceAllStringFunc(phrase, func(term string) string {
		m := datePattern.FindStringSubmatch(term)
		if m == nil || firstErr != nil {
			return term
		}
		spoken, err := spellDate(m[1], m[2], m[3])
		if err != nil {
			firstErr = err
			return term
		}
		return spoken + term[len(m[0]):]
	})
	if firstErr != nil {
		return "", firstErr
	}
	return expanded, nil
}

func spellDate(dayText, monthText, yearText string) (string, error) {
	dayNum, _ := strconv.Atoi(dayText)
	day, err := Ordinal(dayNum)
	if err != nil {
		return "", err
	}
	monthNum, _ := strconv.Atoi(monthText)
	month, err := MonthName(monthNum)
	if err != nil {
		return "", err
	}
	switch len(yearText) {
	case 0:
		return month + " " + day, nil
	case 2:
		year, err := yearWords(yearText)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s nineteen %s", month, day, year), nil
	case 4:
		century, err := yearWords(yearText[:2])
		if err != nil {
			return "", err
		}
		year, err := yearWords(yearText[2:])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s %s", month, day, century, year), nil
	default:
		return "", &InvalidDateComponentError{Component: "year", Value: yearText}
	}
}

func yearWords(group string) (string, error) {
	n, err := strconv.Atoi(group)
	if err != nil {
		return "", &InvalidDateComponentError{Component: "year", Value: group}
	}
	w, err := NumberWords(n)
	if err != nil {
		return "", &InvalidDateComponentError{Component: "year", Value: group}
	}
	return w, nil
}

// ExpandDigits replaces every digit with its word followed by a space.
func ExpandDigits(phrase string) string {
	return digitPattern.ReplaceAllStringFunc(phrase, func(d string) string {
		w, _ := DigitWord(int(d[0] - '0'))
		return w + " "
	})
}

// Expand runs date expansion followed by digit expansion.
func Expand(phrase string) (string, error) {
	expanded, err := ExpandDates(phrase)
	if err != nil {
		return "", err
	}
	return ExpandDigits(expanded), nil
}

package ocr

import (
	"strings"
	"unicode"
)

// Validation thresholds for extracted text.
const (
	// DefaultMinTextLength is the minimum cleaned length for valid text.
	DefaultMinTextLength = 3

	// minAlnumRatio is the minimum share of alphanumeric characters.
	minAlnumRatio = 0.5

	// minPrintableRatio is the minimum share of printable characters.
	minPrintableRatio = 0.7
)

// CleanText collapses whitespace and strips newlines from raw engine
// output.
func CleanText(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// ValidText reports whether cleaned text looks like genuine reading
// material rather than recognition noise.
//
// Rejects text shorter than minLength, text that is mostly
// non-printable, and text with fewer than half alphanumeric
// characters.
func ValidText(text string, minLength int) bool {
	if minLength <= 0 {
		minLength = DefaultMinTextLength
	}

	cleaned := CleanText(text)
	runes := []rune(cleaned)
	if len(runes) < minLength {
		return false
	}

	printable := 0
	alnum := 0
	for _, r := range runes {
		if unicode.IsPrint(r) {
			printable++
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum++
		}
	}

	total := float64(len(runes))
	if float64(printable)/total < minPrintableRatio {
		return false
	}
	if float64(alnum)/total < minAlnumRatio {
		return false
	}

	return true
}

package normalize

import (
	"regexp"
	"strings"
)

var (
	nonDigit   = regexp.MustCompile(`[^0-9]`)
	separators = strings.NewReplacer(".", "", "-", "", " ", "", ",", "")
)

// DigitsOnly removes every character that is not 0-9.
func DigitsOnly(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}

// StripSeparators trims s and removes the separator characters that show up
// in hand-typed identifiers: '.', '-', ' ' and ','.
func StripSeparators(s string) string {
	return separators.Replace(strings.TrimSpace(s))
}

// NormalizeDocType trims and uppercases a document type code.
func NormalizeDocType(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeDocNumber strips separators and keeps digits only.
func NormalizeDocNumber(s string) string {
	return DigitsOnly(StripSeparators(s))
}

// NormalizeDiagnosisCode trims, uppercases and strips separators, so "j11.1"
// becomes "J111". Returns None for blank-like input.
func NormalizeDiagnosisCode(v OptString) OptString {
	if v.IsBlankLike() {
		return None()
	}
	s := StripSeparators(strings.ToUpper(v.Value))
	if s == "" {
		return None()
	}
	return Some(s)
}

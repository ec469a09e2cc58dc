package normalize

import "strings"

// sentinels are tokens that mean "no value" even though they are present.
var sentinels = map[string]bool{
	"":     true,
	"null": true,
	"none": true,
	"nan":  true,
	"nat":  true,
}

// OptString is a string that may be absent. JSON null, a missing cell, and a
// nil pointer all map to the zero OptString.
type OptString struct {
	Value string
	Valid bool
}

// Some wraps a present value.
func Some(s string) OptString {
	return OptString{Value: s, Valid: true}
}

// None is the absent value.
func None() OptString {
	return OptString{}
}

// Trimmed returns the value with surrounding whitespace removed, or "" when absent.
func (o OptString) Trimmed() string {
	if !o.Valid {
		return ""
	}
	return strings.TrimSpace(o.Value)
}

// IsBlankLike reports whether the value is absent, empty, or one of the
// sentinel tokens null/none/nan/nat (case-insensitive).
func (o OptString) IsBlankLike() bool {
	if !o.Valid {
		return true
	}
	return IsSentinel(o.Value)
}

// IsBlankOrZero is IsBlankLike extended with the "00" placeholder used by
// RIPS code fields.
func (o OptString) IsBlankOrZero() bool {
	return o.IsBlankLike() || o.Trimmed() == "00"
}

// IsEmpty reports whether the value is absent or whitespace only. Sentinel
// tokens are not empty.
func (o OptString) IsEmpty() bool {
	return o.Trimmed() == ""
}

// Ptr returns a pointer to the value, or nil when absent.
func (o OptString) Ptr() *string {
	if !o.Valid {
		return nil
	}
	s := o.Value
	return &s
}

// Clean trims the value and turns blank-like values into None.
func (o OptString) Clean() OptString {
	if o.IsBlankLike() {
		return OptString{}
	}
	return Some(strings.TrimSpace(o.Value))
}

func (o OptString) String() string {
	if !o.Valid {
		return "<null>"
	}
	return o.Value
}

// IsSentinel reports whether s, once trimmed, is empty or a sentinel token.
func IsSentinel(s string) bool {
	return sentinels[strings.ToLower(strings.TrimSpace(s))]
}

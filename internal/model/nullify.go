package model

import (
	"sort"

	"github.com/gyeh/ripsfix/internal/normalize"
)

// NullificationSet holds diagnosis codes that must be cleared when they show
// up in a related-diagnosis field. Membership is exact and case-sensitive.
type NullificationSet struct {
	codes map[string]struct{}
}

// NewNullificationSet builds a set from raw codes. Each code is cleaned of
// whitespace, carriage returns and byte-order marks; blank and sentinel
// values are dropped.
func NewNullificationSet(codes ...string) NullificationSet {
	s := NullificationSet{codes: make(map[string]struct{}, len(codes))}
	for _, c := range codes {
		s.add(c)
	}
	return s
}

func (s NullificationSet) add(code string) {
	c := normalize.CleanToken(code)
	if normalize.IsSentinel(c) {
		return
	}
	s.codes[c] = struct{}{}
}

// Union returns a new set holding the members of s and other.
func (s NullificationSet) Union(other NullificationSet) NullificationSet {
	out := NullificationSet{codes: make(map[string]struct{}, s.Len()+other.Len())}
	for c := range s.codes {
		out.codes[c] = struct{}{}
	}
	for c := range other.codes {
		out.codes[c] = struct{}{}
	}
	return out
}

// Contains reports whether code is a member. The zero set contains nothing.
func (s NullificationSet) Contains(code string) bool {
	_, ok := s.codes[code]
	return ok
}

// Len returns the number of codes.
func (s NullificationSet) Len() int {
	return len(s.codes)
}

// Codes returns the members sorted.
func (s NullificationSet) Codes() []string {
	out := make([]string, 0, len(s.codes))
	for c := range s.codes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

package diagindex

import (
	"strings"

	"github.com/gyeh/ripsfix/internal/config"
	"github.com/gyeh/ripsfix/internal/model"
)

// Tier identifies which matcher resolved a lookup.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierNumber
	TierSuffix
	TierAlias
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierNumber:
		return "number"
	case TierSuffix:
		return "suffix"
	case TierAlias:
		return "alias"
	default:
		return "none"
	}
}

// Category returns the ledger counter for matches found by t.
func (t Tier) Category() (model.Category, bool) {
	switch t {
	case TierExact:
		return model.MatchedExact, true
	case TierNumber:
		return model.MatchedNumber, true
	case TierSuffix:
		return model.MatchedSuffix, true
	case TierAlias:
		return model.MatchedAlias, true
	default:
		return "", false
	}
}

// Matcher is one step of the lookup fallback chain.
type Matcher interface {
	Tier() Tier
	TryMatch(key model.PatientKey, idx *Index) (model.DiagnosticInfo, bool)
}

// ExactMatcher matches on document type and number.
type ExactMatcher struct{}

func (ExactMatcher) Tier() Tier { return TierExact }

func (ExactMatcher) TryMatch(key model.PatientKey, idx *Index) (model.DiagnosticInfo, bool) {
	return idx.exact(key)
}

// NumberMatcher ignores the document type and returns the first entry, in
// insertion order, with the same number.
type NumberMatcher struct{}

func (NumberMatcher) Tier() Tier { return TierNumber }

func (NumberMatcher) TryMatch(key model.PatientKey, idx *Index) (model.DiagnosticInfo, bool) {
	pos, ok := idx.byNumber[key.DocNumber]
	if !ok {
		return model.EmptyDiagnostic, false
	}
	return idx.entries[pos].info, true
}

// SuffixMatcher compares the last Digits digits of numbers longer than
// Digits. It returns the first entry whose own number is longer than Digits
// and contains that tail.
type SuffixMatcher struct {
	Digits int
}

func (SuffixMatcher) Tier() Tier { return TierSuffix }

func (m SuffixMatcher) TryMatch(key model.PatientKey, idx *Index) (model.DiagnosticInfo, bool) {
	n := key.DocNumber
	if m.Digits <= 0 || len(n) <= m.Digits {
		return model.EmptyDiagnostic, false
	}
	tail := n[len(n)-m.Digits:]
	for _, e := range idx.entries {
		num := e.key.DocNumber
		// A number ending with tail also contains it.
		if len(num) > m.Digits && strings.Contains(num, tail) {
			return e.info, true
		}
	}
	return model.EmptyDiagnostic, false
}

// AliasMatcher retries the exact lookup with every spelling in the alias
// group that contains the key's document type.
type AliasMatcher struct {
	Groups [][]string
}

func (AliasMatcher) Tier() Tier { return TierAlias }

func (m AliasMatcher) TryMatch(key model.PatientKey, idx *Index) (model.DiagnosticInfo, bool) {
	for _, group := range m.Groups {
		if !contains(group, key.DocType) {
			continue
		}
		for _, alias := range group {
			if info, ok := idx.exact(model.PatientKey{DocType: alias, DocNumber: key.DocNumber}); ok {
				return info, true
			}
		}
	}
	return model.EmptyDiagnostic, false
}

func contains(group []string, s string) bool {
	for _, g := range group {
		if g == s {
			return true
		}
	}
	return false
}

// DefaultChain is exact, number, six-digit suffix, then the default alias groups.
func DefaultChain() []Matcher {
	return ChainFromRules(config.DefaultRules())
}

// ChainFromRules builds the matcher chain with the suffix length and alias
// groups taken from rules.
func ChainFromRules(rules config.Rules) []Matcher {
	digits := rules.SuffixDigits
	if digits == 0 {
		digits = config.DefaultSuffixDigits
	}
	return []Matcher{
		ExactMatcher{},
		NumberMatcher{},
		SuffixMatcher{Digits: digits},
		AliasMatcher{Groups: rules.AliasGroups()},
	}
}

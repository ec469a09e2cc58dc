package diagindex

import (
	"github.com/gyeh/ripsfix/internal/model"
	"github.com/gyeh/ripsfix/internal/normalize"
)

type entry struct {
	key  model.PatientKey
	info model.DiagnosticInfo
}

// Index maps patient keys to the diagnostic resolved from the reference
// table. It is read-only once built and safe for concurrent Lookup.
type Index struct {
	entries  []entry
	byKey    map[model.PatientKey]int
	byNumber map[string]int
	chain    []Matcher
}

// BuildStats describes one Build pass over the reference rows.
type BuildStats struct {
	Rows       int
	Indexed    int
	Skipped    int
	Duplicates int
}

// Build indexes rows with the default matcher chain.
func Build(rows []model.ReferenceRow) *Index {
	idx, _ := BuildWithStats(rows, DefaultChain())
	return idx
}

// BuildWithStats indexes rows, keeping the first row seen for each patient
// key, and reports how many rows were skipped or shadowed. chain is the
// ordered matcher list used by Lookup.
func BuildWithStats(rows []model.ReferenceRow, chain []Matcher) (*Index, BuildStats) {
	idx := &Index{
		byKey:    make(map[model.PatientKey]int, len(rows)),
		byNumber: make(map[string]int, len(rows)),
		chain:    chain,
	}
	stats := BuildStats{Rows: len(rows)}

	for _, r := range rows {
		if normalize.IsSentinel(r.PatientDocType) || normalize.IsSentinel(r.PatientDocNumber) || normalize.IsSentinel(r.DiagnosisCode) {
			stats.Skipped++
			continue
		}
		key := model.NewPatientKey(r.PatientDocType, r.PatientDocNumber)
		code := normalize.NormalizeDiagnosisCode(normalize.Some(r.DiagnosisCode))
		if key.DocType == "" || key.DocNumber == "" || !code.Valid {
			stats.Skipped++
			continue
		}
		if _, dup := idx.byKey[key]; dup {
			stats.Duplicates++
			continue
		}

		info := model.DiagnosticInfo{DiagnosisCode: code}
		if !normalize.IsSentinel(r.ProfessionalDocType) {
			info.ProfessionalDocType = normalize.Some(normalize.NormalizeDocType(r.ProfessionalDocType))
		}
		if !normalize.IsSentinel(r.ProfessionalDocNumber) {
			if n := normalize.StripSeparators(r.ProfessionalDocNumber); n != "" {
				info.ProfessionalDocNumber = normalize.Some(n)
			}
		}

		pos := len(idx.entries)
		idx.entries = append(idx.entries, entry{key: key, info: info})
		idx.byKey[key] = pos
		if _, seen := idx.byNumber[key.DocNumber]; !seen {
			idx.byNumber[key.DocNumber] = pos
		}
		stats.Indexed++
	}
	return idx, stats
}

// Empty returns an index with no entries. Every lookup misses.
func Empty() *Index {
	idx, _ := BuildWithStats(nil, DefaultChain())
	return idx
}

// Len returns the number of indexed patient keys.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Match is the outcome of a lookup.
type Match struct {
	Info model.DiagnosticInfo
	Tier Tier
}

// Found reports whether any tier matched.
func (m Match) Found() bool {
	return m.Tier != TierNone
}

// Lookup resolves key through the matcher chain in order. A miss returns
// model.EmptyDiagnostic with TierNone.
func (idx *Index) Lookup(key model.PatientKey) Match {
	for _, m := range idx.chain {
		if info, ok := m.TryMatch(key, idx); ok {
			return Match{Info: info, Tier: m.Tier()}
		}
	}
	return Match{Info: model.EmptyDiagnostic, Tier: TierNone}
}

// Keys returns the indexed keys in insertion order, up to limit (all when
// limit <= 0).
func (idx *Index) Keys(limit int) []model.PatientKey {
	n := len(idx.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.PatientKey, n)
	for i := 0; i < n; i++ {
		out[i] = idx.entries[i].key
	}
	return out
}

func (idx *Index) exact(key model.PatientKey) (model.DiagnosticInfo, bool) {
	pos, ok := idx.byKey[key]
	if !ok {
		return model.EmptyDiagnostic, false
	}
	return idx.entries[pos].info, true
}

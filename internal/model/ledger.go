package model

import (
	"fmt"
	"sort"
)

// Category names one kind of change tracked by the Ledger.
type Category string

// Change categories. Each successful rule application increments exactly one
// of these (principal diagnosis completion also bumps DiagnosticsFound).
const (
	DocumentTypeFixups              Category = "document_type_fixups"
	CountryFixups                   Category = "country_fixups"
	RelatedDiagnosisNullifications  Category = "related_diagnosis_nullifications"
	TechnologyPurposeFixups         Category = "technology_purpose_fixups"
	MedicationTypeFixups            Category = "medication_type_fixups"
	ModalityFixups                  Category = "modality_fixups"
	PrincipalDiagnosisCompletions   Category = "principal_diagnosis_completions"
	PrincipalDiagnosisTypeFixups    Category = "principal_diagnosis_type_fixups"
	ProfessionalDocumentCompletions Category = "professional_document_completions"
	ProfessionalDocumentTypeFixups  Category = "professional_document_type_fixups"
	ConsultationCodeCleanups        Category = "consultation_code_cleanups"
)

// Bookkeeping counters. They describe the run, not changes to the tree.
const (
	DiagnosticsFound  Category = "diagnostics_found"
	PatientsProcessed Category = "patients_processed"
	ServicesProcessed Category = "services_processed"
	PatientsMatched   Category = "patients_matched"
	MatchedExact      Category = "matched_exact"
	MatchedNumber     Category = "matched_number"
	MatchedSuffix     Category = "matched_suffix"
	MatchedAlias      Category = "matched_alias"
)

// ChangeCategories lists the categories that correspond to a mutation of the
// record tree, in report order.
var ChangeCategories = []Category{
	DocumentTypeFixups,
	CountryFixups,
	ConsultationCodeCleanups,
	RelatedDiagnosisNullifications,
	PrincipalDiagnosisCompletions,
	PrincipalDiagnosisTypeFixups,
	ProfessionalDocumentCompletions,
	ProfessionalDocumentTypeFixups,
	TechnologyPurposeFixups,
	MedicationTypeFixups,
	ModalityFixups,
}

// Ledger accumulates counters, error descriptions and, when auditing is
// enabled, one ChangeEvent per mutation. Counters only ever go up.
// A Ledger is not safe for concurrent use; give each goroutine its own and
// Merge afterwards.
type Ledger struct {
	Counts map[Category]int64
	Errors []string
	Events []ChangeEvent

	audit bool
}

// NewLedger returns an empty ledger. With audit set, Record keeps every event.
func NewLedger(audit bool) *Ledger {
	return &Ledger{
		Counts: make(map[Category]int64),
		audit:  audit,
	}
}

// Auditing reports whether events are retained.
func (l *Ledger) Auditing() bool {
	return l.audit
}

// Inc adds one to category c.
func (l *Ledger) Inc(c Category) {
	l.Counts[c]++
}

// Record counts ev under its category and keeps it when auditing.
func (l *Ledger) Record(ev ChangeEvent) {
	l.Counts[ev.Category]++
	if l.audit {
		l.Events = append(l.Events, ev)
	}
}

// Errorf appends a formatted error description.
func (l *Ledger) Errorf(format string, args ...any) {
	l.Errors = append(l.Errors, fmt.Sprintf(format, args...))
}

// Count returns the current value of category c.
func (l *Ledger) Count(c Category) int64 {
	return l.Counts[c]
}

// Changes sums every change category.
func (l *Ledger) Changes() int64 {
	var n int64
	for _, c := range ChangeCategories {
		n += l.Counts[c]
	}
	return n
}

// Merge adds other's counters into l and appends its errors and events.
// Counter merging is order-independent; errors and events keep call order.
func (l *Ledger) Merge(other *Ledger) {
	if other == nil {
		return
	}
	for c, n := range other.Counts {
		l.Counts[c] += n
	}
	l.Errors = append(l.Errors, other.Errors...)
	if l.audit {
		l.Events = append(l.Events, other.Events...)
	}
}

// Categories returns every category with a non-zero count, sorted by name.
func (l *Ledger) Categories() []Category {
	cats := make([]Category, 0, len(l.Counts))
	for c, n := range l.Counts {
		if n != 0 {
			cats = append(cats, c)
		}
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}

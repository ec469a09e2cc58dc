package repair

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/gyeh/ripsfix/internal/config"
	"github.com/gyeh/ripsfix/internal/model"
	"github.com/gyeh/ripsfix/internal/normalize"
	"github.com/gyeh/ripsfix/internal/rips"
)

// professionalNI is the document type that is always rewritten to CC on
// service entries.
const professionalNI = "NI"

// Normalizer applies the service-level repair rules. It never adds keys to
// a service entry; a rule whose field is absent is skipped. Normalizer holds
// no mutable state and may be shared between goroutines.
type Normalizer struct {
	Rules   config.Rules
	Nullify model.NullificationSet
	Log     zerolog.Logger
}

// New returns a Normalizer for rules. The nullification set is the union of
// rules.NullifyCodes and extra.
func New(rules config.Rules, extra model.NullificationSet, log zerolog.Logger) *Normalizer {
	return &Normalizer{
		Rules:   rules,
		Nullify: model.NewNullificationSet(rules.NullifyCodes...).Union(extra),
		Log:     log,
	}
}

// Apply runs every rule against svc in a fixed order, recording each change
// in ledger.
func (n *Normalizer) Apply(svc *rips.Object, diag model.DiagnosticInfo, ledger *model.Ledger, at model.Location) {
	c := change{svc: svc, ledger: ledger, at: at, log: n.Log}

	c.cleanConsultationCode()

	for _, field := range []string{model.FieldRelatedDiagnosis1, model.FieldRelatedDiagnosis2} {
		if v, ok := svc.Scalar(field); ok && v.Valid && n.Nullify.Contains(normalize.CleanToken(v.Value)) {
			c.set(field, v, normalize.None(), model.RelatedDiagnosisNullifications)
		}
	}

	if v, ok := svc.Scalar(model.FieldPrincipalDiagnosis); ok && (v.IsBlankLike() || v.Trimmed() == "0") && diag.DiagnosisCode.Valid {
		c.set(model.FieldPrincipalDiagnosis, v, diag.DiagnosisCode, model.PrincipalDiagnosisCompletions)
		ledger.Inc(model.DiagnosticsFound)
	}

	if v, ok := svc.Scalar(model.FieldPrincipalDiagnosisType); ok && v.IsBlankOrZero() {
		c.set(model.FieldPrincipalDiagnosisType, v, normalize.Some(n.Rules.PrincipalDiagnosisType), model.PrincipalDiagnosisTypeFixups)
	}

	if v, ok := svc.Scalar(model.FieldDocType); ok && v.IsBlankOrZero() && diag.ProfessionalDocType.Valid {
		c.set(model.FieldDocType, v, diag.ProfessionalDocType, model.ProfessionalDocumentCompletions)
	}
	// Runs after the completion above, so a completed "NI" is also rewritten.
	if v, ok := svc.Scalar(model.FieldDocType); ok && strings.ToUpper(v.Trimmed()) == professionalNI {
		c.set(model.FieldDocType, v, normalize.Some("CC"), model.ProfessionalDocumentTypeFixups)
	}

	if v, ok := svc.Scalar(model.FieldDocNumber); ok && v.IsBlankOrZero() && diag.ProfessionalDocNumber.Valid {
		c.set(model.FieldDocNumber, v, diag.ProfessionalDocNumber, model.ProfessionalDocumentCompletions)
	}

	if v, ok := svc.Scalar(model.FieldTechnologyPurpose); ok && (!v.Valid || v.Value == "") {
		c.set(model.FieldTechnologyPurpose, v, normalize.Some(n.Rules.TechnologyPurpose), model.TechnologyPurposeFixups)
	}

	if v, ok := svc.Scalar(model.FieldMedicationType); ok && v.IsBlankOrZero() {
		c.set(model.FieldMedicationType, v, normalize.Some(n.Rules.MedicationType), model.MedicationTypeFixups)
	}

	if v, ok := svc.Scalar(model.FieldModality); ok && v.IsBlankOrZero() {
		c.set(model.FieldModality, v, normalize.Some(n.Rules.Modality), model.ModalityFixups)
	}
}

// change writes one field and records it.
type change struct {
	svc    *rips.Object
	ledger *model.Ledger
	at     model.Location
	log    zerolog.Logger
}

func (c change) set(field string, from, to normalize.OptString, cat model.Category) {
	if !c.svc.Replace(field, rips.Value(to)) {
		return
	}
	c.ledger.Record(model.ChangeEvent{Category: cat, Location: c.at, Field: field, Old: from, New: to})
	c.log.Debug().
		Str("patient", c.at.Patient.String()).
		Str("list", c.at.ServiceList).
		Int("index", c.at.ServiceIndex).
		Str("field", field).
		Stringer("old", from).
		Stringer("new", to).
		Msg(string(cat))
}

// cleanConsultationCode reduces a string codConsulta to its digits.
// Blank-like values and JSON numbers are left alone; a value with no digits
// becomes "". Trimming surrounding whitespace is applied but not counted.
func (c change) cleanConsultationCode() {
	raw, _ := c.svc.Get(model.FieldConsultCode)
	s, ok := raw.(string)
	if !ok || normalize.IsSentinel(s) {
		return
	}
	original := strings.TrimSpace(s)
	digits := normalize.DigitsOnly(original)
	switch {
	case digits == s:
		return
	case digits == original:
		c.svc.Replace(model.FieldConsultCode, digits)
	default:
		c.set(model.FieldConsultCode, normalize.Some(s), normalize.Some(digits), model.ConsultationCodeCleanups)
	}
}

package repair

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gyeh/ripsfix/internal/config"
	"github.com/gyeh/ripsfix/internal/model"
	"github.com/gyeh/ripsfix/internal/normalize"
	"github.com/gyeh/ripsfix/internal/rips"
)

func service(t *testing.T, js string) *rips.Object {
	t.Helper()
	doc, err := rips.Decode([]byte(js))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return doc.Root
}

func newNormalizer(codes ...string) *Normalizer {
	return New(config.DefaultRules(), model.NewNullificationSet(codes...), zerolog.Nop())
}

var at = model.PatientLocation(0, model.NewPatientKey("CC", "1")).Service("procedimientos", 0)

func str(t *testing.T, o *rips.Object, key string) normalize.OptString {
	t.Helper()
	v, ok := o.Scalar(key)
	if !ok {
		t.Fatalf("%s: not a scalar or absent", key)
	}
	return v
}

func TestApply_ConsultationCode(t *testing.T) {
	tests := []struct {
		in      string
		want    any
		changed int64
	}{
		{`"89.02-01"`, "890201", 1},
		{`"890201"`, "890201", 0},
		{`" 890201 "`, "890201", 0},
		{`" 89.02 "`, "8902", 1},
		{`890201`, nil, 0},
		{`"ABC"`, "", 1},
		{`"null"`, "null", 0},
		{`null`, nil, 0},
	}
	n := newNormalizer()
	for _, tt := range tests {
		svc := service(t, `{"codConsulta": `+tt.in+`}`)
		l := model.NewLedger(false)
		n.Apply(svc, model.EmptyDiagnostic, l, at)

		if got := l.Count(model.ConsultationCodeCleanups); got != tt.changed {
			t.Errorf("%s: cleanups = %d, want %d", tt.in, got, tt.changed)
		}
		if tt.want != nil {
			if v := str(t, svc, model.FieldConsultCode); v.Value != tt.want {
				t.Errorf("%s: codConsulta = %q, want %q", tt.in, v.Value, tt.want)
			}
		}

		// Idempotent: a second pass changes nothing.
		l2 := model.NewLedger(false)
		n.Apply(svc, model.EmptyDiagnostic, l2, at)
		if l2.Changes() != 0 {
			t.Errorf("%s: second pass changed %d fields", tt.in, l2.Changes())
		}
	}
}

func TestApply_ConsultationCodeNumbersUntouched(t *testing.T) {
	n := newNormalizer()
	for _, in := range []string{`890201`, `8.9e5`, `890201.0`} {
		svc := service(t, `{"codConsulta": `+in+`}`)
		l := model.NewLedger(false)
		n.Apply(svc, model.EmptyDiagnostic, l, at)

		out, err := rips.Encode(&rips.Document{Root: svc})
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if want := `"codConsulta": ` + in; !strings.Contains(string(out), want) {
			t.Errorf("%s: output %s, want %s", in, out, want)
		}
		if l.Changes() != 0 {
			t.Errorf("%s: %d changes recorded", in, l.Changes())
		}
	}
}

func TestApply_PrincipalDiagnosis(t *testing.T) {
	diag := model.DiagnosticInfo{DiagnosisCode: normalize.Some("J111")}
	n := newNormalizer()

	for _, in := range []string{`""`, `"0"`, `null`, `"NaN"`, `" none "`} {
		svc := service(t, `{"codDiagnosticoPrincipal": `+in+`}`)
		l := model.NewLedger(false)
		n.Apply(svc, diag, l, at)
		if v := str(t, svc, model.FieldPrincipalDiagnosis); v.Value != "J111" {
			t.Errorf("%s: codDiagnosticoPrincipal = %v", in, v)
		}
		if l.Count(model.PrincipalDiagnosisCompletions) != 1 || l.Count(model.DiagnosticsFound) != 1 {
			t.Errorf("%s: counters = %v", in, l.Counts)
		}
	}

	// X00 is a real code and is left alone.
	svc := service(t, `{"codDiagnosticoPrincipal": "X00"}`)
	l := model.NewLedger(false)
	n.Apply(svc, diag, l, at)
	if v := str(t, svc, model.FieldPrincipalDiagnosis); v.Value != "X00" || l.Changes() != 0 {
		t.Errorf("X00 changed to %v (%d changes)", v, l.Changes())
	}

	// Without a resolved diagnosis the field stays empty.
	svc = service(t, `{"codDiagnosticoPrincipal": ""}`)
	l = model.NewLedger(false)
	n.Apply(svc, model.EmptyDiagnostic, l, at)
	if v := str(t, svc, model.FieldPrincipalDiagnosis); v.Value != "" || l.Changes() != 0 {
		t.Errorf("empty diagnosis completed to %v", v)
	}
}

func TestApply_ProfessionalNI(t *testing.T) {
	n := newNormalizer()

	svc := service(t, `{"tipoDocumentoIdentificacion": "NI", "numDocumentoIdentificacion": "900"}`)
	l := model.NewLedger(false)
	n.Apply(svc, model.EmptyDiagnostic, l, at)
	if v := str(t, svc, model.FieldDocType); v.Value != "CC" {
		t.Errorf("tipoDocumentoIdentificacion = %v, want CC", v)
	}
	if l.Count(model.ProfessionalDocumentTypeFixups) != 1 {
		t.Errorf("type fixups = %d", l.Count(model.ProfessionalDocumentTypeFixups))
	}

	// Completion from the reference and the NI rewrite both fire.
	diag := model.DiagnosticInfo{ProfessionalDocType: normalize.Some("NI"), ProfessionalDocNumber: normalize.Some("79555111")}
	svc = service(t, `{"tipoDocumentoIdentificacion": "", "numDocumentoIdentificacion": "00"}`)
	l = model.NewLedger(false)
	n.Apply(svc, diag, l, at)
	if v := str(t, svc, model.FieldDocType); v.Value != "CC" {
		t.Errorf("tipoDocumentoIdentificacion = %v, want CC", v)
	}
	if v := str(t, svc, model.FieldDocNumber); v.Value != "79555111" {
		t.Errorf("numDocumentoIdentificacion = %v", v)
	}
	if l.Count(model.ProfessionalDocumentCompletions) != 2 || l.Count(model.ProfessionalDocumentTypeFixups) != 1 {
		t.Errorf("counters = %v", l.Counts)
	}
}

func TestApply_RelatedDiagnosisNullification(t *testing.T) {
	js := `{"codDiagnosticoRelacionado1": "A15", "codDiagnosticoRelacionado2": "A15\r\n"}`

	svc := service(t, js)
	l := model.NewLedger(true)
	newNormalizer("A15").Apply(svc, model.EmptyDiagnostic, l, at)
	if v := str(t, svc, model.FieldRelatedDiagnosis1); v.Valid {
		t.Errorf("codDiagnosticoRelacionado1 = %v, want null", v)
	}
	if v := str(t, svc, model.FieldRelatedDiagnosis2); v.Valid {
		t.Errorf("codDiagnosticoRelacionado2 = %v, want null", v)
	}
	if l.Count(model.RelatedDiagnosisNullifications) != 2 {
		t.Errorf("nullifications = %d", l.Count(model.RelatedDiagnosisNullifications))
	}
	if len(l.Events) != 2 || l.Events[0].Old.Value != "A15" || l.Events[0].New.Valid {
		t.Errorf("events = %+v", l.Events)
	}

	// Empty set leaves the code alone; membership is case-sensitive.
	for _, n := range []*Normalizer{newNormalizer(), newNormalizer("a15")} {
		svc = service(t, js)
		l = model.NewLedger(false)
		n.Apply(svc, model.EmptyDiagnostic, l, at)
		if v := str(t, svc, model.FieldRelatedDiagnosis1); v.Value != "A15" {
			t.Errorf("codDiagnosticoRelacionado1 = %v, want A15", v)
		}
	}
}

func TestApply_DefaultsAndTypes(t *testing.T) {
	svc := service(t, `{
		"tipoDiagnosticoPrincipal": "00",
		"finalidadTecnologiaSalud": null,
		"tipoMedicamento": "",
		"modalidadGrupoServicioTecSal": "01",
		"vrServicio": 1500.00
	}`)
	l := model.NewLedger(false)
	newNormalizer().Apply(svc, model.EmptyDiagnostic, l, at)

	want := map[string]string{
		model.FieldPrincipalDiagnosisType: "03",
		model.FieldTechnologyPurpose:      "44",
		model.FieldMedicationType:         "01",
		model.FieldModality:               "01",
	}
	for k, w := range want {
		if v := str(t, svc, k); v.Value != w {
			t.Errorf("%s = %v, want %s", k, v, w)
		}
	}
	if l.Count(model.ModalityFixups) != 0 {
		t.Error("modality already set must not count")
	}
	if l.Changes() != 3 {
		t.Errorf("changes = %d, want 3", l.Changes())
	}
	if v := str(t, svc, "vrServicio"); v.Value != "1500.00" {
		t.Errorf("untouched number rewritten to %v", v)
	}
}

func TestApply_NeverAddsKeys(t *testing.T) {
	svc := service(t, `{"codServicio": 1}`)
	diag := model.DiagnosticInfo{
		DiagnosisCode:         normalize.Some("J111"),
		ProfessionalDocType:   normalize.Some("CC"),
		ProfessionalDocNumber: normalize.Some("1"),
	}
	l := model.NewLedger(false)
	newNormalizer("A15").Apply(svc, diag, l, at)
	if svc.Len() != 1 {
		t.Errorf("keys = %v, want only codServicio", svc.Keys())
	}
	if l.Changes() != 0 || l.Count(model.DiagnosticsFound) != 0 {
		t.Errorf("counters = %v", l.Counts)
	}
}

package reftable

import (
	"fmt"
	"strings"

	"github.com/gyeh/ripsfix/internal/model"
	"github.com/gyeh/ripsfix/internal/normalize"
)

// LoadReference opens a reference table, identifies its columns and returns
// one ReferenceRow per data row. On a ColumnIdentificationError the partial
// mapping is returned alongside the error.
func LoadReference(path string, opts Options) ([]model.ReferenceRow, ColumnMapping, error) {
	t, err := Open(path, opts)
	if err != nil {
		return nil, ColumnMapping{}, err
	}
	m, err := IdentifyColumns(t.Headers)
	if err != nil {
		return nil, m, err
	}
	return Rows(t, m), m, nil
}

// Rows projects t onto the reference roles of m. Cells are passed through
// raw; validation and normalization happen when the index is built.
func Rows(t *Table, m ColumnMapping) []model.ReferenceRow {
	out := make([]model.ReferenceRow, len(t.Rows))
	for i := range t.Rows {
		out[i] = model.ReferenceRow{
			PatientDocType:        t.Cell(i, m.Index[RolePatientDocType]),
			PatientDocNumber:      t.Cell(i, m.Index[RolePatientDocNumber]),
			DiagnosisCode:         t.Cell(i, m.Index[RoleDiagnosis]),
			ProfessionalDocType:   t.Cell(i, m.Index[RoleProfessionalDocType]),
			ProfessionalDocNumber: t.Cell(i, m.Index[RoleProfessionalDocNumber]),
			Line:                  i + 1,
		}
	}
	return out
}

// nullifyColumn is the preferred header of a nullification code list.
const nullifyColumn = "codigos"

// LoadNullificationSet reads a code list. Codes come from the "Codigos"
// column (case-insensitive) or, failing that, the first column. Blank and
// sentinel cells are dropped.
func LoadNullificationSet(path string, opts Options) (model.NullificationSet, error) {
	t, err := Open(path, opts)
	if err != nil {
		return model.NullificationSet{}, err
	}
	if len(t.Headers) == 0 {
		return model.NullificationSet{}, fmt.Errorf("%s: code list has no columns", path)
	}

	col := 0
	for i, h := range t.Headers {
		if strings.EqualFold(normalize.CleanToken(h), nullifyColumn) {
			col = i
			break
		}
	}

	codes := make([]string, 0, len(t.Rows))
	for i := range t.Rows {
		codes = append(codes, t.Cell(i, col))
	}
	return model.NewNullificationSet(codes...), nil
}

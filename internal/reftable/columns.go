package reftable

import (
	"fmt"
	"strings"

	"github.com/gyeh/ripsfix/internal/normalize"
)

// Role is a column the reference table must provide.
type Role int

const (
	RolePatientDocType Role = iota
	RolePatientDocNumber
	RoleDiagnosis
	RoleProfessionalDocType
	RoleProfessionalDocNumber
	numRoles
)

func (r Role) String() string {
	switch r {
	case RolePatientDocType:
		return "patient_document_type"
	case RolePatientDocNumber:
		return "patient_document_number"
	case RoleDiagnosis:
		return "diagnosis_code"
	case RoleProfessionalDocType:
		return "professional_document_type"
	case RoleProfessionalDocNumber:
		return "professional_document_number"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// rolePatterns lists the accepted header spellings per role.
var rolePatterns = [numRoles][]string{
	RolePatientDocType:        {"TipoDocumentoPaciente", "tipo_documento_paciente"},
	RolePatientDocNumber:      {"NumeroDocumentoPaciente", "numero_documento_paciente"},
	RoleDiagnosis:             {"CodDiagnostico", "codigo_diagnostico"},
	RoleProfessionalDocType:   {"TipoDocumentoProfesional", "tipo_documento_profesional"},
	RoleProfessionalDocNumber: {"numDocumentoIdentificacion", "numero_documento_profesional"},
}

// ColumnMapping holds the column index chosen for each role, and whether the
// choice came from a substring match.
type ColumnMapping struct {
	Index   [numRoles]int
	Header  [numRoles]string
	Partial [numRoles]bool
}

// ColumnIdentificationError reports roles with no matching header.
type ColumnIdentificationError struct {
	Missing   []string
	Available []string
}

func (e *ColumnIdentificationError) Error() string {
	return fmt.Sprintf("reference table: no column for %s (available: %s)",
		strings.Join(e.Missing, ", "), strings.Join(e.Available, ", "))
}

// IdentifyColumns maps every role to a header. Exact matches (case-folded,
// spaces and underscores removed) are assigned first across all headers;
// remaining roles then take the first header that contains, or is contained
// in, one of their patterns. A header serves at most one role. Empty headers
// never match.
func IdentifyColumns(headers []string) (ColumnMapping, error) {
	var m ColumnMapping
	for i := range m.Index {
		m.Index[i] = -1
	}
	used := make([]bool, len(headers))

	folded := make([]string, len(headers))
	for i, h := range headers {
		folded[i] = normalize.FoldHeader(h)
	}

	assign := func(role Role, col int, partial bool) {
		m.Index[role] = col
		m.Header[role] = headers[col]
		m.Partial[role] = partial
		used[col] = true
	}

	for col, h := range folded {
		if h == "" || used[col] {
			continue
		}
		for role := Role(0); role < numRoles; role++ {
			if m.Index[role] >= 0 {
				continue
			}
			if matchesAny(rolePatterns[role], func(p string) bool { return h == p }) {
				assign(role, col, false)
				break
			}
		}
	}

	for col, h := range folded {
		if h == "" || used[col] {
			continue
		}
		for role := Role(0); role < numRoles; role++ {
			if m.Index[role] >= 0 {
				continue
			}
			if matchesAny(rolePatterns[role], func(p string) bool {
				return strings.Contains(h, p) || strings.Contains(p, h)
			}) {
				assign(role, col, true)
				break
			}
		}
	}

	var missing []string
	for role := Role(0); role < numRoles; role++ {
		if m.Index[role] < 0 {
			missing = append(missing, role.String())
		}
	}
	if len(missing) > 0 {
		return m, &ColumnIdentificationError{Missing: missing, Available: append([]string(nil), headers...)}
	}
	return m, nil
}

func matchesAny(patterns []string, match func(folded string) bool) bool {
	for _, p := range patterns {
		if match(normalize.FoldHeader(p)) {
			return true
		}
	}
	return false
}

package normalize

import (
	"strings"
)

const bom = "\ufeff"

var headerFolder = strings.NewReplacer(" ", "", "_", "")

// FoldHeader lowercases a column header and removes spaces and underscores,
// so "Tipo_Documento Paciente" and "tipodocumentopaciente" compare equal.
func FoldHeader(h string) string {
	return headerFolder.Replace(strings.ToLower(CleanToken(h)))
}

// CleanToken removes byte-order marks, carriage returns, line feeds and
// surrounding whitespace from a cell read out of a spreadsheet export.
func CleanToken(s string) string {
	s = strings.ReplaceAll(s, bom, "")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return strings.TrimSpace(s)
}

package reftable

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"

	"github.com/gyeh/ripsfix/internal/model"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestIdentifyColumns_Exact(t *testing.T) {
	headers := []string{"TipoDocumentoPaciente", "Numero Documento Paciente", "codigo_diagnostico", "TIPO_DOCUMENTO_PROFESIONAL", "numDocumentoIdentificacion"}
	m, err := IdentifyColumns(headers)
	if err != nil {
		t.Fatalf("IdentifyColumns: %v", err)
	}
	for role := Role(0); role < numRoles; role++ {
		if m.Index[role] != int(role) {
			t.Errorf("%s -> column %d, want %d", role, m.Index[role], role)
		}
		if m.Partial[role] {
			t.Errorf("%s matched partially, want exact", role)
		}
	}
}

func TestIdentifyColumns_PrefersExactOverSubstring(t *testing.T) {
	// "CodDiagnosticoSecundario" contains "coddiagnostico" but the exact
	// header later in the row must win.
	headers := []string{"CodDiagnosticoSecundario", "TipoDocumentoPaciente", "NumeroDocumentoPaciente", "CodDiagnostico", "TipoDocumentoProfesional", "numero_documento_profesional"}
	m, err := IdentifyColumns(headers)
	if err != nil {
		t.Fatalf("IdentifyColumns: %v", err)
	}
	if m.Index[RoleDiagnosis] != 3 {
		t.Errorf("diagnosis -> column %d, want 3", m.Index[RoleDiagnosis])
	}
}

func TestIdentifyColumns_Substring(t *testing.T) {
	headers := []string{"TipoDocumentoPaciente", "NumeroDocumentoPaciente", "CodDiagnosticoPrincipal", "TipoDocumentoProfesional", "numDocumentoIdentificacion"}
	m, err := IdentifyColumns(headers)
	if err != nil {
		t.Fatalf("IdentifyColumns: %v", err)
	}
	if m.Index[RoleDiagnosis] != 2 || !m.Partial[RoleDiagnosis] {
		t.Errorf("diagnosis -> %d partial=%v", m.Index[RoleDiagnosis], m.Partial[RoleDiagnosis])
	}
}

func TestIdentifyColumns_Missing(t *testing.T) {
	headers := []string{"TipoDocumentoPaciente", "NumeroDocumentoPaciente", "CodDiagnostico", "", "otra"}
	_, err := IdentifyColumns(headers)
	var cie *ColumnIdentificationError
	if !errors.As(err, &cie) {
		t.Fatalf("expected ColumnIdentificationError, got %v", err)
	}
	if len(cie.Missing) != 2 || cie.Missing[0] != "professional_document_type" {
		t.Errorf("Missing = %v", cie.Missing)
	}
	if len(cie.Available) != 5 {
		t.Errorf("Available = %v", cie.Available)
	}
}

const refCSV = "TipoDocumentoPaciente;NumeroDocumentoPaciente;CodDiagnostico;TipoDocumentoProfesional;numDocumentoIdentificacion\n" +
	"CC;1.012.345.678;J11.1;CC;79555111\n" +
	"TI;555;\"K29\";;\n"

func TestLoadReference_CSV(t *testing.T) {
	path := writeFile(t, "ref.csv", append([]byte{0xEF, 0xBB, 0xBF}, refCSV...))
	rows, m, err := LoadReference(path, Options{Delimiter: ';'})
	if err != nil {
		t.Fatalf("LoadReference: %v", err)
	}
	if m.Header[RolePatientDocType] != "TipoDocumentoPaciente" {
		t.Errorf("BOM not stripped from header: %q", m.Header[RolePatientDocType])
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].PatientDocNumber != "1.012.345.678" || rows[0].DiagnosisCode != "J11.1" || rows[0].Line != 1 {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].ProfessionalDocType != "" || rows[1].DiagnosisCode != "K29" {
		t.Errorf("row 1 = %+v", rows[1])
	}
}

func TestLoadReference_Latin1(t *testing.T) {
	// 0xF3 is "ó" in ISO-8859-1.
	data := []byte("TipoDocumentoPaciente,NumeroDocumentoPaciente,CodDiagnostico,TipoDocumentoProfesional,numDocumentoIdentificacion,Observaci\xf3n\nCC,1,A01,CC,2,ni\xf1o\n")
	path := writeFile(t, "ref.txt", data)

	tbl, err := Open(path, Options{Delimiter: ',', Encoding: "latin-1"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if tbl.Headers[5] != "Observación" {
		t.Errorf("header = %q", tbl.Headers[5])
	}
	if tbl.Rows[0][5] != "niño" {
		t.Errorf("cell = %q", tbl.Rows[0][5])
	}
}

func TestLoadReference_MissingColumns(t *testing.T) {
	path := writeFile(t, "ref.csv", []byte("x,y,z\n1,2,3\n"))
	_, _, err := LoadReference(path, Options{Delimiter: ','})
	var cie *ColumnIdentificationError
	if !errors.As(err, &cie) {
		t.Fatalf("expected ColumnIdentificationError, got %v", err)
	}
	if len(cie.Missing) != 5 {
		t.Errorf("Missing = %v", cie.Missing)
	}
}

func TestOpen_Unsupported(t *testing.T) {
	path := writeFile(t, "ref.ods", []byte("x"))
	if _, err := Open(path, Options{}); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestLoadReference_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ref.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetSheetRow(sheet, "A1", &[]any{"tipo_documento_paciente", "numero_documento_paciente", "codigo_diagnostico", "tipo_documento_profesional", "numero_documento_profesional"})
	f.SetSheetRow(sheet, "A2", &[]any{"CC", "123", "E11.9", "CC", "555"})
	f.SetSheetRow(sheet, "A3", &[]any{"TI", "456", "I10"})
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	rows, _, err := LoadReference(path, Options{})
	if err != nil {
		t.Fatalf("LoadReference: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].DiagnosisCode != "E11.9" || rows[0].ProfessionalDocNumber != "555" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].ProfessionalDocType != "" {
		t.Errorf("short row must read missing cells as empty: %+v", rows[1])
	}
}

func TestLoadReference_Parquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ref.parquet")
	prof := "CC"
	in := []model.ReferenceParquetRow{
		{PatientDocType: "CC", PatientDocNumber: "123", DiagnosisCode: "J11.1", ProfessionalDocType: &prof},
		{PatientDocType: "TI", PatientDocNumber: "456", DiagnosisCode: "K29"},
	}
	if err := parquet.WriteFile(path, in); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	rows, _, err := LoadReference(path, Options{})
	if err != nil {
		t.Fatalf("LoadReference: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].PatientDocNumber != "123" || rows[0].ProfessionalDocType != "CC" || rows[0].ProfessionalDocNumber != "" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].DiagnosisCode != "K29" || rows[1].ProfessionalDocType != "" {
		t.Errorf("row 1 = %+v", rows[1])
	}
}

func TestLoadNullificationSet(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []string
	}{
		{"codigos column", "Descripcion,CODIGOS\nx,A15\ny, UCI1 \r\nz,nan\n", []string{"A15", "UCI1"}},
		{"first column", "code\nM32.\n\nA18.\n", []string{"A18.", "M32."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "codes.csv", []byte(tt.data))
			set, err := LoadNullificationSet(path, Options{Delimiter: ','})
			if err != nil {
				t.Fatalf("LoadNullificationSet: %v", err)
			}
			got := set.Codes()
			if len(got) != len(tt.want) {
				t.Fatalf("codes = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("codes = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

package model

// ReferenceParquetRow is the Parquet layout written by mkreffixture. Column
// names are chosen so reftable's column identification maps them exactly.
type ReferenceParquetRow struct {
	PatientDocType        string  `parquet:"tipo_documento_paciente"`
	PatientDocNumber      string  `parquet:"numero_documento_paciente"`
	DiagnosisCode         string  `parquet:"codigo_diagnostico"`
	ProfessionalDocType   *string `parquet:"tipo_documento_profesional,optional"`
	ProfessionalDocNumber *string `parquet:"numero_documento_profesional,optional"`
}

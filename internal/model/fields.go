package model

// RIPS JSON field names touched by the repair rules.
const (
	FieldUsers    = "usuarios"
	FieldServices = "servicios"

	FieldDocType     = "tipoDocumentoIdentificacion"
	FieldDocNumber   = "numDocumentoIdentificacion"
	FieldCountry     = "codPaisResidencia"
	FieldConsultCode = "codConsulta"

	FieldPrincipalDiagnosis     = "codDiagnosticoPrincipal"
	FieldPrincipalDiagnosisType = "tipoDiagnosticoPrincipal"
	FieldRelatedDiagnosis1      = "codDiagnosticoRelacionado1"
	FieldRelatedDiagnosis2      = "codDiagnosticoRelacionado2"

	FieldTechnologyPurpose = "finalidadTecnologiaSalud"
	FieldMedicationType    = "tipoMedicamento"
	FieldModality          = "modalidadGrupoServicioTecSal"
)

// ServiceList is one of the per-patient service arrays under "servicios".
type ServiceList struct {
	Name string // JSON key, e.g. "procedimientos"
}

// AllServiceLists lists the service arrays in processing order.
var AllServiceLists = []ServiceList{
	{Name: "consultas"},
	{Name: "procedimientos"},
	{Name: "medicamentos"},
	{Name: "otrosServicios"},
}

package model

import (
	"github.com/gyeh/ripsfix/internal/normalize"
)

// PatientKey identifies a patient by document type and digits-only document
// number. Build it with NewPatientKey so both halves are normalized.
type PatientKey struct {
	DocType   string
	DocNumber string
}

// NewPatientKey trims and uppercases the document type and reduces the
// document number to digits.
func NewPatientKey(docType, docNumber string) PatientKey {
	return PatientKey{
		DocType:   normalize.NormalizeDocType(docType),
		DocNumber: normalize.NormalizeDocNumber(docNumber),
	}
}

func (k PatientKey) String() string {
	return k.DocType + "-" + k.DocNumber
}

// DiagnosticInfo is the diagnosis and treating professional resolved for a
// patient from the reference table.
type DiagnosticInfo struct {
	DiagnosisCode         normalize.OptString
	ProfessionalDocType   normalize.OptString
	ProfessionalDocNumber normalize.OptString
}

// EmptyDiagnostic is returned when no reference entry matches a patient.
var EmptyDiagnostic = DiagnosticInfo{}

// IsEmpty reports whether no field is set.
func (d DiagnosticInfo) IsEmpty() bool {
	return !d.DiagnosisCode.Valid && !d.ProfessionalDocType.Valid && !d.ProfessionalDocNumber.Valid
}

// ReferenceRow is one row of the diagnostic reference table after column
// identification. Line is the 1-based source row (header excluded).
type ReferenceRow struct {
	PatientDocType        string
	PatientDocNumber      string
	DiagnosisCode         string
	ProfessionalDocType   string
	ProfessionalDocNumber string
	Line                  int
}

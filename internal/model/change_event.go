package model

import (
	"github.com/google/uuid"

	"github.com/gyeh/ripsfix/internal/normalize"
)

// Location pins a change to a patient and, for service-level rules, to one
// entry of one service list. ServiceIndex is -1 for patient-level changes.
type Location struct {
	PatientIndex int
	Patient      PatientKey
	ServiceList  string
	ServiceIndex int
}

// PatientLocation returns the location of a patient-level field.
func PatientLocation(index int, key PatientKey) Location {
	return Location{PatientIndex: index, Patient: key, ServiceIndex: -1}
}

// Service returns the location of entry i of list within the same patient.
func (l Location) Service(list string, i int) Location {
	l.ServiceList = list
	l.ServiceIndex = i
	return l
}

// ChangeEvent records one field rewrite.
type ChangeEvent struct {
	Category Category
	Location Location
	Field    string
	Old      normalize.OptString
	New      normalize.OptString
}

// EventRow is a ChangeEvent tagged with its run and sequence number for COPY
// into ripsfix.change_events.
type EventRow struct {
	RunID uuid.UUID
	Seq   int64
	Event ChangeEvent
}

// EventColumns returns the ordered column names for COPY into ripsfix.change_events.
func EventColumns() []string {
	return []string{
		"run_id",
		"seq",
		"patient_index",
		"patient_doc_type",
		"patient_doc_number",
		"service_list",
		"service_index",
		"field",
		"category",
		"old_value",
		"new_value",
	}
}

// CopyValues returns the row values in the same order as EventColumns().
func (r *EventRow) CopyValues() []any {
	ev := r.Event
	var list *string
	var idx *int32
	if ev.Location.ServiceIndex >= 0 {
		l := ev.Location.ServiceList
		i := int32(ev.Location.ServiceIndex)
		list, idx = &l, &i
	}
	return []any{
		r.RunID,
		r.Seq,
		int32(ev.Location.PatientIndex),
		ev.Location.Patient.DocType,
		ev.Location.Patient.DocNumber,
		list,
		idx,
		ev.Field,
		string(ev.Category),
		ev.Old.Ptr(),
		ev.New.Ptr(),
	}
}

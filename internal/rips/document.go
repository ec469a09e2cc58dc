package rips

import (
	"fmt"

	"github.com/gyeh/ripsfix/internal/model"
)

// StructuralError reports a required key or list missing from the document.
// It aborts the whole run.
type StructuralError struct {
	Path   string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("rips structure at %s: %s", e.Path, e.Reason)
}

// Document is a decoded RIPS file.
type Document struct {
	Root *Object
}

// Patients returns the "usuarios" array. The elements are not checked here;
// callers handle non-object entries per patient.
func (d *Document) Patients() ([]any, error) {
	raw, ok := d.Root.Get(model.FieldUsers)
	if !ok {
		return nil, &StructuralError{Path: "$", Reason: fmt.Sprintf("missing %q", model.FieldUsers)}
	}
	users, ok := raw.([]any)
	if !ok {
		return nil, &StructuralError{Path: "$." + model.FieldUsers, Reason: fmt.Sprintf("expected array, got %s", kindOf(raw))}
	}
	return users, nil
}

// Validate checks the top-level structure the engine relies on.
func (d *Document) Validate() error {
	_, err := d.Patients()
	return err
}

// Patient is a view over one "usuarios" entry.
type Patient struct {
	*Object
}

// AsPatient converts a "usuarios" element, failing when it is not an object.
func AsPatient(v any) (Patient, error) {
	obj, ok := v.(*Object)
	if !ok {
		return Patient{}, fmt.Errorf("patient must be an object, got %s", kindOf(v))
	}
	return Patient{Object: obj}, nil
}

// Services returns the entries of service list name. present is false when
// the patient has no "servicios" object or the list is absent.
func (p Patient) Services(name string) (items []any, present bool, err error) {
	raw, ok := p.Get(model.FieldServices)
	if !ok || raw == nil {
		return nil, false, nil
	}
	svc, ok := raw.(*Object)
	if !ok {
		return nil, false, fmt.Errorf("%s must be an object, got %s", model.FieldServices, kindOf(raw))
	}
	list, ok := svc.Get(name)
	if !ok || list == nil {
		return nil, false, nil
	}
	items, ok = list.([]any)
	if !ok {
		return nil, true, fmt.Errorf("%s.%s must be an array, got %s", model.FieldServices, name, kindOf(list))
	}
	return items, true, nil
}

// CountEmptyDiagnoses counts service entries whose principal diagnosis is
// blank-like or "0", across every service list. Malformed entries are skipped.
func CountEmptyDiagnoses(d *Document) (empty, total int) {
	users, err := d.Patients()
	if err != nil {
		return 0, 0
	}
	for _, u := range users {
		p, err := AsPatient(u)
		if err != nil {
			continue
		}
		for _, sl := range model.AllServiceLists {
			items, _, err := p.Services(sl.Name)
			if err != nil {
				continue
			}
			for _, it := range items {
				obj, ok := it.(*Object)
				if !ok {
					continue
				}
				total++
				v, _ := obj.Scalar(model.FieldPrincipalDiagnosis)
				if v.IsBlankLike() || v.Trimmed() == "0" {
					empty++
				}
			}
		}
	}
	return empty, total
}

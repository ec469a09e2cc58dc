package engine

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gyeh/ripsfix/internal/config"
	"github.com/gyeh/ripsfix/internal/diagindex"
	"github.com/gyeh/ripsfix/internal/model"
	"github.com/gyeh/ripsfix/internal/normalize"
	"github.com/gyeh/ripsfix/internal/repair"
	"github.com/gyeh/ripsfix/internal/rips"
)

// Engine resolves a diagnostic per patient and repairs the patient's
// service entries. Index and Normalizer are shared read-only.
type Engine struct {
	Index      *diagindex.Index
	Normalizer *repair.Normalizer
	Rules      config.Rules
	Log        zerolog.Logger
}

// Options controls ResolveDocument.
type Options struct {
	// Workers > 1 splits the patients into that many contiguous chunks.
	Workers int
	// Audit keeps one ChangeEvent per mutation in the returned ledger.
	Audit bool
}

// ResolveDocument repairs every patient of doc in place. A document without
// a "usuarios" array fails with *rips.StructuralError and no ledger.
func (e *Engine) ResolveDocument(ctx context.Context, doc *rips.Document, opts Options) (*model.Ledger, error) {
	users, err := doc.Patients()
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers > len(users) {
		workers = len(users)
	}
	if workers <= 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ledger := model.NewLedger(opts.Audit)
		e.resolveRange(users, 0, ledger)
		return ledger, nil
	}

	chunk := (len(users) + workers - 1) / workers
	nChunks := (len(users) + chunk - 1) / chunk
	ledgers := make([]*model.Ledger, nChunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < nChunks; i++ {
		start := i * chunk
		end := start + chunk
		if end > len(users) {
			end = len(users)
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			l := model.NewLedger(opts.Audit)
			e.resolveRange(users[start:end], start, l)
			ledgers[i] = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := model.NewLedger(opts.Audit)
	for _, l := range ledgers {
		merged.Merge(l)
	}
	e.Log.Debug().Int("chunks", nChunks).Int("chunk_size", chunk).Msg("merged chunk ledgers")
	return merged, nil
}

func (e *Engine) resolveRange(users []any, offset int, ledger *model.Ledger) {
	for i, u := range users {
		idx := offset + i
		p, err := rips.AsPatient(u)
		if err != nil {
			ledger.Errorf("usuarios[%d]: %v", idx, err)
			continue
		}
		e.ResolvePatient(p, idx, ledger)
	}
}

// ResolvePatient applies the patient-level repairs, looks up the patient's
// diagnostic and runs the normalizer over every service list in order.
// Malformed service lists and entries are reported in ledger.Errors.
func (e *Engine) ResolvePatient(p rips.Patient, index int, ledger *model.Ledger) {
	ledger.Inc(model.PatientsProcessed)

	docType, typeOK := p.Scalar(model.FieldDocType)
	docNumber, _ := p.Scalar(model.FieldDocNumber)
	key := model.NewPatientKey(docType.Value, docNumber.Value)
	at := model.PatientLocation(index, key)

	if needsDefault(p.Object, model.FieldDocType, docType, typeOK) || strings.ToUpper(docType.Trimmed()) == "NI" {
		key = model.NewPatientKey(e.Rules.PatientDocType, docNumber.Value)
		at.Patient = key
		e.setPatientField(p, model.FieldDocType, docType, e.Rules.PatientDocType, model.DocumentTypeFixups, ledger, at)
	}
	if country, ok := p.Scalar(model.FieldCountry); needsDefault(p.Object, model.FieldCountry, country, ok) {
		e.setPatientField(p, model.FieldCountry, country, e.Rules.CountryOfResidence, model.CountryFixups, ledger, at)
	}

	match := e.Index.Lookup(key)
	if cat, ok := match.Tier.Category(); ok {
		ledger.Inc(model.PatientsMatched)
		ledger.Inc(cat)
		e.Log.Debug().Str("patient", key.String()).Stringer("tier", match.Tier).
			Stringer("diagnosis", match.Info.DiagnosisCode).Msg("diagnostic resolved")
	} else {
		e.Log.Debug().Str("patient", key.String()).Msg("no diagnostic for patient")
	}

	for _, sl := range model.AllServiceLists {
		items, _, err := p.Services(sl.Name)
		if err != nil {
			ledger.Errorf("usuarios[%d] (%s): %v", index, key, err)
			continue
		}
		for j, it := range items {
			svc, ok := it.(*rips.Object)
			if !ok {
				ledger.Errorf("usuarios[%d] (%s): %s[%d] is not an object", index, key, sl.Name, j)
				continue
			}
			ledger.Inc(model.ServicesProcessed)
			e.Normalizer.Apply(svc, match.Info, ledger, at.Service(sl.Name, j))
		}
	}
}

// needsDefault reports whether a patient-level field is missing or holds a
// blank-like or "00" scalar.
func needsDefault(o *rips.Object, field string, v normalize.OptString, scalar bool) bool {
	if !o.Has(field) {
		return true
	}
	return scalar && v.IsBlankOrZero()
}

// setPatientField writes a patient-level default. Unlike service rules,
// patient repairs add the key when it is missing.
func (e *Engine) setPatientField(p rips.Patient, field string, from normalize.OptString, to string, cat model.Category, ledger *model.Ledger, at model.Location) {
	p.Set(field, to)
	ledger.Record(model.ChangeEvent{Category: cat, Location: at, Field: field, Old: from, New: normalize.Some(to)})
	e.Log.Debug().
		Str("patient", at.Patient.String()).
		Str("field", field).
		Stringer("old", from).
		Str("new", to).
		Msg(string(cat))
}

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/ripsfix/internal/config"
	"github.com/gyeh/ripsfix/internal/engine"
	"github.com/gyeh/ripsfix/internal/model"
	"github.com/gyeh/ripsfix/internal/repair"
	"github.com/gyeh/ripsfix/internal/rips"
)

// Phase names reported in PipelineError.
const (
	PhaseReference = "reference"
	PhasePreflight = "preflight"
	PhaseResolve   = "resolve"
	PhasePersist   = "persist"
	PhaseRecord    = "record"
	PhaseFinalize  = "finalize"
)

// PipelineError wraps an error with the phase where it occurred.
type PipelineError struct {
	Phase string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Run executes the full completion pipeline: reference → preflight →
// resolve → persist → record → finalize. pool may be nil, which disables
// the run registry and the audit trail. In dry-run mode the document is
// resolved but nothing is written anywhere.
func Run(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, cfg *config.Config) (*model.RunSummary, error) {
	totalStart := time.Now()
	if cfg.DryRun {
		pool = nil
	}

	// Phase 1: Reference
	log.Info().Str("file", cfg.ReferencePath).Msg("loading reference")
	ref, err := LoadReference(log, cfg)
	if err != nil {
		return nil, &PipelineError{Phase: PhaseReference, Err: err}
	}

	// Phase 2: Preflight
	log.Info().Str("file", cfg.RecordsPath).Msg("starting preflight")
	pf, err := Preflight(ctx, pool, log, cfg.RecordsPath, cfg.ReferencePath, cfg.Force, true)
	if err != nil {
		return nil, &PipelineError{Phase: PhasePreflight, Err: err}
	}

	summary := &model.RunSummary{
		RunID:             pf.RunID.String(),
		RecordsPath:       pf.RecordsPath,
		RecordsSHA256:     pf.RecordsSHA256,
		ReferenceEntries:  ref.Index.Len(),
		NullifyCodes:      ref.Nullify.Len(),
		DegradedIndex:     ref.Degraded,
		DryRun:            cfg.DryRun,
		DurationReference: ref.Duration,
	}

	if pf.AlreadyProcessed {
		log.Info().
			Str("previous_run_id", pf.PreviousRunID.String()).
			Str("sha256", pf.RecordsSHA256).
			Msg("file already processed, skipping (use --force to process again)")
		summary.RunID = pf.PreviousRunID.String()
		summary.AlreadyProcessed = true
		summary.DurationTotal = time.Since(totalStart)
		return summary, nil
	}

	fail := func(phase string, err error) (*model.RunSummary, error) {
		if pf.Registered {
			if uerr := UpdateStatus(ctx, pool, pf.RunID, "failed"); uerr != nil {
				log.Warn().Err(uerr).Msg("could not mark run failed")
			}
		}
		return nil, &PipelineError{Phase: phase, Err: err}
	}

	// Phase 3: Resolve
	summary.EmptyDiagnosesBefore, _ = rips.CountEmptyDiagnoses(pf.Document)
	log.Info().
		Int("workers", cfg.Workers).
		Int("empty_diagnoses", summary.EmptyDiagnosesBefore).
		Msg("resolving patients")

	resolveStart := time.Now()
	eng := &engine.Engine{
		Index:      ref.Index,
		Normalizer: repair.New(cfg.Rules, ref.Nullify, log),
		Rules:      cfg.Rules,
		Log:        log,
	}
	ledger, err := eng.ResolveDocument(ctx, pf.Document, engine.Options{
		Workers: cfg.Workers,
		Audit:   cfg.Audit || pool != nil,
	})
	if err != nil {
		return fail(PhaseResolve, err)
	}
	summary.Ledger = ledger
	summary.DurationResolve = time.Since(resolveStart)
	summary.EmptyDiagnosesAfter, _ = rips.CountEmptyDiagnoses(pf.Document)

	for _, msg := range ledger.Errors {
		log.Warn().Str("detail", msg).Msg("patient skipped")
	}

	// Phase 4: Persist
	var persisted *PersistResult
	if cfg.DryRun {
		log.Info().Msg("dry run, not writing records")
	} else {
		persisted, err = Persist(log, pf.Document, cfg.RecordsPath, cfg.OutPath, cfg.Backup)
		if err != nil {
			return fail(PhasePersist, err)
		}
		summary.OutputPath = persisted.OutputPath
		summary.OutputSHA256 = persisted.OutputSHA256
		summary.BackupPath = persisted.BackupPath
		summary.DurationPersist = persisted.Duration
	}

	if pool != nil {
		// Phase 5: Record
		if err := UpdateStatus(ctx, pool, pf.RunID, "recording"); err != nil {
			return fail(PhaseRecord, err)
		}
		rec, err := Record(ctx, pool, log, pf.RunID, ledger)
		if err != nil {
			return fail(PhaseRecord, err)
		}
		summary.DurationRecord = rec.Duration

		// Phase 6: Finalize
		if _, err := Finalize(ctx, pool, log, pf.RunID, persisted, ref.Degraded, ledger); err != nil {
			return fail(PhaseFinalize, err)
		}
	}

	summary.DurationTotal = time.Since(totalStart)

	counters := zerolog.Dict()
	for _, c := range ledger.Categories() {
		counters.Int64(string(c), ledger.Count(c))
	}
	log.Info().
		Dict("counters", counters).
		Int64("changes", ledger.Changes()).
		Int("errors", len(ledger.Errors)).
		Int("empty_diagnoses_before", summary.EmptyDiagnosesBefore).
		Int("empty_diagnoses_after", summary.EmptyDiagnosesAfter).
		Int64("unmatched", summary.Unmatched()).
		Str("total_duration", summary.DurationTotal.String()).
		Msg("completion pipeline complete")

	return summary, nil
}

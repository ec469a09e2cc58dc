package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/gyeh/ripsfix/internal/db"
	"github.com/gyeh/ripsfix/internal/exitcode"
	"github.com/gyeh/ripsfix/internal/logging"
	"github.com/gyeh/ripsfix/internal/model"
	"github.com/gyeh/ripsfix/internal/pipeline"
)

var requireDB bool

var completeCmd = &cobra.Command{
	Use:   "complete",
	Short: "Complete diagnoses and normalize a RIPS document",
	RunE:  runComplete,
}

func init() {
	addInputFlags(completeCmd)
	f := completeCmd.Flags()
	f.StringVar(&cfg.OutPath, "out", "", "Write the repaired document here instead of overwriting --records")
	f.BoolVar(&cfg.Backup, "backup", true, "Copy the original to <records>.backup before overwriting it (--backup=false to skip)")
	f.BoolVar(&cfg.Force, "force", false, "Process even if a completed run already consumed or produced this file")
	f.BoolVar(&cfg.DryRun, "dry-run", false, "Resolve and report without writing the document or the run registry")
	f.BoolVar(&cfg.Audit, "audit", false, "Print every field change to stdout")
	f.Float64Var(&cfg.MaxUnmatchedRatio, "max-unmatched-ratio", 1.0, "Exit with partial success when the share of unmatched patients exceeds this")
	f.BoolVar(&requireDB, "require-db", false, "Fail unless --dsn is set, so every run is recorded")
	rootCmd.AddCommand(completeCmd)
}

func runComplete(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := loadRules(); err != nil {
		log.Error().Err(err).Msg("rules file invalid")
		os.Exit(exitcode.UsageError)
	}
	validate := cfg.Validate
	if requireDB {
		validate = cfg.ValidateWithDSN
	}
	if err := validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	var pool *pgxpool.Pool
	if cfg.DSN != "" && !cfg.DryRun {
		p, err := db.NewPool(ctx, cfg.DSN)
		if err != nil {
			log.Error().Err(err).Msg("database connection failed")
			os.Exit(exitcode.DBConnError)
		}
		defer p.Close()
		pool = p
	}

	summary, err := pipeline.Run(ctx, pool, log, &cfg)
	if err != nil {
		var pe *pipeline.PipelineError
		if errors.As(err, &pe) {
			log.Error().Err(pe.Err).Str("phase", pe.Phase).Msg("completion failed")
			os.Exit(phaseExitCode(pe.Phase))
		}
		log.Error().Err(err).Msg("completion failed")
		os.Exit(exitcode.ResolveError)
	}

	if summary.AlreadyProcessed {
		fmt.Printf("Already processed by run %s, nothing to do\n", summary.RunID)
		return nil
	}

	if cfg.Audit {
		printEvents(summary.Ledger)
	}

	l := summary.Ledger
	fmt.Printf("Completion done: %d patients, %d matched, %d diagnoses completed, %d changes, %d errors (%.1fs)\n",
		l.Count(model.PatientsProcessed), l.Count(model.PatientsMatched),
		l.Count(model.PrincipalDiagnosisCompletions), l.Changes(), len(l.Errors),
		summary.DurationTotal.Seconds())

	if ratio := summary.UnmatchedRatio(); ratio > cfg.MaxUnmatchedRatio {
		log.Warn().
			Float64("unmatched_ratio", ratio).
			Float64("max", cfg.MaxUnmatchedRatio).
			Msg("too many patients without a reference match")
		os.Exit(exitcode.PartialSuccess)
	}
	return nil
}

func phaseExitCode(phase string) int {
	switch phase {
	case pipeline.PhaseReference:
		return exitcode.ReferenceError
	case pipeline.PhasePreflight:
		return exitcode.ValidationError
	case pipeline.PhasePersist:
		return exitcode.WriteError
	case pipeline.PhaseRecord, pipeline.PhaseFinalize:
		return exitcode.RecordError
	default:
		return exitcode.ResolveError
	}
}

func printEvents(l *model.Ledger) {
	if !l.Auditing() {
		return
	}
	for _, ev := range l.Events {
		at := ev.Location
		where := fmt.Sprintf("usuarios[%d]", at.PatientIndex)
		if at.ServiceIndex >= 0 {
			where += fmt.Sprintf(".%s[%d]", at.ServiceList, at.ServiceIndex)
		}
		fmt.Printf("%-40s %-28s %q -> %q  (%s)\n", where, ev.Field, ev.Old, ev.New, ev.Category)
	}
}

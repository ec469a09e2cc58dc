package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/ripsfix/internal/engine"
	"github.com/gyeh/ripsfix/internal/exitcode"
	"github.com/gyeh/ripsfix/internal/logging"
	"github.com/gyeh/ripsfix/internal/model"
	"github.com/gyeh/ripsfix/internal/normalize"
	"github.com/gyeh/ripsfix/internal/pipeline"
	"github.com/gyeh/ripsfix/internal/repair"
	"github.com/gyeh/ripsfix/internal/rips"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Dry-run resolution and stats (no writes)",
	RunE:  runPlan,
}

func init() {
	addInputFlags(planCmd)
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ctx := context.Background()

	if err := loadRules(); err != nil {
		log.Error().Err(err).Msg("rules file invalid")
		os.Exit(exitcode.UsageError)
	}
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	ref, err := pipeline.LoadReference(log, &cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to load reference")
		os.Exit(exitcode.ReferenceError)
	}

	pf, err := pipeline.Preflight(ctx, nil, log, cfg.RecordsPath, cfg.ReferencePath, false, false)
	if err != nil {
		log.Error().Err(err).Msg("failed to read records")
		os.Exit(exitcode.ValidationError)
	}

	refSHA, err := normalize.FileHash(cfg.ReferencePath)
	if err != nil {
		log.Error().Err(err).Msg("failed to hash reference")
		os.Exit(exitcode.ReferenceError)
	}

	emptyBefore, services := rips.CountEmptyDiagnoses(pf.Document)

	eng := &engine.Engine{
		Index:      ref.Index,
		Normalizer: repair.New(cfg.Rules, ref.Nullify, log),
		Rules:      cfg.Rules,
		Log:        log,
	}
	ledger, err := eng.ResolveDocument(ctx, pf.Document, engine.Options{Workers: cfg.Workers})
	if err != nil {
		log.Error().Err(err).Msg("resolution failed")
		os.Exit(exitcode.ResolveError)
	}
	emptyAfter, _ := rips.CountEmptyDiagnoses(pf.Document)

	// Print report
	fmt.Println("=== ripsfix plan ===")
	fmt.Printf("Records:    %s\n", cfg.RecordsPath)
	fmt.Printf("SHA-256:    %s\n", pf.RecordsSHA256)
	fmt.Printf("Size:       %d bytes\n", pf.FileSize)
	fmt.Printf("Reference:  %s (sha256 %s)\n", cfg.ReferencePath, refSHA)
	fmt.Printf("Index:      %d entries (%d rows, %d skipped, %d duplicates)\n",
		ref.Index.Len(), ref.Stats.Rows, ref.Stats.Skipped, ref.Stats.Duplicates)
	if ref.Degraded {
		fmt.Println("            DEGRADED: reference columns not identified, index is empty")
	}
	fmt.Printf("Nullify:    %d codes\n", ref.Nullify.Len())
	fmt.Println()

	fmt.Printf("Patients:   %d processed, %d matched\n",
		ledger.Count(model.PatientsProcessed), ledger.Count(model.PatientsMatched))
	fmt.Printf("  %-10s %d\n", "exact", ledger.Count(model.MatchedExact))
	fmt.Printf("  %-10s %d\n", "number", ledger.Count(model.MatchedNumber))
	fmt.Printf("  %-10s %d\n", "suffix", ledger.Count(model.MatchedSuffix))
	fmt.Printf("  %-10s %d\n", "alias", ledger.Count(model.MatchedAlias))
	fmt.Printf("Services:   %d (%d without principal diagnosis → %d after completion)\n",
		services, emptyBefore, emptyAfter)
	fmt.Println()

	fmt.Println("Projected changes:")
	for _, c := range model.ChangeCategories {
		if n := ledger.Count(c); n > 0 {
			fmt.Printf("  %-36s %d\n", c, n)
		}
	}
	fmt.Printf("Total: %d changes, %d patient errors\n", ledger.Changes(), len(ledger.Errors))
	for _, msg := range ledger.Errors {
		fmt.Printf("  error: %s\n", msg)
	}

	return nil
}

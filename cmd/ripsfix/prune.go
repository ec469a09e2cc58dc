package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyeh/ripsfix/internal/db"
	"github.com/gyeh/ripsfix/internal/exitcode"
	"github.com/gyeh/ripsfix/internal/logging"
	"github.com/gyeh/ripsfix/internal/pipeline"
)

var (
	pruneOlderThan  time.Duration
	pruneFailedOnly bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old runs and their audit trail from the registry",
	RunE:  runPrune,
}

func init() {
	f := pruneCmd.Flags()
	f.DurationVar(&pruneOlderThan, "older-than", 90*24*time.Hour, "Delete runs started before now minus this duration")
	f.BoolVar(&pruneFailedOnly, "failed-only", false, "Only delete failed runs")
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ctx := context.Background()

	if cfg.DSN == "" {
		log.Error().Msg("--dsn or RIPSFIX_DB_URL is required")
		os.Exit(exitcode.UsageError)
	}
	if pruneOlderThan <= 0 {
		log.Error().Dur("older_than", pruneOlderThan).Msg("--older-than must be positive")
		os.Exit(exitcode.UsageError)
	}

	pool, err := db.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer pool.Close()

	n, err := pipeline.Prune(ctx, pool, log, time.Now().Add(-pruneOlderThan), pruneFailedOnly)
	if err != nil {
		log.Error().Err(err).Msg("prune failed")
		os.Exit(exitcode.RecordError)
	}

	fmt.Printf("Pruned %d runs\n", n)
	return nil
}

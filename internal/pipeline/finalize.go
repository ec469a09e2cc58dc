package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/ripsfix/internal/model"
	embedsql "github.com/gyeh/ripsfix/internal/sql"
)

// Finalize marks the run completed and stores the output digest, so a later
// run over the repaired file is recognized as already processed.
func Finalize(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, runID uuid.UUID, persisted *PersistResult, degraded bool, ledger *model.Ledger) (time.Duration, error) {
	start := time.Now()

	var outName, outSHA *string
	if persisted != nil {
		outName, outSHA = &persisted.OutputPath, &persisted.OutputSHA256
	}

	tag, err := pool.Exec(ctx, embedsql.FinishRun,
		runID, outName, outSHA, degraded,
		ledger.Count(model.PatientsProcessed), ledger.Changes(),
	)
	if err != nil {
		return 0, fmt.Errorf("finish run: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return 0, fmt.Errorf("finish run: run %s not registered", runID)
	}

	log.Info().Str("run_id", runID.String()).Msg("run completed")
	return time.Since(start), nil
}

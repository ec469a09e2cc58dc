package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	embedsql "github.com/gyeh/ripsfix/internal/sql"
)

// Prune deletes runs started before cutoff together with their counters,
// errors and change events. Running runs are never touched. With failedOnly
// set, completed runs are kept so their digests still short-circuit reruns.
func Prune(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, cutoff time.Time, failedOnly bool) (int64, error) {
	start := time.Now()

	tag, err := pool.Exec(ctx, embedsql.PruneRuns, cutoff, failedOnly)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}

	log.Info().
		Int64("runs_deleted", tag.RowsAffected()).
		Time("cutoff", cutoff).
		Bool("failed_only", failedOnly).
		Dur("duration", time.Since(start)).
		Msg("run cleanup complete")

	return tag.RowsAffected(), nil
}

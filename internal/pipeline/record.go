package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/ripsfix/internal/db"
	"github.com/gyeh/ripsfix/internal/model"
)

const eventBufferSize = 1024

// RecordResult holds metrics from the record phase.
type RecordResult struct {
	EventsCopied   int64
	CountersCopied int64
	ErrorsCopied   int64
	Duration       time.Duration
}

// Record writes the ledger of one run into the ripsfix schema: every audit
// event into change_events (streamed through COPY), the counters into
// run_counters, and the per-patient errors into run_errors.
func Record(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, runID uuid.UUID, ledger *model.Ledger) (*RecordResult, error) {
	start := time.Now()
	res := &RecordResult{}

	if len(ledger.Events) > 0 {
		n, err := copyEvents(ctx, pool, runID, ledger.Events)
		if err != nil {
			return nil, err
		}
		res.EventsCopied = n
	}

	counterRows := make([][]any, 0, len(ledger.Counts))
	for _, c := range ledger.Categories() {
		counterRows = append(counterRows, []any{runID, string(c), ledger.Count(c)})
	}
	if len(counterRows) > 0 {
		n, err := pool.CopyFrom(ctx,
			pgx.Identifier{"ripsfix", "run_counters"},
			[]string{"run_id", "category", "value"},
			pgx.CopyFromRows(counterRows),
		)
		if err != nil {
			return nil, fmt.Errorf("record counters: %w", err)
		}
		res.CountersCopied = n
	}

	if len(ledger.Errors) > 0 {
		n, err := pool.CopyFrom(ctx,
			pgx.Identifier{"ripsfix", "run_errors"},
			[]string{"run_id", "seq", "message"},
			pgx.CopyFromSlice(len(ledger.Errors), func(i int) ([]any, error) {
				return []any{runID, int32(i + 1), ledger.Errors[i]}, nil
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("record errors: %w", err)
		}
		res.ErrorsCopied = n
	}

	res.Duration = time.Since(start)
	log.Info().
		Int64("events", res.EventsCopied).
		Int64("counters", res.CountersCopied).
		Int64("errors", res.ErrorsCopied).
		Dur("duration", res.Duration).
		Msg("run recorded")
	return res, nil
}

// copyEvents streams events into ripsfix.change_events through a
// channel-backed CopyFromSource.
func copyEvents(ctx context.Context, pool *pgxpool.Pool, runID uuid.UUID, events []model.ChangeEvent) (int64, error) {
	ch := make(chan *model.EventRow, eventBufferSize)
	errCh := make(chan error, 1)

	// Producer goroutine: tag events with run and sequence → push to channel
	go func() {
		defer close(ch)
		for i := range events {
			row := &model.EventRow{RunID: runID, Seq: int64(i + 1), Event: events[i]}
			select {
			case ch <- row:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		errCh <- nil
	}()

	// Consumer: COPY from channel into change_events
	source := db.NewChannelSource(ch)
	copied, err := pool.CopyFrom(ctx,
		pgx.Identifier{"ripsfix", "change_events"},
		model.EventColumns(),
		source,
	)
	if err != nil {
		// Unblock the producer if COPY stopped reading early.
		for range ch {
		}
	}

	// Wait for producer to finish
	prodErr := <-errCh
	if prodErr != nil {
		return 0, fmt.Errorf("record events producer: %w", prodErr)
	}
	if err != nil {
		return 0, fmt.Errorf("record events copy: %w", err)
	}
	return copied, nil
}

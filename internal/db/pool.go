package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// maxConns bounds the pool: a run holds at most the registry connection and
// one COPY into change_events or run_errors.
const maxConns = 4

// NewPool opens the run registry pool. Sessions are tagged with the ripsfix
// application name unless the DSN already sets one, and never time out a
// statement so a large change_events COPY can finish. A session left idle in
// an aborted transaction is closed so it cannot hold a run row locked.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	params := cfg.ConnConfig.RuntimeParams
	params["statement_timeout"] = "0"
	params["idle_in_transaction_session_timeout"] = "60000"
	if params["application_name"] == "" {
		params["application_name"] = "ripsfix"
	}
	if cfg.MaxConns > maxConns {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("registry unreachable: %w", err)
	}

	return pool, nil
}

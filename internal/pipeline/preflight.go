package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/ripsfix/internal/normalize"
	"github.com/gyeh/ripsfix/internal/rips"
	embedsql "github.com/gyeh/ripsfix/internal/sql"
)

// PreflightResult holds all context resolved during the preflight phase.
type PreflightResult struct {
	// RecordsPath is the original path passed to Preflight, stored as-is.
	RecordsPath string
	// RecordsSHA256 is the hex-encoded SHA-256 digest of the raw file bytes.
	RecordsSHA256 string
	// FileSize is the file size in bytes.
	FileSize int64
	// Document is the decoded record tree. It is nil when AlreadyProcessed.
	Document *rips.Document
	// RunID uniquely identifies this run. It keys every row written to the
	// ripsfix schema.
	RunID uuid.UUID
	// Registered is true when the run was inserted into ripsfix.runs.
	Registered bool
	// AlreadyProcessed is true when a completed run already consumed or
	// produced a file with this digest and force mode is off.
	AlreadyProcessed bool
	// PreviousRunID is the completed run that matched, when AlreadyProcessed.
	PreviousRunID uuid.UUID
}

// Preflight reads and hashes the record document, checks the run registry
// for an earlier completed run over the same content, decodes the document
// and registers the new run. pool may be nil, in which case the registry is
// skipped.
func Preflight(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, recordsPath, referencePath string, force, register bool) (*PreflightResult, error) {
	start := time.Now()

	data, err := os.ReadFile(recordsPath)
	if err != nil {
		return nil, fmt.Errorf("preflight read: %w", err)
	}
	sha := normalize.ContentHash(data)

	res := &PreflightResult{
		RecordsPath:   recordsPath,
		RecordsSHA256: sha,
		FileSize:      int64(len(data)),
		RunID:         uuid.New(),
	}

	if pool != nil {
		prev, found, err := lookupCompletedRun(ctx, pool, sha)
		if err != nil {
			return nil, fmt.Errorf("preflight lookup run: %w", err)
		}
		if found && !force {
			res.AlreadyProcessed = true
			res.PreviousRunID = prev
			return res, nil
		}
	}

	doc, err := rips.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("preflight decode: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("preflight validate: %w", err)
	}
	res.Document = doc

	users, _ := doc.Patients()
	log.Info().
		Str("file", filepath.Base(recordsPath)).
		Str("sha256", sha).
		Int64("bytes", res.FileSize).
		Int("patients", len(users)).
		Dur("duration", time.Since(start)).
		Msg("preflight complete")

	if pool != nil && register {
		if _, err := pool.Exec(ctx, embedsql.RegisterRun,
			res.RunID, filepath.Base(recordsPath), sha, filepath.Base(referencePath),
		); err != nil {
			return nil, fmt.Errorf("preflight register run: %w", err)
		}
		res.Registered = true
	}
	return res, nil
}

// lookupCompletedRun finds the latest completed run whose source or output
// digest equals sha. Matching the output digest keeps an already repaired
// file from being treated as new input.
func lookupCompletedRun(ctx context.Context, pool *pgxpool.Pool, sha string) (uuid.UUID, bool, error) {
	var (
		runID     uuid.UUID
		sourceSHA string
		outputSHA string
	)
	err := pool.QueryRow(ctx, embedsql.LookupCompletedRun, sha).Scan(&runID, &sourceSHA, &outputSHA)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return runID, true, nil
}

// UpdateStatus updates the run status.
func UpdateStatus(ctx context.Context, pool *pgxpool.Pool, runID uuid.UUID, status string) error {
	_, err := pool.Exec(ctx, embedsql.UpdateRunStatus, runID, status)
	return err
}

package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/ripsfix/internal/model"
	"github.com/gyeh/ripsfix/internal/normalize"
	"github.com/gyeh/ripsfix/internal/pipeline"
	embedsql "github.com/gyeh/ripsfix/internal/sql"
)

// ---------- helpers ----------

// registerRun inserts a run row and returns its ID.
func registerRun(t *testing.T, pool *pgxpool.Pool, sha string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if _, err := pool.Exec(context.Background(), embedsql.RegisterRun, id, "rips.json", sha, "reference.csv"); err != nil {
		t.Fatalf("register run sha=%s: %v", sha, err)
	}
	return id
}

func runStatus(t *testing.T, pool *pgxpool.Pool, id uuid.UUID) string {
	t.Helper()
	var status string
	if err := pool.QueryRow(context.Background(),
		"SELECT status FROM ripsfix.runs WHERE run_id = $1", id).Scan(&status); err != nil {
		t.Fatalf("query status: %v", err)
	}
	return status
}

func setStartedAt(t *testing.T, pool *pgxpool.Pool, id uuid.UUID, at time.Time) {
	t.Helper()
	if _, err := pool.Exec(context.Background(),
		"UPDATE ripsfix.runs SET started_at = $2 WHERE run_id = $1", id, at); err != nil {
		t.Fatalf("set started_at: %v", err)
	}
}

// ---------- tests ----------

func TestSQL_UpdateStatus(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	id := registerRun(t, pool, "aaa")

	if got := runStatus(t, pool, id); got != "running" {
		t.Errorf("initial status = %q, want running", got)
	}
	if err := pipeline.UpdateStatus(ctx, pool, id, "recording"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	var finished *time.Time
	if err := pool.QueryRow(ctx, "SELECT finished_at FROM ripsfix.runs WHERE run_id = $1", id).Scan(&finished); err != nil {
		t.Fatal(err)
	}
	if finished != nil {
		t.Error("finished_at set for a non-terminal status")
	}

	if err := pipeline.UpdateStatus(ctx, pool, id, "failed"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := pool.QueryRow(ctx, "SELECT finished_at FROM ripsfix.runs WHERE run_id = $1", id).Scan(&finished); err != nil {
		t.Fatal(err)
	}
	if finished == nil {
		t.Error("finished_at not set for failed run")
	}
}

func TestSQL_RecordAndFinalize(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	id := registerRun(t, pool, "bbb")

	key := model.NewPatientKey("CC", "42")
	ledger := model.NewLedger(true)
	ledger.Record(model.ChangeEvent{
		Category: model.CountryFixups,
		Location: model.PatientLocation(0, key),
		Field:    model.FieldCountry,
		Old:      normalize.None(),
		New:      normalize.Some("170"),
	})
	ledger.Record(model.ChangeEvent{
		Category: model.RelatedDiagnosisNullifications,
		Location: model.PatientLocation(0, key).Service("procedimientos", 3),
		Field:    model.FieldRelatedDiagnosis1,
		Old:      normalize.Some("Z000"),
		New:      normalize.None(),
	})
	ledger.Inc(model.PatientsProcessed)
	ledger.Errorf("patient %d: bad", 1)

	rec, err := pipeline.Record(ctx, pool, zerolog.Nop(), id, ledger)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.EventsCopied != 2 || rec.ErrorsCopied != 1 || rec.CountersCopied != 3 {
		t.Errorf("copied = %+v", rec)
	}

	var (
		list     *string
		idx      *int32
		oldValue *string
		newValue *string
	)
	if err := pool.QueryRow(ctx, `
		SELECT service_list, service_index, old_value, new_value
		FROM ripsfix.change_events WHERE run_id = $1 AND seq = 1`, id,
	).Scan(&list, &idx, &oldValue, &newValue); err != nil {
		t.Fatal(err)
	}
	if list != nil || idx != nil || oldValue != nil || newValue == nil || *newValue != "170" {
		t.Errorf("patient-level event = %v %v %v %v", list, idx, oldValue, newValue)
	}
	if err := pool.QueryRow(ctx, `
		SELECT service_list, service_index, old_value, new_value
		FROM ripsfix.change_events WHERE run_id = $1 AND seq = 2`, id,
	).Scan(&list, &idx, &oldValue, &newValue); err != nil {
		t.Fatal(err)
	}
	if list == nil || *list != "procedimientos" || idx == nil || *idx != 3 || newValue != nil {
		t.Errorf("service event = %v %v %v %v", list, idx, oldValue, newValue)
	}

	var msg string
	if err := pool.QueryRow(ctx, "SELECT message FROM ripsfix.run_errors WHERE run_id = $1 AND seq = 1", id).Scan(&msg); err != nil {
		t.Fatal(err)
	}
	if msg != "patient 1: bad" {
		t.Errorf("error message = %q", msg)
	}

	persisted := &pipeline.PersistResult{OutputPath: "out.json", OutputSHA256: "ccc"}
	if _, err := pipeline.Finalize(ctx, pool, zerolog.Nop(), id, persisted, true, ledger); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	var (
		status   string
		degraded bool
		changes  int64
	)
	if err := pool.QueryRow(ctx,
		"SELECT status, degraded_index, changes FROM ripsfix.runs WHERE run_id = $1", id,
	).Scan(&status, &degraded, &changes); err != nil {
		t.Fatal(err)
	}
	if status != "completed" || !degraded || changes != 2 {
		t.Errorf("run = %s degraded=%v changes=%d", status, degraded, changes)
	}
}

func TestSQL_FinalizeUnknownRun(t *testing.T) {
	pool := setupDB(t)
	_, err := pipeline.Finalize(context.Background(), pool, zerolog.Nop(), uuid.New(), nil, false, model.NewLedger(false))
	if err == nil {
		t.Fatal("expected error for unregistered run")
	}
}

func TestSQL_Prune(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)

	oldFailed := registerRun(t, pool, "f1")
	setStartedAt(t, pool, oldFailed, old)
	if err := pipeline.UpdateStatus(ctx, pool, oldFailed, "failed"); err != nil {
		t.Fatal(err)
	}

	oldCompleted := registerRun(t, pool, "c1")
	setStartedAt(t, pool, oldCompleted, old)
	if err := pipeline.UpdateStatus(ctx, pool, oldCompleted, "completed"); err != nil {
		t.Fatal(err)
	}

	oldRunning := registerRun(t, pool, "r1")
	setStartedAt(t, pool, oldRunning, old)

	fresh := registerRun(t, pool, "n1")
	if err := pipeline.UpdateStatus(ctx, pool, fresh, "failed"); err != nil {
		t.Fatal(err)
	}

	cutoff := time.Now().Add(-24 * time.Hour)

	n, err := pipeline.Prune(ctx, pool, zerolog.Nop(), cutoff, true)
	if err != nil {
		t.Fatalf("Prune failed-only: %v", err)
	}
	if n != 1 {
		t.Errorf("failed-only pruned %d, want 1", n)
	}

	n, err = pipeline.Prune(ctx, pool, zerolog.Nop(), cutoff, false)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d, want 1 (the old completed run)", n)
	}

	var left int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM ripsfix.runs").Scan(&left); err != nil {
		t.Fatal(err)
	}
	if left != 2 {
		t.Errorf("runs left = %d, want 2 (running + fresh)", left)
	}
}

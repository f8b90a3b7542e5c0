package testsupport

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"ngffconverter/internal/config"
	"ngffconverter/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// RecordEntry inserts a history entry for input with the given outcome.
func RecordEntry(t testing.TB, store *queue.Store, input string, outcome queue.Outcome) *queue.Entry {
	t.Helper()

	now := time.Now().UTC()
	entry := &queue.Entry{
		RunID:       uuid.NewString(),
		WorkflowID:  uuid.NewString(),
		InputPath:   input,
		Format:      "OME-NGFF",
		FinalOutput: input + ".zarr",
		Outcome:     outcome,
		StartedAt:   now.Add(-time.Minute),
		FinishedAt:  now,
	}
	if err := store.Record(context.Background(), entry); err != nil {
		t.Fatalf("store.Record: %v", err)
	}
	return entry
}

// MustOpenSQLite opens a raw SQLite handle for tests that tamper with a
// database directly.
func MustOpenSQLite(t testing.TB, path string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

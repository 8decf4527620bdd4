package testsupport

import (
	"context"
	"testing"

	"meshbatch/internal/config"
	"meshbatch/internal/ledger"
)

// MustOpenLedger opens a ledger.Store for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// BeginRun starts a run for tests using the provided store.
func BeginRun(t testing.TB, store *ledger.Store, command, inputDir, outputDir string) *ledger.Run {
	t.Helper()

	run, err := store.BeginRun(context.Background(), command, inputDir, outputDir)
	if err != nil {
		t.Fatalf("store.BeginRun: %v", err)
	}
	return run
}

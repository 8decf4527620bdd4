package scene_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"meshbatch/internal/scene"
)

func TestWatchRebuildsOnMeshChanges(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeMeshes(t, in, "interface_000001.obj")
	b := newBuilder(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	builds := make(chan *scene.Report, 8)
	done := make(chan error, 1)
	go func() {
		done <- b.Watch(ctx, in, 50*time.Millisecond, func(ctx context.Context) error {
			report, err := b.Build(ctx, in, out)
			if err != nil {
				return err
			}
			builds <- report
			return nil
		})
	}()

	first := waitReport(t, builds)
	if len(first.Written) != 1 {
		t.Fatalf("initial build wrote %d documents", len(first.Written))
	}

	// Unrelated files are ignored; the mesh triggers a rebuild.
	if err := os.WriteFile(filepath.Join(in, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeMeshes(t, in, "interface_000002.obj")
	second := waitReport(t, builds)
	if len(second.Written) != 2 {
		t.Fatalf("rebuild wrote %d documents, want 2", len(second.Written))
	}
	if _, err := os.Stat(filepath.Join(out, "out000002.xml")); err != nil {
		t.Fatalf("expected new scene document: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch returned %v after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}

func TestWatchStopsOnRebuildError(t *testing.T) {
	in := t.TempDir()
	b := newBuilder(t, nil)
	boom := errors.New("boom")
	err := b.Watch(context.Background(), in, 10*time.Millisecond, func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected rebuild error, got %v", err)
	}
}

func TestWatchRejectsMissingInput(t *testing.T) {
	b := newBuilder(t, nil)
	err := b.Watch(context.Background(), filepath.Join(t.TempDir(), "missing"), 0, func(context.Context) error { return nil })
	if !errors.Is(err, scene.ErrInvalidInputPath) {
		t.Fatalf("expected ErrInvalidInputPath, got %v", err)
	}
}

func waitReport(t *testing.T, builds <-chan *scene.Report) *scene.Report {
	t.Helper()
	select {
	case report := <-builds:
		return report
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a build")
		return nil
	}
}

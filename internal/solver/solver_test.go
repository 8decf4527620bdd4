package solver_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"meshbatch/internal/ledger"
	"meshbatch/internal/solver"
	"meshbatch/internal/testsupport"
)

// fakeSolver writes the output file named by its second argument and fails
// for inputs whose base name contains "bad".
type fakeSolver struct {
	mu       sync.Mutex
	calls    []string
	active   atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
	failWith error
}

func (f *fakeSolver) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cur := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		prev := f.peak.Load()
		if cur <= prev || f.peak.CompareAndSwap(prev, cur) {
			break
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, filepath.Base(args[0]))
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	onLine("solving " + args[0])
	if strings.Contains(filepath.Base(args[0]), "bad") {
		if f.failWith != nil {
			return f.failWith
		}
		return errors.New("exit status 1")
	}
	return os.WriteFile(args[1], []byte("solution"), 0o644)
}

func TestOutputName(t *testing.T) {
	cases := map[string]string{
		"frame0001.msh":     "outframe0001.dat",
		"/x/frame2.tar.bem": "outframe2.dat",
		"plain":             "outplain.dat",
	}
	for input, want := range cases {
		if got := solver.OutputName("out", input, ".dat"); got != want {
			t.Fatalf("OutputName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestRunSolvesEveryFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "bemout")
	testsupport.WriteFiles(t, in, "f1.msh", "f2.msh", "bad3.msh")
	if err := os.Mkdir(filepath.Join(in, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	exec := &fakeSolver{}
	runner, err := solver.New(cfg, solver.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	summary, err := runner.Run(context.Background(), in, out, solver.RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.CreatedOutputDir {
		t.Fatal("expected output directory creation")
	}
	if summary.Succeeded != 2 || summary.Failed != 1 || summary.Skipped != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	var statuses []ledger.ArtifactStatus
	for _, o := range summary.Outcomes {
		statuses = append(statuses, o.Status)
	}
	want := []ledger.ArtifactStatus{ledger.ArtifactFailed, ledger.ArtifactSucceeded, ledger.ArtifactSucceeded}
	if diff := cmp.Diff(want, statuses); diff != "" {
		t.Fatalf("statuses in input order (-want +got):\n%s", diff)
	}
	if summary.Outcomes[1].Output != filepath.Join(out, "outf1.dat") {
		t.Fatalf("unexpected output path %s", summary.Outcomes[1].Output)
	}
	if _, err := os.Stat(filepath.Join(out, "outf2.dat")); err != nil {
		t.Fatalf("expected solver output: %v", err)
	}
}

func TestRunRespectsJobLimit(t *testing.T) {
	defer goleak.VerifyNone(t)
	cfg := testsupport.NewConfig(t, testsupport.WithSolverJobs(2))
	in := t.TempDir()
	testsupport.WriteFiles(t, in, "a", "b", "c", "d", "e", "f")

	exec := &fakeSolver{delay: 30 * time.Millisecond}
	runner, err := solver.New(cfg, solver.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	summary, err := runner.Run(context.Background(), in, t.TempDir(), solver.RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Succeeded != 6 {
		t.Fatalf("expected 6 successes, got %+v", summary)
	}
	if peak := exec.peak.Load(); peak > 2 {
		t.Fatalf("expected at most 2 concurrent solver processes, saw %d", peak)
	}

	exec = &fakeSolver{delay: 30 * time.Millisecond}
	runner, _ = solver.New(cfg, solver.WithExecutor(exec))
	if _, err := runner.Run(context.Background(), in, t.TempDir(), solver.RunOptions{Jobs: 1}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if peak := exec.peak.Load(); peak != 1 {
		t.Fatalf("jobs override should serialize runs, saw %d", peak)
	}
}

func TestRunResumesFromLedger(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	in := t.TempDir()
	out := t.TempDir()
	testsupport.WriteFiles(t, in, "f1.msh", "f2.msh")
	ctx := context.Background()

	first := testsupport.BeginRun(t, store, "solve", in, out)
	exec := &fakeSolver{}
	runner, err := solver.New(cfg, solver.WithExecutor(exec), solver.WithLedger(store))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := runner.Run(ctx, in, out, solver.RunOptions{RunID: first.ID}); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if len(exec.calls) != 2 {
		t.Fatalf("expected 2 solver calls, got %v", exec.calls)
	}

	// Removing one output forces it to be solved again.
	if err := os.Remove(filepath.Join(out, "outf2.dat")); err != nil {
		t.Fatal(err)
	}
	second := testsupport.BeginRun(t, store, "solve", in, out)
	exec = &fakeSolver{}
	runner, _ = solver.New(cfg, solver.WithExecutor(exec), solver.WithLedger(store))
	summary, err := runner.Run(ctx, in, out, solver.RunOptions{RunID: second.ID})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.Skipped != 1 || summary.Succeeded != 1 {
		t.Fatalf("unexpected resume summary: %+v", summary)
	}
	if diff := cmp.Diff([]string{"f2.msh"}, exec.calls); diff != "" {
		t.Fatalf("resumed calls (-want +got):\n%s", diff)
	}

	artifacts, err := store.Artifacts(ctx, second.ID)
	if err != nil {
		t.Fatalf("Artifacts: %v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("expected 2 artifacts for second run, got %d", len(artifacts))
	}

	third := testsupport.BeginRun(t, store, "solve", in, out)
	exec = &fakeSolver{}
	runner, _ = solver.New(cfg, solver.WithExecutor(exec), solver.WithLedger(store))
	summary, err = runner.Run(ctx, in, out, solver.RunOptions{RunID: third.ID, Force: true})
	if err != nil {
		t.Fatalf("forced Run: %v", err)
	}
	if summary.Succeeded != 2 || len(exec.calls) != 2 {
		t.Fatalf("force should rerun everything: %+v calls=%v", summary, exec.calls)
	}
}

func TestRunResolvesChangedInputs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	in := t.TempDir()
	out := t.TempDir()
	testsupport.WriteFiles(t, in, "f1.msh", "f2.msh")
	ctx := context.Background()

	first := testsupport.BeginRun(t, store, "solve", in, out)
	runner, err := solver.New(cfg, solver.WithExecutor(&fakeSolver{}), solver.WithLedger(store))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := runner.Run(ctx, in, out, solver.RunOptions{RunID: first.ID}); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	// Regenerate f1 in place; its output from the first run is still on disk.
	regenerated := filepath.Join(in, "f1.msh")
	if err := os.WriteFile(regenerated, []byte("remeshed with more triangles"), 0o644); err != nil {
		t.Fatal(err)
	}
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(regenerated, later, later); err != nil {
		t.Fatal(err)
	}

	second := testsupport.BeginRun(t, store, "solve", in, out)
	exec := &fakeSolver{}
	runner, _ = solver.New(cfg, solver.WithExecutor(exec), solver.WithLedger(store))
	summary, err := runner.Run(ctx, in, out, solver.RunOptions{RunID: second.ID})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if diff := cmp.Diff([]string{"f1.msh"}, exec.calls); diff != "" {
		t.Fatalf("changed input should be solved again (-want +got):\n%s", diff)
	}
	if summary.Succeeded != 1 || summary.Skipped != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestRunRequiresRunIDWithLedger(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	runner, err := solver.New(cfg, solver.WithExecutor(&fakeSolver{}), solver.WithLedger(store))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := runner.Run(context.Background(), t.TempDir(), t.TempDir(), solver.RunOptions{}); err == nil {
		t.Fatal("expected error without run id")
	}
}

func TestRunRejectsMissingInput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner, err := solver.New(cfg, solver.WithExecutor(&fakeSolver{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = runner.Run(context.Background(), filepath.Join(t.TempDir(), "missing"), t.TempDir(), solver.RunOptions{})
	if !errors.Is(err, solver.ErrInvalidInputPath) {
		t.Fatalf("expected ErrInvalidInputPath, got %v", err)
	}
}

func TestRunTimesOutSlowSolves(t *testing.T) {
	defer goleak.VerifyNone(t)
	cfg := testsupport.NewConfig(t)
	cfg.Solver.Timeout = 1
	in := t.TempDir()
	testsupport.WriteFiles(t, in, "slow.msh")

	runner, err := solver.New(cfg, solver.WithExecutor(&fakeSolver{delay: 5 * time.Second}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	summary, err := runner.Run(context.Background(), in, t.TempDir(), solver.RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 1 || !errors.Is(summary.Outcomes[0].Err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout failure, got %+v", summary.Outcomes)
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)
	cfg := testsupport.NewConfig(t)
	in := t.TempDir()
	testsupport.WriteFiles(t, in, "a", "b")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner, err := solver.New(cfg, solver.WithExecutor(&fakeSolver{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := runner.Run(ctx, in, t.TempDir(), solver.RunOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
